package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	"github.com/yungbote/housedesk-backend/internal/data/repos"
	reqrepo "github.com/yungbote/housedesk-backend/internal/data/repos/requests"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 5000

	superAdminCancelComment = "Отменено супер-администратором"
)

type CreateRequestInput struct {
	Category    string
	Title       string
	Description string
	IsPaid      int
}

type ListRequestsInput struct {
	Status   string
	Category string
	Skip     int
	Limit    int
}

type TransitionRequestInput struct {
	Status          string
	Comment         string
	ExpectedVersion *int
}

// RequestView is a request plus the creator details clients display next to it.
type RequestView struct {
	*requests.MaintenanceRequest
	UserName      string `json:"user_name,omitempty"`
	UserAddress   string `json:"user_address,omitempty"`
	UserApartment string `json:"user_apartment,omitempty"`
}

type RequestDetail struct {
	RequestView
	History            []*requests.HistoryEntry `json:"history"`
	AllowedTransitions []requests.Status        `json:"allowed_transitions"`
}

type StatusCounts struct {
	Total    int64                     `json:"total"`
	ByStatus map[requests.Status]int64 `json:"by_status"`
}

type Stats struct {
	Companies int64        `json:"companies"`
	Houses    int64        `json:"houses"`
	Users     int64        `json:"users"`
	Requests  StatusCounts `json:"requests"`
}

type RequestService interface {
	Create(ctx context.Context, in CreateRequestInput) (*RequestView, error)
	List(ctx context.Context, in ListRequestsInput) ([]*RequestView, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*RequestDetail, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, title, description *string) (*RequestView, error)
	Transition(ctx context.Context, id uuid.UUID, in TransitionRequestInput) (domainagg.TransitionResult, error)
	CancelOverride(ctx context.Context, id uuid.UUID, comment string) (domainagg.TransitionResult, error)
	Stats(ctx context.Context) (*Stats, error)
}

type requestService struct {
	db        *gorm.DB
	log       *logger.Logger
	repos     repos.Set
	lifecycle domainagg.RequestLifecycle
	locker    aggregates.Locker
}

// NewRequestService wires the request API over the lifecycle engine. locker
// must be the same instance the engine uses so detail edits and status
// changes of one request serialize.
func NewRequestService(db *gorm.DB, log *logger.Logger, set repos.Set, lifecycle domainagg.RequestLifecycle, locker aggregates.Locker) RequestService {
	if locker == nil {
		locker = aggregates.NewKeyedLocker(0)
	}
	return &requestService{
		db:        db,
		log:       log.With("service", "RequestService"),
		repos:     set,
		lifecycle: lifecycle,
		locker:    locker,
	}
}

func actorFrom(ctx context.Context, op string) (requests.Actor, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return requests.Actor{}, domainagg.NewError(domainagg.CodeValidation, op, "no authenticated actor", nil)
	}
	return requests.Actor{ID: rd.UserID, Role: requests.Role(rd.Role), CompanyID: rd.CompanyID}, nil
}

func validation(op, format string, args ...any) error {
	return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf(format, args...), nil)
}

func notFound(op, what string) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, what+" not found", nil)
}

func (s *requestService) Create(ctx context.Context, in CreateRequestInput) (*RequestView, error) {
	const op = "Requests.Create"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, err
	}
	category, err := requests.ParseCategory(in.Category)
	if err != nil {
		return nil, validation(op, "%v", err)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation(op, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, validation(op, "title longer than %d characters", maxTitleLen)
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, validation(op, "description longer than %d characters", maxDescriptionLen)
	}
	if in.IsPaid < 0 {
		return nil, validation(op, "is_paid must not be negative")
	}

	var view *RequestView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		users, err := s.repos.Users.GetByIDs(dbc, []uuid.UUID{actor.ID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return notFound(op, "user")
		}
		creator := users[0]
		if creator.HouseID == nil || creator.House == nil {
			return validation(op, "set your address in the profile before filing a request")
		}
		companyID := creator.House.CompanyID
		row := &requests.MaintenanceRequest{
			Category:    category,
			Title:       title,
			Description: description,
			CreatedBy:   creator.ID,
			CompanyID:   &companyID,
			HouseID:     creator.HouseID,
			Apartment:   creator.Apartment,
			IsPaid:      in.IsPaid,
		}
		created, err := s.repos.Requests.Create(dbc, []*requests.MaintenanceRequest{row})
		if err != nil {
			return err
		}
		view = viewOf(created[0], creator)
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("request created", "request_id", view.ID, "created_by", actor.ID, "category", view.Category)
	return view, nil
}

func (s *requestService) List(ctx context.Context, in ListRequestsInput) ([]*RequestView, int64, error) {
	const op = "Requests.List"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, 0, err
	}
	f := reqrepo.ListFilter{Offset: in.Skip, Limit: in.Limit}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if in.Status != "" {
		st, err := requests.ParseStatus(in.Status)
		if err != nil {
			return nil, 0, validation(op, "%v", err)
		}
		f.Status = &st
	}
	if in.Category != "" {
		cat, err := requests.ParseCategory(in.Category)
		if err != nil {
			return nil, 0, validation(op, "%v", err)
		}
		f.Category = &cat
	}

	switch {
	case actor.Role == requests.RoleSuperAdmin:
	case actor.Role.IsStaff():
		if actor.CompanyID == nil {
			return []*RequestView{}, 0, nil
		}
		f.CompanyID = actor.CompanyID
	default:
		id := actor.ID
		f.CreatedBy = &id
	}

	dbc := dbctx.Context{Ctx: ctx}
	rows, total, err := s.repos.Requests.List(dbc, f)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	creators, err := s.creators(dbc, rows)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	out := make([]*RequestView, 0, len(rows))
	for _, r := range rows {
		out = append(out, viewOf(r, creators[r.CreatedBy]))
	}
	return out, total, nil
}

func (s *requestService) creators(dbc dbctx.Context, rows []*requests.MaintenanceRequest) (map[uuid.UUID]*directory.User, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.CreatedBy]; ok {
			continue
		}
		seen[r.CreatedBy] = struct{}{}
		ids = append(ids, r.CreatedBy)
	}
	users, err := s.repos.Users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*directory.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *requestService) Get(ctx context.Context, id uuid.UUID) (*RequestDetail, error) {
	const op = "Requests.Get"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	req, err := s.repos.Requests.GetByID(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if ok, reason := requests.CanView(actor, req); !ok {
		return nil, domainagg.Denied(op, reason)
	}

	var (
		history []*requests.HistoryEntry
		creator *directory.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.repos.History.ListFor(dbctx.Context{Ctx: gctx}, id)
		history = h
		return err
	})
	g.Go(func() error {
		users, err := s.repos.Users.GetByIDs(dbctx.Context{Ctx: gctx}, []uuid.UUID{req.CreatedBy})
		if len(users) > 0 {
			creator = users[0]
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if history == nil {
		history = []*requests.HistoryEntry{}
	}
	return &RequestDetail{
		RequestView:        *viewOf(req, creator),
		History:            history,
		AllowedTransitions: requests.AllowedTransitions(actor, req),
	}, nil
}

func (s *requestService) UpdateDetails(ctx context.Context, id uuid.UUID, title, description *string) (*RequestView, error) {
	const op = "Requests.UpdateDetails"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, err
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, validation(op, "title must not be empty")
		}
		if utf8.RuneCountInString(t) > maxTitleLen {
			return nil, validation(op, "title longer than %d characters", maxTitleLen)
		}
		title = &t
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if utf8.RuneCountInString(d) > maxDescriptionLen {
			return nil, validation(op, "description longer than %d characters", maxDescriptionLen)
		}
		description = &d
	}

	release, err := s.locker.Acquire(ctx, "request:"+id.String())
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	defer release()

	var out *requests.MaintenanceRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		req, err := s.repos.Requests.LockByID(dbc, id)
		if err != nil {
			return err
		}
		if req.CreatedBy != actor.ID {
			return domainagg.Denied(op, requests.ReasonNotOwner)
		}
		if req.Status != requests.StatusNew {
			return validation(op, "only new requests can be edited")
		}
		if title == nil && description == nil {
			out = req
			return nil
		}
		if err := s.repos.Requests.UpdateDetails(dbc, id, title, description); err != nil {
			return err
		}
		out, err = s.repos.Requests.GetByID(dbc, id)
		return err
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return &RequestView{MaintenanceRequest: out}, nil
}

func (s *requestService) Transition(ctx context.Context, id uuid.UUID, in TransitionRequestInput) (domainagg.TransitionResult, error) {
	const op = "Requests.Transition"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return domainagg.TransitionResult{}, err
	}
	target, err := requests.ParseStatus(in.Status)
	if err != nil {
		return domainagg.TransitionResult{}, validation(op, "%v", err)
	}
	return s.lifecycle.ApplyTransition(ctx, domainagg.TransitionInput{
		RequestID:       id,
		Target:          target,
		Comment:         in.Comment,
		Actor:           actor,
		ExpectedVersion: in.ExpectedVersion,
	})
}

// CancelOverride is the super-admin cancel. It goes through the same engine
// path as every other transition, so terminal requests stay untouched.
func (s *requestService) CancelOverride(ctx context.Context, id uuid.UUID, comment string) (domainagg.TransitionResult, error) {
	const op = "Requests.CancelOverride"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return domainagg.TransitionResult{}, err
	}
	if actor.Role != requests.RoleSuperAdmin {
		return domainagg.TransitionResult{}, domainagg.Denied(op, requests.ReasonInsufficientRole)
	}
	if strings.TrimSpace(comment) == "" {
		comment = superAdminCancelComment
	}
	return s.lifecycle.ApplyTransition(ctx, domainagg.TransitionInput{
		RequestID: id,
		Target:    requests.StatusCancelled,
		Comment:   comment,
		Actor:     actor,
		Metadata:  map[string]any{"source": "superadmin"},
	})
}

func (s *requestService) Stats(ctx context.Context) (*Stats, error) {
	const op = "Requests.Stats"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, err
	}
	if actor.Role != requests.RoleSuperAdmin {
		return nil, domainagg.Denied(op, requests.ReasonInsufficientRole)
	}

	out := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() (err error) {
		out.Companies, err = s.repos.Companies.Count(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.Houses, err = s.repos.Houses.Count(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.Users, err = s.repos.Users.Count(dbc)
		return err
	})
	g.Go(func() error {
		byStatus, err := s.repos.Requests.CountByStatus(dbc)
		if err != nil {
			return err
		}
		out.Requests.ByStatus = byStatus
		for _, n := range byStatus {
			out.Requests.Total += n
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return out, nil
}

func viewOf(r *requests.MaintenanceRequest, creator *directory.User) *RequestView {
	v := &RequestView{MaintenanceRequest: r, UserApartment: r.Apartment}
	if creator == nil {
		return v
	}
	v.UserName = creator.FullName()
	if creator.House != nil {
		v.UserAddress = creator.House.Address
	}
	if v.UserApartment == "" {
		v.UserApartment = creator.Apartment
	}
	return v
}
