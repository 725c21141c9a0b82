package services

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	"github.com/yungbote/housedesk-backend/internal/data/repos"
	dirrepo "github.com/yungbote/housedesk-backend/internal/data/repos/directory"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

// ProfileUpdate holds the fields a user may change on themselves. Nil leaves
// a field untouched; ClearHouse unsets the address.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	HouseID    *uuid.UUID
	ClearHouse bool
	Apartment  *string
}

type CompanyInput struct {
	Name        *string
	Phone       *string
	Email       *string
	Address     *string
	Description *string
}

type HouseInput struct {
	CompanyID      *uuid.UUID
	Address        *string
	ApartmentCount *int
}

type UserListInput struct {
	Role      string
	CompanyID *uuid.UUID
	HouseID   *uuid.UUID
	Skip      int
	Limit     int
}

// UserUpdate is the super-admin edit of another account.
type UserUpdate struct {
	Role         *string
	CompanyID    *uuid.UUID
	ClearCompany bool
	HouseID      *uuid.UUID
	ClearHouse   bool
	Apartment    *string
	Password     *string
}

type CompanyView struct {
	*directory.Company
	HousesCount int64 `json:"houses_count"`
	UsersCount  int64 `json:"users_count"`
}

type HouseView struct {
	*directory.House
	ResidentsCount int64 `json:"residents_count"`
}

type DirectoryService interface {
	GetMe(ctx context.Context) (*directory.User, error)
	UpdateMe(ctx context.Context, in ProfileUpdate) (*directory.User, error)
	ListHouses(ctx context.Context, companyID *uuid.UUID, skip, limit int) ([]*HouseView, int64, error)

	ListCompanies(ctx context.Context, skip, limit int) ([]*CompanyView, int64, error)
	CreateCompany(ctx context.Context, in CompanyInput) (*directory.Company, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, in CompanyInput) (*directory.Company, error)
	DeleteCompany(ctx context.Context, id uuid.UUID) error

	CreateHouse(ctx context.Context, in HouseInput) (*directory.House, error)
	UpdateHouse(ctx context.Context, id uuid.UUID, in HouseInput) (*directory.House, error)
	DeleteHouse(ctx context.Context, id uuid.UUID) error

	ListUsers(ctx context.Context, in UserListInput) ([]*directory.User, int64, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*directory.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type directoryService struct {
	db    *gorm.DB
	log   *logger.Logger
	repos repos.Set
}

func NewDirectoryService(db *gorm.DB, log *logger.Logger, set repos.Set) DirectoryService {
	return &directoryService{db: db, log: log.With("service", "DirectoryService"), repos: set}
}

func requireSuperAdmin(ctx context.Context, op string) (requests.Actor, error) {
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return actor, err
	}
	if actor.Role != requests.RoleSuperAdmin {
		return actor, domainagg.Denied(op, requests.ReasonInsufficientRole)
	}
	return actor, nil
}

// trimmed validates an optional text field and returns its trimmed value.
func trimmed(op, field string, v *string, max int, required bool) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if required && s == "" {
		return nil, validation(op, "%s must not be empty", field)
	}
	if utf8.RuneCountInString(s) > max {
		return nil, validation(op, "%s longer than %d characters", field, max)
	}
	return &s, nil
}

func setIf(updates map[string]interface{}, column string, v *string) {
	if v != nil {
		updates[column] = *v
	}
}

func (s *directoryService) loadUser(dbc dbctx.Context, op string, id uuid.UUID) (*directory.User, error) {
	users, err := s.repos.Users.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, notFound(op, "user")
	}
	return users[0], nil
}

func (s *directoryService) houseExists(dbc dbctx.Context, op string, id uuid.UUID) error {
	houses, err := s.repos.Houses.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if len(houses) == 0 {
		return validation(op, "house %s does not exist", id)
	}
	return nil
}

func (s *directoryService) companyExists(dbc dbctx.Context, op string, id uuid.UUID) error {
	companies, err := s.repos.Companies.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return validation(op, "company %s does not exist", id)
	}
	return nil
}

func (s *directoryService) GetMe(ctx context.Context) (*directory.User, error) {
	const op = "Directory.GetMe"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, err
	}
	u, err := s.loadUser(dbctx.Context{Ctx: ctx}, op, actor.ID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return u, nil
}

func (s *directoryService) UpdateMe(ctx context.Context, in ProfileUpdate) (*directory.User, error) {
	const op = "Directory.UpdateMe"
	actor, err := actorFrom(ctx, op)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	for _, f := range []struct {
		column string
		v      *string
		max    int
	}{
		{"first_name", in.FirstName, 255},
		{"last_name", in.LastName, 255},
		{"phone", in.Phone, 20},
		{"apartment", in.Apartment, 20},
	} {
		v, err := trimmed(op, f.column, f.v, f.max, false)
		if err != nil {
			return nil, err
		}
		setIf(updates, f.column, v)
	}

	var out *directory.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		switch {
		case in.ClearHouse:
			updates["house_id"] = nil
		case in.HouseID != nil:
			if err := s.houseExists(dbc, op, *in.HouseID); err != nil {
				return err
			}
			updates["house_id"] = *in.HouseID
		}
		if len(updates) > 0 {
			if err := s.repos.Users.UpdateFields(dbc, actor.ID, updates); err != nil {
				return err
			}
		}
		out, err = s.loadUser(dbc, op, actor.ID)
		return err
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return out, nil
}

func (s *directoryService) ListHouses(ctx context.Context, companyID *uuid.UUID, skip, limit int) ([]*HouseView, int64, error) {
	const op = "Directory.ListHouses"
	if _, err := actorFrom(ctx, op); err != nil {
		return nil, 0, err
	}
	if skip < 0 {
		skip = 0
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, total, err := s.repos.Houses.List(dbc, companyID, skip, limit)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, h := range rows {
		ids = append(ids, h.ID)
	}
	residents, err := s.repos.Users.CountByHouse(dbc, ids)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	out := make([]*HouseView, 0, len(rows))
	for _, h := range rows {
		out = append(out, &HouseView{House: h, ResidentsCount: residents[h.ID]})
	}
	return out, total, nil
}

func (s *directoryService) ListCompanies(ctx context.Context, skip, limit int) ([]*CompanyView, int64, error) {
	const op = "Directory.ListCompanies"
	if _, err := requireSuperAdmin(ctx, op); err != nil {
		return nil, 0, err
	}
	if skip < 0 {
		skip = 0
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, total, err := s.repos.Companies.List(dbc, skip, limit)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}

	var houses, users map[uuid.UUID]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		houses, err = s.repos.Houses.CountByCompany(dbctx.Context{Ctx: gctx}, ids)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.repos.Users.CountByCompany(dbctx.Context{Ctx: gctx}, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}

	out := make([]*CompanyView, 0, len(rows))
	for _, c := range rows {
		out = append(out, &CompanyView{Company: c, HousesCount: houses[c.ID], UsersCount: users[c.ID]})
	}
	return out, total, nil
}

func companyUpdates(op string, in CompanyInput, creating bool) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if creating && in.Name == nil {
		return nil, validation(op, "name is required")
	}
	for _, f := range []struct {
		column   string
		v        *string
		max      int
		required bool
	}{
		{"name", in.Name, 255, true},
		{"phone", in.Phone, 20, false},
		{"email", in.Email, 255, false},
		{"address", in.Address, 500, false},
		{"description", in.Description, 1000, false},
	} {
		v, err := trimmed(op, f.column, f.v, f.max, f.required)
		if err != nil {
			return nil, err
		}
		setIf(updates, f.column, v)
	}
	if email, ok := updates["email"].(string); ok && email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, validation(op, "invalid email %q", email)
		}
	}
	return updates, nil
}

func (s *directoryService) CreateCompany(ctx context.Context, in CompanyInput) (*directory.Company, error) {
	const op = "Directory.CreateCompany"
	actor, err := requireSuperAdmin(ctx, op)
	if err != nil {
		return nil, err
	}
	fields, err := companyUpdates(op, in, true)
	if err != nil {
		return nil, err
	}
	row := &directory.Company{}
	row.Name, _ = fields["name"].(string)
	row.Phone, _ = fields["phone"].(string)
	row.Email, _ = fields["email"].(string)
	row.Address, _ = fields["address"].(string)
	row.Description, _ = fields["description"].(string)

	created, err := s.repos.Companies.Create(dbctx.Context{Ctx: ctx}, []*directory.Company{row})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("company created", "company_id", created[0].ID, "by", actor.ID)
	return created[0], nil
}

func (s *directoryService) UpdateCompany(ctx context.Context, id uuid.UUID, in CompanyInput) (*directory.Company, error) {
	const op = "Directory.UpdateCompany"
	if _, err := requireSuperAdmin(ctx, op); err != nil {
		return nil, err
	}
	updates, err := companyUpdates(op, in, false)
	if err != nil {
		return nil, err
	}
	var out *directory.Company
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := s.repos.Companies.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return notFound(op, "company")
		}
		if len(updates) == 0 {
			out = rows[0]
			return nil
		}
		if err := s.repos.Companies.UpdateFields(dbc, id, updates); err != nil {
			return err
		}
		rows, err = s.repos.Companies.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			return err
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return out, nil
}

// DeleteCompany soft-deletes the company and its houses. Requests keep their
// company snapshot, so their history stays readable.
func (s *directoryService) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	const op = "Directory.DeleteCompany"
	actor, err := requireSuperAdmin(ctx, op)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := s.repos.Companies.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return notFound(op, "company")
		}
		if err := s.repos.Houses.SoftDeleteByCompanyIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		return s.repos.Companies.SoftDeleteByIDs(dbc, []uuid.UUID{id})
	})
	if err != nil {
		return aggregates.MapError(op, err)
	}
	s.log.Info("company deleted", "company_id", id, "by", actor.ID)
	return nil
}

func (s *directoryService) CreateHouse(ctx context.Context, in HouseInput) (*directory.House, error) {
	const op = "Directory.CreateHouse"
	actor, err := requireSuperAdmin(ctx, op)
	if err != nil {
		return nil, err
	}
	if in.CompanyID == nil {
		return nil, validation(op, "company_id is required")
	}
	if in.Address == nil {
		return nil, validation(op, "address is required")
	}
	address, err := trimmed(op, "address", in.Address, 500, true)
	if err != nil {
		return nil, err
	}
	row := &directory.House{CompanyID: *in.CompanyID, Address: *address}
	if in.ApartmentCount != nil {
		if *in.ApartmentCount < 0 {
			return nil, validation(op, "apartment_count must not be negative")
		}
		row.ApartmentCount = *in.ApartmentCount
	}

	var out *directory.House
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.companyExists(dbc, op, row.CompanyID); err != nil {
			return err
		}
		created, err := s.repos.Houses.Create(dbc, []*directory.House{row})
		if err != nil {
			return err
		}
		out = created[0]
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("house created", "house_id", out.ID, "company_id", out.CompanyID, "by", actor.ID)
	return out, nil
}

func (s *directoryService) UpdateHouse(ctx context.Context, id uuid.UUID, in HouseInput) (*directory.House, error) {
	const op = "Directory.UpdateHouse"
	if _, err := requireSuperAdmin(ctx, op); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	address, err := trimmed(op, "address", in.Address, 500, true)
	if err != nil {
		return nil, err
	}
	setIf(updates, "address", address)
	if in.ApartmentCount != nil {
		if *in.ApartmentCount < 0 {
			return nil, validation(op, "apartment_count must not be negative")
		}
		updates["apartment_count"] = *in.ApartmentCount
	}

	var out *directory.House
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := s.repos.Houses.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return notFound(op, "house")
		}
		if in.CompanyID != nil {
			if err := s.companyExists(dbc, op, *in.CompanyID); err != nil {
				return err
			}
			updates["company_id"] = *in.CompanyID
		}
		if len(updates) == 0 {
			out = rows[0]
			return nil
		}
		if err := s.repos.Houses.UpdateFields(dbc, id, updates); err != nil {
			return err
		}
		rows, err = s.repos.Houses.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			return err
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return out, nil
}

func (s *directoryService) DeleteHouse(ctx context.Context, id uuid.UUID) error {
	const op = "Directory.DeleteHouse"
	actor, err := requireSuperAdmin(ctx, op)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := s.repos.Houses.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return notFound(op, "house")
		}
		return s.repos.Houses.SoftDeleteByIDs(dbc, []uuid.UUID{id})
	})
	if err != nil {
		return aggregates.MapError(op, err)
	}
	s.log.Info("house deleted", "house_id", id, "by", actor.ID)
	return nil
}

func (s *directoryService) ListUsers(ctx context.Context, in UserListInput) ([]*directory.User, int64, error) {
	const op = "Directory.ListUsers"
	if _, err := requireSuperAdmin(ctx, op); err != nil {
		return nil, 0, err
	}
	f := dirrepo.UserFilter{CompanyID: in.CompanyID, HouseID: in.HouseID, Offset: in.Skip, Limit: in.Limit}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if in.Role != "" {
		role, err := requests.ParseRole(in.Role)
		if err != nil {
			return nil, 0, validation(op, "%v", err)
		}
		f.Role = &role
	}
	rows, total, err := s.repos.Users.List(dbctx.Context{Ctx: ctx}, f)
	if err != nil {
		return nil, 0, aggregates.MapError(op, err)
	}
	return rows, total, nil
}

func (s *directoryService) UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*directory.User, error) {
	const op = "Directory.UpdateUser"
	actor, err := requireSuperAdmin(ctx, op)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Role != nil {
		role, err := requests.ParseRole(*in.Role)
		if err != nil {
			return nil, validation(op, "%v", err)
		}
		if id == actor.ID && role != requests.RoleSuperAdmin {
			return nil, validation(op, "cannot demote yourself")
		}
		updates["role"] = role
	}
	apartment, err := trimmed(op, "apartment", in.Apartment, 20, false)
	if err != nil {
		return nil, err
	}
	setIf(updates, "apartment", apartment)
	if in.Password != nil {
		if utf8.RuneCountInString(*in.Password) < 8 {
			return nil, validation(op, "password must be at least 8 characters")
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		updates["password_hash"] = hash
	}

	var out *directory.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := s.loadUser(dbc, op, id)
		if err != nil {
			return err
		}
		switch {
		case in.ClearCompany:
			updates["company_id"] = nil
		case in.CompanyID != nil:
			if err := s.companyExists(dbc, op, *in.CompanyID); err != nil {
				return err
			}
			updates["company_id"] = *in.CompanyID
		}
		switch {
		case in.ClearHouse:
			updates["house_id"] = nil
		case in.HouseID != nil:
			if err := s.houseExists(dbc, op, *in.HouseID); err != nil {
				return err
			}
			updates["house_id"] = *in.HouseID
		}

		role := current.Role
		if r, ok := updates["role"].(requests.Role); ok {
			role = r
		}
		hasCompany := current.CompanyID != nil
		if v, ok := updates["company_id"]; ok {
			hasCompany = v != nil
		}
		if role.IsStaff() && role != requests.RoleSuperAdmin && !hasCompany {
			return validation(op, "%s must belong to a company", role)
		}

		if len(updates) > 0 {
			if err := s.repos.Users.UpdateFields(dbc, id, updates); err != nil {
				return err
			}
		}
		out, err = s.loadUser(dbc, op, id)
		return err
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if _, ok := updates["role"]; ok {
		s.log.Info("user role changed", "user_id", id, "role", out.Role, "by", actor.ID)
	}
	return out, nil
}

func (s *directoryService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "Directory.DeleteUser"
	actor, err := requireSuperAdmin(ctx, op)
	if err != nil {
		return err
	}
	if id == actor.ID {
		return validation(op, "cannot delete yourself")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.loadUser(dbc, op, id); err != nil {
			return err
		}
		if _, err := s.repos.Tokens.RevokeAllForUser(dbc, id); err != nil {
			return err
		}
		return s.repos.Users.SoftDeleteByIDs(dbc, []uuid.UUID{id})
	})
	if err != nil {
		return aggregates.MapError(op, err)
	}
	s.log.Info("user deleted", "user_id", id, "by", actor.ID)
	return nil
}
