package aggregates

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/yungbote/housedesk-backend/internal/data/repos"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/observability"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

type RequestLifecycleDeps struct {
	Base BaseDeps

	Requests repos.RequestRepo
	History  repos.HistoryRepo
	Locker   Locker
	Now      func() time.Time
}

type requestLifecycle struct {
	deps RequestLifecycleDeps
}

func NewRequestLifecycle(deps RequestLifecycleDeps) domainagg.RequestLifecycle {
	deps.Base = deps.Base.withDefaults()
	if deps.Locker == nil {
		deps.Locker = NewKeyedLocker(0)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &requestLifecycle{deps: deps}
}

func (a *requestLifecycle) ApplyTransition(ctx context.Context, in domainagg.TransitionInput) (domainagg.TransitionResult, error) {
	const op = "Requests.Lifecycle.ApplyTransition"
	var out domainagg.TransitionResult
	if in.RequestID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing request_id", nil)
	}
	if !in.Target.Valid() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "unknown target status "+string(in.Target), nil)
	}
	if in.Actor.ID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing actor", nil)
	}
	if a.deps.Requests == nil || a.deps.History == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "request lifecycle repos not configured", nil)
	}
	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "metadata is not valid json", err)
	}
	comment := normalizeComment(in.Comment)

	ctx, span := observability.StartSpan(ctx, op,
		attribute.String("request.id", in.RequestID.String()),
		attribute.String("request.target", string(in.Target)),
		attribute.String("actor.role", string(in.Actor.Role)),
	)
	defer span.End()

	release, err := a.deps.Locker.Acquire(ctx, "request:"+in.RequestID.String())
	if err != nil {
		mapped := MapError(op, err)
		a.deps.Base.Hooks.Conflict(op)
		span.SetStatus(codes.Error, mapped.Error())
		return out, mapped
	}
	defer release()

	var denied string
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		req, err := a.deps.Requests.LockByID(dbc, in.RequestID)
		if err != nil {
			return err
		}
		from := req.Status

		// Self-moves and terminal sources are illegal for every actor.
		if from == in.Target || from.IsTerminal() {
			return domainagg.IllegalTransition(op, from, in.Target)
		}

		decision := requests.Authorize(in.Actor, req, in.Target)
		if !decision.Allowed {
			denied = decision.Reason
			return domainagg.Denied(op, decision.Reason)
		}
		if !requests.TransitionLegal(from, in.Target, decision) {
			return domainagg.IllegalTransition(op, from, in.Target)
		}
		if err := CheckExpected(req.Version, in.ExpectedVersion); err != nil {
			return err
		}

		now := a.deps.Now()
		if err := a.deps.Base.Guard.AdvanceStatus(dbc, req, in.Target, now); err != nil {
			return err
		}

		entry, err := a.deps.History.Append(dbc, &requests.HistoryEntry{
			RequestID:      req.ID,
			PreviousStatus: from,
			NewStatus:      in.Target,
			Comment:        comment,
			ActorID:        in.Actor.ID,
			ActorRole:      in.Actor.Role,
			Override:       decision.Override,
			Metadata:       metadata,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}

		req.Status = in.Target
		req.UpdatedAt = now
		req.Version++
		out.Request = req
		out.Entry = entry
		return nil
	})

	log := a.deps.Base.Log.WithContext(ctx)
	if err != nil {
		if denied != "" {
			a.deps.Base.Hooks.Denied(denied)
		}
		span.SetStatus(codes.Error, err.Error())
		log.Debug("transition rejected",
			"request_id", in.RequestID,
			"target", in.Target,
			"actor_id", in.Actor.ID,
			"code", domainagg.CodeOf(err),
		)
		return domainagg.TransitionResult{}, err
	}
	a.deps.Base.Hooks.Transitioned(out.Entry.PreviousStatus, out.Entry.NewStatus, out.Entry.Override)
	log.Info("request transitioned",
		"request_id", out.Request.ID,
		"from", out.Entry.PreviousStatus,
		"to", out.Entry.NewStatus,
		"override", out.Entry.Override,
		"actor_id", in.Actor.ID,
		"version", out.Request.Version,
	)
	return out, nil
}

func normalizeComment(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

func encodeMetadata(m map[string]any) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
