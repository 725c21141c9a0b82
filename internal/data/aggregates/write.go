package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

const (
	defaultWriteAttempts = 3
	defaultRetryBackoff  = 20 * time.Millisecond
)

// TxRunner owns the transaction a lifecycle write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// BaseDeps is shared by every write path in this package.
//
// MaxAttempts bounds how often a write is re-run after a transient database
// failure (deadlock, serialization failure, busy SQLite file). Conflicts are
// never retried: the caller has to re-read and decide again.
type BaseDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Runner      TxRunner
	Hooks       Hooks
	Guard       VersionGuard
	MaxAttempts int
	Backoff     time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = NoopHooks{}
	}
	if d.Guard.db == nil {
		d.Guard = NewVersionGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultWriteAttempts
	}
	if d.Backoff <= 0 {
		d.Backoff = defaultRetryBackoff
	}
	return d
}

// executeWrite runs fn in one transaction per attempt, maps the outcome to an
// aggregate error code and reports it to the hooks exactly once.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()

	var err error
	for attempt := 1; ; attempt++ {
		err = MapError(op, deps.Runner.InTx(ctx, fn))
		if !domainagg.IsCode(err, domainagg.CodeRetryable) || attempt >= deps.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Hooks.Retry(op)
		deps.Log.Debug("retrying aggregate write", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			err = MapError(op, ctx.Err())
		case <-time.After(deps.Backoff * time.Duration(attempt)):
			continue
		}
		break
	}

	status := "success"
	if err != nil {
		status = string(domainagg.CodeOf(err))
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			deps.Hooks.Conflict(op)
		}
	}
	deps.Hooks.WriteDone(op, status, time.Since(start))
	return err
}
