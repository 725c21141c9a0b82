package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

// FlakyTxRunner fails the first Failures attempts with Err before the body
// runs, then hands the body to Next. With a nil Next the body runs without a
// transaction.
type FlakyTxRunner struct {
	mu sync.Mutex

	Next     aggregates.TxRunner
	Err      error
	Failures int

	Attempts int
	Commits  int
}

var _ aggregates.TxRunner = (*FlakyTxRunner)(nil)

func (r *FlakyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Attempts++
	fail := r.Attempts <= r.Failures
	r.mu.Unlock()
	if fail {
		return r.Err
	}

	var err error
	if r.Next != nil {
		err = r.Next.InTx(ctx, fn)
	} else {
		err = fn(dbctx.Context{Ctx: ctx})
	}
	if err == nil {
		r.mu.Lock()
		r.Commits++
		r.mu.Unlock()
	}
	return err
}

// Counts returns attempts and commits so far.
func (r *FlakyTxRunner) Counts() (attempts, commits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Attempts, r.Commits
}
