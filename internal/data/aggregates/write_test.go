package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

type directRunner struct{ calls int }

func (r *directRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	return fn(dbctx.Context{Ctx: ctx})
}

type recordingHooks struct {
	NoopHooks
	statuses  []string
	conflicts int
	retries   int
}

func (h *recordingHooks) WriteDone(_, status string, _ time.Duration) {
	h.statuses = append(h.statuses, status)
}
func (h *recordingHooks) Conflict(string) { h.conflicts++ }
func (h *recordingHooks) Retry(string)    { h.retries++ }

func TestExecuteWriteReportsOutcomeOnce(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    string
		conflicts int
	}{
		{"success", nil, "success", 0},
		{"illegal", domainagg.IllegalTransition("op", requests.StatusRejected, requests.StatusNew), string(domainagg.CodeIllegalTransition), 0},
		{"denied", domainagg.Denied("op", requests.ReasonNotOwner), string(domainagg.CodeDenied), 0},
		{"conflict", ConflictError("stale version"), string(domainagg.CodeConflict), 1},
		{"internal", errors.New("disk on fire"), string(domainagg.CodeInternal), 0},
	}
	for _, tc := range cases {
		runner, hooks := &directRunner{}, &recordingHooks{}
		err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks}, "op", func(dbctx.Context) error {
			return tc.err
		})
		if (err == nil) != (tc.err == nil) {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if runner.calls != 1 {
			t.Fatalf("%s: non-transient failures must not be retried, ran %d times", tc.name, runner.calls)
		}
		if len(hooks.statuses) != 1 || hooks.statuses[0] != tc.status || hooks.conflicts != tc.conflicts {
			t.Fatalf("%s: hooks=%+v", tc.name, hooks)
		}
	}
}

func TestExecuteWriteRetriesTransientFailures(t *testing.T) {
	runner, hooks := &directRunner{}, &recordingHooks{}
	err := executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks, Backoff: time.Millisecond}, "op", func(dbctx.Context) error {
		if runner.calls < 2 {
			return RetryableError("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if runner.calls != 2 || hooks.retries != 1 || hooks.statuses[0] != "success" {
		t.Fatalf("calls=%d hooks=%+v", runner.calls, hooks)
	}

	runner, hooks = &directRunner{}, &recordingHooks{}
	err = executeWrite(context.Background(), BaseDeps{Runner: runner, Hooks: hooks, MaxAttempts: 2, Backoff: time.Millisecond}, "op", func(dbctx.Context) error {
		return RetryableError("deadlock detected")
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("exhausted retries: %v", err)
	}
	if runner.calls != 2 || hooks.retries != 1 || len(hooks.statuses) != 1 {
		t.Fatalf("calls=%d hooks=%+v", runner.calls, hooks)
	}
}

func TestExecuteWriteStopsRetryingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &directRunner{}
	err := executeWrite(ctx, BaseDeps{Runner: runner, Backoff: time.Hour}, "op", func(dbctx.Context) error {
		cancel()
		return RetryableError("serialization failure")
	})
	if err == nil || runner.calls != 1 {
		t.Fatalf("cancelled write: calls=%d err=%v", runner.calls, err)
	}
}
