package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/housedesk-backend/internal/data/aggregates/testutil"
	reqrepos "github.com/yungbote/housedesk-backend/internal/data/repos/requests"
	repotest "github.com/yungbote/housedesk-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

type lifecycleFixture struct {
	db        *gorm.DB
	agg       domainagg.RequestLifecycle
	hooks     *aggtest.HooksRecorder
	history   reqrepos.HistoryRepo
	company   uuid.UUID
	resident  requests.Actor
	stranger  requests.Actor
	dispatch  requests.Actor
	admin     requests.Actor
	outsider  requests.Actor
	superUser requests.Actor
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	ctx := context.Background()

	companyA := repotest.SeedCompany(t, ctx, db, "A")
	companyB := repotest.SeedCompany(t, ctx, db, "B")
	house := repotest.SeedHouse(t, ctx, db, companyA.ID, "ул. Ленина, 1")

	actor := func(role requests.Role, company *uuid.UUID) requests.Actor {
		return repotest.SeedUser(t, ctx, db, role, company, &house.ID).Actor()
	}

	hooks := &aggtest.HooksRecorder{}
	history := reqrepos.NewHistoryRepo(db, log)
	agg := aggregates.NewRequestLifecycle(aggregates.RequestLifecycleDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: hooks,
		},
		Requests: reqrepos.NewRequestRepo(db, log),
		History:  history,
		Locker:   aggregates.NewKeyedLocker(0),
	})

	return &lifecycleFixture{
		db:        db,
		agg:       agg,
		hooks:     hooks,
		history:   history,
		company:   companyA.ID,
		resident:  actor(requests.RoleResident, nil),
		stranger:  actor(requests.RoleResident, nil),
		dispatch:  actor(requests.RoleDispatcher, &companyA.ID),
		admin:     actor(requests.RoleAdmin, &companyA.ID),
		outsider:  actor(requests.RoleDispatcher, &companyB.ID),
		superUser: actor(requests.RoleSuperAdmin, nil),
	}
}

// seed creates a request owned by the fixture resident and forces it into status.
func (f *lifecycleFixture) seed(t *testing.T, status requests.Status) *requests.MaintenanceRequest {
	t.Helper()
	ctx := context.Background()
	req := repotest.SeedRequest(t, ctx, f.db, f.resident.ID, &f.company)
	if status != requests.StatusNew {
		if err := f.db.WithContext(ctx).Model(&requests.MaintenanceRequest{}).
			Where("id = ?", req.ID).
			Update("status", status).Error; err != nil {
			t.Fatalf("force status: %v", err)
		}
		req.Status = status
	}
	return req
}

func (f *lifecycleFixture) load(t *testing.T, id uuid.UUID) (*requests.MaintenanceRequest, []*requests.HistoryEntry) {
	t.Helper()
	ctx := context.Background()
	var req requests.MaintenanceRequest
	if err := f.db.WithContext(ctx).Where("id = ?", id).Take(&req).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	entries, err := f.history.ListFor(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	return &req, entries
}

func (f *lifecycleFixture) apply(reqID uuid.UUID, actor requests.Actor, target requests.Status, comment string) (domainagg.TransitionResult, error) {
	return f.agg.ApplyTransition(context.Background(), domainagg.TransitionInput{
		RequestID: reqID,
		Target:    target,
		Comment:   comment,
		Actor:     actor,
	})
}

func TestLifecycleDispatcherAcceptsNewRequest(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)

	res, err := f.apply(req.ID, f.dispatch, requests.StatusAccepted, "will review")
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if res.Request.Status != requests.StatusAccepted || res.Request.Version != 1 {
		t.Fatalf("unexpected result request: %+v", res.Request)
	}
	if res.Entry.Comment == nil || *res.Entry.Comment != "will review" {
		t.Fatalf("comment not recorded: %+v", res.Entry)
	}

	got, entries := f.load(t, req.ID)
	if got.Status != requests.StatusAccepted {
		t.Fatalf("stored status: got=%s", got.Status)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger length: want=1 got=%d", len(entries))
	}
	e := entries[0]
	if e.PreviousStatus != requests.StatusNew || e.NewStatus != requests.StatusAccepted ||
		e.ActorID != f.dispatch.ID || e.ActorRole != requests.RoleDispatcher || e.Override || e.Seq != 1 {
		t.Fatalf("unexpected ledger entry: %+v", e)
	}

	if moves := f.hooks.Of(aggtest.HookTransition); len(moves) != 1 || moves[0].To != requests.StatusAccepted {
		t.Fatalf("transition hook: %+v", moves)
	}
	if writes := f.hooks.Of(aggtest.HookWrite); len(writes) != 1 || writes[0].Status != "success" {
		t.Fatalf("write hook: %+v", writes)
	}
}

func TestLifecycleCreatorReopensOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusCompleted)

	if _, err := f.apply(req.ID, f.resident, requests.StatusReopened, "still leaking"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_, err := f.apply(req.ID, f.resident, requests.StatusReopened, "")
	if !domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
		t.Fatalf("second reopen: want illegal_transition, got %v", err)
	}
	it, ok := domainagg.IllegalTransitionOf(err)
	if !ok || it.From != requests.StatusReopened || it.To != requests.StatusReopened {
		t.Fatalf("illegal transition detail: %+v", it)
	}

	got, entries := f.load(t, req.ID)
	if got.Status != requests.StatusReopened || len(entries) != 1 {
		t.Fatalf("state after failed self-transition: status=%s entries=%d", got.Status, len(entries))
	}
}

func TestLifecycleTerminalStatesRejectEveryone(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusRejected)

	for _, actor := range []requests.Actor{f.dispatch, f.admin, f.superUser, f.resident} {
		for _, target := range requests.AllStatuses {
			_, err := f.apply(req.ID, actor, target, "")
			if !domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
				t.Fatalf("%s -> %s by %s: want illegal_transition, got %v", requests.StatusRejected, target, actor.Role, err)
			}
		}
	}

	got, entries := f.load(t, req.ID)
	if got.Status != requests.StatusRejected || got.Version != 0 || len(entries) != 0 {
		t.Fatalf("terminal request mutated: status=%s version=%d entries=%d", got.Status, got.Version, len(entries))
	}
}

func TestLifecycleSuperAdminCancelOverride(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusInProgress)

	if requests.StaffTransitionAllowed(requests.StatusInProgress, requests.StatusCancelled) {
		t.Fatalf("fixture assumption broken: in_progress -> cancelled is in the staff table")
	}

	res, err := f.agg.ApplyTransition(context.Background(), domainagg.TransitionInput{
		RequestID: req.ID,
		Target:    requests.StatusCancelled,
		Comment:   "Отменено супер-администратором",
		Actor:     f.superUser,
		Metadata:  map[string]any{"source": "superadmin"},
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if !res.Entry.Override || res.Entry.ActorRole != requests.RoleSuperAdmin {
		t.Fatalf("override entry: %+v", res.Entry)
	}
	if string(res.Entry.Metadata) != `{"source":"superadmin"}` {
		t.Fatalf("metadata: %s", res.Entry.Metadata)
	}

	got, entries := f.load(t, req.ID)
	if got.Status != requests.StatusCancelled || len(entries) != 1 || entries[0].PreviousStatus != requests.StatusInProgress {
		t.Fatalf("after override: status=%s entries=%d", got.Status, len(entries))
	}

	// Already terminal: the override has nothing to act on.
	if _, err := f.apply(req.ID, f.superUser, requests.StatusCancelled, ""); !domainagg.IsCode(err, domainagg.CodeIllegalTransition) {
		t.Fatalf("override on terminal: want illegal_transition, got %v", err)
	}
}

func TestLifecycleDenials(t *testing.T) {
	cases := []struct {
		name   string
		from   requests.Status
		actor  func(f *lifecycleFixture) requests.Actor
		target requests.Status
		reason string
	}{
		{"resident cannot accept", requests.StatusNew, func(f *lifecycleFixture) requests.Actor { return f.resident }, requests.StatusAccepted, requests.ReasonInsufficientRole},
		{"stranger cannot cancel", requests.StatusNew, func(f *lifecycleFixture) requests.Actor { return f.stranger }, requests.StatusCancelled, requests.ReasonNotOwner},
		{"staff cannot reopen for creator", requests.StatusCompleted, func(f *lifecycleFixture) requests.Actor { return f.dispatch }, requests.StatusReopened, requests.ReasonNotOwner},
		{"staff cannot cancel for creator", requests.StatusAccepted, func(f *lifecycleFixture) requests.Actor { return f.admin }, requests.StatusCancelled, requests.ReasonNotOwner},
		{"other company dispatcher", requests.StatusNew, func(f *lifecycleFixture) requests.Actor { return f.outsider }, requests.StatusAccepted, requests.ReasonOutOfScope},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycleFixture(t)
			req := f.seed(t, tc.from)
			_, err := f.apply(req.ID, tc.actor(f), tc.target, "")
			if !domainagg.IsCode(err, domainagg.CodeDenied) {
				t.Fatalf("want denied, got %v", err)
			}
			if reason, ok := domainagg.DeniedReason(err); !ok || reason != tc.reason {
				t.Fatalf("reason: want=%s got=%s", tc.reason, reason)
			}
			got, entries := f.load(t, req.ID)
			if got.Status != tc.from || len(entries) != 0 {
				t.Fatalf("denied call mutated state: status=%s entries=%d", got.Status, len(entries))
			}
			if denials := f.hooks.Of(aggtest.HookDenied); len(denials) != 1 || denials[0].Reason != tc.reason {
				t.Fatalf("denial hook: %+v", denials)
			}
		})
	}
}

func TestLifecycleIllegalPairsLeaveStateUntouched(t *testing.T) {
	f := newLifecycleFixture(t)
	for _, from := range requests.AllStatuses {
		for _, to := range requests.AllStatuses {
			if from == to || from.IsTerminal() || requests.StaffTransitionAllowed(from, to) || requests.IsResidentTransition(from, to) {
				continue
			}
			req := f.seed(t, from)
			_, err := f.apply(req.ID, f.admin, to, "")
			if !domainagg.IsCode(err, domainagg.CodeIllegalTransition) && !domainagg.IsCode(err, domainagg.CodeDenied) {
				t.Fatalf("%s -> %s: want illegal_transition or denied, got %v", from, to, err)
			}
			got, entries := f.load(t, req.ID)
			if got.Status != from || got.Version != 0 || len(entries) != 0 {
				t.Fatalf("%s -> %s mutated state", from, to)
			}
		}
	}
}

func TestLifecycleNotFoundAndValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	if _, err := f.apply(uuid.New(), f.admin, requests.StatusAccepted, ""); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing request: want not_found, got %v", err)
	}
	req := f.seed(t, requests.StatusNew)
	if _, err := f.apply(req.ID, f.admin, requests.Status("archived"), ""); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("unknown target: want validation, got %v", err)
	}
	if _, err := f.apply(req.ID, requests.Actor{Role: requests.RoleAdmin}, requests.StatusAccepted, ""); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing actor: want validation, got %v", err)
	}
}

func TestLifecycleWhitespaceCommentIsNil(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)
	res, err := f.apply(req.ID, f.dispatch, requests.StatusAccepted, "   \n\t")
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if res.Entry.Comment != nil {
		t.Fatalf("whitespace comment should be nil, got %q", *res.Entry.Comment)
	}
}

func TestLifecycleExpectedVersionMismatch(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)
	stale := 3
	_, err := f.agg.ApplyTransition(context.Background(), domainagg.TransitionInput{
		RequestID:       req.ID,
		Target:          requests.StatusAccepted,
		Actor:           f.dispatch,
		ExpectedVersion: &stale,
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	if conflicts := f.hooks.Of(aggtest.HookConflict); len(conflicts) != 1 {
		t.Fatalf("conflict hook: %+v", conflicts)
	}

	current := 0
	if _, err := f.agg.ApplyTransition(context.Background(), domainagg.TransitionInput{
		RequestID:       req.ID,
		Target:          requests.StatusAccepted,
		Actor:           f.dispatch,
		ExpectedVersion: &current,
	}); err != nil {
		t.Fatalf("matching version: %v", err)
	}
}

func TestLifecycleReplayMatchesStoredStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)
	steps := []struct {
		actor  requests.Actor
		target requests.Status
	}{
		{f.dispatch, requests.StatusAccepted},
		{f.dispatch, requests.StatusInProgress},
		{f.admin, requests.StatusOnHold},
		{f.admin, requests.StatusInProgress},
		{f.dispatch, requests.StatusCompleted},
		{f.resident, requests.StatusReopened},
		{f.admin, requests.StatusAccepted},
		{f.dispatch, requests.StatusInProgress},
		{f.dispatch, requests.StatusCompleted},
	}
	for i, s := range steps {
		if _, err := f.apply(req.ID, s.actor, s.target, ""); err != nil {
			t.Fatalf("step %d -> %s: %v", i, s.target, err)
		}
	}
	got, entries := f.load(t, req.ID)
	if len(entries) != len(steps) || got.Version != len(steps) {
		t.Fatalf("ledger/version: entries=%d version=%d", len(entries), got.Version)
	}
	if replayed := requests.ReplayStatus(entries); replayed != got.Status {
		t.Fatalf("replay: want=%s got=%s", got.Status, replayed)
	}
	if err := requests.VerifyLedger(got.Status, entries); err != nil {
		t.Fatalf("VerifyLedger: %v", err)
	}
}

func TestLifecycleConcurrentTransitionsCommitOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)

	targets := []requests.Status{requests.StatusAccepted, requests.StatusRejected, requests.StatusAccepted, requests.StatusRejected, requests.StatusAccepted, requests.StatusRejected}
	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target requests.Status) {
			defer wg.Done()
			_, errs[i] = f.apply(req.ID, f.dispatch, target, "")
		}(i, target)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case domainagg.IsCode(err, domainagg.CodeIllegalTransition), domainagg.IsCode(err, domainagg.CodeConflict):
		default:
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one transition should commit from new, got %d", wins)
	}
	got, entries := f.load(t, req.ID)
	if len(entries) != 1 || entries[0].NewStatus != got.Status || got.Version != 1 {
		t.Fatalf("post-race state: status=%s version=%d entries=%d", got.Status, got.Version, len(entries))
	}
}

// failingCommitRunner runs the body in a real transaction and then forces a rollback.
type failingCommitRunner struct {
	db  *gorm.DB
	err error
}

func (r failingCommitRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		return r.err
	})
}

func TestLifecycleRollbackKeepsStatusAndLedgerTogether(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)
	log := repotest.Logger(t)

	commitErr := errors.New("commit failed")
	agg := aggregates.NewRequestLifecycle(aggregates.RequestLifecycleDeps{
		Base: aggregates.BaseDeps{
			DB:     f.db,
			Runner: failingCommitRunner{db: f.db, err: commitErr},
		},
		Requests: reqrepos.NewRequestRepo(f.db, log),
		History:  f.history,
	})
	_, err := agg.ApplyTransition(context.Background(), domainagg.TransitionInput{
		RequestID: req.ID,
		Target:    requests.StatusAccepted,
		Actor:     f.dispatch,
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("want commit error, got %v", err)
	}
	got, entries := f.load(t, req.ID)
	if got.Status != requests.StatusNew || got.Version != 0 || len(entries) != 0 {
		t.Fatalf("rolled back transition leaked: status=%s version=%d entries=%d", got.Status, got.Version, len(entries))
	}
}

func TestLifecycleTransientFailures(t *testing.T) {
	f := newLifecycleFixture(t)
	log := repotest.Logger(t)

	build := func(runner *aggtest.FlakyTxRunner, hooks *aggtest.HooksRecorder) domainagg.RequestLifecycle {
		return aggregates.NewRequestLifecycle(aggregates.RequestLifecycleDeps{
			Base:     aggregates.BaseDeps{DB: f.db, Runner: runner, Hooks: hooks, Backoff: time.Millisecond},
			Requests: reqrepos.NewRequestRepo(f.db, log),
			History:  f.history,
		})
	}

	t.Run("recovers", func(t *testing.T) {
		req := f.seed(t, requests.StatusNew)
		runner := &aggtest.FlakyTxRunner{
			Next:     aggregates.NewGormTxRunner(f.db),
			Err:      aggregates.RetryableError("database is locked"),
			Failures: 1,
		}
		hooks := &aggtest.HooksRecorder{}
		res, err := build(runner, hooks).ApplyTransition(context.Background(), domainagg.TransitionInput{
			RequestID: req.ID,
			Target:    requests.StatusAccepted,
			Actor:     f.dispatch,
		})
		if err != nil {
			t.Fatalf("transition after one transient failure: %v", err)
		}
		if res.Entry.Seq != 1 {
			t.Fatalf("a retried write must append exactly once, seq=%d", res.Entry.Seq)
		}
		if attempts, commits := runner.Counts(); attempts != 2 || commits != 1 {
			t.Fatalf("runner: attempts=%d commits=%d", attempts, commits)
		}
		if retries, moves := hooks.Of(aggtest.HookRetry), hooks.Of(aggtest.HookTransition); len(retries) != 1 || len(moves) != 1 {
			t.Fatalf("hooks: retries=%v transitions=%v", retries, moves)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		req := f.seed(t, requests.StatusNew)
		runner := &aggtest.FlakyTxRunner{Err: aggregates.RetryableError("db unavailable"), Failures: 100}
		hooks := &aggtest.HooksRecorder{}
		_, err := build(runner, hooks).ApplyTransition(context.Background(), domainagg.TransitionInput{
			RequestID: req.ID,
			Target:    requests.StatusAccepted,
			Actor:     f.dispatch,
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("want retryable, got %v", err)
		}
		if attempts, commits := runner.Counts(); attempts != 3 || commits != 0 {
			t.Fatalf("runner: attempts=%d commits=%d", attempts, commits)
		}
		if retries, moves := hooks.Of(aggtest.HookRetry), hooks.Of(aggtest.HookTransition); len(retries) != 2 || len(moves) != 0 {
			t.Fatalf("hooks: retries=%v transitions=%v", retries, moves)
		}
		got, entries := f.load(t, req.ID)
		if got.Status != requests.StatusNew || len(entries) != 0 {
			t.Fatalf("failed write leaked: status=%s entries=%d", got.Status, len(entries))
		}
	})
}

func TestLifecycleLockTimeoutIsConcurrentModification(t *testing.T) {
	f := newLifecycleFixture(t)
	req := f.seed(t, requests.StatusNew)
	log := repotest.Logger(t)

	locker := aggregates.NewKeyedLocker(10 * time.Millisecond)
	release, err := locker.Acquire(context.Background(), "request:"+req.ID.String())
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer release()

	agg := aggregates.NewRequestLifecycle(aggregates.RequestLifecycleDeps{
		Base:     aggregates.BaseDeps{DB: f.db},
		Requests: reqrepos.NewRequestRepo(f.db, log),
		History:  f.history,
		Locker:   locker,
	})
	_, err = agg.ApplyTransition(context.Background(), domainagg.TransitionInput{
		RequestID: req.ID,
		Target:    requests.StatusAccepted,
		Actor:     f.dispatch,
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict on lock timeout, got %v", err)
	}
}
