package requests

import "testing"

func TestReplayStatus(t *testing.T) {
	if got := ReplayStatus(nil); got != StatusNew {
		t.Fatalf("empty ledger: want=new got=%s", got)
	}
	entries := []*HistoryEntry{
		{PreviousStatus: StatusNew, NewStatus: StatusAccepted},
		{PreviousStatus: StatusAccepted, NewStatus: StatusInProgress},
		{PreviousStatus: StatusInProgress, NewStatus: StatusCompleted},
		{PreviousStatus: StatusCompleted, NewStatus: StatusReopened},
	}
	if got := ReplayStatus(entries); got != StatusReopened {
		t.Fatalf("replay: want=reopened got=%s", got)
	}
	if err := VerifyLedger(StatusReopened, entries); err != nil {
		t.Fatalf("VerifyLedger: %v", err)
	}
}

func TestVerifyLedgerDetectsDrift(t *testing.T) {
	entries := []*HistoryEntry{
		{PreviousStatus: StatusNew, NewStatus: StatusAccepted},
	}
	if err := VerifyLedger(StatusInProgress, entries); err == nil {
		t.Fatalf("expected mismatch between cache and ledger")
	}
	broken := []*HistoryEntry{
		{PreviousStatus: StatusNew, NewStatus: StatusAccepted},
		{PreviousStatus: StatusOnHold, NewStatus: StatusInProgress},
	}
	if err := VerifyLedger(StatusInProgress, broken); err == nil {
		t.Fatalf("expected broken chain to be reported")
	}
}
