package requests

import "fmt"

// ReplayStatus derives the current status from a ledger in chronological order.
func ReplayStatus(entries []*HistoryEntry) Status {
	status := StatusNew
	for _, e := range entries {
		if e == nil {
			continue
		}
		status = e.NewStatus
	}
	return status
}

// VerifyLedger checks that entries chain (each previous status matches the
// prior entry's new status) and that replaying them yields current.
func VerifyLedger(current Status, entries []*HistoryEntry) error {
	status := StatusNew
	for i, e := range entries {
		if e == nil {
			continue
		}
		if e.PreviousStatus != status {
			return fmt.Errorf("ledger entry %d: previous status %q does not follow %q", i, e.PreviousStatus, status)
		}
		status = e.NewStatus
	}
	if status != current {
		return fmt.Errorf("ledger replays to %q but request is %q", status, current)
	}
	return nil
}
