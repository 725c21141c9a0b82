package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

type TransitionInput struct {
	RequestID uuid.UUID
	Target    requests.Status
	Comment   string
	Actor     requests.Actor
	// ExpectedVersion, when set, must equal the stored version or the call fails with CodeConflict.
	ExpectedVersion *int
	Metadata        map[string]any
}

type TransitionResult struct {
	Request *requests.MaintenanceRequest
	Entry   *requests.HistoryEntry
}

// RequestLifecycle is the only writer of MaintenanceRequest.Status. The status
// update and the ledger append commit in one transaction; reading the ledger
// stays on the history repo.
type RequestLifecycle interface {
	ApplyTransition(ctx context.Context, in TransitionInput) (TransitionResult, error)
}
