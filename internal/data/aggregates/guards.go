package aggregates

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
)

// VersionGuard is the compare-and-set step of a transition. The row lock
// already serializes writers on one database; the version predicate is what
// still holds when two replicas race on a database without row locks.
type VersionGuard struct {
	db *gorm.DB
}

func NewVersionGuard(db *gorm.DB) VersionGuard {
	return VersionGuard{db: db}
}

// CheckExpected rejects a caller whose view of the request is stale. A nil
// expected version skips the check.
func CheckExpected(current int, expected *int) error {
	if expected == nil {
		return nil
	}
	if *expected < 0 {
		return ValidationError("expected_version must not be negative")
	}
	if current != *expected {
		return ConflictError(fmt.Sprintf("request is at version %d, caller expected %d", current, *expected))
	}
	return nil
}

// AdvanceStatus writes the new status and bumps the version, but only if the
// row is still at the version req was read at. Zero rows means someone else
// committed first.
func (g VersionGuard) AdvanceStatus(dbc dbctx.Context, req *requests.MaintenanceRequest, to requests.Status, at time.Time) error {
	if dbc.Tx == nil && g.db == nil {
		return ValidationError("no database for status write")
	}
	res := dbc.DB(g.db).
		Model(&requests.MaintenanceRequest{}).
		Where("id = ? AND version = ?", req.ID, req.Version).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
			"version":    req.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ConflictError("request modified concurrently")
	}
	return nil
}
