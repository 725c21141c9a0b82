package requests

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

// HistoryRepo is the append-only ledger. There is deliberately no update or delete.
type HistoryRepo interface {
	Append(dbc dbctx.Context, entry *types.HistoryEntry) (*types.HistoryEntry, error)
	ListFor(dbc dbctx.Context, requestID uuid.UUID) ([]*types.HistoryEntry, error)
	CountFor(dbc dbctx.Context, requestID uuid.UUID) (int64, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, log *logger.Logger) HistoryRepo {
	return &historyRepo{db: db, log: log.With("repo", "HistoryRepo")}
}

// Append assigns id, the next per-request sequence number and, if unset, created_at.
// Two appends racing for the same seq collide on the unique (request_id, seq) index.
func (r *historyRepo) Append(dbc dbctx.Context, entry *types.HistoryEntry) (*types.HistoryEntry, error) {
	if entry == nil {
		return nil, fmt.Errorf("missing entry")
	}
	if entry.RequestID == uuid.Nil {
		return nil, fmt.Errorf("missing request_id")
	}
	if !entry.NewStatus.Valid() || !entry.PreviousStatus.Valid() {
		return nil, fmt.Errorf("invalid statuses %q -> %q", entry.PreviousStatus, entry.NewStatus)
	}
	q := dbc.DB(r.db)

	var maxSeq int64
	if err := q.Model(&types.HistoryEntry{}).
		Where("request_id = ?", entry.RequestID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return nil, err
	}

	entry.ID = uuid.New()
	entry.Seq = maxSeq + 1
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := q.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListFor returns the ledger oldest first.
func (r *historyRepo) ListFor(dbc dbctx.Context, requestID uuid.UUID) ([]*types.HistoryEntry, error) {
	if requestID == uuid.Nil {
		return nil, fmt.Errorf("missing request_id")
	}
	var out []*types.HistoryEntry
	if err := dbc.DB(r.db).
		Model(&types.HistoryEntry{}).
		Where("request_id = ?", requestID).
		Order("seq ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *historyRepo) CountFor(dbc dbctx.Context, requestID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.HistoryEntry{}).
		Where("request_id = ?", requestID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
