package requests

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

// ListFilter narrows request listings. Nil scope fields mean "no restriction".
type ListFilter struct {
	CreatedBy *uuid.UUID
	CompanyID *uuid.UUID
	Status    *types.Status
	Category  *types.Category
	Offset    int
	Limit     int
}

type RequestRepo interface {
	Create(dbc dbctx.Context, rows []*types.MaintenanceRequest) ([]*types.MaintenanceRequest, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.MaintenanceRequest, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MaintenanceRequest, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.MaintenanceRequest, error)
	List(dbc dbctx.Context, f ListFilter) ([]*types.MaintenanceRequest, int64, error)
	CountByStatus(dbc dbctx.Context) (map[types.Status]int64, error)
	UpdateDetails(dbc dbctx.Context, id uuid.UUID, title, description *string) error
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, log *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: log.With("repo", "RequestRepo")}
}

func (r *requestRepo) Create(dbc dbctx.Context, rows []*types.MaintenanceRequest) ([]*types.MaintenanceRequest, error) {
	if len(rows) == 0 {
		return []*types.MaintenanceRequest{}, nil
	}
	for _, row := range rows {
		if row.Status != "" && row.Status != types.StatusNew {
			return nil, fmt.Errorf("requests are created in status %q, got %q", types.StatusNew, row.Status)
		}
		row.Status = types.StatusNew
		row.Version = 0
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *requestRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.MaintenanceRequest, error) {
	if len(ids) == 0 {
		return []*types.MaintenanceRequest{}, nil
	}
	var out []*types.MaintenanceRequest
	if err := dbc.DB(r.db).
		Model(&types.MaintenanceRequest{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns gorm.ErrRecordNotFound when the row does not exist.
func (r *requestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MaintenanceRequest, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.MaintenanceRequest
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// LockByID reads the row inside dbc.Tx, taking a row lock where the dialect has one.
func (r *requestRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.MaintenanceRequest, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	q := dbc.DB(r.db)
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out types.MaintenanceRequest
	if err := q.Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *requestRepo) List(dbc dbctx.Context, f ListFilter) ([]*types.MaintenanceRequest, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	q := dbc.DB(r.db).Model(&types.MaintenanceRequest{})
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.MaintenanceRequest
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *requestRepo) CountByStatus(dbc dbctx.Context) (map[types.Status]int64, error) {
	var rows []struct {
		Status types.Status
		N      int64
	}
	if err := dbc.DB(r.db).
		Model(&types.MaintenanceRequest{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.Status]int64, len(types.AllStatuses))
	for _, s := range types.AllStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// UpdateDetails edits free-text fields only; status and version are never touched here.
func (r *requestRepo) UpdateDetails(dbc dbctx.Context, id uuid.UUID, title, description *string) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if title != nil {
		updates["title"] = *title
	}
	if description != nil {
		updates["description"] = *description
	}
	return dbc.DB(r.db).
		Model(&types.MaintenanceRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}
