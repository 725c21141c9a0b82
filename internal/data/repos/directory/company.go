package directory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type CompanyRepo interface {
	Create(dbc dbctx.Context, rows []*types.Company) ([]*types.Company, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Company, error)
	GetByName(dbc dbctx.Context, name string) (*types.Company, error)
	List(dbc dbctx.Context, offset, limit int) ([]*types.Company, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return &companyRepo{db: db, log: baseLog.With("repo", "CompanyRepo")}
}

func (r *companyRepo) Create(dbc dbctx.Context, rows []*types.Company) ([]*types.Company, error) {
	if len(rows) == 0 {
		return []*types.Company{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *companyRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Company, error) {
	var out []*types.Company
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByName returns nil, nil when no live company has that name.
func (r *companyRepo) GetByName(dbc dbctx.Context, name string) (*types.Company, error) {
	var out []*types.Company
	if err := dbc.DB(r.db).Where("name = ?", name).Order("created_at ASC").Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *companyRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Company, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := dbc.DB(r.db).Model(&types.Company{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Company
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *companyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.Company{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *companyRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Company{}).Error
}

func (r *companyRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Company{}).Count(&n).Error
	return n, err
}
