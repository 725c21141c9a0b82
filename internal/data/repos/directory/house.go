package directory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type HouseRepo interface {
	Create(dbc dbctx.Context, rows []*types.House) ([]*types.House, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.House, error)
	GetByAddress(dbc dbctx.Context, companyID uuid.UUID, address string) (*types.House, error)
	List(dbc dbctx.Context, companyID *uuid.UUID, offset, limit int) ([]*types.House, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	SoftDeleteByCompanyIDs(dbc dbctx.Context, companyIDs []uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
	CountByCompany(dbc dbctx.Context, companyIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type houseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHouseRepo(db *gorm.DB, baseLog *logger.Logger) HouseRepo {
	return &houseRepo{db: db, log: baseLog.With("repo", "HouseRepo")}
}

func (r *houseRepo) Create(dbc dbctx.Context, rows []*types.House) ([]*types.House, error) {
	if len(rows) == 0 {
		return []*types.House{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *houseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.House, error) {
	var out []*types.House
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Preload("Company").Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *houseRepo) GetByAddress(dbc dbctx.Context, companyID uuid.UUID, address string) (*types.House, error) {
	var out []*types.House
	if err := dbc.DB(r.db).
		Where("company_id = ? AND address = ?", companyID, address).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *houseRepo) List(dbc dbctx.Context, companyID *uuid.UUID, offset, limit int) ([]*types.House, int64, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := dbc.DB(r.db).Model(&types.House{})
	if companyID != nil {
		q = q.Where("company_id = ?", *companyID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.House
	if err := q.Order("address ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *houseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.House{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *houseRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.House{}).Error
}

func (r *houseRepo) SoftDeleteByCompanyIDs(dbc dbctx.Context, companyIDs []uuid.UUID) error {
	if len(companyIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("company_id IN ?", companyIDs).Delete(&types.House{}).Error
}

func (r *houseRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.House{}).Count(&n).Error
	return n, err
}

func (r *houseRepo) CountByCompany(dbc dbctx.Context, companyIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countBy(dbc.DB(r.db).Model(&types.House{}), "company_id", companyIDs)
}
