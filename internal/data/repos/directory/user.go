package directory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type UserFilter struct {
	Role      *requests.Role
	CompanyID *uuid.UUID
	HouseID   *uuid.UUID
	Offset    int
	Limit     int
}

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error)
	GetByTelegramIDs(dbc dbctx.Context, telegramIDs []int64) ([]*types.User, error)
	List(dbc dbctx.Context, f UserFilter) ([]*types.User, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
	CountByCompany(dbc dbctx.Context, companyIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	CountByHouse(dbc dbctx.Context, houseIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := dbc.DB(ur.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(ur.db).
		Preload("House").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByTelegramIDs(dbc dbctx.Context, telegramIDs []int64) ([]*types.User, error) {
	var results []*types.User
	if len(telegramIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(ur.db).
		Preload("House").
		Where("telegram_id IN ?", telegramIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) List(dbc dbctx.Context, f UserFilter) ([]*types.User, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	q := dbc.DB(ur.db).Model(&types.User{})
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.HouseID != nil {
		q = q.Where("house_id = ?", *f.HouseID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.User
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (ur *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(ur.db).Model(&types.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (ur *userRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(ur.db).Where("id IN ?", ids).Delete(&types.User{}).Error
}

func (ur *userRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(ur.db).Model(&types.User{}).Count(&n).Error
	return n, err
}

func (ur *userRepo) CountByCompany(dbc dbctx.Context, companyIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countBy(dbc.DB(ur.db).Model(&types.User{}), "company_id", companyIDs)
}

func (ur *userRepo) CountByHouse(dbc dbctx.Context, houseIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countBy(dbc.DB(ur.db).Model(&types.User{}), "house_id", houseIDs)
}
