package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/housedesk-backend/internal/domain/auth"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

// UserTokenRepo stores login sessions. A row is one live session: the
// access token authenticates requests and the refresh token rotates it.
// Lookups return nil, nil when nothing matches.
type UserTokenRepo interface {
	Create(dbc dbctx.Context, token *types.UserToken) error
	FindByAccessToken(dbc dbctx.Context, access string) (*types.UserToken, error)
	FindByRefreshToken(dbc dbctx.Context, refresh string) (*types.UserToken, error)
	CountForUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	Revoke(dbc dbctx.Context, ids ...uuid.UUID) error
	RevokeAllForUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	PurgeExpired(dbc dbctx.Context, now time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, token *types.UserToken) error {
	return dbc.DB(r.db).Create(token).Error
}

func (r *userTokenRepo) FindByAccessToken(dbc dbctx.Context, access string) (*types.UserToken, error) {
	return r.findOne(dbc, "access_token = ?", access)
}

func (r *userTokenRepo) FindByRefreshToken(dbc dbctx.Context, refresh string) (*types.UserToken, error) {
	return r.findOne(dbc, "refresh_token = ?", refresh)
}

func (r *userTokenRepo) findOne(dbc dbctx.Context, where string, value string) (*types.UserToken, error) {
	if value == "" {
		return nil, nil
	}
	var tok types.UserToken
	err := dbc.DB(r.db).Where(where, value).Take(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (r *userTokenRepo) CountForUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.UserToken{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *userTokenRepo) Revoke(dbc dbctx.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.UserToken{}).Error
}

// RevokeAllForUser ends every session of a user, e.g. when the account is
// removed or its role changes.
func (r *userTokenRepo) RevokeAllForUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("user_id = ?", userID).Delete(&types.UserToken{})
	return res.RowsAffected, res.Error
}

func (r *userTokenRepo) PurgeExpired(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(r.db).Where("expires_at < ?", now).Delete(&types.UserToken{})
	if res.Error == nil && res.RowsAffected > 0 {
		r.log.Debug("purged expired sessions", "count", res.RowsAffected)
	}
	return res.RowsAffected, res.Error
}
