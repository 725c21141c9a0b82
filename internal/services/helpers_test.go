package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/repos"
	"github.com/yungbote/housedesk-backend/internal/data/repos/testutil"
	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type testEnv struct {
	db    *gorm.DB
	log   *logger.Logger
	repos repos.Set
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return testEnv{db: db, log: log, repos: repos.NewSet(db, log)}
}

func dbcFor(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

// as returns a context authenticated as u.
func as(u *directory.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID:    u.ID,
		Role:      string(u.Role),
		CompanyID: u.CompanyID,
	})
}
