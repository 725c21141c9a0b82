package cli

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/app"
	"github.com/yungbote/housedesk-backend/internal/data/repos"
	"github.com/yungbote/housedesk-backend/internal/platform/envutil"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type store struct {
	db    *gorm.DB
	log   *logger.Logger
	repos repos.Set
}

func (s *store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	s.log.Sync()
}

// addSQLiteFlag lets a command target a SQLite file instead of the
// database configured through DB_DRIVER.
func addSQLiteFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "sqlite", "", "use this SQLite file instead of the configured database")
}

// openStore connects and migrates the same way the API server does.
func openStore(sqlitePath string) (*store, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, err
	}
	cfg := app.LoadConfig(log)
	if sqlitePath != "" {
		cfg.DBDriver = "sqlite"
		cfg.SQLitePath = sqlitePath
	}
	db, err := app.OpenDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &store{db: db, log: log, repos: repos.NewSet(db, log)}, nil
}
