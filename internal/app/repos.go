package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/db"
	"github.com/yungbote/housedesk-backend/internal/data/repos"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

// OpenDB connects to the configured database and migrates it.
func OpenDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	var (
		theDB *gorm.DB
		err   error
	)
	switch cfg.DBDriver {
	case "sqlite":
		log.Info("Opening SQLite database...", "path", cfg.SQLitePath)
		theDB, err = db.OpenSQLite(cfg.SQLitePath, false)
		if err != nil {
			return nil, err
		}
	default:
		pg, perr := db.NewPostgresService(log)
		if perr != nil {
			return nil, fmt.Errorf("init postgres: %w", perr)
		}
		theDB = pg.DB()
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		return nil, fmt.Errorf("%s automigrate: %w", cfg.DBDriver, err)
	}
	return theDB, nil
}

func wireRepos(db *gorm.DB, log *logger.Logger) repos.Set {
	log.Info("Wiring repos...")
	return repos.NewSet(db, log)
}
