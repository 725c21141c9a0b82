package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// OpenSQLite opens a SQLite database for local development and tests.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string, quiet bool) (*gorm.DB, error) {
	dsn := path
	if dsn == ":memory:" || dsn == "" {
		dsn = "file::memory:"
	}
	var lg gormLogger.Interface = newGormLogger()
	if quiet {
		lg = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn+"?_foreign_keys=off&_busy_timeout=5000"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   lg,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
