package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/domain/auth"
	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Directory
		// =========================
		&directory.Company{},
		&directory.House{},
		&directory.User{},

		// =========================
		// Auth
		// =========================
		&auth.UserToken{},

		// =========================
		// Requests + ledger
		// =========================
		&requests.MaintenanceRequest{},
		&requests.HistoryEntry{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureRequestIndexes(db)
}

// EnsureRequestIndexes adds the composite indexes the list queries rely on.
func EnsureRequestIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_maintenance_request_company_created ON maintenance_request(company_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_request_creator_created ON maintenance_request(created_by, created_at);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure request indexes: %w", err)
		}
	}
	return nil
}
