package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TelegramID   int64          `gorm:"uniqueIndex;not null;column:telegram_id" json:"telegram_id"`
	Username     string         `gorm:"type:varchar(255);column:username" json:"username,omitempty"`
	FirstName    string         `gorm:"type:varchar(255);column:first_name" json:"first_name,omitempty"`
	LastName     string         `gorm:"type:varchar(255);column:last_name" json:"last_name,omitempty"`
	Phone        string         `gorm:"type:varchar(20);column:phone" json:"phone,omitempty"`
	HouseID      *uuid.UUID     `gorm:"type:uuid;index;column:house_id" json:"house_id,omitempty"`
	House        *House         `gorm:"constraint:OnDelete:SET NULL;foreignKey:HouseID;references:ID" json:"house,omitempty"`
	Apartment    string         `gorm:"type:varchar(20);column:apartment" json:"apartment,omitempty"`
	Role         requests.Role  `gorm:"type:varchar(32);not null;default:resident;column:role" json:"role"`
	CompanyID    *uuid.UUID     `gorm:"type:uuid;index;column:company_id" json:"company_id,omitempty"`
	PasswordHash string         `gorm:"column:password_hash" json:"-"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = requests.RoleResident
	}
	return nil
}

func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{u.FirstName, u.LastName} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("User %d", u.TelegramID)
}

// Actor is the lifecycle identity of this user.
func (u *User) Actor() requests.Actor {
	return requests.Actor{ID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}
