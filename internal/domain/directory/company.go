package directory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a property-management company; it is the scope staff act within.
type Company struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null;column:name" json:"name"`
	Phone       string         `gorm:"type:varchar(20);column:phone" json:"phone,omitempty"`
	Email       string         `gorm:"type:varchar(255);column:email" json:"email,omitempty"`
	Address     string         `gorm:"type:varchar(500);column:address" json:"address,omitempty"`
	Description string         `gorm:"type:varchar(1000);column:description" json:"description,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Company) TableName() string { return "company" }

func (c *Company) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// House is a building serviced by exactly one company.
type House struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID      uuid.UUID      `gorm:"type:uuid;not null;index;column:company_id" json:"company_id"`
	Company        *Company       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	Address        string         `gorm:"type:varchar(500);not null;column:address" json:"address"`
	ApartmentCount int            `gorm:"column:apartment_count" json:"apartment_count"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (House) TableName() string { return "house" }

func (h *House) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
