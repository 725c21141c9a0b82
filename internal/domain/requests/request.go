package requests

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaintenanceRequest is a resident's service request. Status is only ever
// written through the lifecycle engine; it caches the last ledger entry.
type MaintenanceRequest struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Status        Status     `gorm:"type:varchar(32);not null;index;column:status" json:"status"`
	Category      Category   `gorm:"type:varchar(32);not null;index;column:category" json:"category"`
	Title         string     `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Description   string     `gorm:"type:text;column:description" json:"description"`
	CreatedBy     uuid.UUID  `gorm:"type:uuid;not null;index;column:created_by" json:"created_by"`
	CompanyID     *uuid.UUID `gorm:"type:uuid;index;column:company_id" json:"company_id,omitempty"`
	HouseID       *uuid.UUID `gorm:"type:uuid;column:house_id" json:"house_id,omitempty"`
	Apartment     string     `gorm:"type:varchar(20);column:apartment" json:"apartment,omitempty"`
	IsPaid        int        `gorm:"not null;default:0;column:is_paid" json:"is_paid"`
	PaymentStatus *string    `gorm:"type:varchar(50);column:payment_status" json:"payment_status,omitempty"`
	Version       int        `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt     time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_request" }

// HistoryEntry is one recorded status change. Rows are never updated or deleted.
type HistoryEntry struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_request_history_seq,priority:1;column:request_id" json:"request_id"`
	Seq            int64          `gorm:"not null;uniqueIndex:idx_request_history_seq,priority:2;column:seq" json:"seq"`
	PreviousStatus Status         `gorm:"type:varchar(32);not null;column:previous_status" json:"previous_status"`
	NewStatus      Status         `gorm:"type:varchar(32);not null;column:new_status" json:"new_status"`
	Comment        *string        `gorm:"type:text;column:comment" json:"comment,omitempty"`
	ActorID        uuid.UUID      `gorm:"type:uuid;not null;column:actor_id" json:"actor_id"`
	ActorRole      Role           `gorm:"type:varchar(32);not null;column:actor_role" json:"actor_role"`
	Override       bool           `gorm:"not null;default:false;column:override" json:"override"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (HistoryEntry) TableName() string { return "request_history" }

func (r *MaintenanceRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusNew
	}
	return nil
}

func (e *HistoryEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
