package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadStatus represents the lifecycle status of a lead
type LeadStatus string

const (
	LeadStatusActive LeadStatus = "active"
	LeadStatusDeal   LeadStatus = "deal"
	LeadStatusLost   LeadStatus = "lost"
)

// String returns the string representation of the status
func (s LeadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusActive, LeadStatusDeal, LeadStatusLost:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for LeadStatus
func (s *LeadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadStatus(v)
	case []byte:
		*s = LeadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadStatus
func (s LeadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadStatus: %s", s)
	}
	return string(s), nil
}

// Lead is a contact or prospect moving through a funnel. At least one of
// email/phone is required. Terminal statuses (deal, lost) persist for
// reporting. The current stage pointer is denormalized state; the stage
// history ledger is the source of truth for flow metrics.
type Lead struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Email          *string    `gorm:"size:255;index:idx_leads_email" json:"email,omitempty"`
	Phone          *string    `gorm:"size:64;index:idx_leads_phone" json:"phone,omitempty"`
	Company        *string    `gorm:"size:255" json:"company,omitempty"`
	Source         string     `gorm:"size:255;not null" json:"source"`
	CurrentFunnel  FunnelType `gorm:"size:32;not null;index:idx_leads_current_funnel" json:"current_funnel"`
	CurrentStageID *uint      `gorm:"index:idx_leads_current_stage_id" json:"current_stage_id,omitempty"`
	Status         LeadStatus `gorm:"size:16;not null;default:'active';index:idx_leads_status" json:"status"`
	DealValue      *float64   `json:"deal_value,omitempty"`
	LastResponseAt *time.Time `gorm:"index:idx_leads_last_response_at" json:"last_response_at,omitempty"`
	BrandID        uint       `gorm:"not null;index:idx_leads_brand_id" json:"brand_id"`
	FunnelID       uint       `gorm:"not null;index:idx_leads_funnel_id" json:"funnel_id"`
	Notes          *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_leads_created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	CurrentStage *Stage        `gorm:"foreignKey:CurrentStageID;constraint:OnDelete:SET NULL" json:"current_stage,omitempty"`
	Labels       []CustomLabel `gorm:"many2many:lead_labels;" json:"labels,omitempty"`
}

func (Lead) TableName() string { return "leads" }

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	BrandID        *uint
	FunnelID       *uint
	CurrentFunnel  *FunnelType
	CurrentStageID *uint
	Status         *LeadStatus
	Source         *string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}
