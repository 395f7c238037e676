package models

import (
	"time"
)

// Activity types recorded against a lead
const (
	ActivityTypeCall         = "call"
	ActivityTypeEmail        = "email"
	ActivityTypeMessage      = "message"
	ActivityTypeNote         = "note"
	ActivityTypeStatusChange = "status_change"
)

// Activity is a free-form interaction record attached to a lead.
type Activity struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LeadID       uint      `gorm:"not null;index:idx_activities_lead_id" json:"lead_id"`
	ActivityType string    `gorm:"size:32;not null;index:idx_activities_type" json:"activity_type"`
	Content      *string   `gorm:"type:text" json:"content,omitempty"`
	Actor        string    `gorm:"size:255;not null" json:"actor"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_activities_created_at" json:"created_at"`

	Lead *Lead `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
}

func (Activity) TableName() string { return "activities" }

// ActivityFilter represents filter criteria for activity queries
type ActivityFilter struct {
	ID            *uint
	LeadID        *uint
	ActivityType  *string
	Actor         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
