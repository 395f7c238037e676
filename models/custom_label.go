package models

import (
	"time"
)

// CustomLabel is a tag attachable to leads. A nil FunnelID makes the label
// global; otherwise it is scoped to one funnel. No cardinality constraint is
// enforced on attachments.
type CustomLabel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;index:idx_custom_labels_name" json:"name"`
	Color     string    `gorm:"size:32;not null;default:'#808080'" json:"color"`
	FunnelID  *uint     `gorm:"index:idx_custom_labels_funnel_id" json:"funnel_id,omitempty"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (CustomLabel) TableName() string { return "custom_labels" }

// LeadLabel is the link row attaching a label to a lead.
type LeadLabel struct {
	LeadID        uint      `gorm:"primaryKey" json:"lead_id"`
	CustomLabelID uint      `gorm:"primaryKey" json:"custom_label_id"`
	CreatedAt     time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (LeadLabel) TableName() string { return "lead_labels" }

// CustomLabelFilter represents filter criteria for label queries
type CustomLabelFilter struct {
	ID         *uint
	Name       *string
	FunnelID   *uint
	GlobalOnly *bool
}
