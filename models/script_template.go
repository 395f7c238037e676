package models

import (
	"time"
)

// ScriptTemplate is a reusable outreach script. Templates can be global or
// scoped to a funnel, and optionally pinned to a specific stage.
type ScriptTemplate struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	FunnelType FunnelType `gorm:"size:32;not null;index:idx_script_templates_funnel_type" json:"funnel_type"`
	FunnelID   *uint      `gorm:"index:idx_script_templates_funnel_id" json:"funnel_id,omitempty"`
	StageID    *uint      `gorm:"index:idx_script_templates_stage_id" json:"stage_id,omitempty"`
	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (ScriptTemplate) TableName() string { return "script_templates" }

// ScriptTemplateFilter represents filter criteria for script queries
type ScriptTemplateFilter struct {
	ID         *uint
	Title      *string
	FunnelType *FunnelType
	FunnelID   *uint
	StageID    *uint
}
