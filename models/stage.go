package models

import (
	"time"
)

// Stage is a named step within a funnel-type. A stage with a nil FunnelID is
// a global template; a stage scoped to one funnel overrides the template set
// for that funnel-type wholesale (override, never merge). Within one funnel
// and funnel-type, stage numbers are unique and ascending.
type Stage struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	FunnelType  FunnelType `gorm:"size:32;not null;index:idx_stages_funnel_type;uniqueIndex:uk_stages_funnel_type_number" json:"funnel_type"`
	StageNumber int        `gorm:"not null;uniqueIndex:uk_stages_funnel_type_number" json:"stage_number"`
	FunnelID    *uint      `gorm:"index:idx_stages_funnel_id;uniqueIndex:uk_stages_funnel_type_number" json:"funnel_id,omitempty"`
	Color       *string    `gorm:"size:32" json:"color,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Stage) TableName() string { return "stages" }

// IsGlobal reports whether the stage is a template stage (not funnel-scoped)
func (s *Stage) IsGlobal() bool {
	return s.FunnelID == nil
}

// StageFilter represents filter criteria for stage queries
type StageFilter struct {
	ID          *uint
	Name        *string
	FunnelType  *FunnelType
	FunnelID    *uint
	GlobalOnly  *bool
	StageNumber *int
}
