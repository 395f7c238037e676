package models

import (
	"time"

	"github.com/google/uuid"
)

// Funnel is a pipeline owned by a brand. A funnel owns leads and, optionally,
// its own stage overrides and funnel-scoped labels. Regular deletes are soft;
// the hard-delete path cascades to leads, their activities, their stage
// history, label links, and funnel-scoped stages and labels.
type Funnel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_funnels_uuid" json:"uuid"`
	BrandID     uint      `gorm:"not null;index:idx_funnels_brand_id" json:"brand_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	IsActive    *bool     `gorm:"default:true;index:idx_funnels_is_active" json:"is_active"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_funnels_created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Brand *Brand `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Leads []Lead `gorm:"foreignKey:FunnelID" json:"leads,omitempty"`
}

func (Funnel) TableName() string { return "funnels" }

// FunnelFilter represents filter criteria for funnel queries
type FunnelFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	BrandID       *uint
	Name          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
