package models

import (
	"time"

	"github.com/google/uuid"
)

// Brand is the top of the organizational hierarchy: a brand owns many funnels.
// Brands belong to the tenant identified by the hosted auth provider subject.
// Deletes are soft (is_active flip); rows persist for reporting.
type Brand struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_brands_uuid" json:"uuid"`
	TenantID    string    `gorm:"size:255;not null;index:idx_brands_tenant_id" json:"tenant_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	LogoURL     *string   `gorm:"size:2048" json:"logo_url,omitempty"`
	IsActive    *bool     `gorm:"default:true;index:idx_brands_is_active" json:"is_active"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_brands_created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Funnels []Funnel `gorm:"foreignKey:BrandID" json:"funnels,omitempty"`
}

func (Brand) TableName() string { return "brands" }

// BrandFilter represents filter criteria for brand queries
type BrandFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *string
	Name          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
