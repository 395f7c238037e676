// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/mkamali/leadfunnel/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// BrandRepository defines operations for brands
type BrandRepository interface {
	Repository[models.Brand, models.BrandFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Brand, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Brand, error)
	Deactivate(ctx context.Context, brandID uint, at time.Time) error
}

// FunnelRepository defines operations for funnels
type FunnelRepository interface {
	Repository[models.Funnel, models.FunnelFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Funnel, error)
	ListByBrand(ctx context.Context, brandID uint) ([]*models.Funnel, error)
	Deactivate(ctx context.Context, funnelID uint, at time.Time) error
	// HardDelete removes the funnel and everything under it: leads, their
	// activities and stage history, label links, funnel-scoped stages and
	// labels. Irreversible; callers gate it behind explicit confirmation.
	HardDelete(ctx context.Context, funnelID uint) error
}

// StageRepository defines operations for stages
type StageRepository interface {
	Repository[models.Stage, models.StageFilter]
	// ListForFunnel returns funnel-scoped stages together with global
	// template stages; override resolution happens in the flow layer.
	ListForFunnel(ctx context.Context, funnelID uint) ([]*models.Stage, error)
	ListGlobal(ctx context.Context) ([]*models.Stage, error)
	Delete(ctx context.Context, stageID uint) error
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Lead, error)
	ListByFunnel(ctx context.Context, funnelID uint) ([]*models.Lead, error)
	ListByBrand(ctx context.Context, brandID uint) ([]*models.Lead, error)
	Delete(ctx context.Context, leadID uint) error
	// UpdateStagePointer moves the denormalized current-stage pointer.
	// Last write wins under concurrency; the ledger keeps the full record.
	UpdateStagePointer(ctx context.Context, leadID uint, stageID uint, funnel models.FunnelType, at time.Time) error
	UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus, at time.Time) error
	// ListStaleBroadcast returns active broadcast-funnel leads whose last
	// response (or creation, if never responded) predates the cutoff.
	ListStaleBroadcast(ctx context.Context, cutoff time.Time, funnelID *uint) ([]*models.Lead, error)
}

// StageHistoryRepository defines operations for the stage transition ledger.
// Entries are append-only; there is deliberately no update or delete.
type StageHistoryRepository interface {
	ByID(ctx context.Context, id uint) (*models.StageHistory, error)
	ByFilter(ctx context.Context, filter models.StageHistoryFilter, orderBy string, limit, offset int) ([]*models.StageHistory, error)
	Save(ctx context.Context, entry *models.StageHistory) error
	Count(ctx context.Context, filter models.StageHistoryFilter) (int64, error)
	ListByLead(ctx context.Context, leadID uint) ([]*models.StageHistory, error)
	ListByLeadIDs(ctx context.Context, leadIDs []uint) ([]*models.StageHistory, error)
	ListAll(ctx context.Context) ([]*models.StageHistory, error)
}

// ActivityRepository defines operations for lead activities
type ActivityRepository interface {
	Repository[models.Activity, models.ActivityFilter]
	ListByLead(ctx context.Context, leadID uint) ([]*models.Activity, error)
	ListByLeadIDs(ctx context.Context, leadIDs []uint) ([]*models.Activity, error)
}

// CustomLabelRepository defines operations for custom labels
type CustomLabelRepository interface {
	Repository[models.CustomLabel, models.CustomLabelFilter]
	// ListForFunnel returns funnel-scoped labels plus global labels.
	ListForFunnel(ctx context.Context, funnelID uint) ([]*models.CustomLabel, error)
	Delete(ctx context.Context, labelID uint) error
	Attach(ctx context.Context, leadID, labelID uint) error
	Detach(ctx context.Context, leadID, labelID uint) error
	ListByLead(ctx context.Context, leadID uint) ([]*models.CustomLabel, error)
}

// ScriptTemplateRepository defines operations for script templates
type ScriptTemplateRepository interface {
	Repository[models.ScriptTemplate, models.ScriptTemplateFilter]
	ListForFunnel(ctx context.Context, funnelID uint) ([]*models.ScriptTemplate, error)
	Delete(ctx context.Context, scriptID uint) error
}
