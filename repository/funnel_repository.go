package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// FunnelRepositoryImpl implements FunnelRepository interface
type FunnelRepositoryImpl struct {
	*BaseRepository[models.Funnel, models.FunnelFilter]
}

// NewFunnelRepository creates a new funnel repository
func NewFunnelRepository(db *gorm.DB) FunnelRepository {
	return &FunnelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Funnel, models.FunnelFilter](db),
	}
}

// ByUUID retrieves a funnel by its public UUID
func (r *FunnelRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Funnel, error) {
	db := r.getDB(ctx)
	var rows []*models.Funnel
	if err := db.Where("uuid = ?", uuid).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByBrand retrieves all active funnels under a brand
func (r *FunnelRepositoryImpl) ListByBrand(ctx context.Context, brandID uint) ([]*models.Funnel, error) {
	db := r.getDB(ctx)
	var rows []*models.Funnel
	err := db.Model(&models.Funnel{}).
		Where("brand_id = ? AND is_active = ?", brandID, true).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate soft-deletes a funnel by flipping its is_active flag
func (r *FunnelRepositoryImpl) Deactivate(ctx context.Context, funnelID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Funnel{}).
		Where("id = ?", funnelID).
		Updates(map[string]any{"is_active": false, "updated_at": at}).Error
}

// HardDelete removes the funnel and everything under it inside one
// transaction. Delete order respects foreign keys: ledger entries, label
// links and activities first, then leads, then funnel-scoped stages and
// labels, then the funnel row itself.
func (r *FunnelRepositoryImpl) HardDelete(ctx context.Context, funnelID uint) error {
	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		tx := r.getDB(txCtx)

		leadIDs := tx.Model(&models.Lead{}).Select("id").Where("funnel_id = ?", funnelID)

		if err := tx.Where("lead_id IN (?)", leadIDs).Delete(&models.StageHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete stage history: %w", err)
		}
		if err := tx.Where("lead_id IN (?)", leadIDs).Delete(&models.Activity{}).Error; err != nil {
			return fmt.Errorf("failed to delete activities: %w", err)
		}
		if err := tx.Where("lead_id IN (?)", leadIDs).Delete(&models.LeadLabel{}).Error; err != nil {
			return fmt.Errorf("failed to delete label links: %w", err)
		}
		if err := tx.Where("funnel_id = ?", funnelID).Delete(&models.Lead{}).Error; err != nil {
			return fmt.Errorf("failed to delete leads: %w", err)
		}
		if err := tx.Where("funnel_id = ?", funnelID).Delete(&models.Stage{}).Error; err != nil {
			return fmt.Errorf("failed to delete stages: %w", err)
		}
		if err := tx.Where("funnel_id = ?", funnelID).Delete(&models.CustomLabel{}).Error; err != nil {
			return fmt.Errorf("failed to delete labels: %w", err)
		}
		if err := tx.Where("funnel_id = ?", funnelID).Delete(&models.ScriptTemplate{}).Error; err != nil {
			return fmt.Errorf("failed to delete script templates: %w", err)
		}
		if err := tx.Delete(&models.Funnel{}, funnelID).Error; err != nil {
			return fmt.Errorf("failed to delete funnel: %w", err)
		}
		return nil
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *FunnelRepositoryImpl) applyFilter(query *gorm.DB, filter models.FunnelFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.BrandID != nil {
		query = query.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves funnels based on filter criteria
func (r *FunnelRepositoryImpl) ByFilter(ctx context.Context, filter models.FunnelFilter, orderBy string, limit, offset int) ([]*models.Funnel, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Funnel{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Funnel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of funnels matching the filter
func (r *FunnelRepositoryImpl) Count(ctx context.Context, filter models.FunnelFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Funnel{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any funnel matching the filter exists
func (r *FunnelRepositoryImpl) Exists(ctx context.Context, filter models.FunnelFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
