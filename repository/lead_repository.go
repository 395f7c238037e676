package repository

import (
	"context"
	"time"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByUUID retrieves a lead by its public UUID
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Lead, error) {
	db := r.getDB(ctx)
	var rows []*models.Lead
	if err := db.Where("uuid = ?", uuid).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByFunnel retrieves all leads owned by a funnel
func (r *LeadRepositoryImpl) ListByFunnel(ctx context.Context, funnelID uint) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	var rows []*models.Lead
	err := db.Model(&models.Lead{}).
		Where("funnel_id = ?", funnelID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByBrand retrieves all leads across a brand's funnels
func (r *LeadRepositoryImpl) ListByBrand(ctx context.Context, brandID uint) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	var rows []*models.Lead
	err := db.Model(&models.Lead{}).
		Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a lead together with its ledger entries, activities, and
// label links
func (r *LeadRepositoryImpl) Delete(ctx context.Context, leadID uint) error {
	db := r.getDB(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", leadID).Delete(&models.StageHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lead_id = ?", leadID).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lead_id = ?", leadID).Delete(&models.LeadLabel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lead{}, leadID).Error
	})
}

// UpdateStagePointer moves the lead's denormalized current-stage pointer.
// Callers pass the same timestamp they stamped on the matching ledger entry.
func (r *LeadRepositoryImpl) UpdateStagePointer(ctx context.Context, leadID uint, stageID uint, funnel models.FunnelType, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"current_stage_id": stageID,
			"current_funnel":   funnel,
			"updated_at":       at,
		}).Error
}

// UpdateStatus sets the lead's lifecycle status
func (r *LeadRepositoryImpl) UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{"status": status, "updated_at": at}).Error
}

// ListStaleBroadcast returns active broadcast leads that have shown no
// response since the cutoff (falling back to created_at for leads that
// never responded).
func (r *LeadRepositoryImpl) ListStaleBroadcast(ctx context.Context, cutoff time.Time, funnelID *uint) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Lead{}).
		Where("current_funnel = ? AND status = ?", models.FunnelTypeBroadcast, models.LeadStatusActive).
		Where("COALESCE(last_response_at, created_at) < ?", cutoff)
	if funnelID != nil {
		query = query.Where("funnel_id = ?", *funnelID)
	}

	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.BrandID != nil {
		query = query.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.FunnelID != nil {
		query = query.Where("funnel_id = ?", *filter.FunnelID)
	}
	if filter.CurrentFunnel != nil {
		query = query.Where("current_funnel = ?", *filter.CurrentFunnel)
	}
	if filter.CurrentStageID != nil {
		query = query.Where("current_stage_id = ?", *filter.CurrentStageID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)

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

	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of leads matching the filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any lead matching the filter exists
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
