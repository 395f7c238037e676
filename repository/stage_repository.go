package repository

import (
	"context"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// StageRepositoryImpl implements StageRepository interface
type StageRepositoryImpl struct {
	*BaseRepository[models.Stage, models.StageFilter]
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *gorm.DB) StageRepository {
	return &StageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Stage, models.StageFilter](db),
	}
}

// ListForFunnel returns the funnel's own stages plus the global templates.
// The caller applies the override-not-merge resolution per funnel-type.
func (r *StageRepositoryImpl) ListForFunnel(ctx context.Context, funnelID uint) ([]*models.Stage, error) {
	db := r.getDB(ctx)
	var rows []*models.Stage
	err := db.Model(&models.Stage{}).
		Where("funnel_id = ? OR funnel_id IS NULL", funnelID).
		Order("stage_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListGlobal returns the global template stages ordered by stage number
func (r *StageRepositoryImpl) ListGlobal(ctx context.Context) ([]*models.Stage, error) {
	db := r.getDB(ctx)
	var rows []*models.Stage
	err := db.Model(&models.Stage{}).
		Where("funnel_id IS NULL").
		Order("stage_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a stage
func (r *StageRepositoryImpl) Delete(ctx context.Context, stageID uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.Stage{}, stageID).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *StageRepositoryImpl) applyFilter(query *gorm.DB, filter models.StageFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.FunnelType != nil {
		query = query.Where("funnel_type = ?", *filter.FunnelType)
	}
	if filter.FunnelID != nil {
		query = query.Where("funnel_id = ?", *filter.FunnelID)
	}
	if filter.GlobalOnly != nil && *filter.GlobalOnly {
		query = query.Where("funnel_id IS NULL")
	}
	if filter.StageNumber != nil {
		query = query.Where("stage_number = ?", *filter.StageNumber)
	}
	return query
}

// ByFilter retrieves stages based on filter criteria
func (r *StageRepositoryImpl) ByFilter(ctx context.Context, filter models.StageFilter, orderBy string, limit, offset int) ([]*models.Stage, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Stage{}), filter)

	if orderBy == "" {
		orderBy = "stage_number ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Stage
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of stages matching the filter
func (r *StageRepositoryImpl) Count(ctx context.Context, filter models.StageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Stage{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any stage matching the filter exists
func (r *StageRepositoryImpl) Exists(ctx context.Context, filter models.StageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
