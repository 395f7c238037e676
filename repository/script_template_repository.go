package repository

import (
	"context"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// ScriptTemplateRepositoryImpl implements ScriptTemplateRepository interface
type ScriptTemplateRepositoryImpl struct {
	*BaseRepository[models.ScriptTemplate, models.ScriptTemplateFilter]
}

// NewScriptTemplateRepository creates a new script template repository
func NewScriptTemplateRepository(db *gorm.DB) ScriptTemplateRepository {
	return &ScriptTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ScriptTemplate, models.ScriptTemplateFilter](db),
	}
}

// ListForFunnel returns funnel-scoped templates plus global templates
func (r *ScriptTemplateRepositoryImpl) ListForFunnel(ctx context.Context, funnelID uint) ([]*models.ScriptTemplate, error) {
	db := r.getDB(ctx)
	var rows []*models.ScriptTemplate
	err := db.Model(&models.ScriptTemplate{}).
		Where("funnel_id = ? OR funnel_id IS NULL", funnelID).
		Order("title ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a script template
func (r *ScriptTemplateRepositoryImpl) Delete(ctx context.Context, scriptID uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.ScriptTemplate{}, scriptID).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *ScriptTemplateRepositoryImpl) applyFilter(query *gorm.DB, filter models.ScriptTemplateFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Title != nil {
		query = query.Where("title = ?", *filter.Title)
	}
	if filter.FunnelType != nil {
		query = query.Where("funnel_type = ?", *filter.FunnelType)
	}
	if filter.FunnelID != nil {
		query = query.Where("funnel_id = ?", *filter.FunnelID)
	}
	if filter.StageID != nil {
		query = query.Where("stage_id = ?", *filter.StageID)
	}
	return query
}

// ByFilter retrieves script templates based on filter criteria
func (r *ScriptTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.ScriptTemplateFilter, orderBy string, limit, offset int) ([]*models.ScriptTemplate, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ScriptTemplate{}), filter)

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

	var rows []*models.ScriptTemplate
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of script templates matching the filter
func (r *ScriptTemplateRepositoryImpl) Count(ctx context.Context, filter models.ScriptTemplateFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ScriptTemplate{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any script template matching the filter exists
func (r *ScriptTemplateRepositoryImpl) Exists(ctx context.Context, filter models.ScriptTemplateFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
