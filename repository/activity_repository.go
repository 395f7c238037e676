package repository

import (
	"context"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// ActivityRepositoryImpl implements ActivityRepository interface
type ActivityRepositoryImpl struct {
	*BaseRepository[models.Activity, models.ActivityFilter]
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &ActivityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Activity, models.ActivityFilter](db),
	}
}

// ListByLead retrieves a lead's activities, most recent first
func (r *ActivityRepositoryImpl) ListByLead(ctx context.Context, leadID uint) ([]*models.Activity, error) {
	db := r.getDB(ctx)
	var rows []*models.Activity
	err := db.Model(&models.Activity{}).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByLeadIDs retrieves activities for a set of leads
func (r *ActivityRepositoryImpl) ListByLeadIDs(ctx context.Context, leadIDs []uint) ([]*models.Activity, error) {
	if len(leadIDs) == 0 {
		return []*models.Activity{}, nil
	}
	db := r.getDB(ctx)
	var rows []*models.Activity
	err := db.Model(&models.Activity{}).
		Where("lead_id IN ?", leadIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *ActivityRepositoryImpl) applyFilter(query *gorm.DB, filter models.ActivityFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.ActivityType != nil {
		query = query.Where("activity_type = ?", *filter.ActivityType)
	}
	if filter.Actor != nil {
		query = query.Where("actor = ?", *filter.Actor)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves activities based on filter criteria
func (r *ActivityRepositoryImpl) ByFilter(ctx context.Context, filter models.ActivityFilter, orderBy string, limit, offset int) ([]*models.Activity, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Activity{}), filter)

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

	var rows []*models.Activity
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of activities matching the filter
func (r *ActivityRepositoryImpl) Count(ctx context.Context, filter models.ActivityFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Activity{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any activity matching the filter exists
func (r *ActivityRepositoryImpl) Exists(ctx context.Context, filter models.ActivityFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
