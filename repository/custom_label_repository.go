package repository

import (
	"context"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomLabelRepositoryImpl implements CustomLabelRepository interface
type CustomLabelRepositoryImpl struct {
	*BaseRepository[models.CustomLabel, models.CustomLabelFilter]
}

// NewCustomLabelRepository creates a new custom label repository
func NewCustomLabelRepository(db *gorm.DB) CustomLabelRepository {
	return &CustomLabelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CustomLabel, models.CustomLabelFilter](db),
	}
}

// ListForFunnel returns funnel-scoped labels plus global labels
func (r *CustomLabelRepositoryImpl) ListForFunnel(ctx context.Context, funnelID uint) ([]*models.CustomLabel, error) {
	db := r.getDB(ctx)
	var rows []*models.CustomLabel
	err := db.Model(&models.CustomLabel{}).
		Where("funnel_id = ? OR funnel_id IS NULL", funnelID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a label and its lead links
func (r *CustomLabelRepositoryImpl) Delete(ctx context.Context, labelID uint) error {
	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		tx := r.getDB(txCtx)
		if err := tx.Where("custom_label_id = ?", labelID).Delete(&models.LeadLabel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CustomLabel{}, labelID).Error
	})
}

// Attach links a label to a lead; attaching twice is a no-op
func (r *CustomLabelRepositoryImpl) Attach(ctx context.Context, leadID, labelID uint) error {
	db := r.getDB(ctx)
	link := models.LeadLabel{LeadID: leadID, CustomLabelID: labelID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// Detach removes a label link from a lead
func (r *CustomLabelRepositoryImpl) Detach(ctx context.Context, leadID, labelID uint) error {
	db := r.getDB(ctx)
	return db.Where("lead_id = ? AND custom_label_id = ?", leadID, labelID).
		Delete(&models.LeadLabel{}).Error
}

// ListByLead returns the labels attached to a lead
func (r *CustomLabelRepositoryImpl) ListByLead(ctx context.Context, leadID uint) ([]*models.CustomLabel, error) {
	db := r.getDB(ctx)
	var rows []*models.CustomLabel
	err := db.Model(&models.CustomLabel{}).
		Joins("JOIN lead_labels ON lead_labels.custom_label_id = custom_labels.id").
		Where("lead_labels.lead_id = ?", leadID).
		Order("custom_labels.name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *CustomLabelRepositoryImpl) applyFilter(query *gorm.DB, filter models.CustomLabelFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.FunnelID != nil {
		query = query.Where("funnel_id = ?", *filter.FunnelID)
	}
	if filter.GlobalOnly != nil && *filter.GlobalOnly {
		query = query.Where("funnel_id IS NULL")
	}
	return query
}

// ByFilter retrieves labels based on filter criteria
func (r *CustomLabelRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomLabelFilter, orderBy string, limit, offset int) ([]*models.CustomLabel, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CustomLabel{}), filter)

	if orderBy == "" {
		orderBy = "name ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.CustomLabel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of labels matching the filter
func (r *CustomLabelRepositoryImpl) Count(ctx context.Context, filter models.CustomLabelFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CustomLabel{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any label matching the filter exists
func (r *CustomLabelRepositoryImpl) Exists(ctx context.Context, filter models.CustomLabelFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
