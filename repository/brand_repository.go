package repository

import (
	"context"
	"time"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// BrandRepositoryImpl implements BrandRepository interface
type BrandRepositoryImpl struct {
	*BaseRepository[models.Brand, models.BrandFilter]
}

// NewBrandRepository creates a new brand repository
func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &BrandRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Brand, models.BrandFilter](db),
	}
}

// ByUUID retrieves a brand by its public UUID
func (r *BrandRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Brand, error) {
	db := r.getDB(ctx)
	var rows []*models.Brand
	if err := db.Where("uuid = ?", uuid).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByTenant retrieves all active brands owned by a tenant
func (r *BrandRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]*models.Brand, error) {
	db := r.getDB(ctx)
	var rows []*models.Brand
	err := db.Model(&models.Brand{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate soft-deletes a brand by flipping its is_active flag
func (r *BrandRepositoryImpl) Deactivate(ctx context.Context, brandID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Brand{}).
		Where("id = ?", brandID).
		Updates(map[string]any{"is_active": false, "updated_at": at}).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *BrandRepositoryImpl) applyFilter(query *gorm.DB, filter models.BrandFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
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

// ByFilter retrieves brands based on filter criteria
func (r *BrandRepositoryImpl) ByFilter(ctx context.Context, filter models.BrandFilter, orderBy string, limit, offset int) ([]*models.Brand, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Brand{}), filter)

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

	var rows []*models.Brand
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of brands matching the filter
func (r *BrandRepositoryImpl) Count(ctx context.Context, filter models.BrandFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Brand{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any brand matching the filter exists
func (r *BrandRepositoryImpl) Exists(ctx context.Context, filter models.BrandFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
