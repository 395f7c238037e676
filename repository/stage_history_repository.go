package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// StageHistoryRepositoryImpl implements StageHistoryRepository. The ledger
// is append-only so the implementation exposes no update or delete path.
type StageHistoryRepositoryImpl struct {
	db *gorm.DB
}

// NewStageHistoryRepository creates a new stage history repository
func NewStageHistoryRepository(db *gorm.DB) StageHistoryRepository {
	return &StageHistoryRepositoryImpl{db: db}
}

func (r *StageHistoryRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByID retrieves a ledger entry by its ID
func (r *StageHistoryRepositoryImpl) ByID(ctx context.Context, id uint) (*models.StageHistory, error) {
	db := r.getDB(ctx)
	var row models.StageHistory
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Save appends a ledger entry
func (r *StageHistoryRepositoryImpl) Save(ctx context.Context, entry *models.StageHistory) error {
	db := r.getDB(ctx)
	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append stage history entry: %w", err)
	}
	return nil
}

// ListByLead retrieves a lead's transitions in chronological order
func (r *StageHistoryRepositoryImpl) ListByLead(ctx context.Context, leadID uint) ([]*models.StageHistory, error) {
	db := r.getDB(ctx)
	var rows []*models.StageHistory
	err := db.Model(&models.StageHistory{}).
		Where("lead_id = ?", leadID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByLeadIDs retrieves all transitions for a set of leads, chronological
func (r *StageHistoryRepositoryImpl) ListByLeadIDs(ctx context.Context, leadIDs []uint) ([]*models.StageHistory, error) {
	if len(leadIDs) == 0 {
		return []*models.StageHistory{}, nil
	}
	db := r.getDB(ctx)
	var rows []*models.StageHistory
	err := db.Model(&models.StageHistory{}).
		Where("lead_id IN ?", leadIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll retrieves every ledger entry, chronological
func (r *StageHistoryRepositoryImpl) ListAll(ctx context.Context) ([]*models.StageHistory, error) {
	db := r.getDB(ctx)
	var rows []*models.StageHistory
	err := db.Model(&models.StageHistory{}).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *StageHistoryRepositoryImpl) applyFilter(query *gorm.DB, filter models.StageHistoryFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.FromStageID != nil {
		query = query.Where("from_stage_id = ?", *filter.FromStageID)
	}
	if filter.ToStageID != nil {
		query = query.Where("to_stage_id = ?", *filter.ToStageID)
	}
	if filter.FromFunnel != nil {
		query = query.Where("from_funnel = ?", *filter.FromFunnel)
	}
	if filter.ToFunnel != nil {
		query = query.Where("to_funnel = ?", *filter.ToFunnel)
	}
	if filter.Reason != nil {
		query = query.Where("reason = ?", *filter.Reason)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves ledger entries based on filter criteria
func (r *StageHistoryRepositoryImpl) ByFilter(ctx context.Context, filter models.StageHistoryFilter, orderBy string, limit, offset int) ([]*models.StageHistory, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.StageHistory{}), filter)

	if orderBy == "" {
		orderBy = "created_at ASC, id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.StageHistory
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of ledger entries matching the filter
func (r *StageHistoryRepositoryImpl) Count(ctx context.Context, filter models.StageHistoryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.StageHistory{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
