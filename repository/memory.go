package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkamali/leadfunnel/models"
	"gorm.io/gorm"
)

// In-memory repository implementations. They back flow tests and local
// development without a database; the GORM implementations remain the
// production path. Semantics mirror the SQL variants closely enough for the
// flow layer: stable ordering, append-only history, pointer updates.

// MemoryBrandRepository is an in-memory BrandRepository
type MemoryBrandRepository struct {
	mu     sync.RWMutex
	nextID uint
	brands map[uint]*models.Brand
}

// NewMemoryBrandRepository creates an empty in-memory brand repository
func NewMemoryBrandRepository() *MemoryBrandRepository {
	return &MemoryBrandRepository{nextID: 1, brands: make(map[uint]*models.Brand)}
}

func (r *MemoryBrandRepository) ByID(ctx context.Context, id uint) (*models.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.brands[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *MemoryBrandRepository) matchFilter(b *models.Brand, filter models.BrandFilter) bool {
	if filter.ID != nil && b.ID != *filter.ID {
		return false
	}
	if filter.UUID != nil && b.UUID != *filter.UUID {
		return false
	}
	if filter.TenantID != nil && b.TenantID != *filter.TenantID {
		return false
	}
	if filter.Name != nil && b.Name != *filter.Name {
		return false
	}
	if filter.IsActive != nil {
		if b.IsActive == nil || *b.IsActive != *filter.IsActive {
			return false
		}
	}
	if filter.CreatedAfter != nil && !b.CreatedAt.After(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !b.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryBrandRepository) ByFilter(ctx context.Context, filter models.BrandFilter, orderBy string, limit, offset int) ([]*models.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Brand
	for _, b := range r.brands {
		if r.matchFilter(b, filter) {
			c := *b
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return paginate(rows, limit, offset), nil
}

func (r *MemoryBrandRepository) Save(ctx context.Context, entity *models.Brand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	} else if entity.ID >= r.nextID {
		r.nextID = entity.ID + 1
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.brands[entity.ID] = &c
	return nil
}

func (r *MemoryBrandRepository) SaveBatch(ctx context.Context, entities []*models.Brand) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryBrandRepository) Update(ctx context.Context, entity *models.Brand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.brands[entity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.brands[entity.ID] = &c
	return nil
}

func (r *MemoryBrandRepository) Count(ctx context.Context, filter models.BrandFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryBrandRepository) Exists(ctx context.Context, filter models.BrandFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *MemoryBrandRepository) ByUUID(ctx context.Context, id string) (*models.Brand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.brands {
		if b.UUID.String() == id {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryBrandRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Brand, error) {
	return r.ByFilter(ctx, models.BrandFilter{TenantID: &tenantID}, "", 0, 0)
}

func (r *MemoryBrandRepository) Deactivate(ctx context.Context, brandID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brands[brandID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inactive := false
	b.IsActive = &inactive
	b.UpdatedAt = at
	return nil
}

// MemoryFunnelRepository is an in-memory FunnelRepository
type MemoryFunnelRepository struct {
	mu      sync.RWMutex
	nextID  uint
	funnels map[uint]*models.Funnel
}

// NewMemoryFunnelRepository creates an empty in-memory funnel repository
func NewMemoryFunnelRepository() *MemoryFunnelRepository {
	return &MemoryFunnelRepository{nextID: 1, funnels: make(map[uint]*models.Funnel)}
}

func (r *MemoryFunnelRepository) ByID(ctx context.Context, id uint) (*models.Funnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funnels[id]
	if !ok {
		return nil, nil
	}
	c := *f
	return &c, nil
}

func (r *MemoryFunnelRepository) matchFilter(f *models.Funnel, filter models.FunnelFilter) bool {
	if filter.ID != nil && f.ID != *filter.ID {
		return false
	}
	if filter.UUID != nil && f.UUID != *filter.UUID {
		return false
	}
	if filter.BrandID != nil && f.BrandID != *filter.BrandID {
		return false
	}
	if filter.Name != nil && f.Name != *filter.Name {
		return false
	}
	if filter.IsActive != nil {
		if f.IsActive == nil || *f.IsActive != *filter.IsActive {
			return false
		}
	}
	if filter.CreatedAfter != nil && !f.CreatedAt.After(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !f.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryFunnelRepository) ByFilter(ctx context.Context, filter models.FunnelFilter, orderBy string, limit, offset int) ([]*models.Funnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Funnel
	for _, f := range r.funnels {
		if r.matchFilter(f, filter) {
			c := *f
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return paginate(rows, limit, offset), nil
}

func (r *MemoryFunnelRepository) Save(ctx context.Context, entity *models.Funnel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	} else if entity.ID >= r.nextID {
		r.nextID = entity.ID + 1
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.funnels[entity.ID] = &c
	return nil
}

func (r *MemoryFunnelRepository) SaveBatch(ctx context.Context, entities []*models.Funnel) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryFunnelRepository) Update(ctx context.Context, entity *models.Funnel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funnels[entity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.funnels[entity.ID] = &c
	return nil
}

func (r *MemoryFunnelRepository) Count(ctx context.Context, filter models.FunnelFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryFunnelRepository) Exists(ctx context.Context, filter models.FunnelFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *MemoryFunnelRepository) ByUUID(ctx context.Context, id string) (*models.Funnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.funnels {
		if f.UUID.String() == id {
			c := *f
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryFunnelRepository) ListByBrand(ctx context.Context, brandID uint) ([]*models.Funnel, error) {
	return r.ByFilter(ctx, models.FunnelFilter{BrandID: &brandID}, "", 0, 0)
}

func (r *MemoryFunnelRepository) Deactivate(ctx context.Context, funnelID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.funnels[funnelID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inactive := false
	f.IsActive = &inactive
	f.UpdatedAt = at
	return nil
}

func (r *MemoryFunnelRepository) HardDelete(ctx context.Context, funnelID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funnels, funnelID)
	return nil
}

// MemoryStageRepository is an in-memory StageRepository
type MemoryStageRepository struct {
	mu     sync.RWMutex
	nextID uint
	stages map[uint]*models.Stage
}

// NewMemoryStageRepository creates an empty in-memory stage repository
func NewMemoryStageRepository() *MemoryStageRepository {
	return &MemoryStageRepository{nextID: 1, stages: make(map[uint]*models.Stage)}
}

func (r *MemoryStageRepository) ByID(ctx context.Context, id uint) (*models.Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *MemoryStageRepository) matchFilter(s *models.Stage, filter models.StageFilter) bool {
	if filter.ID != nil && s.ID != *filter.ID {
		return false
	}
	if filter.Name != nil && s.Name != *filter.Name {
		return false
	}
	if filter.FunnelType != nil && s.FunnelType != *filter.FunnelType {
		return false
	}
	if filter.FunnelID != nil {
		if s.FunnelID == nil || *s.FunnelID != *filter.FunnelID {
			return false
		}
	}
	if filter.GlobalOnly != nil && *filter.GlobalOnly && s.FunnelID != nil {
		return false
	}
	if filter.StageNumber != nil && s.StageNumber != *filter.StageNumber {
		return false
	}
	return true
}

func (r *MemoryStageRepository) ByFilter(ctx context.Context, filter models.StageFilter, orderBy string, limit, offset int) ([]*models.Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Stage
	for _, s := range r.stages {
		if r.matchFilter(s, filter) {
			c := *s
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StageNumber != rows[j].StageNumber {
			return rows[i].StageNumber < rows[j].StageNumber
		}
		return rows[i].ID < rows[j].ID
	})
	return paginate(rows, limit, offset), nil
}

func (r *MemoryStageRepository) Save(ctx context.Context, entity *models.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	} else if entity.ID >= r.nextID {
		r.nextID = entity.ID + 1
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.stages[entity.ID] = &c
	return nil
}

func (r *MemoryStageRepository) SaveBatch(ctx context.Context, entities []*models.Stage) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryStageRepository) Update(ctx context.Context, entity *models.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stages[entity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.stages[entity.ID] = &c
	return nil
}

func (r *MemoryStageRepository) Count(ctx context.Context, filter models.StageFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryStageRepository) Exists(ctx context.Context, filter models.StageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *MemoryStageRepository) ListForFunnel(ctx context.Context, funnelID uint) ([]*models.Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Stage
	for _, s := range r.stages {
		if s.FunnelID == nil || *s.FunnelID == funnelID {
			c := *s
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StageNumber != rows[j].StageNumber {
			return rows[i].StageNumber < rows[j].StageNumber
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (r *MemoryStageRepository) ListGlobal(ctx context.Context) ([]*models.Stage, error) {
	global := true
	return r.ByFilter(ctx, models.StageFilter{GlobalOnly: &global}, "", 0, 0)
}

func (r *MemoryStageRepository) Delete(ctx context.Context, stageID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stages, stageID)
	return nil
}

// MemoryLeadRepository is an in-memory LeadRepository
type MemoryLeadRepository struct {
	mu     sync.RWMutex
	nextID uint
	leads  map[uint]*models.Lead

	// KnownStageIDs, when non-nil, makes UpdateStagePointer reject unknown
	// stage IDs the way a foreign key constraint would.
	KnownStageIDs map[uint]bool
}

// NewMemoryLeadRepository creates an empty in-memory lead repository
func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{nextID: 1, leads: make(map[uint]*models.Lead)}
}

func (r *MemoryLeadRepository) ByID(ctx context.Context, id uint) (*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (r *MemoryLeadRepository) matchFilter(l *models.Lead, filter models.LeadFilter) bool {
	if filter.ID != nil && l.ID != *filter.ID {
		return false
	}
	if filter.UUID != nil && l.UUID != *filter.UUID {
		return false
	}
	if filter.BrandID != nil && l.BrandID != *filter.BrandID {
		return false
	}
	if filter.FunnelID != nil && l.FunnelID != *filter.FunnelID {
		return false
	}
	if filter.CurrentFunnel != nil && l.CurrentFunnel != *filter.CurrentFunnel {
		return false
	}
	if filter.CurrentStageID != nil {
		if l.CurrentStageID == nil || *l.CurrentStageID != *filter.CurrentStageID {
			return false
		}
	}
	if filter.Status != nil && l.Status != *filter.Status {
		return false
	}
	if filter.Source != nil && l.Source != *filter.Source {
		return false
	}
	if filter.CreatedAfter != nil && !l.CreatedAt.After(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !l.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryLeadRepository) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Lead
	for _, l := range r.leads {
		if r.matchFilter(l, filter) {
			c := *l
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return paginate(rows, limit, offset), nil
}

func (r *MemoryLeadRepository) Save(ctx context.Context, entity *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	} else if entity.ID >= r.nextID {
		r.nextID = entity.ID + 1
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.leads[entity.ID] = &c
	return nil
}

func (r *MemoryLeadRepository) SaveBatch(ctx context.Context, entities []*models.Lead) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryLeadRepository) Update(ctx context.Context, entity *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[entity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	entity.UpdatedAt = time.Now().UTC()
	c := *entity
	r.leads[entity.ID] = &c
	return nil
}

func (r *MemoryLeadRepository) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryLeadRepository) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *MemoryLeadRepository) ByUUID(ctx context.Context, id string) (*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.leads {
		if l.UUID.String() == id {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryLeadRepository) ListByFunnel(ctx context.Context, funnelID uint) ([]*models.Lead, error) {
	return r.ByFilter(ctx, models.LeadFilter{FunnelID: &funnelID}, "", 0, 0)
}

func (r *MemoryLeadRepository) ListByBrand(ctx context.Context, brandID uint) ([]*models.Lead, error) {
	return r.ByFilter(ctx, models.LeadFilter{BrandID: &brandID}, "", 0, 0)
}

func (r *MemoryLeadRepository) Delete(ctx context.Context, leadID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leads, leadID)
	return nil
}

func (r *MemoryLeadRepository) UpdateStagePointer(ctx context.Context, leadID uint, stageID uint, funnel models.FunnelType, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.KnownStageIDs != nil && !r.KnownStageIDs[stageID] {
		return gorm.ErrForeignKeyViolated
	}
	l.CurrentStageID = &stageID
	l.CurrentFunnel = funnel
	l.UpdatedAt = at
	return nil
}

func (r *MemoryLeadRepository) UpdateStatus(ctx context.Context, leadID uint, status models.LeadStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Status = status
	l.UpdatedAt = at
	return nil
}

func (r *MemoryLeadRepository) ListStaleBroadcast(ctx context.Context, cutoff time.Time, funnelID *uint) ([]*models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Lead
	for _, l := range r.leads {
		if l.CurrentFunnel != models.FunnelTypeBroadcast || l.Status != models.LeadStatusActive {
			continue
		}
		if funnelID != nil && l.FunnelID != *funnelID {
			continue
		}
		last := l.CreatedAt
		if l.LastResponseAt != nil {
			last = *l.LastResponseAt
		}
		if last.Before(cutoff) {
			c := *l
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

// MemoryStageHistoryRepository is an in-memory StageHistoryRepository
type MemoryStageHistoryRepository struct {
	mu      sync.RWMutex
	nextID  uint
	entries []*models.StageHistory
}

// NewMemoryStageHistoryRepository creates an empty in-memory ledger
func NewMemoryStageHistoryRepository() *MemoryStageHistoryRepository {
	return &MemoryStageHistoryRepository{nextID: 1}
}

func (r *MemoryStageHistoryRepository) ByID(ctx context.Context, id uint) (*models.StageHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryStageHistoryRepository) matchFilter(e *models.StageHistory, filter models.StageHistoryFilter) bool {
	if filter.ID != nil && e.ID != *filter.ID {
		return false
	}
	if filter.LeadID != nil && e.LeadID != *filter.LeadID {
		return false
	}
	if filter.FromStageID != nil {
		if e.FromStageID == nil || *e.FromStageID != *filter.FromStageID {
			return false
		}
	}
	if filter.ToStageID != nil && e.ToStageID != *filter.ToStageID {
		return false
	}
	if filter.FromFunnel != nil {
		if e.FromFunnel == nil || *e.FromFunnel != *filter.FromFunnel {
			return false
		}
	}
	if filter.ToFunnel != nil && e.ToFunnel != *filter.ToFunnel {
		return false
	}
	if filter.Reason != nil && e.Reason != *filter.Reason {
		return false
	}
	if filter.CreatedAfter != nil && !e.CreatedAt.After(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !e.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryStageHistoryRepository) ByFilter(ctx context.Context, filter models.StageHistoryFilter, orderBy string, limit, offset int) ([]*models.StageHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.StageHistory
	for _, e := range r.entries {
		if r.matchFilter(e, filter) {
			c := *e
			rows = append(rows, &c)
		}
	}
	return paginate(rows, limit, offset), nil
}

func (r *MemoryStageHistoryRepository) Save(ctx context.Context, entry *models.StageHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == 0 {
		entry.ID = r.nextID
		r.nextID++
	} else if entry.ID >= r.nextID {
		r.nextID = entry.ID + 1
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

func (r *MemoryStageHistoryRepository) Count(ctx context.Context, filter models.StageHistoryFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryStageHistoryRepository) ListByLead(ctx context.Context, leadID uint) ([]*models.StageHistory, error) {
	return r.ByFilter(ctx, models.StageHistoryFilter{LeadID: &leadID}, "", 0, 0)
}

func (r *MemoryStageHistoryRepository) ListByLeadIDs(ctx context.Context, leadIDs []uint) ([]*models.StageHistory, error) {
	ids := make(map[uint]bool, len(leadIDs))
	for _, id := range leadIDs {
		ids[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.StageHistory
	for _, e := range r.entries {
		if ids[e.LeadID] {
			c := *e
			rows = append(rows, &c)
		}
	}
	return rows, nil
}

func (r *MemoryStageHistoryRepository) ListAll(ctx context.Context) ([]*models.StageHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := make([]*models.StageHistory, 0, len(r.entries))
	for _, e := range r.entries {
		c := *e
		rows = append(rows, &c)
	}
	return rows, nil
}

// MemoryActivityRepository is an in-memory ActivityRepository
type MemoryActivityRepository struct {
	mu         sync.RWMutex
	nextID     uint
	activities map[uint]*models.Activity
}

// NewMemoryActivityRepository creates an empty in-memory activity repository
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{nextID: 1, activities: make(map[uint]*models.Activity)}
}

func (r *MemoryActivityRepository) ByID(ctx context.Context, id uint) (*models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *MemoryActivityRepository) matchFilter(a *models.Activity, filter models.ActivityFilter) bool {
	if filter.ID != nil && a.ID != *filter.ID {
		return false
	}
	if filter.LeadID != nil && a.LeadID != *filter.LeadID {
		return false
	}
	if filter.ActivityType != nil && a.ActivityType != *filter.ActivityType {
		return false
	}
	if filter.Actor != nil && a.Actor != *filter.Actor {
		return false
	}
	if filter.CreatedAfter != nil && !a.CreatedAt.After(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && !a.CreatedAt.Before(*filter.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryActivityRepository) ByFilter(ctx context.Context, filter models.ActivityFilter, orderBy string, limit, offset int) ([]*models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Activity
	for _, a := range r.activities {
		if r.matchFilter(a, filter) {
			c := *a
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return paginate(rows, limit, offset), nil
}

func (r *MemoryActivityRepository) Save(ctx context.Context, entity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	} else if entity.ID >= r.nextID {
		r.nextID = entity.ID + 1
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	c := *entity
	r.activities[entity.ID] = &c
	return nil
}

func (r *MemoryActivityRepository) SaveBatch(ctx context.Context, entities []*models.Activity) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryActivityRepository) Update(ctx context.Context, entity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activities[entity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *entity
	r.activities[entity.ID] = &c
	return nil
}

func (r *MemoryActivityRepository) Count(ctx context.Context, filter models.ActivityFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemoryActivityRepository) Exists(ctx context.Context, filter models.ActivityFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}

func (r *MemoryActivityRepository) ListByLead(ctx context.Context, leadID uint) ([]*models.Activity, error) {
	rows, err := r.ByFilter(ctx, models.ActivityFilter{LeadID: &leadID}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return rows, nil
}

func (r *MemoryActivityRepository) ListByLeadIDs(ctx context.Context, leadIDs []uint) ([]*models.Activity, error) {
	ids := make(map[uint]bool, len(leadIDs))
	for _, id := range leadIDs {
		ids[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rows []*models.Activity
	for _, a := range r.activities {
		if ids[a.LeadID] {
			c := *a
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func paginate[T any](rows []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
