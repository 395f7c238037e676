// Package businessflow contains the core business logic and use cases for stage management
package businessflow

import (
	"context"
	"sort"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

// StageFlow defines operations for stage catalogs
type StageFlow interface {
	GetCatalog(ctx context.Context, req *dto.GetStageCatalogRequest, metadata *ClientMetadata) (*dto.GetStageCatalogResponse, error)
	ListAll(ctx context.Context, metadata *ClientMetadata) (*dto.ListStagesResponse, error)
	CreateStage(ctx context.Context, req *dto.CreateStageRequest, metadata *ClientMetadata) (*dto.CreateStageResponse, error)
	UpdateStage(ctx context.Context, req *dto.UpdateStageRequest, metadata *ClientMetadata) (*dto.UpdateStageResponse, error)
	DeleteStage(ctx context.Context, req *dto.DeleteStageRequest, metadata *ClientMetadata) (*dto.DeleteStageResponse, error)
}

// StageFlowImpl implements StageFlow
type StageFlowImpl struct {
	stageRepo  repository.StageRepository
	funnelRepo repository.FunnelRepository
}

// NewStageFlow constructs a StageFlow
func NewStageFlow(
	stageRepo repository.StageRepository,
	funnelRepo repository.FunnelRepository,
) StageFlow {
	return &StageFlowImpl{
		stageRepo:  stageRepo,
		funnelRepo: funnelRepo,
	}
}

// ResolveCatalog partitions stages by funnel type and applies override
// resolution per partition: when any stage is scoped to the funnel, only the
// scoped subset is used; otherwise only the global subset. The two results
// are sorted by stage number. An empty resolution is an empty list.
func ResolveCatalog(stages []*models.Stage, funnelID uint) (followUp, broadcast []*models.Stage) {
	followUp = resolvePartition(stages, models.FunnelTypeFollowUp, funnelID)
	broadcast = resolvePartition(stages, models.FunnelTypeBroadcast, funnelID)
	return followUp, broadcast
}

func resolvePartition(stages []*models.Stage, funnelType models.FunnelType, funnelID uint) []*models.Stage {
	var scoped, global []*models.Stage
	for _, s := range stages {
		if s.FunnelType != funnelType {
			continue
		}
		if s.FunnelID != nil && *s.FunnelID == funnelID {
			scoped = append(scoped, s)
		} else if s.FunnelID == nil {
			global = append(global, s)
		}
	}

	result := global
	if len(scoped) > 0 {
		result = scoped
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StageNumber < result[j].StageNumber
	})
	if result == nil {
		result = []*models.Stage{}
	}
	return result
}

// GetCatalog returns the resolved stage catalog of one funnel
func (f *StageFlowImpl) GetCatalog(ctx context.Context, req *dto.GetStageCatalogRequest, metadata *ClientMetadata) (*dto.GetStageCatalogResponse, error) {
	var err error
	defer func() {
		if err != nil {
			err = NewBusinessError("GET_STAGE_CATALOG_FAILED", "Get stage catalog failed", err)
		}
	}()

	_, err = getFunnel(ctx, f.funnelRepo, req.FunnelID)
	if err != nil {
		return nil, err
	}

	stages, err := f.stageRepo.ListForFunnel(ctx, req.FunnelID)
	if err != nil {
		return nil, err
	}

	followUp, broadcast := ResolveCatalog(stages, req.FunnelID)

	resp := &dto.GetStageCatalogResponse{
		Message:   "Stage catalog retrieved successfully",
		FollowUp:  make([]dto.StageDTO, 0, len(followUp)),
		Broadcast: make([]dto.StageDTO, 0, len(broadcast)),
	}
	for _, s := range followUp {
		resp.FollowUp = append(resp.FollowUp, ToStageDTO(*s))
	}
	for _, s := range broadcast {
		resp.Broadcast = append(resp.Broadcast, ToStageDTO(*s))
	}
	return resp, nil
}

// ListAll returns every stage, template and funnel-scoped alike
func (f *StageFlowImpl) ListAll(ctx context.Context, metadata *ClientMetadata) (*dto.ListStagesResponse, error) {
	stages, err := f.stageRepo.ByFilter(ctx, models.StageFilter{}, "stage_number ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_STAGES_FAILED", "List stages failed", err)
	}

	items := make([]dto.StageDTO, 0, len(stages))
	for _, s := range stages {
		items = append(items, ToStageDTO(*s))
	}
	return &dto.ListStagesResponse{
		Message: "Stages retrieved successfully",
		Items:   items,
	}, nil
}

// CreateStage creates a global template stage or a funnel-scoped override
func (f *StageFlowImpl) CreateStage(ctx context.Context, req *dto.CreateStageRequest, metadata *ClientMetadata) (*dto.CreateStageResponse, error) {
	funnelType := models.FunnelType(req.FunnelType)
	if !funnelType.Valid() {
		return nil, NewBusinessError("CREATE_STAGE_VALIDATION_FAILED", "Funnel type must be follow_up or broadcast", ErrInvalidFunnelType)
	}

	if req.FunnelID != nil {
		if _, err := getFunnel(ctx, f.funnelRepo, *req.FunnelID); err != nil {
			return nil, NewBusinessError("CREATE_STAGE_VALIDATION_FAILED", "Funnel not found", err)
		}
	}

	filter := models.StageFilter{
		FunnelType:  &funnelType,
		StageNumber: &req.StageNumber,
	}
	if req.FunnelID != nil {
		filter.FunnelID = req.FunnelID
	} else {
		filter.GlobalOnly = utils.ToPtr(true)
	}
	taken, err := f.stageRepo.Exists(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CREATE_STAGE_FAILED", "Failed to create stage", err)
	}
	if taken {
		return nil, NewBusinessError("CREATE_STAGE_VALIDATION_FAILED", "Stage number already used", ErrStageNumberTaken)
	}

	stage := &models.Stage{
		Name:        req.Name,
		FunnelType:  funnelType,
		StageNumber: req.StageNumber,
		FunnelID:    req.FunnelID,
		Color:       req.Color,
		CreatedAt:   utils.UTCNow(),
		UpdatedAt:   utils.UTCNow(),
	}
	if err := f.stageRepo.Save(ctx, stage); err != nil {
		return nil, NewBusinessError("CREATE_STAGE_FAILED", "Failed to create stage", err)
	}

	return &dto.CreateStageResponse{
		Message: "Stage created successfully",
		Stage:   ToStageDTO(*stage),
	}, nil
}

// UpdateStage updates the mutable fields of a stage
func (f *StageFlowImpl) UpdateStage(ctx context.Context, req *dto.UpdateStageRequest, metadata *ClientMetadata) (*dto.UpdateStageResponse, error) {
	stage, err := getStage(ctx, f.stageRepo, req.StageID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_STAGE_FAILED", "Update stage failed", err)
	}

	if req.StageNumber != nil && *req.StageNumber != stage.StageNumber {
		filter := models.StageFilter{
			FunnelType:  &stage.FunnelType,
			StageNumber: req.StageNumber,
		}
		if stage.FunnelID != nil {
			filter.FunnelID = stage.FunnelID
		} else {
			filter.GlobalOnly = utils.ToPtr(true)
		}
		taken, err := f.stageRepo.Exists(ctx, filter)
		if err != nil {
			return nil, NewBusinessError("UPDATE_STAGE_FAILED", "Update stage failed", err)
		}
		if taken {
			return nil, NewBusinessError("UPDATE_STAGE_VALIDATION_FAILED", "Stage number already used", ErrStageNumberTaken)
		}
		stage.StageNumber = *req.StageNumber
	}
	if req.Name != nil {
		stage.Name = *req.Name
	}
	if req.Color != nil {
		stage.Color = req.Color
	}
	stage.UpdatedAt = utils.UTCNow()

	if err := f.stageRepo.Update(ctx, stage); err != nil {
		return nil, NewBusinessError("UPDATE_STAGE_FAILED", "Failed to update stage", err)
	}

	return &dto.UpdateStageResponse{
		Message: "Stage updated successfully",
		Stage:   ToStageDTO(*stage),
	}, nil
}

// DeleteStage removes a stage. Leads still pointing at it keep their pointer;
// the next move surfaces the stale-state error and forces a refresh.
func (f *StageFlowImpl) DeleteStage(ctx context.Context, req *dto.DeleteStageRequest, metadata *ClientMetadata) (*dto.DeleteStageResponse, error) {
	_, err := getStage(ctx, f.stageRepo, req.StageID)
	if err != nil {
		return nil, NewBusinessError("DELETE_STAGE_FAILED", "Delete stage failed", err)
	}

	if err := f.stageRepo.Delete(ctx, req.StageID); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, NewBusinessError("DELETE_STAGE_CONFLICT", "Stage is referenced by transition history", ErrStageInUse)
		}
		return nil, NewBusinessError("DELETE_STAGE_FAILED", "Failed to delete stage", err)
	}

	return &dto.DeleteStageResponse{Message: "Stage deleted successfully"}, nil
}
