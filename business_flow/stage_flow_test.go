package businessflow

import (
	"context"
	"testing"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func newStage(id uint, funnelType models.FunnelType, number int, funnelID *uint) *models.Stage {
	return &models.Stage{
		ID:          id,
		Name:        "Stage",
		FunnelType:  funnelType,
		StageNumber: number,
		FunnelID:    funnelID,
	}
}

func TestResolveCatalog(t *testing.T) {
	t.Run("GlobalTemplatesOnly", func(t *testing.T) {
		stages := []*models.Stage{
			newStage(3, models.FunnelTypeFollowUp, 3, nil),
			newStage(1, models.FunnelTypeFollowUp, 1, nil),
			newStage(2, models.FunnelTypeFollowUp, 2, nil),
			newStage(4, models.FunnelTypeBroadcast, 1, nil),
		}

		followUp, broadcast := ResolveCatalog(stages, 7)

		require.Len(t, followUp, 3)
		assert.Equal(t, 1, followUp[0].StageNumber)
		assert.Equal(t, 2, followUp[1].StageNumber)
		assert.Equal(t, 3, followUp[2].StageNumber)
		require.Len(t, broadcast, 1)
	})

	t.Run("ScopedStagesOverrideNotMerge", func(t *testing.T) {
		funnelID := uint(7)
		stages := []*models.Stage{
			newStage(1, models.FunnelTypeFollowUp, 1, nil),
			newStage(2, models.FunnelTypeFollowUp, 2, nil),
			newStage(3, models.FunnelTypeFollowUp, 3, nil),
			newStage(10, models.FunnelTypeFollowUp, 1, &funnelID),
			newStage(11, models.FunnelTypeFollowUp, 5, &funnelID),
		}

		followUp, _ := ResolveCatalog(stages, funnelID)

		// two scoped stages fully replace three global templates
		require.Len(t, followUp, 2)
		assert.Equal(t, uint(10), followUp[0].ID)
		assert.Equal(t, uint(11), followUp[1].ID)
	})

	t.Run("OverridePerFunnelTypePartition", func(t *testing.T) {
		funnelID := uint(7)
		stages := []*models.Stage{
			newStage(1, models.FunnelTypeFollowUp, 1, nil),
			newStage(2, models.FunnelTypeBroadcast, 1, nil),
			newStage(3, models.FunnelTypeBroadcast, 2, nil),
			newStage(10, models.FunnelTypeFollowUp, 1, &funnelID),
		}

		followUp, broadcast := ResolveCatalog(stages, funnelID)

		// follow_up partition is overridden, broadcast keeps its templates
		require.Len(t, followUp, 1)
		assert.Equal(t, uint(10), followUp[0].ID)
		require.Len(t, broadcast, 2)
		assert.Equal(t, uint(2), broadcast[0].ID)
		assert.Equal(t, uint(3), broadcast[1].ID)
	})

	t.Run("OtherFunnelScopedStagesIgnored", func(t *testing.T) {
		otherFunnelID := uint(99)
		stages := []*models.Stage{
			newStage(1, models.FunnelTypeFollowUp, 1, nil),
			newStage(10, models.FunnelTypeFollowUp, 1, &otherFunnelID),
		}

		followUp, _ := ResolveCatalog(stages, 7)

		require.Len(t, followUp, 1)
		assert.Equal(t, uint(1), followUp[0].ID)
	})

	t.Run("EmptyResolutionIsEmptyList", func(t *testing.T) {
		followUp, broadcast := ResolveCatalog(nil, 7)

		assert.NotNil(t, followUp)
		assert.NotNil(t, broadcast)
		assert.Empty(t, followUp)
		assert.Empty(t, broadcast)
	})

	t.Run("SortedByStageNumber", func(t *testing.T) {
		funnelID := uint(7)
		stages := []*models.Stage{
			newStage(12, models.FunnelTypeBroadcast, 9, &funnelID),
			newStage(10, models.FunnelTypeBroadcast, 2, &funnelID),
			newStage(11, models.FunnelTypeBroadcast, 5, &funnelID),
		}

		_, broadcast := ResolveCatalog(stages, funnelID)

		require.Len(t, broadcast, 3)
		assert.Equal(t, []int{2, 5, 9}, []int{broadcast[0].StageNumber, broadcast[1].StageNumber, broadcast[2].StageNumber})
	})
}

func seedStageFlowFunnel(t *testing.T, funnelRepo *repository.MemoryFunnelRepository) *models.Funnel {
	t.Helper()
	funnel := &models.Funnel{
		UUID:     uuid.New(),
		BrandID:  1,
		Name:     "Pipeline",
		IsActive: utils.ToPtr(true),
	}
	require.NoError(t, funnelRepo.Save(context.Background(), funnel))
	return funnel
}

func TestStageFlowGetCatalog(t *testing.T) {
	ctx := context.Background()
	stageRepo := repository.NewMemoryStageRepository()
	funnelRepo := repository.NewMemoryFunnelRepository()
	flow := NewStageFlow(stageRepo, funnelRepo)

	funnel := seedStageFlowFunnel(t, funnelRepo)

	require.NoError(t, stageRepo.Save(ctx, newStage(0, models.FunnelTypeFollowUp, 2, nil)))
	require.NoError(t, stageRepo.Save(ctx, newStage(0, models.FunnelTypeFollowUp, 1, nil)))
	require.NoError(t, stageRepo.Save(ctx, newStage(0, models.FunnelTypeBroadcast, 1, &funnel.ID)))

	resp, err := flow.GetCatalog(ctx, &dto.GetStageCatalogRequest{FunnelID: funnel.ID}, nil)
	require.NoError(t, err)

	require.Len(t, resp.FollowUp, 2)
	assert.Equal(t, 1, resp.FollowUp[0].StageNumber)
	assert.Equal(t, 2, resp.FollowUp[1].StageNumber)
	require.Len(t, resp.Broadcast, 1)

	_, err = flow.GetCatalog(ctx, &dto.GetStageCatalogRequest{FunnelID: 999}, nil)
	require.Error(t, err)
	assert.True(t, IsFunnelNotFound(err))
}

func TestStageFlowCreateStage(t *testing.T) {
	ctx := context.Background()
	stageRepo := repository.NewMemoryStageRepository()
	funnelRepo := repository.NewMemoryFunnelRepository()
	flow := NewStageFlow(stageRepo, funnelRepo)

	funnel := seedStageFlowFunnel(t, funnelRepo)

	t.Run("CreateGlobalTemplate", func(t *testing.T) {
		resp, err := flow.CreateStage(ctx, &dto.CreateStageRequest{
			Name:        "Initial Contact",
			FunnelType:  "follow_up",
			StageNumber: 1,
		}, nil)
		require.NoError(t, err)
		assert.NotZero(t, resp.Stage.ID)
		assert.Nil(t, resp.Stage.FunnelID)
	})

	t.Run("DuplicateGlobalNumberRejected", func(t *testing.T) {
		_, err := flow.CreateStage(ctx, &dto.CreateStageRequest{
			Name:        "Duplicate",
			FunnelType:  "follow_up",
			StageNumber: 1,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsStageNumberTaken(err))
	})

	t.Run("ScopedStageMayReuseGlobalNumber", func(t *testing.T) {
		resp, err := flow.CreateStage(ctx, &dto.CreateStageRequest{
			Name:        "Custom First",
			FunnelType:  "follow_up",
			StageNumber: 1,
			FunnelID:    &funnel.ID,
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.Stage.FunnelID)
		assert.Equal(t, funnel.ID, *resp.Stage.FunnelID)
	})

	t.Run("InvalidFunnelTypeRejected", func(t *testing.T) {
		_, err := flow.CreateStage(ctx, &dto.CreateStageRequest{
			Name:        "Bad",
			FunnelType:  "drip",
			StageNumber: 2,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidFunnelType(err))
	})

	t.Run("UnknownFunnelRejected", func(t *testing.T) {
		missing := uint(999)
		_, err := flow.CreateStage(ctx, &dto.CreateStageRequest{
			Name:        "Orphan",
			FunnelType:  "broadcast",
			StageNumber: 1,
			FunnelID:    &missing,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsFunnelNotFound(err))
	})
}

func TestStageFlowUpdateStage(t *testing.T) {
	ctx := context.Background()
	stageRepo := repository.NewMemoryStageRepository()
	funnelRepo := repository.NewMemoryFunnelRepository()
	flow := NewStageFlow(stageRepo, funnelRepo)

	first := newStage(0, models.FunnelTypeFollowUp, 1, nil)
	second := newStage(0, models.FunnelTypeFollowUp, 2, nil)
	require.NoError(t, stageRepo.Save(ctx, first))
	require.NoError(t, stageRepo.Save(ctx, second))

	resp, err := flow.UpdateStage(ctx, &dto.UpdateStageRequest{
		StageID: first.ID,
		Name:    utils.ToPtr("Qualified"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Qualified", resp.Stage.Name)

	_, err = flow.UpdateStage(ctx, &dto.UpdateStageRequest{
		StageID:     first.ID,
		StageNumber: utils.ToPtr(2),
	}, nil)
	require.Error(t, err)
	assert.True(t, IsStageNumberTaken(err))

	_, err = flow.UpdateStage(ctx, &dto.UpdateStageRequest{
		StageID: 999,
		Name:    utils.ToPtr("Ghost"),
	}, nil)
	require.Error(t, err)
	assert.True(t, IsStageNotFound(err))
}

func TestStageFlowDeleteStage(t *testing.T) {
	ctx := context.Background()
	stageRepo := repository.NewMemoryStageRepository()
	funnelRepo := repository.NewMemoryFunnelRepository()
	flow := NewStageFlow(stageRepo, funnelRepo)

	stage := newStage(0, models.FunnelTypeBroadcast, 1, nil)
	require.NoError(t, stageRepo.Save(ctx, stage))

	_, err := flow.DeleteStage(ctx, &dto.DeleteStageRequest{StageID: stage.ID}, nil)
	require.NoError(t, err)

	gone, err := stageRepo.ByID(ctx, stage.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = flow.DeleteStage(ctx, &dto.DeleteStageRequest{StageID: stage.ID}, nil)
	require.Error(t, err)
	assert.True(t, IsStageNotFound(err))
}
