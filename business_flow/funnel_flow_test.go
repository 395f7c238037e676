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

func newFunnelFlowEnv(t *testing.T) (FunnelFlow, *repository.MemoryFunnelRepository, *models.Brand) {
	t.Helper()
	funnelRepo := repository.NewMemoryFunnelRepository()
	brandRepo := repository.NewMemoryBrandRepository()
	flow := NewFunnelFlow(funnelRepo, brandRepo)

	brand := &models.Brand{UUID: uuid.New(), TenantID: "tenant-1", Name: "Acme", IsActive: utils.ToPtr(true)}
	require.NoError(t, brandRepo.Save(context.Background(), brand))
	return flow, funnelRepo, brand
}

func TestFunnelFlowCreateFunnel(t *testing.T) {
	ctx := context.Background()
	flow, _, brand := newFunnelFlowEnv(t)

	resp, err := flow.CreateFunnel(ctx, &dto.CreateFunnelRequest{
		BrandID: brand.ID,
		Name:    "Spring Outreach",
	}, nil)
	require.NoError(t, err)
	assert.NotZero(t, resp.Funnel.ID)
	assert.Equal(t, brand.ID, resp.Funnel.BrandID)
	assert.True(t, resp.Funnel.IsActive)

	_, err = flow.CreateFunnel(ctx, &dto.CreateFunnelRequest{
		BrandID: 999,
		Name:    "Orphan",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsBrandNotFound(err))
}

func TestFunnelFlowUpdateFunnel(t *testing.T) {
	ctx := context.Background()
	flow, _, brand := newFunnelFlowEnv(t)

	created, err := flow.CreateFunnel(ctx, &dto.CreateFunnelRequest{BrandID: brand.ID, Name: "Old"}, nil)
	require.NoError(t, err)

	t.Run("NoFieldsRejected", func(t *testing.T) {
		_, err := flow.UpdateFunnel(ctx, &dto.UpdateFunnelRequest{FunnelID: created.Funnel.ID}, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("RenameAndDescribe", func(t *testing.T) {
		resp, err := flow.UpdateFunnel(ctx, &dto.UpdateFunnelRequest{
			FunnelID:    created.Funnel.ID,
			Name:        utils.ToPtr("New"),
			Description: utils.ToPtr("Renamed pipeline"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "New", resp.Funnel.Name)
		require.NotNil(t, resp.Funnel.Description)
		assert.Equal(t, "Renamed pipeline", *resp.Funnel.Description)
	})
}

func TestFunnelFlowDeleteFunnel(t *testing.T) {
	ctx := context.Background()
	flow, funnelRepo, brand := newFunnelFlowEnv(t)

	t.Run("SoftDeleteFlipsIsActive", func(t *testing.T) {
		created, err := flow.CreateFunnel(ctx, &dto.CreateFunnelRequest{BrandID: brand.ID, Name: "Soft"}, nil)
		require.NoError(t, err)

		resp, err := flow.DeleteFunnel(ctx, &dto.DeleteFunnelRequest{FunnelID: created.Funnel.ID}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Funnel deactivated successfully", resp.Message)

		stored, err := funnelRepo.ByID(ctx, created.Funnel.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.False(t, utils.IsTrue(stored.IsActive))
	})

	t.Run("HardDeleteRequiresConfirmation", func(t *testing.T) {
		created, err := flow.CreateFunnel(ctx, &dto.CreateFunnelRequest{BrandID: brand.ID, Name: "Hard"}, nil)
		require.NoError(t, err)

		_, err = flow.DeleteFunnel(ctx, &dto.DeleteFunnelRequest{FunnelID: created.Funnel.ID, Hard: true}, nil)
		require.Error(t, err)
		assert.True(t, IsHardDeleteNotConfirmed(err))

		// unconfirmed attempt left the funnel untouched
		stored, err := funnelRepo.ByID(ctx, created.Funnel.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, utils.IsTrue(stored.IsActive))
	})

	t.Run("ConfirmedHardDeleteRemovesFunnel", func(t *testing.T) {
		created, err := flow.CreateFunnel(ctx, &dto.CreateFunnelRequest{BrandID: brand.ID, Name: "Gone"}, nil)
		require.NoError(t, err)

		resp, err := flow.DeleteFunnel(ctx, &dto.DeleteFunnelRequest{FunnelID: created.Funnel.ID, Hard: true, Confirm: true}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Funnel deleted permanently", resp.Message)

		stored, err := funnelRepo.ByID(ctx, created.Funnel.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("UnknownFunnelRejected", func(t *testing.T) {
		_, err := flow.DeleteFunnel(ctx, &dto.DeleteFunnelRequest{FunnelID: 999}, nil)
		require.Error(t, err)
		assert.True(t, IsFunnelNotFound(err))
	})
}
