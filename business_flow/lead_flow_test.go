package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/app/services"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

// capturePublisher records every event handed to it
type capturePublisher struct {
	events []services.LeadMovedEvent
}

func (p *capturePublisher) PublishLeadMoved(ctx context.Context, event services.LeadMovedEvent) error {
	p.events = append(p.events, event)
	return nil
}

type leadFlowEnv struct {
	flow         LeadFlow
	leadRepo     *repository.MemoryLeadRepository
	stageRepo    *repository.MemoryStageRepository
	funnelRepo   *repository.MemoryFunnelRepository
	brandRepo    *repository.MemoryBrandRepository
	historyRepo  *repository.MemoryStageHistoryRepository
	activityRepo *repository.MemoryActivityRepository
	publisher    *capturePublisher

	brand  *models.Brand
	funnel *models.Funnel
}

func newLeadFlowEnv(t *testing.T, staleAfter time.Duration) *leadFlowEnv {
	t.Helper()
	env := &leadFlowEnv{
		leadRepo:     repository.NewMemoryLeadRepository(),
		stageRepo:    repository.NewMemoryStageRepository(),
		funnelRepo:   repository.NewMemoryFunnelRepository(),
		brandRepo:    repository.NewMemoryBrandRepository(),
		historyRepo:  repository.NewMemoryStageHistoryRepository(),
		activityRepo: repository.NewMemoryActivityRepository(),
		publisher:    &capturePublisher{},
	}
	env.flow = NewLeadFlow(
		env.leadRepo,
		env.stageRepo,
		env.funnelRepo,
		env.brandRepo,
		env.historyRepo,
		env.activityRepo,
		repository.NopTxRunner{},
		env.publisher,
		staleAfter,
	)

	ctx := context.Background()
	env.brand = &models.Brand{UUID: uuid.New(), TenantID: "tenant-1", Name: "Acme", IsActive: utils.ToPtr(true)}
	require.NoError(t, env.brandRepo.Save(ctx, env.brand))
	env.funnel = &models.Funnel{UUID: uuid.New(), BrandID: env.brand.ID, Name: "Pipeline", IsActive: utils.ToPtr(true)}
	require.NoError(t, env.funnelRepo.Save(ctx, env.funnel))
	return env
}

func (env *leadFlowEnv) addStage(t *testing.T, funnelType models.FunnelType, number int, funnelID *uint) *models.Stage {
	t.Helper()
	stage := &models.Stage{Name: "Stage", FunnelType: funnelType, StageNumber: number, FunnelID: funnelID}
	require.NoError(t, env.stageRepo.Save(context.Background(), stage))
	return stage
}

func (env *leadFlowEnv) createLead(t *testing.T, req *dto.CreateLeadRequest) dto.LeadDTO {
	t.Helper()
	resp, err := env.flow.CreateLead(context.Background(), req, nil)
	require.NoError(t, err)
	return resp.Lead
}

func basicCreateLeadRequest(env *leadFlowEnv) *dto.CreateLeadRequest {
	email := "jane@example.com"
	return &dto.CreateLeadRequest{
		BrandID:       env.brand.ID,
		FunnelID:      env.funnel.ID,
		Name:          "Jane Doe",
		Email:         &email,
		Source:        "referral",
		CurrentFunnel: "follow_up",
		Actor:         "tester",
	}
}

func TestLeadFlowCreateLead(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsToFirstCatalogStage", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		first := env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		env.addStage(t, models.FunnelTypeFollowUp, 2, nil)

		lead := env.createLead(t, basicCreateLeadRequest(env))

		require.NotNil(t, lead.CurrentStageID)
		assert.Equal(t, first.ID, *lead.CurrentStageID)

		entries, err := env.historyRepo.ListByLead(ctx, lead.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].FromStageID)
		assert.Nil(t, entries[0].FromFunnel)
		assert.Equal(t, first.ID, entries[0].ToStageID)
		assert.Equal(t, models.TransitionReasonProgression, entries[0].Reason)
		assert.Equal(t, "tester", entries[0].Actor)
	})

	t.Run("ScopedCatalogWinsForDefaultStage", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		scoped := env.addStage(t, models.FunnelTypeFollowUp, 3, &env.funnel.ID)

		lead := env.createLead(t, basicCreateLeadRequest(env))

		require.NotNil(t, lead.CurrentStageID)
		assert.Equal(t, scoped.ID, *lead.CurrentStageID)
	})

	t.Run("NoCatalogMeansNoStageAndNoLedgerEntry", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)

		lead := env.createLead(t, basicCreateLeadRequest(env))

		assert.Nil(t, lead.CurrentStageID)
		entries, err := env.historyRepo.ListByLead(ctx, lead.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("ContactRequired", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		req := basicCreateLeadRequest(env)
		req.Email = nil

		_, err := env.flow.CreateLead(ctx, req, nil)
		require.Error(t, err)
		assert.True(t, IsLeadContactRequired(err))
	})

	t.Run("PhoneAloneSatisfiesContact", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		req := basicCreateLeadRequest(env)
		req.Email = nil
		req.Phone = utils.ToPtr("+15550001111")

		_, err := env.flow.CreateLead(ctx, req, nil)
		require.NoError(t, err)
	})

	t.Run("SourceRequired", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		req := basicCreateLeadRequest(env)
		req.Source = ""

		_, err := env.flow.CreateLead(ctx, req, nil)
		require.Error(t, err)
		assert.True(t, IsLeadSourceRequired(err))
	})

	t.Run("ExplicitStageMustMatchFunnelType", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		broadcast := env.addStage(t, models.FunnelTypeBroadcast, 1, nil)
		req := basicCreateLeadRequest(env)
		req.CurrentStageID = &broadcast.ID

		_, err := env.flow.CreateLead(ctx, req, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("ExplicitStageScopedToOtherFunnelRejected", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		other := &models.Funnel{UUID: uuid.New(), BrandID: env.brand.ID, Name: "Other", IsActive: utils.ToPtr(true)}
		require.NoError(t, env.funnelRepo.Save(ctx, other))
		foreign := env.addStage(t, models.FunnelTypeFollowUp, 1, &other.ID)
		req := basicCreateLeadRequest(env)
		req.CurrentStageID = &foreign.ID

		_, err := env.flow.CreateLead(ctx, req, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("UnknownBrandRejected", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		req := basicCreateLeadRequest(env)
		req.BrandID = 999

		_, err := env.flow.CreateLead(ctx, req, nil)
		require.Error(t, err)
		assert.True(t, IsBrandNotFound(err))
	})
}

func TestLeadFlowMoveToStage(t *testing.T) {
	ctx := context.Background()

	t.Run("AppendsOneLedgerEntryAndUpdatesPointer", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		first := env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		second := env.addStage(t, models.FunnelTypeFollowUp, 2, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))

		resp, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: second.ID,
			Reason:    models.TransitionReasonProgression,
			Actor:     "tester",
		}, nil)
		require.NoError(t, err)

		require.NotNil(t, resp.Lead.CurrentStageID)
		assert.Equal(t, second.ID, *resp.Lead.CurrentStageID)

		entries, err := env.historyRepo.ListByLead(ctx, lead.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		move := entries[1]
		require.NotNil(t, move.FromStageID)
		assert.Equal(t, first.ID, *move.FromStageID)
		assert.Equal(t, second.ID, move.ToStageID)
		assert.False(t, move.IsFunnelSwitch())

		stored, err := env.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, move.CreatedAt, stored.UpdatedAt)
	})

	t.Run("FunnelSwitchRecordedOnCrossTypeMove", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		broadcast := env.addStage(t, models.FunnelTypeBroadcast, 1, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))

		resp, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: broadcast.ID,
			Reason:    models.TransitionReasonNoResponse,
			Actor:     "tester",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.FunnelTypeBroadcast.String(), resp.Lead.CurrentFunnel)

		entry, err := env.historyRepo.ByID(ctx, resp.HistoryEntryID)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.True(t, entry.IsFunnelSwitch())

		require.Len(t, env.publisher.events, 1)
		assert.Equal(t, models.TransitionReasonNoResponse, env.publisher.events[0].Reason)
	})

	t.Run("InvalidReasonRejected", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		second := env.addStage(t, models.FunnelTypeFollowUp, 2, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))

		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: second.ID,
			Reason:    "promotion",
			Actor:     "tester",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidMoveReason(err))
	})

	t.Run("TargetStageNotFound", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))

		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: 999,
			Reason:    models.TransitionReasonManualMove,
			Actor:     "tester",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsTargetStageNotFound(err))
	})

	t.Run("TargetStageScopedToOtherFunnelRejected", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))
		other := &models.Funnel{UUID: uuid.New(), BrandID: env.brand.ID, Name: "Other", IsActive: utils.ToPtr(true)}
		require.NoError(t, env.funnelRepo.Save(ctx, other))
		foreign := env.addStage(t, models.FunnelTypeFollowUp, 2, &other.ID)

		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: foreign.ID,
			Reason:    models.TransitionReasonManualMove,
			Actor:     "tester",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		stored, geterr := env.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, geterr)
		require.NotNil(t, stored.CurrentStageID)
		assert.NotEqual(t, foreign.ID, *stored.CurrentStageID)
	})

	t.Run("LeadWithoutCurrentStageRejected", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		lead := env.createLead(t, basicCreateLeadRequest(env))
		target := env.addStage(t, models.FunnelTypeFollowUp, 1, nil)

		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: target.ID,
			Reason:    models.TransitionReasonManualMove,
			Actor:     "tester",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsLeadWithoutCurrentStage(err))
	})

	t.Run("DeletedCurrentStageSurfacesStaleState", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		first := env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		second := env.addStage(t, models.FunnelTypeFollowUp, 2, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))

		require.NoError(t, env.stageRepo.Delete(ctx, first.ID))

		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: second.ID,
			Reason:    models.TransitionReasonProgression,
			Actor:     "tester",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsStaleStageState(err))
	})

	t.Run("PointerConstraintFailureSurfacesStaleState", func(t *testing.T) {
		env := newLeadFlowEnv(t, 0)
		first := env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
		second := env.addStage(t, models.FunnelTypeFollowUp, 2, nil)
		lead := env.createLead(t, basicCreateLeadRequest(env))

		// simulate the target vanishing between validation and commit
		env.leadRepo.KnownStageIDs = map[uint]bool{first.ID: true}

		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: second.ID,
			Reason:    models.TransitionReasonProgression,
			Actor:     "tester",
		}, nil)
		require.Error(t, err)
		assert.True(t, IsStaleStageState(err))
	})
}

func TestLeadFlowUpdateLead(t *testing.T) {
	ctx := context.Background()
	env := newLeadFlowEnv(t, 0)
	lead := env.createLead(t, basicCreateLeadRequest(env))

	t.Run("NoFieldsRejected", func(t *testing.T) {
		_, err := env.flow.UpdateLead(ctx, &dto.UpdateLeadRequest{LeadID: lead.ID}, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("RemovingLastContactRejected", func(t *testing.T) {
		empty := ""
		_, err := env.flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			LeadID: lead.ID,
			Email:  &empty,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsLeadContactRequired(err))
	})

	t.Run("InvalidStatusRejected", func(t *testing.T) {
		_, err := env.flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			LeadID: lead.ID,
			Status: utils.ToPtr("frozen"),
		}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidLeadStatus(err))
	})

	t.Run("StatusAndDealValueUpdated", func(t *testing.T) {
		resp, err := env.flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			LeadID:    lead.ID,
			Status:    utils.ToPtr("deal"),
			DealValue: utils.ToPtr(2500.0),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "deal", resp.Lead.Status)
		require.NotNil(t, resp.Lead.DealValue)
		assert.Equal(t, 2500.0, *resp.Lead.DealValue)
	})

	t.Run("InvalidResponseTimestampRejected", func(t *testing.T) {
		_, err := env.flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			LeadID:         lead.ID,
			LastResponseAt: utils.ToPtr("yesterday"),
		}, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestLeadFlowSweepStaleBroadcast(t *testing.T) {
	ctx := context.Background()
	env := newLeadFlowEnv(t, 7*24*time.Hour)

	old := time.Now().UTC().Add(-10 * 24 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)

	seed := func(funnel models.FunnelType, createdAt time.Time, lastResponse *time.Time) *models.Lead {
		email := "lead@example.com"
		lead := &models.Lead{
			UUID:           uuid.New(),
			Name:           "Lead",
			Email:          &email,
			Source:         "webinar",
			CurrentFunnel:  funnel,
			Status:         models.LeadStatusActive,
			LastResponseAt: lastResponse,
			BrandID:        env.brand.ID,
			FunnelID:       env.funnel.ID,
			CreatedAt:      createdAt,
		}
		require.NoError(t, env.leadRepo.Save(ctx, lead))
		return lead
	}

	stale := seed(models.FunnelTypeBroadcast, old, nil)
	responded := seed(models.FunnelTypeBroadcast, old, &recent)
	fresh := seed(models.FunnelTypeBroadcast, recent, nil)
	followUp := seed(models.FunnelTypeFollowUp, old, nil)

	resp, err := env.flow.SweepStaleBroadcast(ctx, &dto.SweepStaleLeadsRequest{Actor: "sweeper"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.SweptCount)
	require.Len(t, resp.LeadIDs, 1)
	assert.Equal(t, stale.ID, resp.LeadIDs[0])

	swept, err := env.leadRepo.ByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusLost, swept.Status)

	for _, untouched := range []*models.Lead{responded, fresh, followUp} {
		l, err := env.leadRepo.ByID(ctx, untouched.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusActive, l.Status)
	}

	activities, err := env.activityRepo.ListByLead(ctx, stale.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityTypeStatusChange, activities[0].ActivityType)
	assert.Equal(t, "sweeper", activities[0].Actor)
	require.NotNil(t, activities[0].Content)
	assert.Contains(t, *activities[0].Content, "7 days")

	t.Run("SecondSweepFindsNothing", func(t *testing.T) {
		resp, err := env.flow.SweepStaleBroadcast(ctx, &dto.SweepStaleLeadsRequest{Actor: "sweeper"}, nil)
		require.NoError(t, err)
		assert.Zero(t, resp.SweptCount)
		assert.Empty(t, resp.LeadIDs)
	})
}

func TestLeadFlowListHistory(t *testing.T) {
	ctx := context.Background()
	env := newLeadFlowEnv(t, 0)
	env.addStage(t, models.FunnelTypeFollowUp, 1, nil)
	second := env.addStage(t, models.FunnelTypeFollowUp, 2, nil)
	third := env.addStage(t, models.FunnelTypeFollowUp, 3, nil)
	lead := env.createLead(t, basicCreateLeadRequest(env))

	for _, target := range []uint{second.ID, third.ID} {
		_, err := env.flow.MoveToStage(ctx, &dto.MoveLeadRequest{
			LeadID:    lead.ID,
			ToStageID: target,
			Reason:    models.TransitionReasonProgression,
			Actor:     "tester",
		}, nil)
		require.NoError(t, err)
	}

	resp, err := env.flow.ListHistory(ctx, lead.ID, nil)
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Nil(t, resp.Items[0].FromStageID)
	assert.Equal(t, second.ID, resp.Items[1].ToStageID)
	assert.Equal(t, third.ID, resp.Items[2].ToStageID)

	_, err = env.flow.ListHistory(ctx, 999, nil)
	require.Error(t, err)
	assert.True(t, IsLeadNotFound(err))
}
