package businessflow

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/google/uuid"
)

type analyticsEnv struct {
	flow         AnalyticsFlow
	leadRepo     *repository.MemoryLeadRepository
	stageRepo    *repository.MemoryStageRepository
	funnelRepo   *repository.MemoryFunnelRepository
	historyRepo  *repository.MemoryStageHistoryRepository
	activityRepo *repository.MemoryActivityRepository

	funnel *models.Funnel
}

func newAnalyticsEnv(t *testing.T) *analyticsEnv {
	t.Helper()
	env := &analyticsEnv{
		leadRepo:     repository.NewMemoryLeadRepository(),
		stageRepo:    repository.NewMemoryStageRepository(),
		funnelRepo:   repository.NewMemoryFunnelRepository(),
		historyRepo:  repository.NewMemoryStageHistoryRepository(),
		activityRepo: repository.NewMemoryActivityRepository(),
	}
	env.flow = NewAnalyticsFlow(env.leadRepo, env.stageRepo, env.funnelRepo, env.historyRepo, env.activityRepo)

	env.funnel = &models.Funnel{UUID: uuid.New(), BrandID: 1, Name: "Pipeline", IsActive: utils.ToPtr(true)}
	require.NoError(t, env.funnelRepo.Save(context.Background(), env.funnel))
	return env
}

func (env *analyticsEnv) addStage(t *testing.T, funnelType models.FunnelType, number int) *models.Stage {
	t.Helper()
	stage := &models.Stage{Name: "Stage", FunnelType: funnelType, StageNumber: number}
	require.NoError(t, env.stageRepo.Save(context.Background(), stage))
	return stage
}

func (env *analyticsEnv) addLead(t *testing.T, stageID *uint, funnel models.FunnelType, status models.LeadStatus, createdAt time.Time) *models.Lead {
	t.Helper()
	email := "lead@example.com"
	lead := &models.Lead{
		UUID:           uuid.New(),
		Name:           "Lead",
		Email:          &email,
		Source:         "ads",
		CurrentFunnel:  funnel,
		CurrentStageID: stageID,
		Status:         status,
		BrandID:        1,
		FunnelID:       env.funnel.ID,
		CreatedAt:      createdAt,
	}
	require.NoError(t, env.leadRepo.Save(context.Background(), lead))
	return lead
}

func (env *analyticsEnv) addEntry(t *testing.T, leadID uint, from *uint, to uint, fromFunnel *models.FunnelType, toFunnel models.FunnelType, at time.Time) {
	t.Helper()
	entry := &models.StageHistory{
		LeadID:      leadID,
		FromStageID: from,
		ToStageID:   to,
		FromFunnel:  fromFunnel,
		ToFunnel:    toFunnel,
		Reason:      models.TransitionReasonProgression,
		Actor:       "tester",
		CreatedAt:   at,
	}
	require.NoError(t, env.historyRepo.Save(context.Background(), entry))
}

func TestAnalyticsDualFlow(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fu := models.FunnelTypeFollowUp

	t.Run("EnteredProgressedDroppedPerStage", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		s1 := env.addStage(t, fu, 1)
		s2 := env.addStage(t, fu, 2)

		// lead A moved through s1 into s2, lead B is parked in s1
		a := env.addLead(t, &s2.ID, fu, models.LeadStatusActive, now)
		b := env.addLead(t, &s1.ID, fu, models.LeadStatusActive, now)
		env.addEntry(t, a.ID, nil, s1.ID, nil, fu, now)
		env.addEntry(t, a.ID, &s1.ID, s2.ID, &fu, fu, now.Add(time.Hour))
		env.addEntry(t, b.ID, nil, s1.ID, nil, fu, now)

		resp, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: env.funnel.ID}, nil)
		require.NoError(t, err)

		require.Len(t, resp.FollowUp, 2)
		first := resp.FollowUp[0]
		assert.Equal(t, 2, first.Entered)
		assert.Equal(t, 1, first.Progressed)
		assert.Equal(t, 1, first.Dropped)
		assert.Equal(t, 50.0, first.DropRate)
		assert.Equal(t, 50.0, first.ConversionRate)
		assert.Equal(t, 1, first.CurrentLeads)

		second := resp.FollowUp[1]
		assert.Equal(t, 1, second.Entered)
		assert.Equal(t, 0, second.Progressed)
		assert.Equal(t, 1, second.Dropped)
		assert.Equal(t, 100.0, second.DropRate)
		assert.Equal(t, 1, second.CurrentLeads)

		assert.Empty(t, resp.Broadcast)
	})

	t.Run("ParkedLeadsAllDrop", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		s1 := env.addStage(t, fu, 1)
		for i := 0; i < 10; i++ {
			lead := env.addLead(t, &s1.ID, fu, models.LeadStatusActive, now)
			env.addEntry(t, lead.ID, nil, s1.ID, nil, fu, now)
		}

		resp, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: env.funnel.ID}, nil)
		require.NoError(t, err)

		require.Len(t, resp.FollowUp, 1)
		row := resp.FollowUp[0]
		assert.Equal(t, 10, row.Entered)
		assert.Equal(t, 0, row.Progressed)
		assert.Equal(t, 10, row.Dropped)
		assert.Equal(t, 100.0, row.DropRate)
		assert.Equal(t, 0.0, row.ConversionRate)
	})

	t.Run("ParkedLeadsWithoutHistoryStillCounted", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		s1 := env.addStage(t, fu, 1)
		s2 := env.addStage(t, fu, 2)
		for i := 0; i < 10; i++ {
			env.addLead(t, &s1.ID, fu, models.LeadStatusActive, now)
		}

		resp, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: env.funnel.ID}, nil)
		require.NoError(t, err)

		require.Len(t, resp.FollowUp, 2)
		row := resp.FollowUp[0]
		assert.Equal(t, 10, row.Entered)
		assert.Equal(t, 0, row.Progressed)
		assert.Equal(t, 10, row.Dropped)
		assert.Equal(t, 100.0, row.DropRate)
		assert.Equal(t, 10, row.CurrentLeads)

		second := resp.FollowUp[1]
		assert.Equal(t, s2.ID, second.StageID)
		assert.Zero(t, second.Entered)
		assert.Equal(t, 0.0, second.DropRate)
	})

	t.Run("ZeroEnteredStageReportsZeroRates", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		env.addStage(t, fu, 1)

		resp, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: env.funnel.ID}, nil)
		require.NoError(t, err)

		require.Len(t, resp.FollowUp, 1)
		assert.Zero(t, resp.FollowUp[0].Entered)
		assert.Equal(t, 0.0, resp.FollowUp[0].DropRate)
		assert.Equal(t, 0.0, resp.FollowUp[0].ConversionRate)
	})

	t.Run("SwitchTotalsCountEventsPerStageCountsLeads", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		bc := models.FunnelTypeBroadcast
		s1 := env.addStage(t, fu, 1)
		b1 := env.addStage(t, bc, 1)

		// one lead oscillates: to broadcast, back, to broadcast again
		lead := env.addLead(t, &b1.ID, bc, models.LeadStatusActive, now)
		env.addEntry(t, lead.ID, nil, s1.ID, nil, fu, now)
		env.addEntry(t, lead.ID, &s1.ID, b1.ID, &fu, bc, now.Add(1*time.Hour))
		env.addEntry(t, lead.ID, &b1.ID, s1.ID, &bc, fu, now.Add(2*time.Hour))
		env.addEntry(t, lead.ID, &s1.ID, b1.ID, &fu, bc, now.Add(3*time.Hour))

		resp, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: env.funnel.ID}, nil)
		require.NoError(t, err)

		// totals count transition events
		assert.Equal(t, 2, resp.SwitchesToBroadcast)
		assert.Equal(t, 1, resp.SwitchesToFollowUp)

		// per-stage numbers deduplicate by lead
		require.Len(t, resp.FollowUp, 1)
		assert.Equal(t, 1, resp.FollowUp[0].LeadsSwitchedToBroadcast)
		require.Len(t, resp.Broadcast, 1)
		assert.Equal(t, 1, resp.Broadcast[0].LeadsReturnedToFollowUp)
	})

	t.Run("SummaryRollsUpStatusAndFunnelSide", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		env.addLead(t, nil, fu, models.LeadStatusActive, now)
		env.addLead(t, nil, models.FunnelTypeBroadcast, models.LeadStatusActive, now)
		env.addLead(t, nil, fu, models.LeadStatusDeal, now)
		env.addLead(t, nil, fu, models.LeadStatusLost, now)

		resp, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: env.funnel.ID}, nil)
		require.NoError(t, err)

		assert.Equal(t, 4, resp.Summary.TotalLeads)
		assert.Equal(t, 1, resp.Summary.Won)
		assert.Equal(t, 1, resp.Summary.Lost)
		assert.Equal(t, 2, resp.Summary.Active)
		assert.Equal(t, 1, resp.Summary.ActiveFollowUp)
		assert.Equal(t, 1, resp.Summary.ActiveBroadcast)
	})

	t.Run("UnknownFunnelRejected", func(t *testing.T) {
		env := newAnalyticsEnv(t)
		_, err := env.flow.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: 999}, nil)
		require.Error(t, err)
		assert.True(t, IsFunnelNotFound(err))
	})
}

func TestAnalyticsStageVelocity(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fu := models.FunnelTypeFollowUp

	env := newAnalyticsEnv(t)
	s1 := env.addStage(t, fu, 1)
	s2 := env.addStage(t, fu, 2)

	lead := env.addLead(t, &s2.ID, fu, models.LeadStatusActive, now)
	env.addEntry(t, lead.ID, nil, s1.ID, nil, fu, now)
	env.addEntry(t, lead.ID, &s1.ID, s2.ID, &fu, fu, now.Add(10*time.Hour))

	resp, err := env.flow.GetStageVelocity(ctx, &dto.GetStageVelocityRequest{}, nil)
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, 10.0, resp.Items[0].AverageHours)
	assert.Equal(t, 1, resp.Items[0].SampleCount)

	// the lead is still sitting in s2, so s2 has no sample
	assert.Equal(t, 0.0, resp.Items[1].AverageHours)
	assert.Zero(t, resp.Items[1].SampleCount)
}

func TestAnalyticsBottleneckWarnings(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fu := models.FunnelTypeFollowUp

	env := newAnalyticsEnv(t)
	stages := []*models.Stage{
		env.addStage(t, fu, 1),
		env.addStage(t, fu, 2),
		env.addStage(t, fu, 3),
		env.addStage(t, fu, 4),
	}

	// dwell samples of 10h, 10h, 10h, 30h: mean 15, warn threshold 22.5
	dwellHours := []int{10, 10, 10, 30}
	for i, s := range stages {
		lead := env.addLead(t, nil, fu, models.LeadStatusActive, now)
		env.addEntry(t, lead.ID, nil, s.ID, nil, fu, now)
		env.addEntry(t, lead.ID, &s.ID, stages[0].ID, &fu, fu, now.Add(time.Duration(dwellHours[i])*time.Hour))
	}

	resp, err := env.flow.GetBottleneckWarnings(ctx, &dto.GetBottleneckWarningsRequest{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 15.0, resp.MeanHours)
	assert.Equal(t, 22.5, resp.ThresholdHours)

	// only the 30h stage crosses the warn line; 30 is not strictly above the
	// high bound of 2x mean, so it stays medium
	require.Len(t, resp.Items, 1)
	assert.Equal(t, stages[3].ID, resp.Items[0].StageID)
	assert.Equal(t, 30.0, resp.Items[0].AverageHours)
	assert.Equal(t, "medium", resp.Items[0].Severity)
}

func TestAnalyticsBottleneckSeverity(t *testing.T) {
	assert.Equal(t, "", bottleneckSeverity(10, 0))
	assert.Equal(t, "", bottleneckSeverity(15, 15))
	assert.Equal(t, "", bottleneckSeverity(22.5, 15))
	assert.Equal(t, "medium", bottleneckSeverity(22.6, 15))
	assert.Equal(t, "medium", bottleneckSeverity(30, 15))
	assert.Equal(t, "high", bottleneckSeverity(30.1, 15))
}

func TestAnalyticsHeatmap(t *testing.T) {
	ctx := context.Background()
	env := newAnalyticsEnv(t)
	fu := models.FunnelTypeFollowUp
	s1 := env.addStage(t, fu, 1)

	at := time.Date(2026, 1, 7, 14, 30, 0, 0, time.UTC)
	lead := env.addLead(t, &s1.ID, fu, models.LeadStatusActive, at)
	env.addEntry(t, lead.ID, nil, s1.ID, nil, fu, at)
	env.addEntry(t, lead.ID, &s1.ID, s1.ID, &fu, fu, at.Add(time.Hour))

	t.Run("TransitionsBucketedByWeekdayAndHour", func(t *testing.T) {
		resp, err := env.flow.GetHeatmapAnalytics(ctx, &dto.GetHeatmapRequest{TargetType: "transitions"}, nil)
		require.NoError(t, err)

		require.Len(t, resp.Buckets, 7)
		for _, row := range resp.Buckets {
			require.Len(t, row, 24)
		}
		assert.Equal(t, 1, resp.Buckets[int(at.Weekday())][14])
		assert.Equal(t, 1, resp.Buckets[int(at.Weekday())][15])
	})

	t.Run("ActivitiesTarget", func(t *testing.T) {
		activity := &models.Activity{
			LeadID:       lead.ID,
			ActivityType: models.ActivityTypeCall,
			Actor:        "tester",
			CreatedAt:    at,
		}
		require.NoError(t, env.activityRepo.Save(ctx, activity))

		resp, err := env.flow.GetHeatmapAnalytics(ctx, &dto.GetHeatmapRequest{TargetType: "activities"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Buckets[int(at.Weekday())][14])
	})

	t.Run("InvalidTargetRejected", func(t *testing.T) {
		_, err := env.flow.GetHeatmapAnalytics(ctx, &dto.GetHeatmapRequest{TargetType: "deals"}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidHeatmapTarget(err))
	})
}

func TestAnalyticsExportDualFlowXLSX(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fu := models.FunnelTypeFollowUp

	env := newAnalyticsEnv(t)
	s1 := env.addStage(t, fu, 1)
	lead := env.addLead(t, &s1.ID, fu, models.LeadStatusActive, now)
	env.addEntry(t, lead.ID, nil, s1.ID, nil, fu, now)

	data, filename, err := env.flow.ExportDualFlowXLSX(ctx, &dto.ExportDualFlowRequest{FunnelID: env.funnel.ID}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, strings.HasPrefix(filename, "funnel_"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer file.Close()

	assert.ElementsMatch(t, []string{"Follow-Up", "Broadcast", "Summary"}, file.GetSheetList())

	rows, err := file.GetRows("Follow-Up")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Stage #", rows[0][0])
}
