// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/mkamali/leadfunnel/app/dto"
	businessflow "github.com/mkamali/leadfunnel/business_flow"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	testingutil "github.com/mkamali/leadfunnel/testing"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		labelRepo := repository.NewCustomLabelRepository(testDB.DB)
		leadRepo := repository.NewLeadRepository(testDB.DB)
		funnelRepo := repository.NewFunnelRepository(testDB.DB)
		flow := businessflow.NewLabelFlow(labelRepo, leadRepo, funnelRepo)

		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-lf")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
		require.NoError(t, err)

		t.Run("CreateGlobalLabelDefaultsColor", func(t *testing.T) {
			resp, err := flow.CreateLabel(ctx, &dto.CreateLabelRequest{Name: "hot"}, nil)
			require.NoError(t, err)
			assert.Equal(t, "#808080", resp.Label.Color)
			assert.Nil(t, resp.Label.FunnelID)
		})

		t.Run("CreateScopedLabelRequiresExistingFunnel", func(t *testing.T) {
			missing := uint(999999)
			_, err := flow.CreateLabel(ctx, &dto.CreateLabelRequest{Name: "orphan", FunnelID: &missing}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsFunnelNotFound(err))
		})

		t.Run("ListLabelsScopedIncludesGlobals", func(t *testing.T) {
			_, err := flow.CreateLabel(ctx, &dto.CreateLabelRequest{
				Name:     "vip",
				Color:    utils.ToPtr("#ff0000"),
				FunnelID: &funnel.ID,
			}, nil)
			require.NoError(t, err)

			resp, err := flow.ListLabels(ctx, &funnel.ID, nil)
			require.NoError(t, err)

			names := make([]string, 0, len(resp.Items))
			for _, l := range resp.Items {
				names = append(names, l.Name)
			}
			assert.Contains(t, names, "hot")
			assert.Contains(t, names, "vip")
		})

		t.Run("AttachDetachRoundTrip", func(t *testing.T) {
			created, err := flow.CreateLabel(ctx, &dto.CreateLabelRequest{Name: "callback"}, nil)
			require.NoError(t, err)

			_, err = flow.AttachLabel(ctx, &dto.AttachLabelRequest{LeadID: lead.ID, LabelID: created.Label.ID}, nil)
			require.NoError(t, err)

			// attaching twice is a no-op
			_, err = flow.AttachLabel(ctx, &dto.AttachLabelRequest{LeadID: lead.ID, LabelID: created.Label.ID}, nil)
			require.NoError(t, err)

			listed, err := flow.ListLeadLabels(ctx, lead.ID, nil)
			require.NoError(t, err)
			require.Len(t, listed.Items, 1)
			assert.Equal(t, "callback", listed.Items[0].Name)

			_, err = flow.DetachLabel(ctx, &dto.DetachLabelRequest{LeadID: lead.ID, LabelID: created.Label.ID}, nil)
			require.NoError(t, err)

			listed, err = flow.ListLeadLabels(ctx, lead.ID, nil)
			require.NoError(t, err)
			assert.Empty(t, listed.Items)
		})

		t.Run("AttachToUnknownLeadRejected", func(t *testing.T) {
			created, err := flow.CreateLabel(ctx, &dto.CreateLabelRequest{Name: "stray"}, nil)
			require.NoError(t, err)

			_, err = flow.AttachLabel(ctx, &dto.AttachLabelRequest{LeadID: 999999, LabelID: created.Label.ID}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsLeadNotFound(err))
		})

		t.Run("DeleteLabelRemovesAttachments", func(t *testing.T) {
			created, err := flow.CreateLabel(ctx, &dto.CreateLabelRequest{Name: "doomed"}, nil)
			require.NoError(t, err)
			_, err = flow.AttachLabel(ctx, &dto.AttachLabelRequest{LeadID: lead.ID, LabelID: created.Label.ID}, nil)
			require.NoError(t, err)

			_, err = flow.DeleteLabel(ctx, &dto.DeleteLabelRequest{LabelID: created.Label.ID}, nil)
			require.NoError(t, err)

			var count int64
			require.NoError(t, testDB.DB.Model(&models.LeadLabel{}).Where("custom_label_id = ?", created.Label.ID).Count(&count).Error)
			assert.Zero(t, count)

			_, err = flow.DeleteLabel(ctx, &dto.DeleteLabelRequest{LabelID: created.Label.ID}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsLabelNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestScriptFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		scriptRepo := repository.NewScriptTemplateRepository(testDB.DB)
		stageRepo := repository.NewStageRepository(testDB.DB)
		funnelRepo := repository.NewFunnelRepository(testDB.DB)
		flow := businessflow.NewScriptFlow(scriptRepo, stageRepo, funnelRepo)

		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-sf")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		stage, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
		require.NoError(t, err)

		t.Run("CreateGlobalScript", func(t *testing.T) {
			resp, err := flow.CreateScript(ctx, &dto.CreateScriptRequest{
				Title:      "First touch",
				Body:       "Hi {{name}}, thanks for signing up.",
				FunnelType: "follow_up",
			}, nil)
			require.NoError(t, err)
			assert.NotZero(t, resp.Script.ID)
			assert.Nil(t, resp.Script.FunnelID)
		})

		t.Run("CreateStagePinnedScript", func(t *testing.T) {
			resp, err := flow.CreateScript(ctx, &dto.CreateScriptRequest{
				Title:      "Stage opener",
				Body:       "Quick question about your timeline.",
				FunnelType: "follow_up",
				FunnelID:   &funnel.ID,
				StageID:    &stage.ID,
			}, nil)
			require.NoError(t, err)
			require.NotNil(t, resp.Script.StageID)
			assert.Equal(t, stage.ID, *resp.Script.StageID)
		})

		t.Run("InvalidFunnelTypeRejected", func(t *testing.T) {
			_, err := flow.CreateScript(ctx, &dto.CreateScriptRequest{
				Title:      "Bad",
				Body:       "Body",
				FunnelType: "drip",
			}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidFunnelType(err))
		})

		t.Run("ListScriptsScoped", func(t *testing.T) {
			resp, err := flow.ListScripts(ctx, &funnel.ID, nil)
			require.NoError(t, err)

			titles := make([]string, 0, len(resp.Items))
			for _, s := range resp.Items {
				titles = append(titles, s.Title)
			}
			assert.Contains(t, titles, "First touch")
			assert.Contains(t, titles, "Stage opener")
		})

		t.Run("UpdateAndDelete", func(t *testing.T) {
			created, err := flow.CreateScript(ctx, &dto.CreateScriptRequest{
				Title:      "Draft",
				Body:       "Old body",
				FunnelType: "broadcast",
			}, nil)
			require.NoError(t, err)

			updated, err := flow.UpdateScript(ctx, &dto.UpdateScriptRequest{
				ScriptID: created.Script.ID,
				Body:     utils.ToPtr("New body"),
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, "New body", updated.Script.Body)

			_, err = flow.DeleteScript(ctx, &dto.DeleteScriptRequest{ScriptID: created.Script.ID}, nil)
			require.NoError(t, err)

			_, err = flow.DeleteScript(ctx, &dto.DeleteScriptRequest{ScriptID: created.Script.ID}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsScriptNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
