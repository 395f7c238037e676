// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/mkamali/leadfunnel/models"
	testingutil "github.com/mkamali/leadfunnel/testing"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunnelType(t *testing.T) {
	t.Run("Constants", func(t *testing.T) {
		assert.Equal(t, "follow_up", models.FunnelTypeFollowUp.String())
		assert.Equal(t, "broadcast", models.FunnelTypeBroadcast.String())
	})

	t.Run("Valid", func(t *testing.T) {
		assert.True(t, models.FunnelTypeFollowUp.Valid())
		assert.True(t, models.FunnelTypeBroadcast.Valid())
		assert.False(t, models.FunnelType("drip").Valid())
		assert.False(t, models.FunnelType("").Valid())
	})
}

func TestLeadStatus(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.True(t, models.LeadStatusActive.Valid())
		assert.True(t, models.LeadStatusDeal.Valid())
		assert.True(t, models.LeadStatusLost.Valid())
		assert.False(t, models.LeadStatus("frozen").Valid())
	})

	t.Run("Value", func(t *testing.T) {
		v, err := models.LeadStatusDeal.Value()
		require.NoError(t, err)
		assert.Equal(t, "deal", v)

		_, err = models.LeadStatus("frozen").Value()
		assert.Error(t, err)
	})
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "brands", (&models.Brand{}).TableName())
	assert.Equal(t, "funnels", (&models.Funnel{}).TableName())
	assert.Equal(t, "stages", (&models.Stage{}).TableName())
	assert.Equal(t, "leads", (&models.Lead{}).TableName())
	assert.Equal(t, "stage_history", (&models.StageHistory{}).TableName())
	assert.Equal(t, "activities", (&models.Activity{}).TableName())
	assert.Equal(t, "custom_labels", (&models.CustomLabel{}).TableName())
	assert.Equal(t, "lead_labels", (&models.LeadLabel{}).TableName())
	assert.Equal(t, "script_templates", (&models.ScriptTemplate{}).TableName())
}

func TestBrand(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CreateBrand", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand("tenant-1")
			require.NoError(t, err)
			assert.NotZero(t, brand.ID)
			assert.Equal(t, "tenant-1", brand.TenantID)
			assert.True(t, utils.IsTrue(brand.IsActive))
		})

		t.Run("LoadFunnelsRelation", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand("tenant-2")
			require.NoError(t, err)
			_, err = fixtures.CreateTestFunnel(brand.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestFunnel(brand.ID)
			require.NoError(t, err)

			var loaded models.Brand
			err = testDB.DB.Preload("Funnels").First(&loaded, brand.ID).Error
			require.NoError(t, err)
			assert.Len(t, loaded.Funnels, 2)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestStage(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("GlobalTemplate", func(t *testing.T) {
			stage, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
			require.NoError(t, err)
			assert.True(t, stage.IsGlobal())
		})

		t.Run("FunnelScoped", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand("tenant-3")
			require.NoError(t, err)
			funnel, err := fixtures.CreateTestFunnel(brand.ID)
			require.NoError(t, err)

			stage, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, &funnel.ID)
			require.NoError(t, err)
			assert.False(t, stage.IsGlobal())
		})

		t.Run("DuplicateNumberWithinScopeRejected", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand("tenant-3b")
			require.NoError(t, err)
			funnel, err := fixtures.CreateTestFunnel(brand.ID)
			require.NoError(t, err)

			_, err = fixtures.CreateTestStage(models.FunnelTypeBroadcast, 1, &funnel.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestStage(models.FunnelTypeBroadcast, 1, &funnel.ID)
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLead(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		brand, err := fixtures.CreateTestBrand("tenant-4")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		stage, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
		require.NoError(t, err)

		t.Run("CreateWithStagePointer", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &stage.ID)
			require.NoError(t, err)
			assert.NotZero(t, lead.ID)
			assert.Equal(t, models.LeadStatusActive, lead.Status)
			require.NotNil(t, lead.CurrentStageID)
			assert.Equal(t, stage.ID, *lead.CurrentStageID)
		})

		t.Run("PreloadCurrentStage", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &stage.ID)
			require.NoError(t, err)

			var loaded models.Lead
			err = testDB.DB.Preload("CurrentStage").First(&loaded, lead.ID).Error
			require.NoError(t, err)
			require.NotNil(t, loaded.CurrentStage)
			assert.Equal(t, stage.ID, loaded.CurrentStage.ID)
		})

		t.Run("LabelsManyToMany", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
			require.NoError(t, err)
			label, err := fixtures.CreateTestLabel(nil)
			require.NoError(t, err)

			link := &models.LeadLabel{LeadID: lead.ID, CustomLabelID: label.ID}
			require.NoError(t, testDB.DB.Create(link).Error)

			var loaded models.Lead
			err = testDB.DB.Preload("Labels").First(&loaded, lead.ID).Error
			require.NoError(t, err)
			require.Len(t, loaded.Labels, 1)
			assert.Equal(t, label.Name, loaded.Labels[0].Name)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestStageHistory(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		brand, err := fixtures.CreateTestBrand("tenant-5")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		first, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
		require.NoError(t, err)
		second, err := fixtures.CreateTestStage(models.FunnelTypeBroadcast, 1, nil)
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &first.ID)
		require.NoError(t, err)

		t.Run("InitialPlacementHasNilFrom", func(t *testing.T) {
			entry, err := fixtures.CreateTestHistoryEntry(lead.ID, nil, first.ID, nil, models.FunnelTypeFollowUp, models.TransitionReasonProgression)
			require.NoError(t, err)
			assert.Nil(t, entry.FromStageID)
			assert.Nil(t, entry.FromFunnel)
			assert.False(t, entry.IsFunnelSwitch())
		})

		t.Run("IsFunnelSwitch", func(t *testing.T) {
			fromFunnel := models.FunnelTypeFollowUp
			entry, err := fixtures.CreateTestHistoryEntry(lead.ID, &first.ID, second.ID, &fromFunnel, models.FunnelTypeBroadcast, models.TransitionReasonNoResponse)
			require.NoError(t, err)
			assert.True(t, entry.IsFunnelSwitch())

			sameFunnel := models.FunnelTypeBroadcast
			entry, err = fixtures.CreateTestHistoryEntry(lead.ID, &second.ID, second.ID, &sameFunnel, models.FunnelTypeBroadcast, models.TransitionReasonManualMove)
			require.NoError(t, err)
			assert.False(t, entry.IsFunnelSwitch())
		})

		t.Run("TimestampsAreUTC", func(t *testing.T) {
			entry, err := fixtures.CreateTestHistoryEntry(lead.ID, nil, first.ID, nil, models.FunnelTypeFollowUp, models.TransitionReasonProgression)
			require.NoError(t, err)

			var loaded models.StageHistory
			require.NoError(t, testDB.DB.First(&loaded, entry.ID).Error)
			assert.WithinDuration(t, time.Now().UTC(), loaded.CreatedAt.UTC(), time.Minute)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestActivity(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		brand, err := fixtures.CreateTestBrand("tenant-6")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
		require.NoError(t, err)

		activity, err := fixtures.CreateTestActivity(lead.ID, models.ActivityTypeCall)
		require.NoError(t, err)
		assert.NotZero(t, activity.ID)
		assert.Equal(t, models.ActivityTypeCall, activity.ActivityType)
		assert.Equal(t, "test-actor", activity.Actor)

		return nil
	})
	require.NoError(t, err)
}
