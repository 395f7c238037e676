// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	testingutil "github.com/mkamali/leadfunnel/testing"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewBrandRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-a")
		require.NoError(t, err)

		t.Run("ByID", func(t *testing.T) {
			found, err := repo.ByID(ctx, brand.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, brand.Name, found.Name)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			found, err := repo.ByID(ctx, 999999)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, brand.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, brand.ID, found.ID)
		})

		t.Run("ListByTenant", func(t *testing.T) {
			_, err := fixtures.CreateTestBrand("tenant-a")
			require.NoError(t, err)
			_, err = fixtures.CreateTestBrand("tenant-b")
			require.NoError(t, err)

			brands, err := repo.ListByTenant(ctx, "tenant-a")
			require.NoError(t, err)
			assert.Len(t, brands, 2)
		})

		t.Run("Deactivate", func(t *testing.T) {
			target, err := fixtures.CreateTestBrand("tenant-c")
			require.NoError(t, err)

			require.NoError(t, repo.Deactivate(ctx, target.ID, utils.UTCNow()))

			found, err := repo.ByID(ctx, target.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.False(t, utils.IsTrue(found.IsActive))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestStageRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewStageRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-s")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		other, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)

		global1, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
		require.NoError(t, err)
		global2, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 2, nil)
		require.NoError(t, err)
		scoped, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, &funnel.ID)
		require.NoError(t, err)
		foreign, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, &other.ID)
		require.NoError(t, err)

		t.Run("ListForFunnelReturnsGlobalPlusScoped", func(t *testing.T) {
			stages, err := repo.ListForFunnel(ctx, funnel.ID)
			require.NoError(t, err)

			ids := make([]uint, 0, len(stages))
			for _, s := range stages {
				ids = append(ids, s.ID)
			}
			assert.ElementsMatch(t, []uint{global1.ID, global2.ID, scoped.ID}, ids)
			assert.NotContains(t, ids, foreign.ID)
		})

		t.Run("ListGlobal", func(t *testing.T) {
			stages, err := repo.ListGlobal(ctx)
			require.NoError(t, err)

			ids := make([]uint, 0, len(stages))
			for _, s := range stages {
				ids = append(ids, s.ID)
			}
			assert.ElementsMatch(t, []uint{global1.ID, global2.ID}, ids)
		})

		t.Run("DeleteUnreferencedStage", func(t *testing.T) {
			victim, err := fixtures.CreateTestStage(models.FunnelTypeBroadcast, 9, nil)
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, victim.ID))

			found, err := repo.ByID(ctx, victim.ID)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("DeleteReferencedStageFailsWithFKViolation", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
			require.NoError(t, err)
			_, err = fixtures.CreateTestHistoryEntry(lead.ID, nil, global1.ID, nil, models.FunnelTypeFollowUp, models.TransitionReasonProgression)
			require.NoError(t, err)

			err = repo.Delete(ctx, global1.ID)
			require.Error(t, err)
			assert.True(t, repository.IsForeignKeyViolation(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLeadRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewLeadRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-l")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		stage, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
		require.NoError(t, err)
		broadcastStage, err := fixtures.CreateTestStage(models.FunnelTypeBroadcast, 1, nil)
		require.NoError(t, err)

		t.Run("UpdateStagePointer", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &stage.ID)
			require.NoError(t, err)

			at := utils.UTCNow()
			err = repo.UpdateStagePointer(ctx, lead.ID, broadcastStage.ID, models.FunnelTypeBroadcast, at)
			require.NoError(t, err)

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			require.NotNil(t, found.CurrentStageID)
			assert.Equal(t, broadcastStage.ID, *found.CurrentStageID)
			assert.Equal(t, models.FunnelTypeBroadcast, found.CurrentFunnel)
		})

		t.Run("UpdateStagePointerUnknownStageFailsWithFKViolation", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &stage.ID)
			require.NoError(t, err)

			err = repo.UpdateStagePointer(ctx, lead.ID, 999999, models.FunnelTypeFollowUp, utils.UTCNow())
			require.Error(t, err)
			assert.True(t, repository.IsForeignKeyViolation(err))
		})

		t.Run("UpdateStatus", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
			require.NoError(t, err)

			require.NoError(t, repo.UpdateStatus(ctx, lead.ID, models.LeadStatusDeal, utils.UTCNow()))

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStatusDeal, found.Status)
		})

		t.Run("ListStaleBroadcast", func(t *testing.T) {
			old := utils.UTCNow().Add(-10 * 24 * time.Hour)

			stale, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &broadcastStage.ID)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", stale.ID).
				Updates(map[string]any{"current_funnel": "broadcast", "created_at": old}).Error)

			responded, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &broadcastStage.ID)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", responded.ID).
				Updates(map[string]any{"current_funnel": "broadcast", "created_at": old}).Error)
			require.NoError(t, fixtures.TouchLastResponse(responded.ID, utils.UTCNow()))

			fresh, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &broadcastStage.ID)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", fresh.ID).
				Update("current_funnel", "broadcast").Error)

			cutoff := utils.UTCNow().Add(-utils.StaleLeadThreshold)
			rows, err := repo.ListStaleBroadcast(ctx, cutoff, nil)
			require.NoError(t, err)

			ids := make([]uint, 0, len(rows))
			for _, l := range rows {
				ids = append(ids, l.ID)
			}
			assert.Contains(t, ids, stale.ID)
			assert.NotContains(t, ids, responded.ID)
			assert.NotContains(t, ids, fresh.ID)
		})

		t.Run("Delete", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, lead.ID))

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestStageHistoryRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewStageHistoryRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-h")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		first, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, nil)
		require.NoError(t, err)
		second, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 2, nil)
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &first.ID)
		require.NoError(t, err)

		_, err = fixtures.CreateTestHistoryEntry(lead.ID, nil, first.ID, nil, models.FunnelTypeFollowUp, models.TransitionReasonProgression)
		require.NoError(t, err)
		fromFunnel := models.FunnelTypeFollowUp
		_, err = fixtures.CreateTestHistoryEntry(lead.ID, &first.ID, second.ID, &fromFunnel, models.FunnelTypeFollowUp, models.TransitionReasonManualMove)
		require.NoError(t, err)

		t.Run("ListByLeadChronological", func(t *testing.T) {
			entries, err := repo.ListByLead(ctx, lead.ID)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Nil(t, entries[0].FromStageID)
			assert.Equal(t, second.ID, entries[1].ToStageID)
		})

		t.Run("ListByLeadIDsEmptySet", func(t *testing.T) {
			entries, err := repo.ListByLeadIDs(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})

		t.Run("CountByReason", func(t *testing.T) {
			reason := models.TransitionReasonManualMove
			count, err := repo.Count(ctx, models.StageHistoryFilter{Reason: &reason})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCustomLabelRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCustomLabelRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-cl")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		other, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)

		global, err := fixtures.CreateTestLabel(nil)
		require.NoError(t, err)
		scoped, err := fixtures.CreateTestLabel(&funnel.ID)
		require.NoError(t, err)
		foreign, err := fixtures.CreateTestLabel(&other.ID)
		require.NoError(t, err)

		t.Run("ListForFunnel", func(t *testing.T) {
			labels, err := repo.ListForFunnel(ctx, funnel.ID)
			require.NoError(t, err)

			ids := make([]uint, 0, len(labels))
			for _, l := range labels {
				ids = append(ids, l.ID)
			}
			assert.ElementsMatch(t, []uint{global.ID, scoped.ID}, ids)
			assert.NotContains(t, ids, foreign.ID)
		})

		t.Run("AttachDetach", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, nil)
			require.NoError(t, err)

			require.NoError(t, repo.Attach(ctx, lead.ID, global.ID))
			require.NoError(t, repo.Attach(ctx, lead.ID, scoped.ID))

			labels, err := repo.ListByLead(ctx, lead.ID)
			require.NoError(t, err)
			assert.Len(t, labels, 2)

			require.NoError(t, repo.Detach(ctx, lead.ID, global.ID))

			labels, err = repo.ListByLead(ctx, lead.ID)
			require.NoError(t, err)
			require.Len(t, labels, 1)
			assert.Equal(t, scoped.ID, labels[0].ID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFunnelRepositoryHardDelete(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewFunnelRepository(testDB.DB)
		labelRepo := repository.NewCustomLabelRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand("tenant-hd")
		require.NoError(t, err)
		funnel, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)
		keep, err := fixtures.CreateTestFunnel(brand.ID)
		require.NoError(t, err)

		scopedStage, err := fixtures.CreateTestStage(models.FunnelTypeFollowUp, 1, &funnel.ID)
		require.NoError(t, err)
		scopedLabel, err := fixtures.CreateTestLabel(&funnel.ID)
		require.NoError(t, err)

		lead, err := fixtures.CreateTestLead(brand.ID, funnel.ID, &scopedStage.ID)
		require.NoError(t, err)
		_, err = fixtures.CreateTestHistoryEntry(lead.ID, nil, scopedStage.ID, nil, models.FunnelTypeFollowUp, models.TransitionReasonProgression)
		require.NoError(t, err)
		_, err = fixtures.CreateTestActivity(lead.ID, models.ActivityTypeNote)
		require.NoError(t, err)
		require.NoError(t, labelRepo.Attach(ctx, lead.ID, scopedLabel.ID))

		keepLead, err := fixtures.CreateTestLead(brand.ID, keep.ID, nil)
		require.NoError(t, err)

		require.NoError(t, repo.HardDelete(ctx, funnel.ID))

		var count int64
		require.NoError(t, testDB.DB.Model(&models.Funnel{}).Where("id = ?", funnel.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("funnel_id = ?", funnel.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, testDB.DB.Model(&models.StageHistory{}).Where("lead_id = ?", lead.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, testDB.DB.Model(&models.Activity{}).Where("lead_id = ?", lead.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, testDB.DB.Model(&models.LeadLabel{}).Where("lead_id = ?", lead.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, testDB.DB.Model(&models.Stage{}).Where("id = ?", scopedStage.ID).Count(&count).Error)
		assert.Zero(t, count)
		require.NoError(t, testDB.DB.Model(&models.CustomLabel{}).Where("id = ?", scopedLabel.ID).Count(&count).Error)
		assert.Zero(t, count)

		// the sibling funnel and its lead survive
		require.NoError(t, testDB.DB.Model(&models.Funnel{}).Where("id = ?", keep.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", keepLead.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		return nil
	})
	require.NoError(t, err)
}
