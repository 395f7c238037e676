// Package testing provides test utilities and database setup for testing the lead funnel system
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/utils"

	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestBrand creates a test brand owned by the given tenant
func (tf *TestFixtures) CreateTestBrand(tenantID string) (*models.Brand, error) {
	brand := &models.Brand{
		UUID:     uuid.New(),
		TenantID: tenantID,
		Name:     fmt.Sprintf("Test Brand %d", rand.Intn(10000000)),
		IsActive: utils.ToPtr(true),
	}

	err := tf.DB.DB.Create(brand).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test brand: %w", err)
	}

	return brand, nil
}

// CreateTestFunnel creates a test funnel under the given brand
func (tf *TestFixtures) CreateTestFunnel(brandID uint) (*models.Funnel, error) {
	funnel := &models.Funnel{
		UUID:     uuid.New(),
		BrandID:  brandID,
		Name:     fmt.Sprintf("Test Funnel %d", rand.Intn(10000000)),
		IsActive: utils.ToPtr(true),
	}

	err := tf.DB.DB.Create(funnel).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test funnel: %w", err)
	}

	return funnel, nil
}

// CreateTestStage creates a stage for the given funnel type. A nil funnelID
// creates a global template stage; otherwise the stage is scoped to that
// funnel and participates in catalog overriding.
func (tf *TestFixtures) CreateTestStage(funnelType models.FunnelType, stageNumber int, funnelID *uint) (*models.Stage, error) {
	stage := &models.Stage{
		Name:        fmt.Sprintf("Stage %d", stageNumber),
		FunnelType:  funnelType,
		StageNumber: stageNumber,
		FunnelID:    funnelID,
	}

	err := tf.DB.DB.Create(stage).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test stage: %w", err)
	}

	return stage, nil
}

// CreateTestLead creates an active follow-up lead in the given funnel,
// optionally parked at a stage
func (tf *TestFixtures) CreateTestLead(brandID, funnelID uint, stageID *uint) (*models.Lead, error) {
	email := fmt.Sprintf("lead%d@example.com", rand.Intn(10000000))

	lead := &models.Lead{
		UUID:           uuid.New(),
		Name:           fmt.Sprintf("Test Lead %d", rand.Intn(10000000)),
		Email:          &email,
		Source:         "referral",
		CurrentFunnel:  models.FunnelTypeFollowUp,
		CurrentStageID: stageID,
		Status:         models.LeadStatusActive,
		BrandID:        brandID,
		FunnelID:       funnelID,
	}

	err := tf.DB.DB.Create(lead).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}

	return lead, nil
}

// CreateTestHistoryEntry appends a ledger entry for the given lead. Pass nil
// fromStageID and fromFunnel for initial placement entries.
func (tf *TestFixtures) CreateTestHistoryEntry(leadID uint, fromStageID *uint, toStageID uint, fromFunnel *models.FunnelType, toFunnel models.FunnelType, reason string) (*models.StageHistory, error) {
	entry := &models.StageHistory{
		LeadID:      leadID,
		FromStageID: fromStageID,
		ToStageID:   toStageID,
		FromFunnel:  fromFunnel,
		ToFunnel:    toFunnel,
		Reason:      reason,
		Actor:       "test-actor",
	}

	err := tf.DB.DB.Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test history entry: %w", err)
	}

	return entry, nil
}

// CreateTestLabel creates a label, globally visible when funnelID is nil
func (tf *TestFixtures) CreateTestLabel(funnelID *uint) (*models.CustomLabel, error) {
	label := &models.CustomLabel{
		Name:     fmt.Sprintf("Test Label %d", rand.Intn(10000000)),
		Color:    "#ff8800",
		FunnelID: funnelID,
	}

	err := tf.DB.DB.Create(label).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test label: %w", err)
	}

	return label, nil
}

// CreateTestActivity records a test activity against the given lead
func (tf *TestFixtures) CreateTestActivity(leadID uint, activityType string) (*models.Activity, error) {
	content := fmt.Sprintf("Test %s activity", activityType)

	activity := &models.Activity{
		LeadID:       leadID,
		ActivityType: activityType,
		Content:      &content,
		Actor:        "test-actor",
	}

	err := tf.DB.DB.Create(activity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test activity: %w", err)
	}

	return activity, nil
}

// CreateTestScript creates a script template for the given funnel type
func (tf *TestFixtures) CreateTestScript(funnelType models.FunnelType, funnelID, stageID *uint) (*models.ScriptTemplate, error) {
	script := &models.ScriptTemplate{
		Title:      fmt.Sprintf("Test Script %d", rand.Intn(10000000)),
		Body:       "Hi {{name}}, following up on our last conversation.",
		FunnelType: funnelType,
		FunnelID:   funnelID,
		StageID:    stageID,
	}

	err := tf.DB.DB.Create(script).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test script: %w", err)
	}

	return script, nil
}

// TouchLastResponse stamps the lead's last response time, used for staleness
// sweep tests
func (tf *TestFixtures) TouchLastResponse(leadID uint, at time.Time) error {
	return tf.DB.DB.Model(&models.Lead{}).Where("id = ?", leadID).Update("last_response_at", at).Error
}
