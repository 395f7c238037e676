// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"time"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and request tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// getBrand loads a brand by ID and wraps the not-found case
func getBrand(ctx context.Context, repo repository.BrandRepository, brandID uint) (*models.Brand, error) {
	brand, err := repo.ByID(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, ErrBrandNotFound
	}
	return brand, nil
}

// getFunnel loads a funnel by ID and wraps the not-found case
func getFunnel(ctx context.Context, repo repository.FunnelRepository, funnelID uint) (*models.Funnel, error) {
	funnel, err := repo.ByID(ctx, funnelID)
	if err != nil {
		return nil, err
	}
	if funnel == nil {
		return nil, ErrFunnelNotFound
	}
	return funnel, nil
}

// getLead loads a lead by ID and wraps the not-found case
func getLead(ctx context.Context, repo repository.LeadRepository, leadID uint) (*models.Lead, error) {
	lead, err := repo.ByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// getStage loads a stage by ID and wraps the not-found case
func getStage(ctx context.Context, repo repository.StageRepository, stageID uint) (*models.Stage, error) {
	stage, err := repo.ByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, ErrStageNotFound
	}
	return stage, nil
}

// ToBrandDTO converts a brand model to its API representation
func ToBrandDTO(brand models.Brand) dto.BrandDTO {
	return dto.BrandDTO{
		ID:          brand.ID,
		UUID:        brand.UUID.String(),
		Name:        brand.Name,
		Description: brand.Description,
		LogoURL:     brand.LogoURL,
		IsActive:    utils.IsTrue(brand.IsActive),
		CreatedAt:   brand.CreatedAt.Format(time.RFC3339),
	}
}

func ToFunnelDTO(funnel models.Funnel) dto.FunnelDTO {
	return dto.FunnelDTO{
		ID:          funnel.ID,
		UUID:        funnel.UUID.String(),
		BrandID:     funnel.BrandID,
		Name:        funnel.Name,
		Description: funnel.Description,
		IsActive:    utils.IsTrue(funnel.IsActive),
		CreatedAt:   funnel.CreatedAt.Format(time.RFC3339),
	}
}

func ToStageDTO(stage models.Stage) dto.StageDTO {
	return dto.StageDTO{
		ID:          stage.ID,
		Name:        stage.Name,
		FunnelType:  stage.FunnelType.String(),
		StageNumber: stage.StageNumber,
		FunnelID:    stage.FunnelID,
		Color:       stage.Color,
	}
}

func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	var lastResponse *string
	if lead.LastResponseAt != nil {
		lastResponse = utils.ToPtr(lead.LastResponseAt.Format(time.RFC3339))
	}
	return dto.LeadDTO{
		ID:             lead.ID,
		UUID:           lead.UUID.String(),
		Name:           lead.Name,
		Email:          lead.Email,
		Phone:          lead.Phone,
		Company:        lead.Company,
		Source:         lead.Source,
		CurrentFunnel:  lead.CurrentFunnel.String(),
		CurrentStageID: lead.CurrentStageID,
		Status:         lead.Status.String(),
		DealValue:      lead.DealValue,
		LastResponseAt: lastResponse,
		BrandID:        lead.BrandID,
		FunnelID:       lead.FunnelID,
		Notes:          lead.Notes,
		CreatedAt:      lead.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      lead.UpdatedAt.Format(time.RFC3339),
	}
}

func ToStageHistoryDTO(entry models.StageHistory) dto.StageHistoryDTO {
	var fromFunnel *string
	if entry.FromFunnel != nil {
		fromFunnel = utils.ToPtr(entry.FromFunnel.String())
	}
	return dto.StageHistoryDTO{
		ID:          entry.ID,
		LeadID:      entry.LeadID,
		FromStageID: entry.FromStageID,
		ToStageID:   entry.ToStageID,
		FromFunnel:  fromFunnel,
		ToFunnel:    entry.ToFunnel.String(),
		Reason:      entry.Reason,
		Notes:       entry.Notes,
		Actor:       entry.Actor,
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
}

func ToActivityDTO(activity models.Activity) dto.ActivityDTO {
	return dto.ActivityDTO{
		ID:           activity.ID,
		LeadID:       activity.LeadID,
		ActivityType: activity.ActivityType,
		Content:      activity.Content,
		Actor:        activity.Actor,
		CreatedAt:    activity.CreatedAt.Format(time.RFC3339),
	}
}

func ToCustomLabelDTO(label models.CustomLabel) dto.CustomLabelDTO {
	return dto.CustomLabelDTO{
		ID:       label.ID,
		Name:     label.Name,
		Color:    label.Color,
		FunnelID: label.FunnelID,
	}
}

func ToScriptTemplateDTO(script models.ScriptTemplate) dto.ScriptTemplateDTO {
	return dto.ScriptTemplateDTO{
		ID:         script.ID,
		Title:      script.Title,
		Body:       script.Body,
		FunnelType: script.FunnelType.String(),
		FunnelID:   script.FunnelID,
		StageID:    script.StageID,
	}
}
