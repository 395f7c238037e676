// Package businessflow contains the core business logic and use cases for lead management
package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/app/services"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

// LeadFlow defines operations for leads and their stage transitions
type LeadFlow interface {
	CreateLead(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.CreateLeadResponse, error)
	GetLead(ctx context.Context, req *dto.GetLeadRequest, metadata *ClientMetadata) (*dto.GetLeadResponse, error)
	ListLeads(ctx context.Context, req *dto.ListLeadsRequest, metadata *ClientMetadata) (*dto.ListLeadsResponse, error)
	UpdateLead(ctx context.Context, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.UpdateLeadResponse, error)
	DeleteLead(ctx context.Context, req *dto.DeleteLeadRequest, metadata *ClientMetadata) (*dto.DeleteLeadResponse, error)
	MoveToStage(ctx context.Context, req *dto.MoveLeadRequest, metadata *ClientMetadata) (*dto.MoveLeadResponse, error)
	SweepStaleBroadcast(ctx context.Context, req *dto.SweepStaleLeadsRequest, metadata *ClientMetadata) (*dto.SweepStaleLeadsResponse, error)
	ListHistory(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.ListStageHistoryResponse, error)
}

// LeadFlowImpl implements LeadFlow
type LeadFlowImpl struct {
	leadRepo     repository.LeadRepository
	stageRepo    repository.StageRepository
	funnelRepo   repository.FunnelRepository
	brandRepo    repository.BrandRepository
	historyRepo  repository.StageHistoryRepository
	activityRepo repository.ActivityRepository
	txRunner     repository.TxRunner
	publisher    services.EventPublisher
	staleAfter   time.Duration
}

// NewLeadFlow constructs a LeadFlow
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	stageRepo repository.StageRepository,
	funnelRepo repository.FunnelRepository,
	brandRepo repository.BrandRepository,
	historyRepo repository.StageHistoryRepository,
	activityRepo repository.ActivityRepository,
	txRunner repository.TxRunner,
	publisher services.EventPublisher,
	staleAfter time.Duration,
) LeadFlow {
	if publisher == nil {
		publisher = services.NopEventPublisher{}
	}
	if staleAfter <= 0 {
		staleAfter = utils.StaleLeadThreshold
	}
	return &LeadFlowImpl{
		leadRepo:     leadRepo,
		stageRepo:    stageRepo,
		funnelRepo:   funnelRepo,
		brandRepo:    brandRepo,
		historyRepo:  historyRepo,
		activityRepo: activityRepo,
		txRunner:     txRunner,
		publisher:    publisher,
		staleAfter:   staleAfter,
	}
}

func validMoveReason(reason string) bool {
	switch reason {
	case models.TransitionReasonProgression,
		models.TransitionReasonNoResponse,
		models.TransitionReasonResponded,
		models.TransitionReasonManualMove,
		models.TransitionReasonStaleSweep:
		return true
	default:
		return false
	}
}

func hasContact(email, phone *string) bool {
	if email != nil && *email != "" {
		return true
	}
	if phone != nil && *phone != "" {
		return true
	}
	return false
}

// CreateLead validates the lead and persists it. When the lead lands on a
// stage, the initial ledger entry (nil from-stage) is written in the same
// transaction. All validation happens before any write.
func (f *LeadFlowImpl) CreateLead(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.CreateLeadResponse, error) {
	if !hasContact(req.Email, req.Phone) {
		return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "At least one of email or phone is required", ErrLeadContactRequired)
	}
	if req.Source == "" {
		return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Lead source is required", ErrLeadSourceRequired)
	}
	currentFunnel := models.FunnelType(req.CurrentFunnel)
	if !currentFunnel.Valid() {
		return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Funnel type must be follow_up or broadcast", ErrInvalidFunnelType)
	}

	if _, err := getBrand(ctx, f.brandRepo, req.BrandID); err != nil {
		return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Brand not found", err)
	}
	if _, err := getFunnel(ctx, f.funnelRepo, req.FunnelID); err != nil {
		return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Funnel not found", err)
	}

	stageID := req.CurrentStageID
	if stageID != nil {
		stage, err := getStage(ctx, f.stageRepo, *stageID)
		if err != nil {
			return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Stage not found", err)
		}
		if stage.FunnelID != nil && *stage.FunnelID != req.FunnelID {
			return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Stage does not belong to the lead's funnel", ErrLeadStageOutOfFunnel)
		}
		if stage.FunnelType != currentFunnel {
			return nil, NewBusinessError("CREATE_LEAD_VALIDATION_FAILED", "Stage does not belong to the lead's funnel", ErrLeadStageOutOfFunnel)
		}
	} else {
		// default to the first stage of the resolved catalog, when one exists
		stages, err := f.stageRepo.ListForFunnel(ctx, req.FunnelID)
		if err != nil {
			return nil, NewBusinessError("CREATE_LEAD_FAILED", "Failed to create lead", err)
		}
		followUp, broadcast := ResolveCatalog(stages, req.FunnelID)
		catalog := followUp
		if currentFunnel == models.FunnelTypeBroadcast {
			catalog = broadcast
		}
		if len(catalog) > 0 {
			stageID = &catalog[0].ID
		}
	}

	now := utils.UTCNow()
	lead := &models.Lead{
		UUID:           uuid.New(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
		Source:         req.Source,
		CurrentFunnel:  currentFunnel,
		CurrentStageID: stageID,
		Status:         models.LeadStatusActive,
		DealValue:      req.DealValue,
		BrandID:        req.BrandID,
		FunnelID:       req.FunnelID,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := f.txRunner.WithTx(ctx, func(txCtx context.Context) error {
		if err := f.leadRepo.Save(txCtx, lead); err != nil {
			return err
		}
		if lead.CurrentStageID != nil {
			entry := &models.StageHistory{
				LeadID:    lead.ID,
				ToStageID: *lead.CurrentStageID,
				ToFunnel:  lead.CurrentFunnel,
				Reason:    models.TransitionReasonProgression,
				Actor:     req.Actor,
				CreatedAt: now,
			}
			if err := f.historyRepo.Save(txCtx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CREATE_LEAD_FAILED", "Failed to create lead", err)
	}

	return &dto.CreateLeadResponse{
		Message: "Lead created successfully",
		Lead:    ToLeadDTO(*lead),
	}, nil
}

// GetLead retrieves one lead
func (f *LeadFlowImpl) GetLead(ctx context.Context, req *dto.GetLeadRequest, metadata *ClientMetadata) (*dto.GetLeadResponse, error) {
	lead, err := getLead(ctx, f.leadRepo, req.LeadID)
	if err != nil {
		return nil, NewBusinessError("GET_LEAD_FAILED", "Get lead failed", err)
	}
	return &dto.GetLeadResponse{
		Message: "Lead retrieved successfully",
		Lead:    ToLeadDTO(*lead),
	}, nil
}

// ListLeads lists leads, optionally narrowed to a funnel or brand
func (f *LeadFlowImpl) ListLeads(ctx context.Context, req *dto.ListLeadsRequest, metadata *ClientMetadata) (*dto.ListLeadsResponse, error) {
	var leads []*models.Lead
	var err error
	switch {
	case req.FunnelID != nil:
		leads, err = f.leadRepo.ListByFunnel(ctx, *req.FunnelID)
	case req.BrandID != nil:
		leads, err = f.leadRepo.ListByBrand(ctx, *req.BrandID)
	default:
		leads, err = f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "created_at DESC", 0, 0)
	}
	if err != nil {
		return nil, NewBusinessError("LIST_LEADS_FAILED", "List leads failed", err)
	}

	items := make([]dto.LeadDTO, 0, len(leads))
	for _, l := range leads {
		items = append(items, ToLeadDTO(*l))
	}
	return &dto.ListLeadsResponse{
		Message: "Leads retrieved successfully",
		Items:   items,
	}, nil
}

// UpdateLead updates the mutable fields of a lead
func (f *LeadFlowImpl) UpdateLead(ctx context.Context, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.UpdateLeadResponse, error) {
	if req.Name == nil && req.Email == nil && req.Phone == nil && req.Company == nil &&
		req.Source == nil && req.Status == nil && req.DealValue == nil &&
		req.LastResponseAt == nil && req.Notes == nil {
		return nil, NewBusinessError("UPDATE_LEAD_VALIDATION_FAILED", "At least one field must be provided for update", ErrLeadUpdateRequired)
	}

	lead, err := getLead(ctx, f.leadRepo, req.LeadID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_LEAD_FAILED", "Update lead failed", err)
	}

	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.Email != nil {
		lead.Email = req.Email
	}
	if req.Phone != nil {
		lead.Phone = req.Phone
	}
	if !hasContact(lead.Email, lead.Phone) {
		return nil, NewBusinessError("UPDATE_LEAD_VALIDATION_FAILED", "At least one of email or phone is required", ErrLeadContactRequired)
	}
	if req.Company != nil {
		lead.Company = req.Company
	}
	if req.Source != nil {
		if *req.Source == "" {
			return nil, NewBusinessError("UPDATE_LEAD_VALIDATION_FAILED", "Lead source is required", ErrLeadSourceRequired)
		}
		lead.Source = *req.Source
	}
	if req.Status != nil {
		status := models.LeadStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("UPDATE_LEAD_VALIDATION_FAILED", "Status must be active, deal, or lost", ErrInvalidLeadStatus)
		}
		lead.Status = status
	}
	if req.DealValue != nil {
		lead.DealValue = req.DealValue
	}
	if req.LastResponseAt != nil {
		t, err := time.Parse(time.RFC3339, *req.LastResponseAt)
		if err != nil {
			return nil, NewBusinessError("UPDATE_LEAD_VALIDATION_FAILED", "Last response time is not a valid RFC3339 timestamp", ErrInvalidResponseTime)
		}
		lead.LastResponseAt = utils.ToPtr(utils.TimeToUTC(t))
	}
	if req.Notes != nil {
		lead.Notes = req.Notes
	}
	lead.UpdatedAt = utils.UTCNow()

	if err := f.leadRepo.Update(ctx, lead); err != nil {
		return nil, NewBusinessError("UPDATE_LEAD_FAILED", "Failed to update lead", err)
	}

	return &dto.UpdateLeadResponse{
		Message: "Lead updated successfully",
		Lead:    ToLeadDTO(*lead),
	}, nil
}

// DeleteLead removes a lead and everything attached to it
func (f *LeadFlowImpl) DeleteLead(ctx context.Context, req *dto.DeleteLeadRequest, metadata *ClientMetadata) (*dto.DeleteLeadResponse, error) {
	_, err := getLead(ctx, f.leadRepo, req.LeadID)
	if err != nil {
		return nil, NewBusinessError("DELETE_LEAD_FAILED", "Delete lead failed", err)
	}

	if err := f.leadRepo.Delete(ctx, req.LeadID); err != nil {
		return nil, NewBusinessError("DELETE_LEAD_FAILED", "Failed to delete lead", err)
	}

	return &dto.DeleteLeadResponse{Message: "Lead deleted successfully"}, nil
}

// MoveToStage records one stage transition: the ledger entry and the lead's
// pointer update share one timestamp and commit in one transaction. A
// referential-integrity failure on the insert means the client moved against
// a stage that no longer exists and must refresh. There is no lead-level
// locking; concurrent moves race last-write-wins on the pointer while every
// ledger append survives.
func (f *LeadFlowImpl) MoveToStage(ctx context.Context, req *dto.MoveLeadRequest, metadata *ClientMetadata) (*dto.MoveLeadResponse, error) {
	if !validMoveReason(req.Reason) {
		return nil, NewBusinessError("MOVE_LEAD_VALIDATION_FAILED", "Invalid transition reason", ErrInvalidMoveReason)
	}

	lead, err := getLead(ctx, f.leadRepo, req.LeadID)
	if err != nil {
		return nil, NewBusinessError("MOVE_LEAD_FAILED", "Move lead failed", err)
	}
	if lead.CurrentStageID == nil {
		return nil, NewBusinessError("MOVE_LEAD_VALIDATION_FAILED", "Lead has no current stage", ErrLeadWithoutCurrentStage)
	}

	target, err := f.stageRepo.ByID(ctx, req.ToStageID)
	if err != nil {
		return nil, NewBusinessError("MOVE_LEAD_FAILED", "Move lead failed", err)
	}
	if target == nil {
		return nil, NewBusinessError("MOVE_LEAD_VALIDATION_FAILED", "Target stage not found", ErrTargetStageNotFound)
	}
	if target.FunnelID != nil && *target.FunnelID != lead.FunnelID {
		return nil, NewBusinessError("MOVE_LEAD_VALIDATION_FAILED", "Stage does not belong to the lead's funnel", ErrLeadStageOutOfFunnel)
	}

	current, err := f.stageRepo.ByID(ctx, *lead.CurrentStageID)
	if err != nil {
		return nil, NewBusinessError("MOVE_LEAD_FAILED", "Move lead failed", err)
	}
	if current == nil {
		return nil, NewBusinessError("MOVE_LEAD_STALE_STATE", "Stage no longer exists, please refresh and retry", ErrStaleStageState)
	}

	now := utils.UTCNow()
	fromFunnel := lead.CurrentFunnel
	entry := &models.StageHistory{
		LeadID:      lead.ID,
		FromStageID: lead.CurrentStageID,
		ToStageID:   target.ID,
		FromFunnel:  &fromFunnel,
		ToFunnel:    target.FunnelType,
		Reason:      req.Reason,
		Notes:       req.Notes,
		Actor:       req.Actor,
		CreatedAt:   now,
	}

	err = f.txRunner.WithTx(ctx, func(txCtx context.Context) error {
		if err := f.historyRepo.Save(txCtx, entry); err != nil {
			return err
		}
		return f.leadRepo.UpdateStagePointer(txCtx, lead.ID, target.ID, target.FunnelType, now)
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, NewBusinessError("MOVE_LEAD_STALE_STATE", "Stage no longer exists, please refresh and retry", ErrStaleStageState)
		}
		return nil, NewBusinessError("MOVE_LEAD_FAILED", "Failed to move lead", err)
	}

	lead.CurrentStageID = &target.ID
	lead.CurrentFunnel = target.FunnelType
	lead.UpdatedAt = now

	event := services.LeadMovedEvent{
		LeadID:      lead.ID,
		FromStageID: entry.FromStageID,
		ToStageID:   entry.ToStageID,
		FromFunnel:  utils.ToPtr(fromFunnel.String()),
		ToFunnel:    entry.ToFunnel.String(),
		Reason:      entry.Reason,
		Actor:       entry.Actor,
		OccurredAt:  now,
	}
	if err := f.publisher.PublishLeadMoved(ctx, event); err != nil {
		log.Printf("lead_moved publish failed for lead %d: %v", lead.ID, err)
	}

	return &dto.MoveLeadResponse{
		Message:        "Lead moved successfully",
		Lead:           ToLeadDTO(*lead),
		HistoryEntryID: entry.ID,
	}, nil
}

// SweepStaleBroadcast marks active broadcast leads without a response for the
// configured threshold as lost, one status-change activity per swept lead.
// Invoked by clients on demand; there is no scheduler.
func (f *LeadFlowImpl) SweepStaleBroadcast(ctx context.Context, req *dto.SweepStaleLeadsRequest, metadata *ClientMetadata) (*dto.SweepStaleLeadsResponse, error) {
	cutoff := utils.UTCNow().Add(-f.staleAfter)
	stale, err := f.leadRepo.ListStaleBroadcast(ctx, cutoff, req.FunnelID)
	if err != nil {
		return nil, NewBusinessError("SWEEP_STALE_LEADS_FAILED", "Sweep stale leads failed", err)
	}

	if len(stale) == 0 {
		return &dto.SweepStaleLeadsResponse{
			Message:    "No stale leads found",
			SweptCount: 0,
			LeadIDs:    []uint{},
		}, nil
	}

	now := utils.UTCNow()
	days := int(f.staleAfter.Hours() / 24)
	ids := make([]uint, 0, len(stale))
	err = f.txRunner.WithTx(ctx, func(txCtx context.Context) error {
		for _, lead := range stale {
			if err := f.leadRepo.UpdateStatus(txCtx, lead.ID, models.LeadStatusLost, now); err != nil {
				return err
			}
			activity := &models.Activity{
				LeadID:       lead.ID,
				ActivityType: models.ActivityTypeStatusChange,
				Content:      utils.ToPtr(fmt.Sprintf("Marked lost after %d days without response", days)),
				Actor:        req.Actor,
				CreatedAt:    now,
			}
			if err := f.activityRepo.Save(txCtx, activity); err != nil {
				return err
			}
			ids = append(ids, lead.ID)
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("SWEEP_STALE_LEADS_FAILED", "Failed to sweep stale leads", err)
	}

	return &dto.SweepStaleLeadsResponse{
		Message:    fmt.Sprintf("Swept %d stale leads", len(ids)),
		SweptCount: len(ids),
		LeadIDs:    ids,
	}, nil
}

// ListHistory returns the transition ledger of one lead, oldest first
func (f *LeadFlowImpl) ListHistory(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.ListStageHistoryResponse, error) {
	if _, err := getLead(ctx, f.leadRepo, leadID); err != nil {
		return nil, NewBusinessError("LIST_STAGE_HISTORY_FAILED", "List stage history failed", err)
	}

	entries, err := f.historyRepo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LIST_STAGE_HISTORY_FAILED", "List stage history failed", err)
	}

	items := make([]dto.StageHistoryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, ToStageHistoryDTO(*e))
	}
	return &dto.ListStageHistoryResponse{
		Message: "Stage history retrieved successfully",
		Items:   items,
	}, nil
}
