// Package businessflow contains the core business logic and use cases for lead activities
package businessflow

import (
	"context"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

// ActivityFlow defines operations for lead activities
type ActivityFlow interface {
	CreateActivity(ctx context.Context, req *dto.CreateActivityRequest, metadata *ClientMetadata) (*dto.CreateActivityResponse, error)
	ListByLead(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.ListActivitiesResponse, error)
}

// ActivityFlowImpl implements ActivityFlow
type ActivityFlowImpl struct {
	activityRepo repository.ActivityRepository
	leadRepo     repository.LeadRepository
}

// NewActivityFlow constructs an ActivityFlow
func NewActivityFlow(
	activityRepo repository.ActivityRepository,
	leadRepo repository.LeadRepository,
) ActivityFlow {
	return &ActivityFlowImpl{
		activityRepo: activityRepo,
		leadRepo:     leadRepo,
	}
}

func validActivityType(activityType string) bool {
	switch activityType {
	case models.ActivityTypeCall,
		models.ActivityTypeEmail,
		models.ActivityTypeMessage,
		models.ActivityTypeNote,
		models.ActivityTypeStatusChange:
		return true
	default:
		return false
	}
}

// CreateActivity records an interaction against a lead
func (f *ActivityFlowImpl) CreateActivity(ctx context.Context, req *dto.CreateActivityRequest, metadata *ClientMetadata) (*dto.CreateActivityResponse, error) {
	if !validActivityType(req.ActivityType) {
		return nil, NewBusinessError("CREATE_ACTIVITY_VALIDATION_FAILED", "Invalid activity type", ErrActivityTypeInvalid)
	}
	if _, err := getLead(ctx, f.leadRepo, req.LeadID); err != nil {
		return nil, NewBusinessError("CREATE_ACTIVITY_FAILED", "Create activity failed", err)
	}

	activity := &models.Activity{
		LeadID:       req.LeadID,
		ActivityType: req.ActivityType,
		Content:      req.Content,
		Actor:        req.Actor,
		CreatedAt:    utils.UTCNow(),
	}
	if err := f.activityRepo.Save(ctx, activity); err != nil {
		return nil, NewBusinessError("CREATE_ACTIVITY_FAILED", "Failed to create activity", err)
	}

	return &dto.CreateActivityResponse{
		Message:  "Activity created successfully",
		Activity: ToActivityDTO(*activity),
	}, nil
}

// ListByLead returns the activities of one lead, newest first
func (f *ActivityFlowImpl) ListByLead(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.ListActivitiesResponse, error) {
	if _, err := getLead(ctx, f.leadRepo, leadID); err != nil {
		return nil, NewBusinessError("LIST_ACTIVITIES_FAILED", "List activities failed", err)
	}

	activities, err := f.activityRepo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LIST_ACTIVITIES_FAILED", "List activities failed", err)
	}

	items := make([]dto.ActivityDTO, 0, len(activities))
	for _, a := range activities {
		items = append(items, ToActivityDTO(*a))
	}
	return &dto.ListActivitiesResponse{
		Message: "Activities retrieved successfully",
		Items:   items,
	}, nil
}
