// Package businessflow contains the core business logic and use cases for custom labels
package businessflow

import (
	"context"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

const defaultLabelColor = "#808080"

// LabelFlow defines operations for custom labels and their lead attachments
type LabelFlow interface {
	CreateLabel(ctx context.Context, req *dto.CreateLabelRequest, metadata *ClientMetadata) (*dto.CreateLabelResponse, error)
	ListLabels(ctx context.Context, funnelID *uint, metadata *ClientMetadata) (*dto.ListLabelsResponse, error)
	UpdateLabel(ctx context.Context, req *dto.UpdateLabelRequest, metadata *ClientMetadata) (*dto.UpdateLabelResponse, error)
	DeleteLabel(ctx context.Context, req *dto.DeleteLabelRequest, metadata *ClientMetadata) (*dto.DeleteLabelResponse, error)
	AttachLabel(ctx context.Context, req *dto.AttachLabelRequest, metadata *ClientMetadata) (*dto.AttachLabelResponse, error)
	DetachLabel(ctx context.Context, req *dto.DetachLabelRequest, metadata *ClientMetadata) (*dto.DetachLabelResponse, error)
	ListLeadLabels(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.ListLabelsResponse, error)
}

// LabelFlowImpl implements LabelFlow
type LabelFlowImpl struct {
	labelRepo  repository.CustomLabelRepository
	leadRepo   repository.LeadRepository
	funnelRepo repository.FunnelRepository
}

// NewLabelFlow constructs a LabelFlow
func NewLabelFlow(
	labelRepo repository.CustomLabelRepository,
	leadRepo repository.LeadRepository,
	funnelRepo repository.FunnelRepository,
) LabelFlow {
	return &LabelFlowImpl{
		labelRepo:  labelRepo,
		leadRepo:   leadRepo,
		funnelRepo: funnelRepo,
	}
}

func (f *LabelFlowImpl) getLabel(ctx context.Context, labelID uint) (*models.CustomLabel, error) {
	label, err := f.labelRepo.ByID(ctx, labelID)
	if err != nil {
		return nil, err
	}
	if label == nil {
		return nil, ErrLabelNotFound
	}
	return label, nil
}

// CreateLabel creates a global or funnel-scoped label
func (f *LabelFlowImpl) CreateLabel(ctx context.Context, req *dto.CreateLabelRequest, metadata *ClientMetadata) (*dto.CreateLabelResponse, error) {
	if req.FunnelID != nil {
		if _, err := getFunnel(ctx, f.funnelRepo, *req.FunnelID); err != nil {
			return nil, NewBusinessError("CREATE_LABEL_VALIDATION_FAILED", "Funnel not found", err)
		}
	}

	color := defaultLabelColor
	if req.Color != nil && *req.Color != "" {
		color = *req.Color
	}

	now := utils.UTCNow()
	label := &models.CustomLabel{
		Name:      req.Name,
		Color:     color,
		FunnelID:  req.FunnelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.labelRepo.Save(ctx, label); err != nil {
		return nil, NewBusinessError("CREATE_LABEL_FAILED", "Failed to create label", err)
	}

	return &dto.CreateLabelResponse{
		Message: "Label created successfully",
		Label:   ToCustomLabelDTO(*label),
	}, nil
}

// ListLabels lists labels, scoped to a funnel (plus globals) when given
func (f *LabelFlowImpl) ListLabels(ctx context.Context, funnelID *uint, metadata *ClientMetadata) (*dto.ListLabelsResponse, error) {
	var labels []*models.CustomLabel
	var err error
	if funnelID != nil {
		if _, err = getFunnel(ctx, f.funnelRepo, *funnelID); err != nil {
			return nil, NewBusinessError("LIST_LABELS_FAILED", "List labels failed", err)
		}
		labels, err = f.labelRepo.ListForFunnel(ctx, *funnelID)
	} else {
		labels, err = f.labelRepo.ByFilter(ctx, models.CustomLabelFilter{}, "name ASC", 0, 0)
	}
	if err != nil {
		return nil, NewBusinessError("LIST_LABELS_FAILED", "List labels failed", err)
	}

	items := make([]dto.CustomLabelDTO, 0, len(labels))
	for _, l := range labels {
		items = append(items, ToCustomLabelDTO(*l))
	}
	return &dto.ListLabelsResponse{
		Message: "Labels retrieved successfully",
		Items:   items,
	}, nil
}

// UpdateLabel updates a label's name or color
func (f *LabelFlowImpl) UpdateLabel(ctx context.Context, req *dto.UpdateLabelRequest, metadata *ClientMetadata) (*dto.UpdateLabelResponse, error) {
	label, err := f.getLabel(ctx, req.LabelID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_LABEL_FAILED", "Update label failed", err)
	}

	if req.Name != nil {
		label.Name = *req.Name
	}
	if req.Color != nil {
		label.Color = *req.Color
	}
	label.UpdatedAt = utils.UTCNow()

	if err := f.labelRepo.Update(ctx, label); err != nil {
		return nil, NewBusinessError("UPDATE_LABEL_FAILED", "Failed to update label", err)
	}

	return &dto.UpdateLabelResponse{
		Message: "Label updated successfully",
		Label:   ToCustomLabelDTO(*label),
	}, nil
}

// DeleteLabel removes a label and its attachments
func (f *LabelFlowImpl) DeleteLabel(ctx context.Context, req *dto.DeleteLabelRequest, metadata *ClientMetadata) (*dto.DeleteLabelResponse, error) {
	if _, err := f.getLabel(ctx, req.LabelID); err != nil {
		return nil, NewBusinessError("DELETE_LABEL_FAILED", "Delete label failed", err)
	}

	if err := f.labelRepo.Delete(ctx, req.LabelID); err != nil {
		return nil, NewBusinessError("DELETE_LABEL_FAILED", "Failed to delete label", err)
	}

	return &dto.DeleteLabelResponse{Message: "Label deleted successfully"}, nil
}

// AttachLabel attaches a label to a lead. Attaching twice is a no-op.
func (f *LabelFlowImpl) AttachLabel(ctx context.Context, req *dto.AttachLabelRequest, metadata *ClientMetadata) (*dto.AttachLabelResponse, error) {
	if _, err := getLead(ctx, f.leadRepo, req.LeadID); err != nil {
		return nil, NewBusinessError("ATTACH_LABEL_FAILED", "Attach label failed", err)
	}
	if _, err := f.getLabel(ctx, req.LabelID); err != nil {
		return nil, NewBusinessError("ATTACH_LABEL_FAILED", "Attach label failed", err)
	}

	if err := f.labelRepo.Attach(ctx, req.LeadID, req.LabelID); err != nil {
		return nil, NewBusinessError("ATTACH_LABEL_FAILED", "Failed to attach label", err)
	}

	return &dto.AttachLabelResponse{Message: "Label attached successfully"}, nil
}

// DetachLabel removes a label from a lead
func (f *LabelFlowImpl) DetachLabel(ctx context.Context, req *dto.DetachLabelRequest, metadata *ClientMetadata) (*dto.DetachLabelResponse, error) {
	if _, err := getLead(ctx, f.leadRepo, req.LeadID); err != nil {
		return nil, NewBusinessError("DETACH_LABEL_FAILED", "Detach label failed", err)
	}

	if err := f.labelRepo.Detach(ctx, req.LeadID, req.LabelID); err != nil {
		return nil, NewBusinessError("DETACH_LABEL_FAILED", "Failed to detach label", err)
	}

	return &dto.DetachLabelResponse{Message: "Label detached successfully"}, nil
}

// ListLeadLabels lists the labels attached to one lead
func (f *LabelFlowImpl) ListLeadLabels(ctx context.Context, leadID uint, metadata *ClientMetadata) (*dto.ListLabelsResponse, error) {
	if _, err := getLead(ctx, f.leadRepo, leadID); err != nil {
		return nil, NewBusinessError("LIST_LEAD_LABELS_FAILED", "List lead labels failed", err)
	}

	labels, err := f.labelRepo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LIST_LEAD_LABELS_FAILED", "List lead labels failed", err)
	}

	items := make([]dto.CustomLabelDTO, 0, len(labels))
	for _, l := range labels {
		items = append(items, ToCustomLabelDTO(*l))
	}
	return &dto.ListLabelsResponse{
		Message: "Labels retrieved successfully",
		Items:   items,
	}, nil
}
