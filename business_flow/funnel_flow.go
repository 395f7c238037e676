// Package businessflow contains the core business logic and use cases for funnel management
package businessflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

// FunnelFlow defines operations for funnels
type FunnelFlow interface {
	CreateFunnel(ctx context.Context, req *dto.CreateFunnelRequest, metadata *ClientMetadata) (*dto.CreateFunnelResponse, error)
	GetFunnel(ctx context.Context, req *dto.GetFunnelRequest, metadata *ClientMetadata) (*dto.GetFunnelResponse, error)
	ListFunnels(ctx context.Context, req *dto.ListFunnelsRequest, metadata *ClientMetadata) (*dto.ListFunnelsResponse, error)
	UpdateFunnel(ctx context.Context, req *dto.UpdateFunnelRequest, metadata *ClientMetadata) (*dto.UpdateFunnelResponse, error)
	DeleteFunnel(ctx context.Context, req *dto.DeleteFunnelRequest, metadata *ClientMetadata) (*dto.DeleteFunnelResponse, error)
}

// FunnelFlowImpl implements FunnelFlow
type FunnelFlowImpl struct {
	funnelRepo repository.FunnelRepository
	brandRepo  repository.BrandRepository
}

// NewFunnelFlow constructs a FunnelFlow
func NewFunnelFlow(
	funnelRepo repository.FunnelRepository,
	brandRepo repository.BrandRepository,
) FunnelFlow {
	return &FunnelFlowImpl{
		funnelRepo: funnelRepo,
		brandRepo:  brandRepo,
	}
}

// CreateFunnel creates a funnel under an existing brand
func (f *FunnelFlowImpl) CreateFunnel(ctx context.Context, req *dto.CreateFunnelRequest, metadata *ClientMetadata) (*dto.CreateFunnelResponse, error) {
	if _, err := getBrand(ctx, f.brandRepo, req.BrandID); err != nil {
		return nil, NewBusinessError("CREATE_FUNNEL_VALIDATION_FAILED", "Brand not found", err)
	}

	now := utils.UTCNow()
	funnel := &models.Funnel{
		UUID:        uuid.New(),
		BrandID:     req.BrandID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    utils.ToPtr(true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.funnelRepo.Save(ctx, funnel); err != nil {
		return nil, NewBusinessError("CREATE_FUNNEL_FAILED", "Failed to create funnel", err)
	}

	return &dto.CreateFunnelResponse{
		Message: "Funnel created successfully",
		Funnel:  ToFunnelDTO(*funnel),
	}, nil
}

// GetFunnel retrieves one funnel
func (f *FunnelFlowImpl) GetFunnel(ctx context.Context, req *dto.GetFunnelRequest, metadata *ClientMetadata) (*dto.GetFunnelResponse, error) {
	funnel, err := getFunnel(ctx, f.funnelRepo, req.FunnelID)
	if err != nil {
		return nil, NewBusinessError("GET_FUNNEL_FAILED", "Get funnel failed", err)
	}
	return &dto.GetFunnelResponse{
		Message: "Funnel retrieved successfully",
		Funnel:  ToFunnelDTO(*funnel),
	}, nil
}

// ListFunnels lists the funnels of one brand
func (f *FunnelFlowImpl) ListFunnels(ctx context.Context, req *dto.ListFunnelsRequest, metadata *ClientMetadata) (*dto.ListFunnelsResponse, error) {
	if _, err := getBrand(ctx, f.brandRepo, req.BrandID); err != nil {
		return nil, NewBusinessError("LIST_FUNNELS_FAILED", "List funnels failed", err)
	}

	funnels, err := f.funnelRepo.ListByBrand(ctx, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("LIST_FUNNELS_FAILED", "List funnels failed", err)
	}

	items := make([]dto.FunnelDTO, 0, len(funnels))
	for _, fn := range funnels {
		items = append(items, ToFunnelDTO(*fn))
	}
	return &dto.ListFunnelsResponse{
		Message: "Funnels retrieved successfully",
		Items:   items,
	}, nil
}

// UpdateFunnel updates the mutable fields of a funnel
func (f *FunnelFlowImpl) UpdateFunnel(ctx context.Context, req *dto.UpdateFunnelRequest, metadata *ClientMetadata) (*dto.UpdateFunnelResponse, error) {
	if req.Name == nil && req.Description == nil {
		return nil, NewBusinessError("UPDATE_FUNNEL_VALIDATION_FAILED", "At least one field must be provided for update", ErrFunnelUpdateFieldRequired)
	}

	funnel, err := getFunnel(ctx, f.funnelRepo, req.FunnelID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_FUNNEL_FAILED", "Update funnel failed", err)
	}

	if req.Name != nil {
		funnel.Name = *req.Name
	}
	if req.Description != nil {
		funnel.Description = req.Description
	}
	funnel.UpdatedAt = utils.UTCNow()

	if err := f.funnelRepo.Update(ctx, funnel); err != nil {
		return nil, NewBusinessError("UPDATE_FUNNEL_FAILED", "Failed to update funnel", err)
	}

	return &dto.UpdateFunnelResponse{
		Message: "Funnel updated successfully",
		Funnel:  ToFunnelDTO(*funnel),
	}, nil
}

// DeleteFunnel soft-deletes a funnel by default. With the hard flag and an
// explicit confirmation, the funnel and everything under it is removed
// permanently in one transaction.
func (f *FunnelFlowImpl) DeleteFunnel(ctx context.Context, req *dto.DeleteFunnelRequest, metadata *ClientMetadata) (*dto.DeleteFunnelResponse, error) {
	_, err := getFunnel(ctx, f.funnelRepo, req.FunnelID)
	if err != nil {
		return nil, NewBusinessError("DELETE_FUNNEL_FAILED", "Delete funnel failed", err)
	}

	if req.Hard {
		if !req.Confirm {
			return nil, NewBusinessError("DELETE_FUNNEL_VALIDATION_FAILED", "Hard delete requires explicit confirmation", ErrHardDeleteNotConfirmed)
		}
		if err := f.funnelRepo.HardDelete(ctx, req.FunnelID); err != nil {
			return nil, NewBusinessError("DELETE_FUNNEL_FAILED", "Failed to delete funnel", err)
		}
		return &dto.DeleteFunnelResponse{Message: "Funnel deleted permanently"}, nil
	}

	if err := f.funnelRepo.Deactivate(ctx, req.FunnelID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("DELETE_FUNNEL_FAILED", "Failed to delete funnel", err)
	}
	return &dto.DeleteFunnelResponse{Message: "Funnel deactivated successfully"}, nil
}
