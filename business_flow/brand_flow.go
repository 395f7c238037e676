// Package businessflow contains the core business logic and use cases for brand management
package businessflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
)

// BrandFlow defines operations for brands
type BrandFlow interface {
	CreateBrand(ctx context.Context, req *dto.CreateBrandRequest, metadata *ClientMetadata) (*dto.CreateBrandResponse, error)
	GetBrand(ctx context.Context, req *dto.GetBrandRequest, metadata *ClientMetadata) (*dto.GetBrandResponse, error)
	ListBrands(ctx context.Context, req *dto.ListBrandsRequest, metadata *ClientMetadata) (*dto.ListBrandsResponse, error)
	UpdateBrand(ctx context.Context, req *dto.UpdateBrandRequest, metadata *ClientMetadata) (*dto.UpdateBrandResponse, error)
	DeleteBrand(ctx context.Context, req *dto.DeleteBrandRequest, metadata *ClientMetadata) (*dto.DeleteBrandResponse, error)
}

// BrandFlowImpl implements BrandFlow
type BrandFlowImpl struct {
	brandRepo repository.BrandRepository
}

// NewBrandFlow constructs a BrandFlow
func NewBrandFlow(brandRepo repository.BrandRepository) BrandFlow {
	return &BrandFlowImpl{brandRepo: brandRepo}
}

// getOwnedBrand loads a brand and checks tenant ownership
func (f *BrandFlowImpl) getOwnedBrand(ctx context.Context, tenantID string, brandID uint) (*models.Brand, error) {
	brand, err := getBrand(ctx, f.brandRepo, brandID)
	if err != nil {
		return nil, err
	}
	if brand.TenantID != tenantID {
		return nil, ErrBrandAccessDenied
	}
	return brand, nil
}

// CreateBrand creates a brand under the calling tenant
func (f *BrandFlowImpl) CreateBrand(ctx context.Context, req *dto.CreateBrandRequest, metadata *ClientMetadata) (*dto.CreateBrandResponse, error) {
	now := utils.UTCNow()
	brand := &models.Brand{
		UUID:        uuid.New(),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		IsActive:    utils.ToPtr(true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.brandRepo.Save(ctx, brand); err != nil {
		return nil, NewBusinessError("CREATE_BRAND_FAILED", "Failed to create brand", err)
	}

	return &dto.CreateBrandResponse{
		Message: "Brand created successfully",
		Brand:   ToBrandDTO(*brand),
	}, nil
}

// GetBrand retrieves one brand of the calling tenant
func (f *BrandFlowImpl) GetBrand(ctx context.Context, req *dto.GetBrandRequest, metadata *ClientMetadata) (*dto.GetBrandResponse, error) {
	brand, err := f.getOwnedBrand(ctx, req.TenantID, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("GET_BRAND_FAILED", "Get brand failed", err)
	}
	return &dto.GetBrandResponse{
		Message: "Brand retrieved successfully",
		Brand:   ToBrandDTO(*brand),
	}, nil
}

// ListBrands lists the active brands of the calling tenant
func (f *BrandFlowImpl) ListBrands(ctx context.Context, req *dto.ListBrandsRequest, metadata *ClientMetadata) (*dto.ListBrandsResponse, error) {
	brands, err := f.brandRepo.ListByTenant(ctx, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("LIST_BRANDS_FAILED", "List brands failed", err)
	}

	items := make([]dto.BrandDTO, 0, len(brands))
	for _, b := range brands {
		items = append(items, ToBrandDTO(*b))
	}
	return &dto.ListBrandsResponse{
		Message: "Brands retrieved successfully",
		Items:   items,
	}, nil
}

// UpdateBrand updates the mutable fields of a brand
func (f *BrandFlowImpl) UpdateBrand(ctx context.Context, req *dto.UpdateBrandRequest, metadata *ClientMetadata) (*dto.UpdateBrandResponse, error) {
	brand, err := f.getOwnedBrand(ctx, req.TenantID, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_BRAND_FAILED", "Update brand failed", err)
	}

	if req.Name != nil {
		brand.Name = *req.Name
	}
	if req.Description != nil {
		brand.Description = req.Description
	}
	if req.LogoURL != nil {
		brand.LogoURL = req.LogoURL
	}
	brand.UpdatedAt = utils.UTCNow()

	if err := f.brandRepo.Update(ctx, brand); err != nil {
		return nil, NewBusinessError("UPDATE_BRAND_FAILED", "Failed to update brand", err)
	}

	return &dto.UpdateBrandResponse{
		Message: "Brand updated successfully",
		Brand:   ToBrandDTO(*brand),
	}, nil
}

// DeleteBrand soft-deletes a brand by flipping its active flag. Funnels and
// leads under it persist for reporting.
func (f *BrandFlowImpl) DeleteBrand(ctx context.Context, req *dto.DeleteBrandRequest, metadata *ClientMetadata) (*dto.DeleteBrandResponse, error) {
	_, err := f.getOwnedBrand(ctx, req.TenantID, req.BrandID)
	if err != nil {
		return nil, NewBusinessError("DELETE_BRAND_FAILED", "Delete brand failed", err)
	}

	if err := f.brandRepo.Deactivate(ctx, req.BrandID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("DELETE_BRAND_FAILED", "Failed to delete brand", err)
	}

	return &dto.DeleteBrandResponse{Message: "Brand deactivated successfully"}, nil
}
