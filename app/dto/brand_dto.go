package dto

type BrandDTO struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty" validate:"omitempty"`
	LogoURL     *string `json:"logo_url,omitempty" validate:"omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

type CreateBrandRequest struct {
	TenantID    string  `json:"-"`
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	LogoURL     *string `json:"logo_url,omitempty" validate:"omitempty,url,max=512"`
}

type CreateBrandResponse struct {
	Message string   `json:"message"`
	Brand   BrandDTO `json:"brand"`
}

type GetBrandRequest struct {
	TenantID string `json:"-"`
	BrandID  uint   `json:"-"`
}

type GetBrandResponse struct {
	Message string   `json:"message"`
	Brand   BrandDTO `json:"brand"`
}

type ListBrandsRequest struct {
	TenantID string `json:"-"`
}

type ListBrandsResponse struct {
	Message string     `json:"message"`
	Items   []BrandDTO `json:"items"`
}

type UpdateBrandRequest struct {
	TenantID    string  `json:"-"`
	BrandID     uint    `json:"-"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	LogoURL     *string `json:"logo_url,omitempty" validate:"omitempty,url,max=512"`
}

type UpdateBrandResponse struct {
	Message string   `json:"message"`
	Brand   BrandDTO `json:"brand"`
}

type DeleteBrandRequest struct {
	TenantID string `json:"-"`
	BrandID  uint   `json:"-"`
}

type DeleteBrandResponse struct {
	Message string `json:"message"`
}
