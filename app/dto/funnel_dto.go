package dto

type FunnelDTO struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	BrandID     uint    `json:"brand_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty" validate:"omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

type CreateFunnelRequest struct {
	BrandID     uint    `json:"brand_id" validate:"required,min=1"`
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type CreateFunnelResponse struct {
	Message string    `json:"message"`
	Funnel  FunnelDTO `json:"funnel"`
}

type GetFunnelRequest struct {
	FunnelID uint `json:"-"`
}

type GetFunnelResponse struct {
	Message string    `json:"message"`
	Funnel  FunnelDTO `json:"funnel"`
}

type ListFunnelsRequest struct {
	BrandID uint `json:"-"`
}

type ListFunnelsResponse struct {
	Message string      `json:"message"`
	Items   []FunnelDTO `json:"items"`
}

type UpdateFunnelRequest struct {
	FunnelID    uint    `json:"-"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type UpdateFunnelResponse struct {
	Message string    `json:"message"`
	Funnel  FunnelDTO `json:"funnel"`
}

// DeleteFunnelRequest deactivates a funnel. With Hard set, the funnel and
// everything under it is removed permanently; Confirm must also be set.
type DeleteFunnelRequest struct {
	FunnelID uint `json:"-"`
	Hard     bool `json:"hard"`
	Confirm  bool `json:"confirm"`
}

type DeleteFunnelResponse struct {
	Message string `json:"message"`
}
