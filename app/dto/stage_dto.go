package dto

type StageDTO struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	FunnelType  string  `json:"funnel_type"`
	StageNumber int     `json:"stage_number"`
	FunnelID    *uint   `json:"funnel_id,omitempty" validate:"omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty"`
}

type CreateStageRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	FunnelType  string  `json:"funnel_type" validate:"required,oneof=follow_up broadcast"`
	StageNumber int     `json:"stage_number" validate:"required,min=1"`
	FunnelID    *uint   `json:"funnel_id,omitempty" validate:"omitempty,min=1"`
	Color       *string `json:"color,omitempty" validate:"omitempty,max=32"`
}

type CreateStageResponse struct {
	Message string   `json:"message"`
	Stage   StageDTO `json:"stage"`
}

type UpdateStageRequest struct {
	StageID     uint    `json:"-"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	StageNumber *int    `json:"stage_number,omitempty" validate:"omitempty,min=1"`
	Color       *string `json:"color,omitempty" validate:"omitempty,max=32"`
}

type UpdateStageResponse struct {
	Message string   `json:"message"`
	Stage   StageDTO `json:"stage"`
}

type DeleteStageRequest struct {
	StageID uint `json:"-"`
}

type DeleteStageResponse struct {
	Message string `json:"message"`
}

type ListStagesResponse struct {
	Message string     `json:"message"`
	Items   []StageDTO `json:"items"`
}

type GetStageCatalogRequest struct {
	FunnelID uint `json:"-"`
}

// GetStageCatalogResponse carries the resolved stage catalog of one funnel,
// one ordered sub-list per funnel type.
type GetStageCatalogResponse struct {
	Message   string     `json:"message"`
	FollowUp  []StageDTO `json:"follow_up"`
	Broadcast []StageDTO `json:"broadcast"`
}
