package dto

type LeadDTO struct {
	ID             uint     `json:"id"`
	UUID           string   `json:"uuid"`
	Name           string   `json:"name"`
	Email          *string  `json:"email,omitempty" validate:"omitempty"`
	Phone          *string  `json:"phone,omitempty" validate:"omitempty"`
	Company        *string  `json:"company,omitempty" validate:"omitempty"`
	Source         string   `json:"source"`
	CurrentFunnel  string   `json:"current_funnel"`
	CurrentStageID *uint    `json:"current_stage_id,omitempty" validate:"omitempty"`
	Status         string   `json:"status"`
	DealValue      *float64 `json:"deal_value,omitempty" validate:"omitempty"`
	LastResponseAt *string  `json:"last_response_at,omitempty" validate:"omitempty"`
	BrandID        uint     `json:"brand_id"`
	FunnelID       uint     `json:"funnel_id"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type CreateLeadRequest struct {
	BrandID        uint     `json:"brand_id" validate:"required,min=1"`
	FunnelID       uint     `json:"funnel_id" validate:"required,min=1"`
	Name           string   `json:"name" validate:"required,min=1,max=255"`
	Email          *string  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone          *string  `json:"phone,omitempty" validate:"omitempty,min=3,max=64"`
	Company        *string  `json:"company,omitempty" validate:"omitempty,max=255"`
	Source         string   `json:"source" validate:"required,min=1,max=255"`
	CurrentFunnel  string   `json:"current_funnel" validate:"required,oneof=follow_up broadcast"`
	CurrentStageID *uint    `json:"current_stage_id,omitempty" validate:"omitempty,min=1"`
	DealValue      *float64 `json:"deal_value,omitempty" validate:"omitempty,min=0"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Actor          string   `json:"-"`
}

type CreateLeadResponse struct {
	Message string  `json:"message"`
	Lead    LeadDTO `json:"lead"`
}

type GetLeadRequest struct {
	LeadID uint `json:"-"`
}

type GetLeadResponse struct {
	Message string  `json:"message"`
	Lead    LeadDTO `json:"lead"`
}

type ListLeadsRequest struct {
	BrandID  *uint `json:"-"`
	FunnelID *uint `json:"-"`
}

type ListLeadsResponse struct {
	Message string    `json:"message"`
	Items   []LeadDTO `json:"items"`
}

type UpdateLeadRequest struct {
	LeadID         uint     `json:"-"`
	Name           *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email          *string  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone          *string  `json:"phone,omitempty" validate:"omitempty,min=3,max=64"`
	Company        *string  `json:"company,omitempty" validate:"omitempty,max=255"`
	Source         *string  `json:"source,omitempty" validate:"omitempty,min=1,max=255"`
	Status         *string  `json:"status,omitempty" validate:"omitempty,oneof=active deal lost"`
	DealValue      *float64 `json:"deal_value,omitempty" validate:"omitempty,min=0"`
	LastResponseAt *string  `json:"last_response_at,omitempty" validate:"omitempty"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=10000"`
}

type UpdateLeadResponse struct {
	Message string  `json:"message"`
	Lead    LeadDTO `json:"lead"`
}

type DeleteLeadRequest struct {
	LeadID uint `json:"-"`
}

type DeleteLeadResponse struct {
	Message string `json:"message"`
}

type MoveLeadRequest struct {
	LeadID    uint    `json:"-"`
	ToStageID uint    `json:"to_stage_id" validate:"required,min=1"`
	Reason    string  `json:"reason" validate:"required,oneof=progression no_response responded manual_move stale_sweep"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Actor     string  `json:"-"`
}

type MoveLeadResponse struct {
	Message        string  `json:"message"`
	Lead           LeadDTO `json:"lead"`
	HistoryEntryID uint    `json:"history_entry_id"`
}

type SweepStaleLeadsRequest struct {
	FunnelID *uint  `json:"funnel_id,omitempty" validate:"omitempty,min=1"`
	Actor    string `json:"-"`
}

type SweepStaleLeadsResponse struct {
	Message    string `json:"message"`
	SweptCount int    `json:"swept_count"`
	LeadIDs    []uint `json:"lead_ids"`
}

type StageHistoryDTO struct {
	ID          uint    `json:"id"`
	LeadID      uint    `json:"lead_id"`
	FromStageID *uint   `json:"from_stage_id,omitempty" validate:"omitempty"`
	ToStageID   uint    `json:"to_stage_id"`
	FromFunnel  *string `json:"from_funnel,omitempty" validate:"omitempty"`
	ToFunnel    string  `json:"to_funnel"`
	Reason      string  `json:"reason"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty"`
	Actor       string  `json:"actor"`
	CreatedAt   string  `json:"created_at"`
}

type ListStageHistoryResponse struct {
	Message string            `json:"message"`
	Items   []StageHistoryDTO `json:"items"`
}
