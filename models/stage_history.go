package models

import (
	"time"
)

// Transition reasons recorded in the stage history ledger
const (
	TransitionReasonProgression = "progression"
	TransitionReasonNoResponse  = "no_response"
	TransitionReasonResponded   = "responded"
	TransitionReasonManualMove  = "manual_move"
	TransitionReasonStaleSweep  = "stale_sweep"
)

// StageHistory is the append-only ledger of lead movements. One row is
// written per transition and is never mutated or deleted afterwards; flow
// metrics are reconstructed from this table, not from current lead state.
// FromStageID and FromFunnel are nil for the initial placement.
type StageHistory struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	LeadID      uint        `gorm:"not null;index:idx_stage_history_lead_id" json:"lead_id"`
	FromStageID *uint       `gorm:"index:idx_stage_history_from_stage_id" json:"from_stage_id,omitempty"`
	ToStageID   uint        `gorm:"not null;index:idx_stage_history_to_stage_id" json:"to_stage_id"`
	FromFunnel  *FunnelType `gorm:"size:32" json:"from_funnel,omitempty"`
	ToFunnel    FunnelType  `gorm:"size:32;not null;index:idx_stage_history_to_funnel" json:"to_funnel"`
	Reason      string      `gorm:"size:64;not null" json:"reason"`
	Notes       *string     `gorm:"type:text" json:"notes,omitempty"`
	Actor       string      `gorm:"size:255;not null" json:"actor"`
	CreatedAt   time.Time   `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_stage_history_created_at" json:"created_at"`

	Lead      *Lead  `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	ToStage   *Stage `gorm:"foreignKey:ToStageID" json:"to_stage,omitempty"`
	FromStage *Stage `gorm:"foreignKey:FromStageID" json:"from_stage,omitempty"`
}

func (StageHistory) TableName() string { return "stage_history" }

// IsFunnelSwitch reports whether the entry crossed funnel types
func (h *StageHistory) IsFunnelSwitch() bool {
	return h.FromFunnel != nil && *h.FromFunnel != h.ToFunnel
}

// StageHistoryFilter represents filter criteria for ledger queries
type StageHistoryFilter struct {
	ID            *uint
	LeadID        *uint
	FromStageID   *uint
	ToStageID     *uint
	FromFunnel    *FunnelType
	ToFunnel      *FunnelType
	Reason        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
