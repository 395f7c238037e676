package dto

// StageFlowItem is the per-stage row of the flow reports. Rates are
// percentages rounded to one decimal; zero-entered stages report zero rates.
type StageFlowItem struct {
	StageID                  uint    `json:"stage_id"`
	StageName                string  `json:"stage_name"`
	StageNumber              int     `json:"stage_number"`
	FunnelType               string  `json:"funnel_type"`
	Entered                  int     `json:"entered"`
	Progressed               int     `json:"progressed"`
	Dropped                  int     `json:"dropped"`
	DropRate                 float64 `json:"drop_rate"`
	ConversionRate           float64 `json:"conversion_rate"`
	CurrentLeads             int     `json:"current_leads"`
	LeadsSwitchedToBroadcast int     `json:"leads_switched_to_broadcast,omitempty"`
	LeadsReturnedToFollowUp  int     `json:"leads_returned_to_followup,omitempty"`
}

// FlowSummary is the lead rollup attached to flow reports.
type FlowSummary struct {
	TotalLeads      int `json:"total_leads"`
	Won             int `json:"won"`
	Lost            int `json:"lost"`
	Active          int `json:"active"`
	ActiveFollowUp  int `json:"active_follow_up"`
	ActiveBroadcast int `json:"active_broadcast"`
}

type GetDualFlowRequest struct {
	FunnelID uint `json:"-"`
}

// GetDualFlowResponse is the two-sided flow report of one funnel. Switch
// totals count transition events, not distinct leads.
type GetDualFlowResponse struct {
	Message             string          `json:"message"`
	FunnelID            uint            `json:"funnel_id"`
	FollowUp            []StageFlowItem `json:"follow_up"`
	Broadcast           []StageFlowItem `json:"broadcast"`
	SwitchesToBroadcast int             `json:"switches_to_broadcast"`
	SwitchesToFollowUp  int             `json:"switches_to_followup"`
	Summary             FlowSummary     `json:"summary"`
}

// GetFollowUpFlowResponse is the cross-funnel dashboard over the global
// follow_up template stages and every lead in the system.
type GetFollowUpFlowResponse struct {
	Message string          `json:"message"`
	Stages  []StageFlowItem `json:"stages"`
	Summary FlowSummary     `json:"summary"`
}

type StageVelocityItem struct {
	StageID      uint    `json:"stage_id"`
	StageName    string  `json:"stage_name"`
	FunnelType   string  `json:"funnel_type"`
	AverageHours float64 `json:"average_hours"`
	SampleCount  int     `json:"sample_count"`
}

type GetStageVelocityRequest struct {
	FunnelID *uint `json:"-"`
}

type GetStageVelocityResponse struct {
	Message string              `json:"message"`
	Items   []StageVelocityItem `json:"items"`
}

type BottleneckWarningItem struct {
	StageID        uint    `json:"stage_id"`
	StageName      string  `json:"stage_name"`
	FunnelType     string  `json:"funnel_type"`
	AverageHours   float64 `json:"average_hours"`
	ThresholdHours float64 `json:"threshold_hours"`
	Severity       string  `json:"severity"`
}

type GetBottleneckWarningsRequest struct {
	FunnelID *uint `json:"-"`
}

type GetBottleneckWarningsResponse struct {
	Message        string                  `json:"message"`
	MeanHours      float64                 `json:"mean_hours"`
	ThresholdHours float64                 `json:"threshold_hours"`
	Items          []BottleneckWarningItem `json:"items"`
}

// BottleneckAnalyticsRow is the landing-dashboard variant: one row per
// template stage with its current occupancy and dwell flag.
type BottleneckAnalyticsRow struct {
	StageID           uint    `json:"stage_id"`
	StageName         string  `json:"stage_name"`
	StageNumber       int     `json:"stage_number"`
	FunnelType        string  `json:"funnel_type"`
	CurrentLeads      int     `json:"current_leads"`
	AverageDwellHours float64 `json:"average_dwell_hours"`
	Severity          string  `json:"severity"`
}

type GetBottleneckAnalyticsResponse struct {
	Message string                   `json:"message"`
	Items   []BottleneckAnalyticsRow `json:"items"`
}

type GetHeatmapRequest struct {
	TargetType string `json:"-" validate:"required,oneof=transitions activities"`
	FunnelID   *uint  `json:"-"`
}

// GetHeatmapResponse buckets events into a 7x24 weekday-by-hour matrix.
// Buckets[0] is Sunday; hours are UTC.
type GetHeatmapResponse struct {
	Message    string  `json:"message"`
	TargetType string  `json:"target_type"`
	Buckets    [][]int `json:"buckets"`
}

type ExportDualFlowRequest struct {
	FunnelID uint `json:"-"`
}
