// Package businessflow contains the core business logic and use cases for funnel analytics
package businessflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/xuri/excelize/v2"
)

// AnalyticsFlow defines the on-demand funnel analytics. Every report is
// recomputed from the current snapshot on each call; nothing is cached.
type AnalyticsFlow interface {
	GetDualFlowByFunnel(ctx context.Context, req *dto.GetDualFlowRequest, metadata *ClientMetadata) (*dto.GetDualFlowResponse, error)
	GetFollowUpFunnelFlow(ctx context.Context, metadata *ClientMetadata) (*dto.GetFollowUpFlowResponse, error)
	GetStageVelocity(ctx context.Context, req *dto.GetStageVelocityRequest, metadata *ClientMetadata) (*dto.GetStageVelocityResponse, error)
	GetBottleneckWarnings(ctx context.Context, req *dto.GetBottleneckWarningsRequest, metadata *ClientMetadata) (*dto.GetBottleneckWarningsResponse, error)
	GetBottleneckAnalytics(ctx context.Context, metadata *ClientMetadata) (*dto.GetBottleneckAnalyticsResponse, error)
	GetHeatmapAnalytics(ctx context.Context, req *dto.GetHeatmapRequest, metadata *ClientMetadata) (*dto.GetHeatmapResponse, error)
	ExportDualFlowXLSX(ctx context.Context, req *dto.ExportDualFlowRequest, metadata *ClientMetadata) ([]byte, string, error)
}

// AnalyticsFlowImpl implements AnalyticsFlow
type AnalyticsFlowImpl struct {
	leadRepo     repository.LeadRepository
	stageRepo    repository.StageRepository
	funnelRepo   repository.FunnelRepository
	historyRepo  repository.StageHistoryRepository
	activityRepo repository.ActivityRepository
}

// NewAnalyticsFlow constructs an AnalyticsFlow
func NewAnalyticsFlow(
	leadRepo repository.LeadRepository,
	stageRepo repository.StageRepository,
	funnelRepo repository.FunnelRepository,
	historyRepo repository.StageHistoryRepository,
	activityRepo repository.ActivityRepository,
) AnalyticsFlow {
	return &AnalyticsFlowImpl{
		leadRepo:     leadRepo,
		stageRepo:    stageRepo,
		funnelRepo:   funnelRepo,
		historyRepo:  historyRepo,
		activityRepo: activityRepo,
	}
}

// computeStageFlow builds the per-stage flow rows for an ordered stage list.
// entered is the union of leads whose ledger records an entry into the stage
// and leads currently sitting in it; progressed counts distinct leads that
// left. dropped = entered - progressed, so it can never go negative. Rates
// are percentages over entered, one decimal, zero when nothing entered.
func computeStageFlow(stages []*models.Stage, leads []*models.Lead, history []*models.StageHistory) []dto.StageFlowItem {
	enteredByStage := make(map[uint]map[uint]bool)
	progressedByStage := make(map[uint]map[uint]bool)
	switchedToBroadcast := make(map[uint]map[uint]bool)
	returnedToFollowUp := make(map[uint]map[uint]bool)

	mark := func(m map[uint]map[uint]bool, stageID, leadID uint) {
		if m[stageID] == nil {
			m[stageID] = make(map[uint]bool)
		}
		m[stageID][leadID] = true
	}

	for _, e := range history {
		mark(enteredByStage, e.ToStageID, e.LeadID)
		if e.FromStageID != nil {
			mark(progressedByStage, *e.FromStageID, e.LeadID)
			if e.IsFunnelSwitch() {
				if e.ToFunnel == models.FunnelTypeBroadcast {
					mark(switchedToBroadcast, *e.FromStageID, e.LeadID)
				} else {
					mark(returnedToFollowUp, *e.FromStageID, e.LeadID)
				}
			}
		}
	}

	currentByStage := make(map[uint]int)
	for _, l := range leads {
		if l.CurrentStageID != nil {
			currentByStage[*l.CurrentStageID]++
			mark(enteredByStage, *l.CurrentStageID, l.ID)
		}
	}

	items := make([]dto.StageFlowItem, 0, len(stages))
	for _, s := range stages {
		entered := len(enteredByStage[s.ID])
		progressed := len(progressedByStage[s.ID])
		dropped := entered - progressed
		if dropped < 0 {
			dropped = 0
		}

		var dropRate, conversionRate float64
		if entered > 0 {
			dropRate = utils.Round1(float64(dropped) / float64(entered) * 100)
			conversionRate = utils.Round1(float64(progressed) / float64(entered) * 100)
		}

		item := dto.StageFlowItem{
			StageID:        s.ID,
			StageName:      s.Name,
			StageNumber:    s.StageNumber,
			FunnelType:     s.FunnelType.String(),
			Entered:        entered,
			Progressed:     progressed,
			Dropped:        dropped,
			DropRate:       dropRate,
			ConversionRate: conversionRate,
			CurrentLeads:   currentByStage[s.ID],
		}
		if s.FunnelType == models.FunnelTypeFollowUp {
			item.LeadsSwitchedToBroadcast = len(switchedToBroadcast[s.ID])
		} else {
			item.LeadsReturnedToFollowUp = len(returnedToFollowUp[s.ID])
		}
		items = append(items, item)
	}
	return items
}

// computeSwitchTotals counts funnel-switch transition events. A lead that
// oscillates twice counts twice; totals are deliberately not deduplicated.
func computeSwitchTotals(history []*models.StageHistory) (toBroadcast, toFollowUp int) {
	for _, e := range history {
		if !e.IsFunnelSwitch() {
			continue
		}
		if e.ToFunnel == models.FunnelTypeBroadcast {
			toBroadcast++
		} else {
			toFollowUp++
		}
	}
	return toBroadcast, toFollowUp
}

// computeSummary rolls leads up by status and by active funnel side
func computeSummary(leads []*models.Lead) dto.FlowSummary {
	summary := dto.FlowSummary{TotalLeads: len(leads)}
	for _, l := range leads {
		switch l.Status {
		case models.LeadStatusDeal:
			summary.Won++
		case models.LeadStatusLost:
			summary.Lost++
		case models.LeadStatusActive:
			summary.Active++
			if l.CurrentFunnel == models.FunnelTypeBroadcast {
				summary.ActiveBroadcast++
			} else {
				summary.ActiveFollowUp++
			}
		}
	}
	return summary
}

// stageDwell is one per-stage velocity aggregate
type stageDwell struct {
	totalHours float64
	samples    int
}

// computeDwell collects, per stage, the hours between each lead's entry into
// the stage and that lead's next transition out. The initial placement uses
// the lead's created_at as entry time when no initial ledger row exists. A
// lead still sitting in a stage contributes no sample.
func computeDwell(leads []*models.Lead, history []*models.StageHistory) map[uint]*stageDwell {
	createdAt := make(map[uint]time.Time, len(leads))
	for _, l := range leads {
		createdAt[l.ID] = l.CreatedAt
	}

	byLead := make(map[uint][]*models.StageHistory)
	for _, e := range history {
		byLead[e.LeadID] = append(byLead[e.LeadID], e)
	}

	dwell := make(map[uint]*stageDwell)
	add := func(stageID uint, hours float64) {
		if hours < 0 {
			return
		}
		if dwell[stageID] == nil {
			dwell[stageID] = &stageDwell{}
		}
		dwell[stageID].totalHours += hours
		dwell[stageID].samples++
	}

	for leadID, entries := range byLead {
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
				return entries[i].CreatedAt.Before(entries[j].CreatedAt)
			}
			return entries[i].ID < entries[j].ID
		})

		first := entries[0]
		if first.FromStageID != nil {
			if created, ok := createdAt[leadID]; ok {
				add(*first.FromStageID, first.CreatedAt.Sub(created).Hours())
			}
		}
		for i := 0; i+1 < len(entries); i++ {
			add(entries[i].ToStageID, entries[i+1].CreatedAt.Sub(entries[i].CreatedAt).Hours())
		}
	}
	return dwell
}

// bottleneckSeverity flags a stage's average dwell against the fleet mean.
// Both comparisons are strict: exactly at the boundary is not flagged.
func bottleneckSeverity(avgHours, meanHours float64) string {
	if meanHours <= 0 {
		return ""
	}
	if avgHours > meanHours*utils.BottleneckHighFactor {
		return "high"
	}
	if avgHours > meanHours*utils.BottleneckWarnFactor {
		return "medium"
	}
	return ""
}

// meanOfAverages is the overall mean across stages that have samples
func meanOfAverages(dwell map[uint]*stageDwell) float64 {
	if len(dwell) == 0 {
		return 0
	}
	var sum float64
	for _, d := range dwell {
		sum += d.totalHours / float64(d.samples)
	}
	return sum / float64(len(dwell))
}

// GetDualFlowByFunnel builds the two-sided flow report of one funnel from its
// current leads and their full transition ledger
func (f *AnalyticsFlowImpl) GetDualFlowByFunnel(ctx context.Context, req *dto.GetDualFlowRequest, metadata *ClientMetadata) (*dto.GetDualFlowResponse, error) {
	var err error
	defer func() {
		if err != nil {
			err = NewBusinessError("GET_DUAL_FLOW_FAILED", "Get dual flow failed", err)
		}
	}()

	_, err = getFunnel(ctx, f.funnelRepo, req.FunnelID)
	if err != nil {
		return nil, err
	}

	leads, err := f.leadRepo.ListByFunnel(ctx, req.FunnelID)
	if err != nil {
		return nil, err
	}

	leadIDs := make([]uint, 0, len(leads))
	for _, l := range leads {
		leadIDs = append(leadIDs, l.ID)
	}
	history, err := f.historyRepo.ListByLeadIDs(ctx, leadIDs)
	if err != nil {
		return nil, err
	}

	stages, err := f.stageRepo.ListForFunnel(ctx, req.FunnelID)
	if err != nil {
		return nil, err
	}
	followUp, broadcast := ResolveCatalog(stages, req.FunnelID)

	toBroadcast, toFollowUp := computeSwitchTotals(history)

	return &dto.GetDualFlowResponse{
		Message:             "Dual flow retrieved successfully",
		FunnelID:            req.FunnelID,
		FollowUp:            computeStageFlow(followUp, leads, history),
		Broadcast:           computeStageFlow(broadcast, leads, history),
		SwitchesToBroadcast: toBroadcast,
		SwitchesToFollowUp:  toFollowUp,
		Summary:             computeSummary(leads),
	}, nil
}

// GetFollowUpFunnelFlow runs the per-stage computation over the global
// follow_up template stages and every lead in the system
func (f *AnalyticsFlowImpl) GetFollowUpFunnelFlow(ctx context.Context, metadata *ClientMetadata) (*dto.GetFollowUpFlowResponse, error) {
	var err error
	defer func() {
		if err != nil {
			err = NewBusinessError("GET_FOLLOWUP_FLOW_FAILED", "Get follow-up flow failed", err)
		}
	}()

	global, err := f.stageRepo.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}
	var stages []*models.Stage
	for _, s := range global {
		if s.FunnelType == models.FunnelTypeFollowUp {
			stages = append(stages, s)
		}
	}
	sort.Slice(stages, func(i, j int) bool {
		return stages[i].StageNumber < stages[j].StageNumber
	})

	leads, err := f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, err
	}
	history, err := f.historyRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.GetFollowUpFlowResponse{
		Message: "Follow-up flow retrieved successfully",
		Stages:  computeStageFlow(stages, leads, history),
		Summary: computeSummary(leads),
	}, nil
}

// scope fetches the stage, lead, and history sets for an optional funnel
func (f *AnalyticsFlowImpl) scope(ctx context.Context, funnelID *uint) ([]*models.Stage, []*models.Lead, []*models.StageHistory, error) {
	if funnelID != nil {
		if _, err := getFunnel(ctx, f.funnelRepo, *funnelID); err != nil {
			return nil, nil, nil, err
		}
		stages, err := f.stageRepo.ListForFunnel(ctx, *funnelID)
		if err != nil {
			return nil, nil, nil, err
		}
		followUp, broadcast := ResolveCatalog(stages, *funnelID)
		resolved := append(append([]*models.Stage{}, followUp...), broadcast...)

		leads, err := f.leadRepo.ListByFunnel(ctx, *funnelID)
		if err != nil {
			return nil, nil, nil, err
		}
		leadIDs := make([]uint, 0, len(leads))
		for _, l := range leads {
			leadIDs = append(leadIDs, l.ID)
		}
		history, err := f.historyRepo.ListByLeadIDs(ctx, leadIDs)
		if err != nil {
			return nil, nil, nil, err
		}
		return resolved, leads, history, nil
	}

	stages, err := f.stageRepo.ByFilter(ctx, models.StageFilter{}, "stage_number ASC", 0, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	leads, err := f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	history, err := f.historyRepo.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return stages, leads, history, nil
}

// GetStageVelocity reports the mean dwell hours per stage
func (f *AnalyticsFlowImpl) GetStageVelocity(ctx context.Context, req *dto.GetStageVelocityRequest, metadata *ClientMetadata) (*dto.GetStageVelocityResponse, error) {
	stages, leads, history, err := f.scope(ctx, req.FunnelID)
	if err != nil {
		return nil, NewBusinessError("GET_STAGE_VELOCITY_FAILED", "Get stage velocity failed", err)
	}

	dwell := computeDwell(leads, history)
	items := make([]dto.StageVelocityItem, 0, len(stages))
	for _, s := range stages {
		item := dto.StageVelocityItem{
			StageID:    s.ID,
			StageName:  s.Name,
			FunnelType: s.FunnelType.String(),
		}
		if d := dwell[s.ID]; d != nil {
			item.AverageHours = utils.Round1(d.totalHours / float64(d.samples))
			item.SampleCount = d.samples
		}
		items = append(items, item)
	}

	return &dto.GetStageVelocityResponse{
		Message: "Stage velocity retrieved successfully",
		Items:   items,
	}, nil
}

// GetBottleneckWarnings flags stages whose average dwell exceeds the fleet
// threshold, worst first
func (f *AnalyticsFlowImpl) GetBottleneckWarnings(ctx context.Context, req *dto.GetBottleneckWarningsRequest, metadata *ClientMetadata) (*dto.GetBottleneckWarningsResponse, error) {
	stages, leads, history, err := f.scope(ctx, req.FunnelID)
	if err != nil {
		return nil, NewBusinessError("GET_BOTTLENECK_WARNINGS_FAILED", "Get bottleneck warnings failed", err)
	}

	dwell := computeDwell(leads, history)
	mean := meanOfAverages(dwell)
	threshold := mean * utils.BottleneckWarnFactor

	var items []dto.BottleneckWarningItem
	for _, s := range stages {
		d := dwell[s.ID]
		if d == nil {
			continue
		}
		avg := d.totalHours / float64(d.samples)
		severity := bottleneckSeverity(avg, mean)
		if severity == "" {
			continue
		}
		items = append(items, dto.BottleneckWarningItem{
			StageID:        s.ID,
			StageName:      s.Name,
			FunnelType:     s.FunnelType.String(),
			AverageHours:   utils.Round1(avg),
			ThresholdHours: utils.Round1(threshold),
			Severity:       severity,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AverageHours > items[j].AverageHours })
	if items == nil {
		items = []dto.BottleneckWarningItem{}
	}

	return &dto.GetBottleneckWarningsResponse{
		Message:        "Bottleneck warnings retrieved successfully",
		MeanHours:      utils.Round1(mean),
		ThresholdHours: utils.Round1(threshold),
		Items:          items,
	}, nil
}

// GetBottleneckAnalytics is the landing-dashboard variant: one row per global
// template stage with occupancy, average dwell, and its severity flag
func (f *AnalyticsFlowImpl) GetBottleneckAnalytics(ctx context.Context, metadata *ClientMetadata) (*dto.GetBottleneckAnalyticsResponse, error) {
	var err error
	defer func() {
		if err != nil {
			err = NewBusinessError("GET_BOTTLENECK_ANALYTICS_FAILED", "Get bottleneck analytics failed", err)
		}
	}()

	stages, err := f.stageRepo.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, err
	}
	history, err := f.historyRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	currentByStage := make(map[uint]int)
	for _, l := range leads {
		if l.CurrentStageID != nil {
			currentByStage[*l.CurrentStageID]++
		}
	}

	dwell := computeDwell(leads, history)
	mean := meanOfAverages(dwell)

	items := make([]dto.BottleneckAnalyticsRow, 0, len(stages))
	for _, s := range stages {
		row := dto.BottleneckAnalyticsRow{
			StageID:      s.ID,
			StageName:    s.Name,
			StageNumber:  s.StageNumber,
			FunnelType:   s.FunnelType.String(),
			CurrentLeads: currentByStage[s.ID],
			Severity:     "none",
		}
		if d := dwell[s.ID]; d != nil {
			avg := d.totalHours / float64(d.samples)
			row.AverageDwellHours = utils.Round1(avg)
			if severity := bottleneckSeverity(avg, mean); severity != "" {
				row.Severity = severity
			}
		}
		items = append(items, row)
	}

	return &dto.GetBottleneckAnalyticsResponse{
		Message: "Bottleneck analytics retrieved successfully",
		Items:   items,
	}, nil
}

// GetHeatmapAnalytics buckets transitions or activities into a weekday-by-hour
// matrix. Buckets[0] is Sunday; hours are UTC.
func (f *AnalyticsFlowImpl) GetHeatmapAnalytics(ctx context.Context, req *dto.GetHeatmapRequest, metadata *ClientMetadata) (*dto.GetHeatmapResponse, error) {
	if req.TargetType != "transitions" && req.TargetType != "activities" {
		return nil, NewBusinessError("GET_HEATMAP_VALIDATION_FAILED", "Heatmap target must be transitions or activities", ErrInvalidHeatmapTarget)
	}

	var err error
	defer func() {
		if err != nil {
			err = NewBusinessError("GET_HEATMAP_FAILED", "Get heatmap failed", err)
		}
	}()

	var leadIDs []uint
	if req.FunnelID != nil {
		if _, err = getFunnel(ctx, f.funnelRepo, *req.FunnelID); err != nil {
			return nil, err
		}
		var leads []*models.Lead
		leads, err = f.leadRepo.ListByFunnel(ctx, *req.FunnelID)
		if err != nil {
			return nil, err
		}
		leadIDs = make([]uint, 0, len(leads))
		for _, l := range leads {
			leadIDs = append(leadIDs, l.ID)
		}
	}

	buckets := make([][]int, 7)
	for i := range buckets {
		buckets[i] = make([]int, 24)
	}
	bucket := func(t time.Time) {
		t = t.UTC()
		buckets[int(t.Weekday())][t.Hour()]++
	}

	if req.TargetType == "transitions" {
		var entries []*models.StageHistory
		if req.FunnelID != nil {
			entries, err = f.historyRepo.ListByLeadIDs(ctx, leadIDs)
		} else {
			entries, err = f.historyRepo.ListAll(ctx)
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			bucket(e.CreatedAt)
		}
	} else {
		var activities []*models.Activity
		if req.FunnelID != nil {
			activities, err = f.activityRepo.ListByLeadIDs(ctx, leadIDs)
		} else {
			activities, err = f.activityRepo.ByFilter(ctx, models.ActivityFilter{}, "id ASC", 0, 0)
		}
		if err != nil {
			return nil, err
		}
		for _, a := range activities {
			bucket(a.CreatedAt)
		}
	}

	return &dto.GetHeatmapResponse{
		Message:    "Heatmap retrieved successfully",
		TargetType: req.TargetType,
		Buckets:    buckets,
	}, nil
}

// ExportDualFlowXLSX renders the dual flow report of one funnel as a
// spreadsheet with one sheet per funnel side plus a summary sheet
func (f *AnalyticsFlowImpl) ExportDualFlowXLSX(ctx context.Context, req *dto.ExportDualFlowRequest, metadata *ClientMetadata) ([]byte, string, error) {
	flow, err := f.GetDualFlowByFunnel(ctx, &dto.GetDualFlowRequest{FunnelID: req.FunnelID}, metadata)
	if err != nil {
		return nil, "", err
	}

	file := excelize.NewFile()
	defer file.Close()

	writeSheet := func(sheet string, items []dto.StageFlowItem, switchHeader string, switched func(dto.StageFlowItem) int) error {
		header := []any{"Stage #", "Stage", "Entered", "Progressed", "Dropped", "Drop Rate %", "Conversion Rate %", "Current Leads", switchHeader}
		if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		for i, item := range items {
			row := []any{
				item.StageNumber,
				item.StageName,
				item.Entered,
				item.Progressed,
				item.Dropped,
				item.DropRate,
				item.ConversionRate,
				item.CurrentLeads,
				switched(item),
			}
			cell := fmt.Sprintf("A%d", i+2)
			if err := file.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
		return nil
	}

	if err := file.SetSheetName("Sheet1", "Follow-Up"); err != nil {
		return nil, "", NewBusinessError("EXPORT_DUAL_FLOW_FAILED", "Failed to export dual flow", err)
	}
	if _, err := file.NewSheet("Broadcast"); err != nil {
		return nil, "", NewBusinessError("EXPORT_DUAL_FLOW_FAILED", "Failed to export dual flow", err)
	}
	if _, err := file.NewSheet("Summary"); err != nil {
		return nil, "", NewBusinessError("EXPORT_DUAL_FLOW_FAILED", "Failed to export dual flow", err)
	}

	err = writeSheet("Follow-Up", flow.FollowUp, "Switched To Broadcast", func(i dto.StageFlowItem) int { return i.LeadsSwitchedToBroadcast })
	if err == nil {
		err = writeSheet("Broadcast", flow.Broadcast, "Returned To Follow-Up", func(i dto.StageFlowItem) int { return i.LeadsReturnedToFollowUp })
	}
	if err != nil {
		return nil, "", NewBusinessError("EXPORT_DUAL_FLOW_FAILED", "Failed to export dual flow", err)
	}

	summaryRows := [][]any{
		{"Total Leads", flow.Summary.TotalLeads},
		{"Won", flow.Summary.Won},
		{"Lost", flow.Summary.Lost},
		{"Active", flow.Summary.Active},
		{"Active Follow-Up", flow.Summary.ActiveFollowUp},
		{"Active Broadcast", flow.Summary.ActiveBroadcast},
		{"Switches To Broadcast", flow.SwitchesToBroadcast},
		{"Switches To Follow-Up", flow.SwitchesToFollowUp},
	}
	for i, row := range summaryRows {
		r := row
		if err := file.SetSheetRow("Summary", fmt.Sprintf("A%d", i+1), &r); err != nil {
			return nil, "", NewBusinessError("EXPORT_DUAL_FLOW_FAILED", "Failed to export dual flow", err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, "", NewBusinessError("EXPORT_DUAL_FLOW_FAILED", "Failed to export dual flow", err)
	}

	filename := fmt.Sprintf("funnel_%d_flow_report_%s.xlsx", req.FunnelID, utils.UTCNow().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
