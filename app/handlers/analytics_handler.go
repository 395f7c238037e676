package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mkamali/leadfunnel/app/dto"
	businessflow "github.com/mkamali/leadfunnel/business_flow"
	"github.com/mkamali/leadfunnel/utils"
)

type AnalyticsHandlerInterface interface {
	GetDualFlow(c fiber.Ctx) error
	GetFollowUpFlow(c fiber.Ctx) error
	GetStageVelocity(c fiber.Ctx) error
	GetBottleneckWarnings(c fiber.Ctx) error
	GetBottleneckAnalytics(c fiber.Ctx) error
	GetHeatmap(c fiber.Ctx) error
	ExportDualFlow(c fiber.Ctx) error
}

type AnalyticsHandler struct {
	flow      businessflow.AnalyticsFlow
	validator *validator.Validate
}

func NewAnalyticsHandler(flow businessflow.AnalyticsFlow) *AnalyticsHandler {
	return &AnalyticsHandler{flow: flow, validator: validator.New()}
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// GetDualFlow computes the two-sided flow report of one funnel
// @Summary Get Dual Flow
// @Description Per-stage entered, progressed and dropped counts for both funnel sides, with funnel switch totals.
// @Tags Analytics
// @Produce json
// @Param id path int true "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetDualFlowResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels/{id}/analytics/dual-flow [get]
func (h *AnalyticsHandler) GetDualFlow(c fiber.Ctx) error {
	funnelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetDualFlowRequest{FunnelID: funnelID}
	res, err := h.flow.GetDualFlowByFunnel(h.createRequestContext(c, "/api/v1/funnels/:id/analytics/dual-flow"), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Get dual flow failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute dual flow", "GET_DUAL_FLOW_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Dual flow computed successfully", res)
}

// GetFollowUpFlow computes the global follow-up flow across all funnels
// @Summary Get Follow-Up Flow
// @Tags Analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.GetFollowUpFlowResponse}
// @Router /api/v1/analytics/followup-flow [get]
func (h *AnalyticsHandler) GetFollowUpFlow(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.GetFollowUpFunnelFlow(h.createRequestContext(c, "/api/v1/analytics/followup-flow"), metadata)
	if err != nil {
		log.Println("Get follow-up flow failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute follow-up flow", "GET_FOLLOWUP_FLOW_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Follow-up flow computed successfully", res)
}

// GetStageVelocity computes the average dwell time per stage
// @Summary Get Stage Velocity
// @Tags Analytics
// @Produce json
// @Param funnel_id query int false "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetStageVelocityResponse}
// @Router /api/v1/analytics/velocity [get]
func (h *AnalyticsHandler) GetStageVelocity(c fiber.Ctx) error {
	funnelID, err := parseOptionalUintQuery(c, "funnel_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetStageVelocityRequest{FunnelID: funnelID}
	res, err := h.flow.GetStageVelocity(h.createRequestContext(c, "/api/v1/analytics/velocity"), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Get stage velocity failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stage velocity", "GET_VELOCITY_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Stage velocity computed successfully", res)
}

// GetBottleneckWarnings flags stages whose dwell time exceeds the funnel mean
// @Summary Get Bottleneck Warnings
// @Tags Analytics
// @Produce json
// @Param funnel_id query int false "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetBottleneckWarningsResponse}
// @Router /api/v1/analytics/bottlenecks [get]
func (h *AnalyticsHandler) GetBottleneckWarnings(c fiber.Ctx) error {
	funnelID, err := parseOptionalUintQuery(c, "funnel_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetBottleneckWarningsRequest{FunnelID: funnelID}
	res, err := h.flow.GetBottleneckWarnings(h.createRequestContext(c, "/api/v1/analytics/bottlenecks"), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Get bottleneck warnings failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute bottleneck warnings", "GET_BOTTLENECKS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Bottleneck warnings computed successfully", res)
}

// GetBottleneckAnalytics reports dwell and occupancy per global template stage
// @Summary Get Bottleneck Analytics
// @Tags Analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.GetBottleneckAnalyticsResponse}
// @Router /api/v1/analytics/bottleneck-overview [get]
func (h *AnalyticsHandler) GetBottleneckAnalytics(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.GetBottleneckAnalytics(h.createRequestContext(c, "/api/v1/analytics/bottleneck-overview"), metadata)
	if err != nil {
		log.Println("Get bottleneck analytics failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute bottleneck analytics", "GET_BOTTLENECK_OVERVIEW_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Bottleneck analytics computed successfully", res)
}

// GetHeatmap builds a day-of-week by hour activity heatmap
// @Summary Get Heatmap
// @Tags Analytics
// @Produce json
// @Param target query string true "transitions or activities"
// @Param funnel_id query int false "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetHeatmapResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/analytics/heatmap [get]
func (h *AnalyticsHandler) GetHeatmap(c fiber.Ctx) error {
	funnelID, err := parseOptionalUintQuery(c, "funnel_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	req := &dto.GetHeatmapRequest{TargetType: c.Query("target"), FunnelID: funnelID}
	if err := h.validator.Struct(req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Target must be transitions or activities", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.GetHeatmapAnalytics(h.createRequestContext(c, "/api/v1/analytics/heatmap"), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidHeatmapTarget(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Target must be transitions or activities", "VALIDATION_ERROR", nil)
		}
		log.Println("Get heatmap failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute heatmap", "GET_HEATMAP_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Heatmap computed successfully", res)
}

// ExportDualFlow streams the dual flow report of one funnel as an XLSX workbook
// @Summary Export Dual Flow
// @Tags Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Funnel ID"
// @Success 200 {file} binary
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels/{id}/analytics/dual-flow/export [get]
func (h *AnalyticsHandler) ExportDualFlow(c fiber.Ctx) error {
	funnelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.ExportDualFlowRequest{FunnelID: funnelID}
	data, filename, err := h.flow.ExportDualFlowXLSX(h.createRequestContextWithTimeout(c, "/api/v1/funnels/:id/analytics/dual-flow/export", 2*time.Minute), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Export dual flow failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export dual flow", "EXPORT_DUAL_FLOW_FAILED", nil)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(data)
}

func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AnalyticsHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
