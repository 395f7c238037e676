package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/app/middleware"
	businessflow "github.com/mkamali/leadfunnel/business_flow"
	"github.com/mkamali/leadfunnel/utils"
)

type LeadHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	UpdateLead(c fiber.Ctx) error
	DeleteLead(c fiber.Ctx) error
	MoveLead(c fiber.Ctx) error
	SweepStaleLeads(c fiber.Ctx) error
	ListHistory(c fiber.Ctx) error
}

type LeadHandler struct {
	flow      businessflow.LeadFlow
	validator *validator.Validate
}

func NewLeadHandler(flow businessflow.LeadFlow) *LeadHandler {
	return &LeadHandler{flow: flow, validator: validator.New()}
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *LeadHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateLead registers a new lead inside a funnel
// @Summary Create Lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body dto.CreateLeadRequest true "Create lead payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateLeadResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c fiber.Ctx) error {
	var req dto.CreateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.Actor = actorFromContext(c)
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.CreateLead(h.createRequestContext(c, "/api/v1/leads"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		if businessflow.IsStageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", "STAGE_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		log.Println("Create lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", "CREATE_LEAD_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Lead created successfully", res)
}

// GetLead retrieves one lead
// @Summary Get Lead
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetLeadResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetLeadRequest{LeadID: leadID}
	res, err := h.flow.GetLead(h.createRequestContext(c, "/api/v1/leads/:id"), req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		log.Println("Get lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve lead", "GET_LEAD_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", res)
}

// ListLeads lists leads, optionally narrowed to a brand or a funnel
// @Summary List Leads
// @Tags Leads
// @Produce json
// @Param brand_id query int false "Brand ID"
// @Param funnel_id query int false "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadsResponse}
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	brandID, err := parseOptionalUintQuery(c, "brand_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid brand ID", "VALIDATION_ERROR", nil)
	}
	funnelID, err := parseOptionalUintQuery(c, "funnel_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.ListLeadsRequest{BrandID: brandID, FunnelID: funnelID}
	res, err := h.flow.ListLeads(h.createRequestContext(c, "/api/v1/leads"), req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("List leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list leads", "LIST_LEADS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved successfully", res)
}

// UpdateLead updates one lead
// @Summary Update Lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.UpdateLeadRequest true "Update lead payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateLeadResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) UpdateLead(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	var req dto.UpdateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.LeadID = leadID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateLead(h.createRequestContext(c, "/api/v1/leads/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		log.Println("Update lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", "UPDATE_LEAD_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead updated successfully", res)
}

// DeleteLead removes a lead together with its history, activities and labels
// @Summary Delete Lead
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteLeadResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.DeleteLeadRequest{LeadID: leadID}
	res, err := h.flow.DeleteLead(h.createRequestContext(c, "/api/v1/leads/:id"), req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		log.Println("Delete lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", "DELETE_LEAD_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead deleted successfully", res)
}

// MoveLead moves a lead to another stage and appends a ledger entry
// @Summary Move Lead
// @Description Appends a transition ledger entry and updates the lead pointer atomically. Moving across funnel types switches the lead's funnel side.
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.MoveLeadRequest true "Move payload"
// @Success 200 {object} dto.APIResponse{data=dto.MoveLeadResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/move [post]
func (h *LeadHandler) MoveLead(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	var req dto.MoveLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.LeadID = leadID
	req.Actor = actorFromContext(c)
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.MoveToStage(h.createRequestContext(c, "/api/v1/leads/:id/move"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsTargetStageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Target stage not found", "TARGET_STAGE_NOT_FOUND", nil)
		}
		if businessflow.IsStaleStageState(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Stage no longer exists, please refresh and retry", "STALE_STAGE_STATE", nil)
		}
		if businessflow.IsLeadWithoutCurrentStage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Lead has no current stage", "LEAD_WITHOUT_CURRENT_STAGE", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		log.Println("Move lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to move lead", "MOVE_LEAD_FAILED", nil)
	}
	middleware.RecordLeadTransition(req.Reason)
	return h.SuccessResponse(c, fiber.StatusOK, "Lead moved successfully", res)
}

// SweepStaleLeads marks broadcast leads without recent responses as lost
// @Summary Sweep Stale Leads
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body dto.SweepStaleLeadsRequest false "Sweep options"
// @Success 200 {object} dto.APIResponse{data=dto.SweepStaleLeadsResponse}
// @Router /api/v1/leads/sweep-stale [post]
func (h *LeadHandler) SweepStaleLeads(c fiber.Ctx) error {
	var req dto.SweepStaleLeadsRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.Actor = actorFromContext(c)
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.SweepStaleBroadcast(h.createRequestContextWithTimeout(c, "/api/v1/leads/sweep-stale", 2*time.Minute), &req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Sweep stale leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to sweep stale leads", "SWEEP_STALE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ListHistory returns the transition ledger of one lead, oldest first
// @Summary List Lead History
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListStageHistoryResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/history [get]
func (h *LeadHandler) ListHistory(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ListHistory(h.createRequestContext(c, "/api/v1/leads/:id/history"), leadID, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		log.Println("List lead history failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list lead history", "LIST_HISTORY_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead history retrieved successfully", res)
}

func (h *LeadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *LeadHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
