package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/mkamali/leadfunnel/app/dto"
	businessflow "github.com/mkamali/leadfunnel/business_flow"
	"github.com/mkamali/leadfunnel/utils"
)

type LabelHandlerInterface interface {
	CreateLabel(c fiber.Ctx) error
	ListLabels(c fiber.Ctx) error
	UpdateLabel(c fiber.Ctx) error
	DeleteLabel(c fiber.Ctx) error
	AttachLabel(c fiber.Ctx) error
	DetachLabel(c fiber.Ctx) error
	ListLeadLabels(c fiber.Ctx) error
}

type LabelHandler struct {
	flow      businessflow.LabelFlow
	validator *validator.Validate
}

func NewLabelHandler(flow businessflow.LabelFlow) *LabelHandler {
	return &LabelHandler{flow: flow, validator: validator.New()}
}

func (h *LabelHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *LabelHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateLabel creates a custom label
// @Summary Create Label
// @Tags Labels
// @Accept json
// @Produce json
// @Param request body dto.CreateLabelRequest true "Create label payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateLabelResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/labels [post]
func (h *LabelHandler) CreateLabel(c fiber.Ctx) error {
	var req dto.CreateLabelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.CreateLabel(h.createRequestContext(c, "/api/v1/labels"), &req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Create label failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create label", "CREATE_LABEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Label created successfully", res)
}

// ListLabels lists labels, optionally narrowed to one funnel
// @Summary List Labels
// @Tags Labels
// @Produce json
// @Param funnel_id query int false "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListLabelsResponse}
// @Router /api/v1/labels [get]
func (h *LabelHandler) ListLabels(c fiber.Ctx) error {
	funnelID, err := parseOptionalUintQuery(c, "funnel_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ListLabels(h.createRequestContext(c, "/api/v1/labels"), funnelID, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("List labels failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list labels", "LIST_LABELS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Labels retrieved successfully", res)
}

// UpdateLabel updates one label
// @Summary Update Label
// @Tags Labels
// @Accept json
// @Produce json
// @Param id path int true "Label ID"
// @Param request body dto.UpdateLabelRequest true "Update label payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateLabelResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/labels/{id} [put]
func (h *LabelHandler) UpdateLabel(c fiber.Ctx) error {
	labelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid label ID", "VALIDATION_ERROR", nil)
	}
	var req dto.UpdateLabelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.LabelID = labelID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateLabel(h.createRequestContext(c, "/api/v1/labels/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsLabelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Label not found", "LABEL_NOT_FOUND", nil)
		}
		log.Println("Update label failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update label", "UPDATE_LABEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Label updated successfully", res)
}

// DeleteLabel deletes one label and its lead associations
// @Summary Delete Label
// @Tags Labels
// @Produce json
// @Param id path int true "Label ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteLabelResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/labels/{id} [delete]
func (h *LabelHandler) DeleteLabel(c fiber.Ctx) error {
	labelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid label ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.DeleteLabelRequest{LabelID: labelID}
	res, err := h.flow.DeleteLabel(h.createRequestContext(c, "/api/v1/labels/:id"), req, metadata)
	if err != nil {
		if businessflow.IsLabelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Label not found", "LABEL_NOT_FOUND", nil)
		}
		log.Println("Delete label failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete label", "DELETE_LABEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Label deleted successfully", res)
}

// AttachLabel attaches a label to a lead
// @Summary Attach Label
// @Tags Labels
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.AttachLabelRequest true "Attach payload"
// @Success 200 {object} dto.APIResponse{data=dto.AttachLabelResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/labels [post]
func (h *LabelHandler) AttachLabel(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	var req dto.AttachLabelRequest
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
	res, err := h.flow.AttachLabel(h.createRequestContext(c, "/api/v1/leads/:id/labels"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsLabelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Label not found", "LABEL_NOT_FOUND", nil)
		}
		log.Println("Attach label failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to attach label", "ATTACH_LABEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Label attached successfully", res)
}

// DetachLabel detaches a label from a lead
// @Summary Detach Label
// @Tags Labels
// @Produce json
// @Param id path int true "Lead ID"
// @Param labelId path int true "Label ID"
// @Success 200 {object} dto.APIResponse{data=dto.DetachLabelResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/labels/{labelId} [delete]
func (h *LabelHandler) DetachLabel(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	labelID, err := parseUintParam(c, "labelId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid label ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.DetachLabelRequest{LeadID: leadID, LabelID: labelID}
	res, err := h.flow.DetachLabel(h.createRequestContext(c, "/api/v1/leads/:id/labels/:labelId"), req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsLabelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Label not found", "LABEL_NOT_FOUND", nil)
		}
		log.Println("Detach label failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to detach label", "DETACH_LABEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Label detached successfully", res)
}

// ListLeadLabels lists the labels attached to one lead
// @Summary List Lead Labels
// @Tags Labels
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListLabelsResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/labels [get]
func (h *LabelHandler) ListLeadLabels(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ListLeadLabels(h.createRequestContext(c, "/api/v1/leads/:id/labels"), leadID, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		log.Println("List lead labels failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list lead labels", "LIST_LEAD_LABELS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead labels retrieved successfully", res)
}

func (h *LabelHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *LabelHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
