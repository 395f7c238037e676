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

type ActivityHandlerInterface interface {
	CreateActivity(c fiber.Ctx) error
	ListActivities(c fiber.Ctx) error
}

type ActivityHandler struct {
	flow      businessflow.ActivityFlow
	validator *validator.Validate
}

func NewActivityHandler(flow businessflow.ActivityFlow) *ActivityHandler {
	return &ActivityHandler{flow: flow, validator: validator.New()}
}

func (h *ActivityHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *ActivityHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateActivity records a touchpoint on a lead
// @Summary Create Activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.CreateActivityRequest true "Create activity payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateActivityResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/activities [post]
func (h *ActivityHandler) CreateActivity(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	var req dto.CreateActivityRequest
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
	res, err := h.flow.CreateActivity(h.createRequestContext(c, "/api/v1/leads/:id/activities"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		log.Println("Create activity failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create activity", "CREATE_ACTIVITY_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Activity recorded successfully", res)
}

// ListActivities lists the activities of one lead, newest first
// @Summary List Activities
// @Tags Activities
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListActivitiesResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id}/activities [get]
func (h *ActivityHandler) ListActivities(c fiber.Ctx) error {
	leadID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ListByLead(h.createRequestContext(c, "/api/v1/leads/:id/activities"), leadID, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		log.Println("List activities failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list activities", "LIST_ACTIVITIES_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Activities retrieved successfully", res)
}

func (h *ActivityHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *ActivityHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
