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

type FunnelHandlerInterface interface {
	CreateFunnel(c fiber.Ctx) error
	GetFunnel(c fiber.Ctx) error
	ListFunnels(c fiber.Ctx) error
	UpdateFunnel(c fiber.Ctx) error
	DeleteFunnel(c fiber.Ctx) error
}

type FunnelHandler struct {
	flow      businessflow.FunnelFlow
	validator *validator.Validate
}

func NewFunnelHandler(flow businessflow.FunnelFlow) *FunnelHandler {
	return &FunnelHandler{flow: flow, validator: validator.New()}
}

func (h *FunnelHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *FunnelHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateFunnel creates a new funnel under a brand
// @Summary Create Funnel
// @Tags Funnels
// @Accept json
// @Produce json
// @Param request body dto.CreateFunnelRequest true "Create funnel payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateFunnelResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels [post]
func (h *FunnelHandler) CreateFunnel(c fiber.Ctx) error {
	var req dto.CreateFunnelRequest
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
	res, err := h.flow.CreateFunnel(h.createRequestContext(c, "/api/v1/funnels"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		log.Println("Create funnel failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create funnel", "CREATE_FUNNEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Funnel created successfully", res)
}

// GetFunnel retrieves one funnel
// @Summary Get Funnel
// @Tags Funnels
// @Produce json
// @Param id path int true "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetFunnelResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels/{id} [get]
func (h *FunnelHandler) GetFunnel(c fiber.Ctx) error {
	funnelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetFunnelRequest{FunnelID: funnelID}
	res, err := h.flow.GetFunnel(h.createRequestContext(c, "/api/v1/funnels/:id"), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Get funnel failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve funnel", "GET_FUNNEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Funnel retrieved successfully", res)
}

// ListFunnels lists the funnels of one brand
// @Summary List Funnels
// @Tags Funnels
// @Produce json
// @Param brand_id path int true "Brand ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListFunnelsResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/brands/{brand_id}/funnels [get]
func (h *FunnelHandler) ListFunnels(c fiber.Ctx) error {
	brandID, err := parseUintParam(c, "brand_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid brand ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.ListFunnelsRequest{BrandID: brandID}
	res, err := h.flow.ListFunnels(h.createRequestContext(c, "/api/v1/brands/:brand_id/funnels"), req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		log.Println("List funnels failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list funnels", "LIST_FUNNELS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Funnels retrieved successfully", res)
}

// UpdateFunnel updates one funnel
// @Summary Update Funnel
// @Tags Funnels
// @Accept json
// @Produce json
// @Param id path int true "Funnel ID"
// @Param request body dto.UpdateFunnelRequest true "Update funnel payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateFunnelResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels/{id} [put]
func (h *FunnelHandler) UpdateFunnel(c fiber.Ctx) error {
	funnelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	var req dto.UpdateFunnelRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.FunnelID = funnelID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateFunnel(h.createRequestContext(c, "/api/v1/funnels/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided for update", "VALIDATION_ERROR", nil)
		}
		log.Println("Update funnel failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update funnel", "UPDATE_FUNNEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Funnel updated successfully", res)
}

// DeleteFunnel soft-deletes a funnel, or hard-deletes it with confirmation
// @Summary Delete Funnel
// @Description Deactivates the funnel. With hard=true and confirm=true the funnel and everything under it is removed permanently.
// @Tags Funnels
// @Accept json
// @Produce json
// @Param id path int true "Funnel ID"
// @Param request body dto.DeleteFunnelRequest false "Delete options"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteFunnelResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels/{id} [delete]
func (h *FunnelHandler) DeleteFunnel(c fiber.Ctx) error {
	funnelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	var req dto.DeleteFunnelRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.FunnelID = funnelID
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.DeleteFunnel(h.createRequestContext(c, "/api/v1/funnels/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		if businessflow.IsHardDeleteNotConfirmed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Hard delete requires explicit confirmation", "HARD_DELETE_NOT_CONFIRMED", nil)
		}
		log.Println("Delete funnel failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete funnel", "DELETE_FUNNEL_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

func (h *FunnelHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *FunnelHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
