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

type ScriptHandlerInterface interface {
	CreateScript(c fiber.Ctx) error
	ListScripts(c fiber.Ctx) error
	UpdateScript(c fiber.Ctx) error
	DeleteScript(c fiber.Ctx) error
}

type ScriptHandler struct {
	flow      businessflow.ScriptFlow
	validator *validator.Validate
}

func NewScriptHandler(flow businessflow.ScriptFlow) *ScriptHandler {
	return &ScriptHandler{flow: flow, validator: validator.New()}
}

func (h *ScriptHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *ScriptHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateScript creates a script template
// @Summary Create Script
// @Tags Scripts
// @Accept json
// @Produce json
// @Param request body dto.CreateScriptRequest true "Create script payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateScriptResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/scripts [post]
func (h *ScriptHandler) CreateScript(c fiber.Ctx) error {
	var req dto.CreateScriptRequest
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
	res, err := h.flow.CreateScript(h.createRequestContext(c, "/api/v1/scripts"), &req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		if businessflow.IsStageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", "STAGE_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidFunnelType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Funnel type must be follow_up or broadcast", "VALIDATION_ERROR", nil)
		}
		log.Println("Create script failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create script", "CREATE_SCRIPT_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Script created successfully", res)
}

// ListScripts lists script templates, optionally for one funnel
// @Summary List Scripts
// @Tags Scripts
// @Produce json
// @Param funnel_id query int false "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListScriptsResponse}
// @Router /api/v1/scripts [get]
func (h *ScriptHandler) ListScripts(c fiber.Ctx) error {
	funnelID, err := parseOptionalUintQuery(c, "funnel_id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ListScripts(h.createRequestContext(c, "/api/v1/scripts"), funnelID, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("List scripts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list scripts", "LIST_SCRIPTS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Scripts retrieved successfully", res)
}

// UpdateScript updates one script template
// @Summary Update Script
// @Tags Scripts
// @Accept json
// @Produce json
// @Param id path int true "Script ID"
// @Param request body dto.UpdateScriptRequest true "Update script payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateScriptResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/scripts/{id} [put]
func (h *ScriptHandler) UpdateScript(c fiber.Ctx) error {
	scriptID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid script ID", "VALIDATION_ERROR", nil)
	}
	var req dto.UpdateScriptRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.ScriptID = scriptID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateScript(h.createRequestContext(c, "/api/v1/scripts/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsScriptNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Script not found", "SCRIPT_NOT_FOUND", nil)
		}
		log.Println("Update script failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update script", "UPDATE_SCRIPT_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Script updated successfully", res)
}

// DeleteScript deletes one script template
// @Summary Delete Script
// @Tags Scripts
// @Produce json
// @Param id path int true "Script ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteScriptResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/scripts/{id} [delete]
func (h *ScriptHandler) DeleteScript(c fiber.Ctx) error {
	scriptID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid script ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.DeleteScriptRequest{ScriptID: scriptID}
	res, err := h.flow.DeleteScript(h.createRequestContext(c, "/api/v1/scripts/:id"), req, metadata)
	if err != nil {
		if businessflow.IsScriptNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Script not found", "SCRIPT_NOT_FOUND", nil)
		}
		log.Println("Delete script failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete script", "DELETE_SCRIPT_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Script deleted successfully", res)
}

func (h *ScriptHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *ScriptHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
