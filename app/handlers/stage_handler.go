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

type StageHandlerInterface interface {
	GetCatalog(c fiber.Ctx) error
	ListStages(c fiber.Ctx) error
	CreateStage(c fiber.Ctx) error
	UpdateStage(c fiber.Ctx) error
	DeleteStage(c fiber.Ctx) error
}

type StageHandler struct {
	flow      businessflow.StageFlow
	validator *validator.Validate
}

func NewStageHandler(flow businessflow.StageFlow) *StageHandler {
	return &StageHandler{flow: flow, validator: validator.New()}
}

func (h *StageHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *StageHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// GetCatalog resolves the effective stage catalog of one funnel
// @Summary Get Stage Catalog
// @Description Scoped stages fully replace the global templates per funnel type.
// @Tags Stages
// @Produce json
// @Param id path int true "Funnel ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetStageCatalogResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/funnels/{id}/stages [get]
func (h *StageHandler) GetCatalog(c fiber.Ctx) error {
	funnelID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid funnel ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetStageCatalogRequest{FunnelID: funnelID}
	res, err := h.flow.GetCatalog(h.createRequestContext(c, "/api/v1/funnels/:id/stages"), req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		log.Println("Get stage catalog failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve stage catalog", "GET_CATALOG_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Stage catalog resolved successfully", res)
}

// ListStages lists every stage, global templates and funnel overrides alike
// @Summary List Stages
// @Tags Stages
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListStagesResponse}
// @Router /api/v1/stages [get]
func (h *StageHandler) ListStages(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ListAll(h.createRequestContext(c, "/api/v1/stages"), metadata)
	if err != nil {
		log.Println("List stages failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list stages", "LIST_STAGES_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Stages retrieved successfully", res)
}

// CreateStage creates a global template stage or a funnel-scoped override
// @Summary Create Stage
// @Tags Stages
// @Accept json
// @Produce json
// @Param request body dto.CreateStageRequest true "Create stage payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateStageResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/stages [post]
func (h *StageHandler) CreateStage(c fiber.Ctx) error {
	var req dto.CreateStageRequest
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
	res, err := h.flow.CreateStage(h.createRequestContext(c, "/api/v1/stages"), &req, metadata)
	if err != nil {
		if businessflow.IsFunnelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Funnel not found", "FUNNEL_NOT_FOUND", nil)
		}
		if businessflow.IsStageNumberTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Stage number already in use for this funnel type", "STAGE_NUMBER_TAKEN", nil)
		}
		if businessflow.IsInvalidFunnelType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Funnel type must be follow_up or broadcast", "VALIDATION_ERROR", nil)
		}
		log.Println("Create stage failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create stage", "CREATE_STAGE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Stage created successfully", res)
}

// UpdateStage updates one stage
// @Summary Update Stage
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path int true "Stage ID"
// @Param request body dto.UpdateStageRequest true "Update stage payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateStageResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/stages/{id} [put]
func (h *StageHandler) UpdateStage(c fiber.Ctx) error {
	stageID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid stage ID", "VALIDATION_ERROR", nil)
	}
	var req dto.UpdateStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.StageID = stageID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateStage(h.createRequestContext(c, "/api/v1/stages/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsStageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", "STAGE_NOT_FOUND", nil)
		}
		if businessflow.IsStageNumberTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Stage number already in use for this funnel type", "STAGE_NUMBER_TAKEN", nil)
		}
		log.Println("Update stage failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update stage", "UPDATE_STAGE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Stage updated successfully", res)
}

// DeleteStage deletes one stage
// @Summary Delete Stage
// @Description Fails with 409 when the stage still appears in the transition ledger.
// @Tags Stages
// @Produce json
// @Param id path int true "Stage ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteStageResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/stages/{id} [delete]
func (h *StageHandler) DeleteStage(c fiber.Ctx) error {
	stageID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid stage ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.DeleteStageRequest{StageID: stageID}
	res, err := h.flow.DeleteStage(h.createRequestContext(c, "/api/v1/stages/:id"), req, metadata)
	if err != nil {
		if businessflow.IsStageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Stage not found", "STAGE_NOT_FOUND", nil)
		}
		if businessflow.IsStageInUse(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Stage is referenced by existing transitions", "STAGE_IN_USE", nil)
		}
		log.Println("Delete stage failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete stage", "DELETE_STAGE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Stage deleted successfully", res)
}

func (h *StageHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *StageHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
