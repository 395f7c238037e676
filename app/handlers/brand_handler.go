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

type BrandHandlerInterface interface {
	CreateBrand(c fiber.Ctx) error
	GetBrand(c fiber.Ctx) error
	ListBrands(c fiber.Ctx) error
	UpdateBrand(c fiber.Ctx) error
	DeleteBrand(c fiber.Ctx) error
}

type BrandHandler struct {
	flow      businessflow.BrandFlow
	validator *validator.Validate
}

func NewBrandHandler(flow businessflow.BrandFlow) *BrandHandler {
	return &BrandHandler{flow: flow, validator: validator.New()}
}

func (h *BrandHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

func (h *BrandHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// CreateBrand creates a new brand for the calling tenant
// @Summary Create Brand
// @Tags Brands
// @Accept json
// @Produce json
// @Param request body dto.CreateBrandRequest true "Create brand payload"
// @Success 201 {object} dto.APIResponse{data=dto.CreateBrandResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/brands [post]
func (h *BrandHandler) CreateBrand(c fiber.Ctx) error {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "MISSING_TENANT", nil)
	}
	var req dto.CreateBrandRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.TenantID = tenantID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.CreateBrand(h.createRequestContext(c, "/api/v1/brands"), &req, metadata)
	if err != nil {
		log.Println("Create brand failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create brand", "CREATE_BRAND_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Brand created successfully", res)
}

// GetBrand retrieves one brand
// @Summary Get Brand
// @Tags Brands
// @Produce json
// @Param id path int true "Brand ID"
// @Success 200 {object} dto.APIResponse{data=dto.GetBrandResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/brands/{id} [get]
func (h *BrandHandler) GetBrand(c fiber.Ctx) error {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "MISSING_TENANT", nil)
	}
	brandID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid brand ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.GetBrandRequest{TenantID: tenantID, BrandID: brandID}
	res, err := h.flow.GetBrand(h.createRequestContext(c, "/api/v1/brands/:id"), req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsBrandAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Brand access denied", "BRAND_ACCESS_DENIED", nil)
		}
		log.Println("Get brand failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve brand", "GET_BRAND_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Brand retrieved successfully", res)
}

// ListBrands lists the active brands of the calling tenant
// @Summary List Brands
// @Tags Brands
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListBrandsResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/brands [get]
func (h *BrandHandler) ListBrands(c fiber.Ctx) error {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "MISSING_TENANT", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.ListBrandsRequest{TenantID: tenantID}
	res, err := h.flow.ListBrands(h.createRequestContext(c, "/api/v1/brands"), req, metadata)
	if err != nil {
		log.Println("List brands failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list brands", "LIST_BRANDS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Brands retrieved successfully", res)
}

// UpdateBrand updates one brand
// @Summary Update Brand
// @Tags Brands
// @Accept json
// @Produce json
// @Param id path int true "Brand ID"
// @Param request body dto.UpdateBrandRequest true "Update brand payload"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateBrandResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/brands/{id} [put]
func (h *BrandHandler) UpdateBrand(c fiber.Ctx) error {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "MISSING_TENANT", nil)
	}
	brandID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid brand ID", "VALIDATION_ERROR", nil)
	}
	var req dto.UpdateBrandRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.TenantID = tenantID
	req.BrandID = brandID
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateBrand(h.createRequestContext(c, "/api/v1/brands/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsBrandAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Brand access denied", "BRAND_ACCESS_DENIED", nil)
		}
		log.Println("Update brand failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update brand", "UPDATE_BRAND_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Brand updated successfully", res)
}

// DeleteBrand soft-deletes one brand
// @Summary Delete Brand
// @Tags Brands
// @Produce json
// @Param id path int true "Brand ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteBrandResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/brands/{id} [delete]
func (h *BrandHandler) DeleteBrand(c fiber.Ctx) error {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "MISSING_TENANT", nil)
	}
	brandID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid brand ID", "VALIDATION_ERROR", nil)
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	req := &dto.DeleteBrandRequest{TenantID: tenantID, BrandID: brandID}
	res, err := h.flow.DeleteBrand(h.createRequestContext(c, "/api/v1/brands/:id"), req, metadata)
	if err != nil {
		if businessflow.IsBrandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Brand not found", "BRAND_NOT_FOUND", nil)
		}
		if businessflow.IsBrandAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Brand access denied", "BRAND_ACCESS_DENIED", nil)
		}
		log.Println("Delete brand failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete brand", "DELETE_BRAND_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Brand deactivated successfully", res)
}

func (h *BrandHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *BrandHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFnKey, cancel)
	return ctx
}
