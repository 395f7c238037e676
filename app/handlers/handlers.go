// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "url":
		return err.Field() + " must be a valid URL"
	case "hexcolor":
		return err.Field() + " must be a hex color like #ff8800"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// parseUintParam parses a numeric path parameter
func parseUintParam(c fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}

// parseOptionalUintQuery parses a numeric query parameter when present
func parseOptionalUintQuery(c fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("invalid %s", name)
	}
	u := uint(v)
	return &u, nil
}

// actorFromContext returns the verified subject set by the auth middleware
func actorFromContext(c fiber.Ctx) string {
	if subject, ok := c.Locals("subject").(string); ok {
		return subject
	}
	return ""
}

// tenantFromContext returns the verified tenant id set by the auth middleware
func tenantFromContext(c fiber.Ctx) string {
	if tenantID, ok := c.Locals("tenant_id").(string); ok {
		return tenantID
	}
	return ""
}
