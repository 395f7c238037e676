// Package businessflow contains the core business logic and use cases for the CRM workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Brand-related errors
	ErrBrandNotFound     = errors.New("brand not found")
	ErrBrandInactive     = errors.New("brand is inactive")
	ErrBrandAccessDenied = errors.New("brand access denied")

	// Funnel-related errors
	ErrFunnelNotFound            = errors.New("funnel not found")
	ErrFunnelInactive            = errors.New("funnel is inactive")
	ErrHardDeleteNotConfirmed    = errors.New("hard delete requires explicit confirmation")
	ErrFunnelUpdateFieldRequired = errors.New("at least one field must be provided for update")

	// Stage-related errors
	ErrStageNotFound           = errors.New("stage not found")
	ErrTargetStageNotFound     = errors.New("target stage not found")
	ErrStageNumberTaken        = errors.New("stage number already used in this funnel and funnel type")
	ErrStageInUse              = errors.New("stage is referenced by transition history")
	ErrInvalidFunnelType       = errors.New("invalid funnel type")
	ErrStaleStageState         = errors.New("stage no longer exists, please refresh and retry")
	ErrLeadWithoutCurrentStage = errors.New("lead has no current stage")

	// Lead-related errors
	ErrLeadNotFound         = errors.New("lead not found")
	ErrLeadContactRequired  = errors.New("at least one of email or phone is required")
	ErrLeadSourceRequired   = errors.New("lead source is required")
	ErrInvalidLeadStatus    = errors.New("invalid lead status")
	ErrInvalidMoveReason    = errors.New("invalid transition reason")
	ErrLeadUpdateRequired   = errors.New("at least one field must be provided for update")
	ErrInvalidResponseTime  = errors.New("last response time is not a valid RFC3339 timestamp")
	ErrLeadStageOutOfFunnel = errors.New("stage does not belong to the lead's funnel")

	// Label-related errors
	ErrLabelNotFound = errors.New("label not found")

	// Script-related errors
	ErrScriptNotFound = errors.New("script template not found")

	// Activity-related errors
	ErrActivityTypeInvalid = errors.New("invalid activity type")

	// Analytics-related errors
	ErrInvalidHeatmapTarget = errors.New("heatmap target must be transitions or activities")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsBrandNotFound(err error) bool {
	return errors.Is(err, ErrBrandNotFound)
}

func IsBrandInactive(err error) bool {
	return errors.Is(err, ErrBrandInactive)
}

func IsBrandAccessDenied(err error) bool {
	return errors.Is(err, ErrBrandAccessDenied)
}

func IsFunnelNotFound(err error) bool {
	return errors.Is(err, ErrFunnelNotFound)
}

func IsFunnelInactive(err error) bool {
	return errors.Is(err, ErrFunnelInactive)
}

func IsHardDeleteNotConfirmed(err error) bool {
	return errors.Is(err, ErrHardDeleteNotConfirmed)
}

func IsStageNotFound(err error) bool {
	return errors.Is(err, ErrStageNotFound)
}

func IsTargetStageNotFound(err error) bool {
	return errors.Is(err, ErrTargetStageNotFound)
}

func IsStageNumberTaken(err error) bool {
	return errors.Is(err, ErrStageNumberTaken)
}

func IsStageInUse(err error) bool {
	return errors.Is(err, ErrStageInUse)
}

func IsInvalidFunnelType(err error) bool {
	return errors.Is(err, ErrInvalidFunnelType)
}

func IsStaleStageState(err error) bool {
	return errors.Is(err, ErrStaleStageState)
}

func IsLeadWithoutCurrentStage(err error) bool {
	return errors.Is(err, ErrLeadWithoutCurrentStage)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsLeadContactRequired(err error) bool {
	return errors.Is(err, ErrLeadContactRequired)
}

func IsLeadSourceRequired(err error) bool {
	return errors.Is(err, ErrLeadSourceRequired)
}

func IsInvalidLeadStatus(err error) bool {
	return errors.Is(err, ErrInvalidLeadStatus)
}

func IsInvalidMoveReason(err error) bool {
	return errors.Is(err, ErrInvalidMoveReason)
}

func IsLabelNotFound(err error) bool {
	return errors.Is(err, ErrLabelNotFound)
}

func IsScriptNotFound(err error) bool {
	return errors.Is(err, ErrScriptNotFound)
}

func IsActivityTypeInvalid(err error) bool {
	return errors.Is(err, ErrActivityTypeInvalid)
}

func IsInvalidHeatmapTarget(err error) bool {
	return errors.Is(err, ErrInvalidHeatmapTarget)
}

func IsValidationError(err error) bool {
	return IsLeadContactRequired(err) ||
		IsLeadSourceRequired(err) ||
		IsInvalidLeadStatus(err) ||
		IsInvalidMoveReason(err) ||
		IsInvalidFunnelType(err) ||
		IsInvalidHeatmapTarget(err) ||
		IsHardDeleteNotConfirmed(err) ||
		errors.Is(err, ErrLeadStageOutOfFunnel) ||
		errors.Is(err, ErrLeadUpdateRequired) ||
		errors.Is(err, ErrFunnelUpdateFieldRequired) ||
		errors.Is(err, ErrInvalidResponseTime)
}
