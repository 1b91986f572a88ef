package services

import (
	"errors"
	"fmt"

	apperrors "github.com/ieltsprep/practice-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Quiz specific errors
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizNotPublished = errors.New("quiz is not published")

	// Test result specific errors
	ErrResultNotFound         = errors.New("test result not found")
	ErrResultAccessDenied     = errors.New("access denied to test result")
	ErrResultNotPublished     = errors.New("test result is not published")
	ErrResultAlreadySubmitted = errors.New("test result already submitted")
	ErrInvalidTestPart        = errors.New("test part does not match the quiz")
	ErrAnswerCountMismatch    = errors.New("answer array is longer than the quiz layout")

	// ErrNoValidAttempt means the stored answers cannot be scored. Callers
	// show "no score available" instead of a partial score.
	ErrNoValidAttempt = errors.New("no valid attempt")

	// Band table errors
	ErrBandTableNotFound = errors.New("band table not found")
	ErrInvalidBandSheet  = errors.New("invalid band table sheet")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Is lets errors.Is(err, ErrResultAccessDenied) match permission errors on results
func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden || (target == ErrResultAccessDenied && pe.Resource == "test_result")
}

// ===== ERROR HELPERS =====

// requireAdmin returns a PermissionError unless actor is an admin
func requireAdmin(actor Actor, resource string, resourceID uint, action string) error {
	if actor.IsAdmin {
		return nil
	}
	return NewPermissionError(actor.UserID, resourceID, resource, action, "admin role required")
}

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrBandTableNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	var pe *PermissionError
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrResultAccessDenied) ||
		errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	var single *apperrors.ValidationError
	return errors.As(err, &ve) || errors.As(err, &single)
}

// IsBusinessRule checks if error is a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
