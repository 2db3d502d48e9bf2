// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrEmptyFlowID    = errors.New("flow ID cannot be empty")

	// Not Found Errors (404 Not Found).
	ErrFlowVersionNotFound = persistence.ErrFlowVersionNotFound
	ErrStepNotFound        = flowstructure.ErrStepNotFound

	// Business Logic Conflicts (409 Conflict).
	ErrNotLocked        = errors.New("flow version is not locked")
	ErrTooManyConflicts = errors.New("flow version kept changing while applying the operation")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
// Rejected operations other than edits of a locked version count as validation errors.
func IsValidationError(err error) bool {
	if flowops.IsLockedFlowError(err) {
		return false
	}

	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyFlowID) ||
		flowops.IsClientError(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrFlowVersionNotFound) ||
		errors.Is(err, ErrStepNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotLocked) ||
		errors.Is(err, ErrTooManyConflicts) ||
		persistence.IsRevisionConflict(err) ||
		flowops.IsLockedFlowError(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func newConflictError(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "conflict",
		Message: message,
		Err:     err,
	}
}
