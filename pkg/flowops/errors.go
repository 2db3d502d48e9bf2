package flowops

import (
	"errors"
	"fmt"

	"github.com/dukex/flowops/pkg/models"
)

// Failure categories of Apply. Every error returned by Apply wraps exactly one.
var (
	// ErrReference indicates the operation names a step, branch or note that does not exist.
	ErrReference = errors.New("reference error")

	// ErrStructuralViolation indicates the operation would break the tree: a name
	// collision, a cycle, or a fallback branch out of place.
	ErrStructuralViolation = errors.New("structural violation")

	// ErrLockedFlow indicates a mutation attempted on a locked flow version.
	ErrLockedFlow = errors.New("flow version is locked")

	// ErrInvalidLocation indicates a location that does not fit the parent's kind.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidRequest indicates a malformed operation payload.
	ErrInvalidRequest = errors.New("invalid request")
)

// OperationError wraps a failed operation with context.
type OperationError struct {
	Op      models.OperationType // Operation being applied
	Target  string               // Step, branch or note the failure is about, if any
	Message string               // Human-readable message
	Err     error                // Category
}

func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Target, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for operation errors.
func (e *OperationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newError(op models.OperationType, category error, target, format string, args ...any) *OperationError {
	return &OperationError{
		Op:      op,
		Target:  target,
		Message: fmt.Sprintf(format, args...),
		Err:     category,
	}
}

func referenceError(op models.OperationType, target, format string, args ...any) *OperationError {
	return newError(op, ErrReference, target, format, args...)
}

func structuralError(op models.OperationType, target, format string, args ...any) *OperationError {
	return newError(op, ErrStructuralViolation, target, format, args...)
}

func locationError(op models.OperationType, target, format string, args ...any) *OperationError {
	return newError(op, ErrInvalidLocation, target, format, args...)
}

func requestError(op models.OperationType, target string, err error) *OperationError {
	return &OperationError{
		Op:      op,
		Target:  target,
		Message: err.Error(),
		Err:     ErrInvalidRequest,
	}
}

// IsReferenceError checks if an error reports a missing step, branch or note.
func IsReferenceError(err error) bool {
	return errors.Is(err, ErrReference)
}

// IsStructuralViolation checks if an error reports a rejected tree change.
func IsStructuralViolation(err error) bool {
	return errors.Is(err, ErrStructuralViolation)
}

// IsLockedFlowError checks if an error reports a mutation on a locked version.
func IsLockedFlowError(err error) bool {
	return errors.Is(err, ErrLockedFlow)
}

// IsInvalidLocationError checks if an error reports a location mismatch.
func IsInvalidLocationError(err error) bool {
	return errors.Is(err, ErrInvalidLocation)
}

// IsInvalidRequestError checks if an error reports a malformed payload.
func IsInvalidRequestError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsClientError checks if an error is caused by the operation rather than by
// the engine, i.e. belongs to any of the categories above.
func IsClientError(err error) bool {
	return IsReferenceError(err) ||
		IsStructuralViolation(err) ||
		IsLockedFlowError(err) ||
		IsInvalidLocationError(err) ||
		IsInvalidRequestError(err)
}
