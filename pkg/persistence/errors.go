package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowops/pkg/models"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowVersionNotFound indicates a flow version was not found by the given identifier.
	ErrFlowVersionNotFound = errors.New("flow version not found")

	// ErrRevisionConflict indicates the stored revision no longer matches the expected one.
	ErrRevisionConflict = errors.New("flow version revision conflict")
)

// FlowVersionError wraps flow version errors with additional context.
type FlowVersionError struct {
	Op            string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	FlowVersionID string
	Err           error
	Message       string
}

func (e *FlowVersionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for flow version %s: %s (%v)", e.Op, e.FlowVersionID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for flow version %s: %v", e.Op, e.FlowVersionID, e.Err)
}

func (e *FlowVersionError) Unwrap() error {
	return e.Err
}

func (e *FlowVersionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewFlowVersionError(op, flowVersionID string, err error) *FlowVersionError {
	return &FlowVersionError{
		Op:            op,
		FlowVersionID: flowVersionID,
		Err:           err,
	}
}

// NewRevisionConflictError reports a Save whose expected revision is stale.
func NewRevisionConflictError(flowVersionID string, expected int64) *FlowVersionError {
	return &FlowVersionError{
		Op:            "Save",
		FlowVersionID: flowVersionID,
		Err:           ErrRevisionConflict,
		Message:       fmt.Sprintf("expected revision %d", expected),
	}
}

func IsFlowVersionNotFound(err error) bool {
	return errors.Is(err, ErrFlowVersionNotFound)
}

func IsRevisionConflict(err error) bool {
	return errors.Is(err, ErrRevisionConflict)
}

// Stamp advances the revision and timestamps of a flow version about to be
// stored. Stores call it once the expected revision has been checked.
func Stamp(flowVersion *models.FlowVersion, expectedRevision int64, now time.Time) {
	if flowVersion.CreatedAt.IsZero() {
		flowVersion.CreatedAt = now
	}

	flowVersion.UpdatedAt = now
	flowVersion.Revision = expectedRevision + 1
}
