// Package persistence provides the storage abstraction for flow versions.
package persistence

import (
	"context"

	"github.com/dukex/flowops/pkg/models"
)

type Persistence interface {
	FlowVersions() FlowVersionRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// FlowVersionRepository stores whole flow version documents under optimistic
// locking. Every successful Save bumps the stored revision by one.
type FlowVersionRepository interface {
	GetByID(ctx context.Context, id string) (*models.FlowVersion, error)
	// ListByFlow returns the versions of a flow ordered by creation time.
	ListByFlow(ctx context.Context, flowID string) ([]*models.FlowVersion, error)
	// Save writes flowVersion if the stored revision equals expectedRevision;
	// an expectedRevision of zero creates a new record. On success the
	// revision and timestamps of flowVersion are updated in place.
	Save(ctx context.Context, flowVersion *models.FlowVersion, expectedRevision int64) error
	Delete(ctx context.Context, id string) error
}
