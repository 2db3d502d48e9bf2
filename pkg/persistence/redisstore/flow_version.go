package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

// FlowVersionRepository keeps each version as a JSON string and indexes
// versions per flow:
//
//	<prefix>fv:<id>        => JSON document
//	<prefix>flow:<flowID>  => SET of version ids
//
// Saves run under WATCH on the document key, so a concurrent writer makes
// the transaction fail instead of overwriting.
type FlowVersionRepository struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

func NewFlowVersionRepository(client *redis.Client, logger *slog.Logger, prefix string) *FlowVersionRepository {
	return &FlowVersionRepository{client: client, logger: logger, prefix: prefix}
}

func (r *FlowVersionRepository) keyFlowVersion(id string) string {
	return r.prefix + "fv:" + id
}

func (r *FlowVersionRepository) keyFlow(flowID string) string {
	return r.prefix + "flow:" + flowID
}

func decode(id string, data []byte) (*models.FlowVersion, error) {
	var flowVersion models.FlowVersion

	err := json.Unmarshal(data, &flowVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow version %s: %w", id, err)
	}

	return &flowVersion, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *FlowVersionRepository) get(ctx context.Context, cmd getter, id string) (*models.FlowVersion, error) {
	data, err := cmd.Get(ctx, r.keyFlowVersion(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewFlowVersionError("GetByID", id, persistence.ErrFlowVersionNotFound)
		}

		return nil, fmt.Errorf("failed to fetch flow version %s: %w", id, err)
	}

	return decode(id, data)
}

func (r *FlowVersionRepository) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	return r.get(ctx, r.client, id)
}

func (r *FlowVersionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	ids, err := r.client.SMembers(ctx, r.keyFlow(flowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flow versions of %s: %w", flowID, err)
	}

	versions := make([]*models.FlowVersion, 0, len(ids))

	for _, id := range ids {
		flowVersion, err := r.GetByID(ctx, id)
		if persistence.IsFlowVersionNotFound(err) {
			// Index entry left behind by an interrupted delete.
			r.logger.WarnContext(ctx, "stale flow index entry", "flow_id", flowID, "flow_version_id", id)

			continue
		}

		if err != nil {
			return nil, err
		}

		versions = append(versions, flowVersion)
	}

	slices.SortFunc(versions, func(a, b *models.FlowVersion) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return versions, nil
}

func (r *FlowVersionRepository) Save(ctx context.Context, flowVersion *models.FlowVersion, expectedRevision int64) error {
	key := r.keyFlowVersion(flowVersion.ID)
	stored := *flowVersion

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, flowVersion.ID)

		switch {
		case err == nil && current.Revision != expectedRevision:
			return persistence.NewRevisionConflictError(flowVersion.ID, expectedRevision)
		case persistence.IsFlowVersionNotFound(err) && expectedRevision != 0:
			return persistence.NewFlowVersionError("Save", flowVersion.ID, persistence.ErrFlowVersionNotFound)
		case err != nil && !persistence.IsFlowVersionNotFound(err):
			return err
		}

		persistence.Stamp(&stored, expectedRevision, time.Now().UTC().Truncate(time.Microsecond))

		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("failed to marshal flow version %s: %w", flowVersion.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, r.keyFlow(stored.FlowID), stored.ID)

			if current != nil && current.FlowID != stored.FlowID {
				pipe.SRem(ctx, r.keyFlow(current.FlowID), stored.ID)
			}

			return nil
		})

		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return persistence.NewRevisionConflictError(flowVersion.ID, expectedRevision)
	}

	if err != nil {
		return err
	}

	flowVersion.Revision = stored.Revision
	flowVersion.CreatedAt = stored.CreatedAt
	flowVersion.UpdatedAt = stored.UpdatedAt

	return nil
}

func (r *FlowVersionRepository) Delete(ctx context.Context, id string) error {
	key := r.keyFlowVersion(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.keyFlow(current.FlowID), id)

			return nil
		})

		return err
	}, key)

	if persistence.IsFlowVersionNotFound(err) {
		return persistence.NewFlowVersionError("Delete", id, persistence.ErrFlowVersionNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete flow version %s: %w", id, err)
	}

	return nil
}
