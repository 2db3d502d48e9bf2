package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
)

const (
	selectByIDQuery = `
		SELECT document, revision, created_at, updated_at
		FROM flow_versions
		WHERE id = $1
	`
	selectByFlowQuery = `
		SELECT document, revision, created_at, updated_at
		FROM flow_versions
		WHERE flow_id = $1
		ORDER BY created_at, id
	`
	insertQuery = `
		INSERT INTO flow_versions (id, flow_id, state, revision, valid, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	updateQuery = `
		UPDATE flow_versions
		SET flow_id = $2, state = $3, revision = $4, valid = $5, document = $6, updated_at = $7
		WHERE id = $1 AND revision = $8
	`
	existsQuery = "SELECT EXISTS (SELECT 1 FROM flow_versions WHERE id = $1)"
	deleteQuery = "DELETE FROM flow_versions WHERE id = $1"
)

// FlowVersionRepository handles flow version database operations. The full
// version is kept in a JSONB document; revision and timestamps live in their
// own columns and win over the document copy.
type FlowVersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFlowVersionRepository(db *sql.DB, logger *slog.Logger) *FlowVersionRepository {
	return &FlowVersionRepository{db: db, logger: logger}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlowVersion(row scanner) (*models.FlowVersion, error) {
	var (
		document             []byte
		revision             int64
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&document, &revision, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var flowVersion models.FlowVersion

	err = json.Unmarshal(document, &flowVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow version document: %w", err)
	}

	flowVersion.Revision = revision
	flowVersion.CreatedAt = createdAt.UTC()
	flowVersion.UpdatedAt = updatedAt.UTC()

	return &flowVersion, nil
}

func (r *FlowVersionRepository) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	flowVersion, err := scanFlowVersion(r.db.QueryRowContext(ctx, selectByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowVersionError("GetByID", id, persistence.ErrFlowVersionNotFound)
		}

		return nil, fmt.Errorf("failed to scan flow version %s: %w", id, err)
	}

	return flowVersion, nil
}

func (r *FlowVersionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	rows, err := r.db.QueryContext(ctx, selectByFlowQuery, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow versions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	versions := make([]*models.FlowVersion, 0)

	for rows.Next() {
		flowVersion, err := scanFlowVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow version: %w", err)
		}

		versions = append(versions, flowVersion)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flow versions: %w", err)
	}

	return versions, nil
}

// Save inserts a new version when expectedRevision is zero and otherwise
// updates the row only while its revision still equals expectedRevision.
func (r *FlowVersionRepository) Save(ctx context.Context, flowVersion *models.FlowVersion, expectedRevision int64) error {
	stored := *flowVersion
	persistence.Stamp(&stored, expectedRevision, time.Now().UTC().Truncate(time.Microsecond))

	document, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal flow version %s: %w", flowVersion.ID, err)
	}

	var result sql.Result

	if expectedRevision == 0 {
		result, err = r.db.ExecContext(ctx, insertQuery,
			stored.ID,
			stored.FlowID,
			stored.State,
			stored.Revision,
			stored.Valid,
			document,
			stored.CreatedAt,
			stored.UpdatedAt,
		)
	} else {
		result, err = r.db.ExecContext(ctx, updateQuery,
			stored.ID,
			stored.FlowID,
			stored.State,
			stored.Revision,
			stored.Valid,
			document,
			stored.UpdatedAt,
			expectedRevision,
		)
	}

	if err != nil {
		return fmt.Errorf("failed to save flow version %s: %w", flowVersion.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save flow version %s: %w", flowVersion.ID, err)
	}

	if affected == 0 {
		return r.saveConflict(ctx, flowVersion.ID, expectedRevision)
	}

	flowVersion.Revision = stored.Revision
	flowVersion.CreatedAt = stored.CreatedAt
	flowVersion.UpdatedAt = stored.UpdatedAt

	return nil
}

// saveConflict tells a stale revision apart from a missing row.
func (r *FlowVersionRepository) saveConflict(ctx context.Context, id string, expectedRevision int64) error {
	if expectedRevision == 0 {
		return persistence.NewRevisionConflictError(id, expectedRevision)
	}

	var exists bool

	err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check flow version %s: %w", id, err)
	}

	if !exists {
		return persistence.NewFlowVersionError("Save", id, persistence.ErrFlowVersionNotFound)
	}

	return persistence.NewRevisionConflictError(id, expectedRevision)
}

func (r *FlowVersionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow version %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete flow version %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewFlowVersionError("Delete", id, persistence.ErrFlowVersionNotFound)
	}

	return nil
}
