package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
)

const flowVersionsDir = "flow_versions"

// FlowVersionRepository stores one JSON document per flow version under
// <root>/flow_versions. A process-wide mutex serializes revision checks, so
// the store is safe for a single process only.
type FlowVersionRepository struct {
	root string
	mu   sync.Mutex
}

func NewFlowVersionRepository(root string) *FlowVersionRepository {
	return &FlowVersionRepository{root: root}
}

func (r *FlowVersionRepository) dir() string {
	return filepath.Join(r.root, flowVersionsDir)
}

func (r *FlowVersionRepository) path(id string) (string, bool) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", false
	}

	return filepath.Join(r.dir(), id+".json"), true
}

// GetByID retrieves a flow version by its ID from the file system.
func (r *FlowVersionRepository) GetByID(_ context.Context, id string) (*models.FlowVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(id)
}

func (r *FlowVersionRepository) read(id string) (*models.FlowVersion, error) {
	filePath, ok := r.path(id)
	if !ok {
		return nil, persistence.NewFlowVersionError("GetByID", id, persistence.ErrFlowVersionNotFound)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewFlowVersionError("GetByID", id, persistence.ErrFlowVersionNotFound)
		}

		return nil, fmt.Errorf("failed to fetch flow version %s: %w", id, err)
	}

	var flowVersion models.FlowVersion

	err = json.Unmarshal(body, &flowVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow version %s: %w", id, err)
	}

	return &flowVersion, nil
}

// ListByFlow loads every stored version and keeps those of flowID.
func (r *FlowVersionRepository) ListByFlow(_ context.Context, flowID string) ([]*models.FlowVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := make([]*models.FlowVersion, 0)

	jsonFiles, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow version files: %w", err)
	}

	for _, file := range jsonFiles {
		flowVersion, err := r.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsFlowVersionNotFound(err) {
				continue
			}

			return nil, err
		}

		if flowVersion.FlowID == flowID {
			versions = append(versions, flowVersion)
		}
	}

	slices.SortFunc(versions, func(a, b *models.FlowVersion) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return versions, nil
}

// Save writes the flow version if its stored revision matches expectedRevision.
func (r *FlowVersionRepository) Save(_ context.Context, flowVersion *models.FlowVersion, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filePath, ok := r.path(flowVersion.ID)
	if !ok {
		return persistence.NewFlowVersionError("Save", flowVersion.ID, errors.New("invalid flow version id"))
	}

	current, err := r.read(flowVersion.ID)

	switch {
	case err == nil && current.Revision != expectedRevision:
		return persistence.NewRevisionConflictError(flowVersion.ID, expectedRevision)
	case persistence.IsFlowVersionNotFound(err) && expectedRevision != 0:
		return persistence.NewFlowVersionError("Save", flowVersion.ID, persistence.ErrFlowVersionNotFound)
	case err != nil && !persistence.IsFlowVersionNotFound(err):
		return err
	}

	err = os.MkdirAll(r.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create flow versions directory: %w", err)
	}

	stored := *flowVersion
	persistence.Stamp(&stored, expectedRevision, time.Now().UTC().Truncate(time.Microsecond))

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow version %s: %w", flowVersion.ID, err)
	}

	err = writeFile(filePath, data)
	if err != nil {
		return fmt.Errorf("failed to write flow version %s: %w", flowVersion.ID, err)
	}

	flowVersion.Revision = stored.Revision
	flowVersion.CreatedAt = stored.CreatedAt
	flowVersion.UpdatedAt = stored.UpdatedAt

	return nil
}

// writeFile replaces filePath through a rename so readers never see a partial document.
func writeFile(filePath string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".flow-version-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), filePath)
}

// Delete removes a flow version by its ID.
func (r *FlowVersionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filePath, ok := r.path(id)
	if !ok {
		return persistence.NewFlowVersionError("Delete", id, persistence.ErrFlowVersionNotFound)
	}

	err := os.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewFlowVersionError("Delete", id, persistence.ErrFlowVersionNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete flow version %s: %w", id, err)
	}

	return nil
}
