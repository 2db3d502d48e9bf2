package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowops/pkg/persistence"
	"github.com/dukex/flowops/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	// Test with regular path
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	p := NewPersistence("./test-data")
	err := p.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.ErrorIs(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()), os.ErrNotExist)
}

func TestFlowVersionRepository_Contract(t *testing.T) {
	repo := NewPersistence(t.TempDir()).FlowVersions()

	persistencetest.RunRepositoryContract(t.Context(), t, repo)
}

func TestFlowVersionRepository_WritesJSONDocuments(t *testing.T) {
	root := t.TempDir()
	repo := NewFlowVersionRepository(root)

	flow := persistencetest.NewFlowVersion(t, "fv-1", "flow-1")
	require.NoError(t, repo.Save(t.Context(), flow, 0))

	data, err := os.ReadFile(filepath.Join(root, "flow_versions", "fv-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"flow_id": "flow-1"`)
	assert.Contains(t, string(data), `"revision": 1`)

	leftovers, err := filepath.Glob(filepath.Join(root, "flow_versions", ".flow-version-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFlowVersionRepository_RejectsPathIDs(t *testing.T) {
	repo := NewFlowVersionRepository(t.TempDir())

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		_, err := repo.GetByID(t.Context(), id)
		assert.True(t, persistence.IsFlowVersionNotFound(err), id)
	}

	flow := persistencetest.NewFlowVersion(t, "x", "flow-1")
	flow.ID = "../escape"
	assert.Error(t, repo.Save(t.Context(), flow, 0))
}

func TestFlowVersionRepository_ReportsCorruptFiles(t *testing.T) {
	root := t.TempDir()
	repo := NewFlowVersionRepository(root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "flow_versions"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "flow_versions", "bad.json"), []byte("{"), 0o600))

	_, err := repo.ListByFlow(t.Context(), "flow-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal flow version bad")
}
