package redisstore

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
	"github.com/dukex/flowops/pkg/persistence/persistencetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) (*Persistence, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	p := New(client, slog.New(slog.NewTextHandler(io.Discard, nil)), "flowops:test:")
	t.Cleanup(func() { _ = p.Close(t.Context()) })

	return p, server
}

func TestFlowVersionRepository_Contract(t *testing.T) {
	p, _ := newTestPersistence(t)

	persistencetest.RunRepositoryContract(t.Context(), t, p.FlowVersions())
}

func TestFlowVersionRepository_KeyLayout(t *testing.T) {
	p, server := newTestPersistence(t)

	flow := persistencetest.NewFlowVersion(t, "fv-1", "flow-1")
	require.NoError(t, p.FlowVersions().Save(t.Context(), flow, 0))

	assert.True(t, server.Exists("flowops:test:fv:fv-1"))

	members, err := server.SMembers("flowops:test:flow:flow-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fv-1"}, members)

	require.NoError(t, p.FlowVersions().Delete(t.Context(), "fv-1"))
	assert.False(t, server.Exists("flowops:test:fv:fv-1"))
	assert.False(t, server.Exists("flowops:test:flow:flow-1"))
}

func TestFlowVersionRepository_SkipsStaleIndexEntries(t *testing.T) {
	p, server := newTestPersistence(t)

	require.NoError(t, p.FlowVersions().Save(t.Context(), persistencetest.NewFlowVersion(t, "fv-1", "flow-1"), 0))
	_, err := server.SAdd("flowops:test:flow:flow-1", "fv-ghost")
	require.NoError(t, err)

	versions, err := p.FlowVersions().ListByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "fv-1", versions[0].ID)
}

func TestFlowVersionRepository_ConcurrentWritersConflict(t *testing.T) {
	p, _ := newTestPersistence(t)
	repo := p.FlowVersions()

	flow := persistencetest.NewFlowVersion(t, "fv-1", "flow-1")
	require.NoError(t, repo.Save(t.Context(), flow, 0))

	first := flow.Clone()
	first.DisplayName = "first"
	second := flow.Clone()
	second.DisplayName = "second"

	require.NoError(t, repo.Save(t.Context(), first, 1))

	err := repo.Save(t.Context(), second, 1)
	assert.True(t, persistence.IsRevisionConflict(err))

	stored, err := repo.GetByID(t.Context(), "fv-1")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.DisplayName)
	assert.Equal(t, models.FlowVersionStateDraft, stored.State)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, server := newTestPersistence(t)

	require.NoError(t, p.HealthCheck(t.Context()))

	server.Close()
	assert.Error(t, p.HealthCheck(t.Context()))
}

func TestNewPersistence(t *testing.T) {
	server := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewPersistence(t.Context(), logger, "redis://"+server.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, p.Close(t.Context()))

	_, err = NewPersistence(t.Context(), logger, "not a url")
	assert.Error(t, err)
}
