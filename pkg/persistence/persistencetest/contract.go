// Package persistencetest holds the behaviour every FlowVersionRepository
// implementation must share.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
	"github.com/dukex/flowops/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewFlowVersion builds a small draft with a loop and a router so stores are
// exercised with nested documents.
func NewFlowVersion(t *testing.T, id, flowID string) *models.FlowVersion {
	t.Helper()

	flow := models.NewFlowVersion(id, flowID, "Contract "+id)

	flow, err := flowops.ApplyAll(flow,
		models.AddActionRequest{
			ParentStep:                   models.TriggerName,
			StepLocationRelativeToParent: models.StepLocationAfter,
			Action:                       *testutil.CreateTestStep("step_1", testutil.WithLoop("{{trigger.items}}")),
		},
		models.AddActionRequest{
			ParentStep:                   "step_1",
			StepLocationRelativeToParent: models.StepLocationInsideLoop,
			Action:                       *testutil.CreateTestStep("step_2", testutil.WithInput(map[string]any{"item": "{{step_1.item}}"})),
		},
		models.AddActionRequest{
			ParentStep:                   "step_1",
			StepLocationRelativeToParent: models.StepLocationAfter,
			Action:                       *testutil.CreateTestStep("step_3", testutil.WithRouter([]string{})),
		},
		models.AddNoteRequest{Note: models.Note{ID: "note-1", Content: "contract"}},
	)
	require.NoError(t, err)

	return flow
}

// RunRepositoryContract checks revision handling, listing and deletion.
func RunRepositoryContract(ctx context.Context, t *testing.T, repo persistence.FlowVersionRepository) {
	t.Helper()

	t.Run("missing version", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "contract-missing")
		require.Error(t, err)
		assert.True(t, persistence.IsFlowVersionNotFound(err))

		err = repo.Delete(ctx, "contract-missing")
		assert.True(t, persistence.IsFlowVersionNotFound(err))

		err = repo.Save(ctx, NewFlowVersion(t, "contract-missing", "contract-flow"), 3)
		assert.True(t, persistence.IsFlowVersionNotFound(err))
	})

	t.Run("save and reload", func(t *testing.T) {
		flow := NewFlowVersion(t, "contract-1", "contract-flow")

		require.NoError(t, repo.Save(ctx, flow, 0))
		assert.Equal(t, int64(1), flow.Revision)
		assert.False(t, flow.CreatedAt.IsZero())

		loaded, err := repo.GetByID(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, flow, loaded)
	})

	t.Run("create twice conflicts", func(t *testing.T) {
		err := repo.Save(ctx, NewFlowVersion(t, "contract-1", "contract-flow"), 0)
		assert.True(t, persistence.IsRevisionConflict(err))
	})

	t.Run("update with current revision", func(t *testing.T) {
		loaded, err := repo.GetByID(ctx, "contract-1")
		require.NoError(t, err)

		next, err := flowops.Apply(loaded, models.ChangeNameRequest{DisplayName: "Renamed"})
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, next, loaded.Revision))
		assert.Equal(t, int64(2), next.Revision)
		assert.Equal(t, loaded.CreatedAt, next.CreatedAt)

		stale, err := flowops.Apply(loaded, models.ChangeNameRequest{DisplayName: "Stale"})
		require.NoError(t, err)

		err = repo.Save(ctx, stale, loaded.Revision)
		assert.True(t, persistence.IsRevisionConflict(err))

		reloaded, err := repo.GetByID(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", reloaded.DisplayName)
		assert.Equal(t, int64(2), reloaded.Revision)
	})

	t.Run("list by flow", func(t *testing.T) {
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, repo.Save(ctx, NewFlowVersion(t, "contract-2", "contract-flow"), 0))
		require.NoError(t, repo.Save(ctx, NewFlowVersion(t, "contract-other", "other-flow"), 0))

		versions, err := repo.ListByFlow(ctx, "contract-flow")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "contract-1", versions[0].ID)
		assert.Equal(t, "contract-2", versions[1].ID)

		empty, err := repo.ListByFlow(ctx, "no-such-flow")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "contract-2"))

		_, err := repo.GetByID(ctx, "contract-2")
		assert.True(t, persistence.IsFlowVersionNotFound(err))

		versions, err := repo.ListByFlow(ctx, "contract-flow")
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, "contract-1", versions[0].ID)
	})
}
