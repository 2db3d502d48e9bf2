package persistence_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		notFound := persistence.NewFlowVersionError("GetByID", "fv-123", persistence.ErrFlowVersionNotFound)
		conflict := persistence.NewRevisionConflictError("fv-123", 4)

		assert.True(t, persistence.IsFlowVersionNotFound(notFound))
		assert.False(t, persistence.IsRevisionConflict(notFound))
		assert.True(t, persistence.IsRevisionConflict(conflict))
		assert.True(t, errors.Is(conflict, persistence.ErrRevisionConflict))
	})

	t.Run("flow version error contains context", func(t *testing.T) {
		err := persistence.NewRevisionConflictError("fv-123", 4)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "fv-123")
		assert.Contains(t, err.Error(), "expected revision 4")
		assert.Contains(t, err.Error(), "revision conflict")
	})
}

func TestStamp(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	fresh := models.NewFlowVersion("fv-1", "flow-1", "")
	persistence.Stamp(fresh, 0, created)
	assert.Equal(t, int64(1), fresh.Revision)
	assert.Equal(t, created, fresh.CreatedAt)
	assert.Equal(t, created, fresh.UpdatedAt)

	persistence.Stamp(fresh, 1, now)
	assert.Equal(t, int64(2), fresh.Revision)
	assert.Equal(t, created, fresh.CreatedAt)
	assert.Equal(t, now, fresh.UpdatedAt)
}
