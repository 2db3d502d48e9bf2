package mocks

import (
	"context"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockFlowVersionRepository is a mock implementation of persistence.FlowVersionRepository interface.
type MockFlowVersionRepository struct {
	mock.Mock
}

func (m *MockFlowVersionRepository) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.FlowVersion), args.Error(1)
}

func (m *MockFlowVersionRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.FlowVersion), args.Error(1)
}

func (m *MockFlowVersionRepository) Save(ctx context.Context, flowVersion *models.FlowVersion, expectedRevision int64) error {
	args := m.Called(ctx, flowVersion, expectedRevision)

	return args.Error(0)
}

func (m *MockFlowVersionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	flowVersionRepo *MockFlowVersionRepository
}

// NewMockPersistence creates a new MockPersistence with a mock flow version repository.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		flowVersionRepo: &MockFlowVersionRepository{},
	}
}

// GetMockFlowVersionRepository returns the underlying mock repository for setting up expectations.
func (m *MockPersistence) GetMockFlowVersionRepository() *MockFlowVersionRepository {
	return m.flowVersionRepo
}

func (m *MockPersistence) FlowVersions() persistence.FlowVersionRepository {
	return m.flowVersionRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
