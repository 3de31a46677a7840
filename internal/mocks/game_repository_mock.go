package mocks

import (
	"context"

	"geopolitics-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockGameRepository is a mock type for the GameRepository type
type MockGameRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, game
func (_m *MockGameRepository) Create(ctx context.Context, game *models.Game) error {
	ret := _m.Called(ctx, game)
	if rf, ok := ret.Get(0).(func(context.Context, *models.Game) error); ok {
		return rf(ctx, game)
	}
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockGameRepository) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Game
	if rf, ok := ret.Get(0).(func(context.Context, int64) *models.Game); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Game)
	}
	return r0, ret.Error(1)
}

// ListRecent provides a mock function with given fields: ctx, limit
func (_m *MockGameRepository) ListRecent(ctx context.Context, limit int) ([]models.GameSummary, error) {
	ret := _m.Called(ctx, limit)

	var r0 []models.GameSummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.GameSummary)
	}
	return r0, ret.Error(1)
}

// Update provides a mock function with given fields: ctx, game
func (_m *MockGameRepository) Update(ctx context.Context, game *models.Game) error {
	ret := _m.Called(ctx, game)
	if rf, ok := ret.Get(0).(func(context.Context, *models.Game) error); ok {
		return rf(ctx, game)
	}
	return ret.Error(0)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockGameRepository) Delete(ctx context.Context, id int64) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockGameRepository creates a new instance of MockGameRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockGameRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGameRepository {
	m := &MockGameRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
