package mocks

import (
	"context"

	"geopolitics-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// MockGamePublisher is a mock type for the GamePublisher type
type MockGamePublisher struct {
	mock.Mock
}

// PublishGameEvent provides a mock function with given fields: ctx, event
func (_m *MockGamePublisher) PublishGameEvent(ctx context.Context, event messaging.GameEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

// Close provides a mock function with given fields:
func (_m *MockGamePublisher) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockGamePublisher creates a new instance of MockGamePublisher.
func NewMockGamePublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGamePublisher {
	m := &MockGamePublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
