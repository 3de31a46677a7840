package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockInferenceClient is a mock type for the inference.Client type
type MockInferenceClient struct {
	mock.Mock
}

// CheckHealth provides a mock function with given fields: ctx
func (_m *MockInferenceClient) CheckHealth(ctx context.Context) bool {
	ret := _m.Called(ctx)
	return ret.Bool(0)
}

// Complete provides a mock function with given fields: ctx, prompt, systemPrompt
func (_m *MockInferenceClient) Complete(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	ret := _m.Called(ctx, prompt, systemPrompt)
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		return rf(ctx, prompt, systemPrompt), ret.Error(1)
	}
	return ret.String(0), ret.Error(1)
}

// Model provides a mock function with given fields:
func (_m *MockInferenceClient) Model() string {
	ret := _m.Called()
	return ret.String(0)
}

// NewMockInferenceClient creates a new instance of MockInferenceClient.
func NewMockInferenceClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockInferenceClient {
	m := &MockInferenceClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
