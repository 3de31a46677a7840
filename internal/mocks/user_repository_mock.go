package mocks

import (
	"context"
	"time"

	"geopolitics-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock type for the UserRepository type
type MockUserRepository struct {
	mock.Mock
}

// CreateUser provides a mock function with given fields: ctx, user
func (_m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	ret := _m.Called(ctx, user)
	if rf, ok := ret.Get(0).(func(context.Context, *models.User) error); ok {
		return rf(ctx, user)
	}
	return ret.Error(0)
}

// GetUserByUsername provides a mock function with given fields: ctx, username
func (_m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ret := _m.Called(ctx, username)

	var r0 *models.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.User)
	}
	return r0, ret.Error(1)
}

// GetUserByID provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.User)
	}
	return r0, ret.Error(1)
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockTokenRepository is a mock type for the TokenRepository type
type MockTokenRepository struct {
	mock.Mock
}

// SetToken provides a mock function with given fields: ctx, tokenID, userID, ttl
func (_m *MockTokenRepository) SetToken(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	ret := _m.Called(ctx, tokenID, userID, ttl)
	return ret.Error(0)
}

// GetUserIDByTokenID provides a mock function with given fields: ctx, tokenID
func (_m *MockTokenRepository) GetUserIDByTokenID(ctx context.Context, tokenID string) (int64, error) {
	ret := _m.Called(ctx, tokenID)

	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}

// DeleteToken provides a mock function with given fields: ctx, tokenID
func (_m *MockTokenRepository) DeleteToken(ctx context.Context, tokenID string) error {
	ret := _m.Called(ctx, tokenID)
	return ret.Error(0)
}

// NewMockTokenRepository creates a new instance of MockTokenRepository.
func NewMockTokenRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenRepository {
	m := &MockTokenRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
