package mocks

import (
	"context"

	"github.com/blogem/entra-sso/models"
	"github.com/blogem/entra-sso/services"
	"github.com/stretchr/testify/mock"
)

// MockAuthService is a testify mock of services.AuthService
type MockAuthService struct {
	mock.Mock
}

var _ services.AuthService = (*MockAuthService)(nil)

// NewMockAuthService creates a MockAuthService whose expectations are asserted when the test ends
func NewMockAuthService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAuthService {
	m := &MockAuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuthService) BeginLogin(sess services.SessionStore) (string, error) {
	args := m.Called(sess)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) CompleteLogin(ctx context.Context, sess services.SessionStore, params services.CallbackParams) (*models.UserIdentity, error) {
	args := m.Called(ctx, sess, params)
	user, _ := args.Get(0).(*models.UserIdentity)
	return user, args.Error(1)
}

func (m *MockAuthService) Logout(sess services.SessionStore) {
	m.Called(sess)
}

func (m *MockAuthService) CurrentUser(sess services.SessionStore) (models.UserIdentity, bool) {
	args := m.Called(sess)
	return args.Get(0).(models.UserIdentity), args.Bool(1)
}

func (m *MockAuthService) TokenExpired(userID string) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockAuthService) PopReturnTo(sess services.SessionStore) string {
	args := m.Called(sess)
	return args.String(0)
}
