package mocks

import (
	"github.com/blogem/entra-sso/models"
	"github.com/blogem/entra-sso/repositories"
	"github.com/stretchr/testify/mock"
)

// MockTokenRepository is a testify mock of repositories.TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

var _ repositories.TokenRepository = (*MockTokenRepository)(nil)

// NewMockTokenRepository creates a MockTokenRepository whose expectations are asserted when the test ends
func NewMockTokenRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenRepository {
	m := &MockTokenRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenRepository) Store(userID string, token *models.TokenRecord) error {
	args := m.Called(userID, token)
	return args.Error(0)
}

func (m *MockTokenRepository) Get(userID string) (*models.TokenRecord, error) {
	args := m.Called(userID)
	token, _ := args.Get(0).(*models.TokenRecord)
	return token, args.Error(1)
}

func (m *MockTokenRepository) Delete(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}
