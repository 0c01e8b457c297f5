package mocks

import (
	"context"

	"github.com/blogem/entra-sso/authenticator"
	"github.com/blogem/entra-sso/models"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock of authenticator.Provider
type MockProvider struct {
	mock.Mock
}

var _ authenticator.Provider = (*MockProvider)(nil)

// NewMockProvider creates a MockProvider whose expectations are asserted when the test ends
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	m := &MockProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProvider) AuthURL(req authenticator.AuthRequest) string {
	args := m.Called(req)
	return args.String(0)
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string, nonce string) (*models.TokenRecord, error) {
	args := m.Called(ctx, code, nonce)
	token, _ := args.Get(0).(*models.TokenRecord)
	return token, args.Error(1)
}

func (m *MockProvider) UserInfo(ctx context.Context, token *models.TokenRecord) (authenticator.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(authenticator.Claims)
	return claims, args.Error(1)
}

func (m *MockProvider) Metadata() authenticator.ProviderMetadata {
	args := m.Called()
	return args.Get(0).(authenticator.ProviderMetadata)
}
