package mocks

import (
	"context"

	"github.com/blogem/entra-sso/services"
	"github.com/stretchr/testify/mock"
)

// MockGraphService is a testify mock of services.GraphService
type MockGraphService struct {
	mock.Mock
}

var _ services.GraphService = (*MockGraphService)(nil)

// NewMockGraphService creates a MockGraphService whose expectations are asserted when the test ends
func NewMockGraphService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGraphService {
	m := &MockGraphService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGraphService) GetUserProfile(ctx context.Context, userID string) (map[string]interface{}, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(map[string]interface{})
	return profile, args.Error(1)
}

func (m *MockGraphService) GetUserPhoto(ctx context.Context, userID string) string {
	args := m.Called(ctx, userID)
	return args.String(0)
}

func (m *MockGraphService) GetUserCalendarEvents(ctx context.Context, userID string, opts services.CalendarOptions) []map[string]interface{} {
	args := m.Called(ctx, userID, opts)
	events, _ := args.Get(0).([]map[string]interface{})
	return events
}
