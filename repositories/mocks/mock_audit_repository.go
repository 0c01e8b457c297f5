package mocks

import (
	"github.com/blogem/entra-sso/models"
	"github.com/blogem/entra-sso/repositories"
	"github.com/stretchr/testify/mock"
)

// MockAuditRepository is a testify mock of repositories.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

var _ repositories.AuditRepository = (*MockAuditRepository)(nil)

// NewMockAuditRepository creates a MockAuditRepository whose expectations are asserted when the test ends
func NewMockAuditRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAuditRepository {
	m := &MockAuditRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditRepository) Create(entry *models.AuditLogEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByEvent(event string, limit int) ([]models.AuditLogEntry, error) {
	args := m.Called(event, limit)
	entries, _ := args.Get(0).([]models.AuditLogEntry)
	return entries, args.Error(1)
}
