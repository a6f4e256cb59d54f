package service

import (
	"context"
	"time"

	"agendapro/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}
func (m *mockRepo) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}
func (m *mockRepo) SetTenantActive(ctx context.Context, id string, active bool, at time.Time) (*models.Tenant, error) {
	args := m.Called(ctx, id, active, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}
func (m *mockRepo) CreateRegistration(
	ctx context.Context, t *models.Tenant, u *models.User, p *models.TenantProfile, pay *models.PaymentRecord,
) error {
	return m.Called(ctx, t, u, p, pay).Error(0)
}
func (m *mockRepo) GetProfile(ctx context.Context, tenantID string) (*models.TenantProfile, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantProfile), args.Error(1)
}
func (m *mockRepo) SaveProfile(ctx context.Context, p *models.TenantProfile) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) ListUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}
func (m *mockRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockRepo) GetService(ctx context.Context, tenantID, id string) (*models.Service, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}
func (m *mockRepo) ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*models.Service, error) {
	args := m.Called(ctx, tenantID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Service), args.Error(1)
}
func (m *mockRepo) CreateService(ctx context.Context, s *models.Service) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockRepo) UpdateService(ctx context.Context, s *models.Service) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockRepo) GetAppointment(ctx context.Context, tenantID, id string) (*models.Appointment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *mockRepo) ListAppointments(ctx context.Context, tenantID, date string) ([]*models.Appointment, error) {
	args := m.Called(ctx, tenantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}
func (m *mockRepo) ListAppointmentsInRange(ctx context.Context, tenantID, from, to string) ([]*models.Appointment, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}
func (m *mockRepo) CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockRepo) UpdateAppointmentStatus(ctx context.Context, tenantID, id, status string, at time.Time) (*models.Appointment, error) {
	args := m.Called(ctx, tenantID, id, status, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *mockRepo) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}
func (m *mockRepo) ListPayments(ctx context.Context, status string) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentRecord), args.Error(1)
}
func (m *mockRepo) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockRepo) ConfirmPayment(ctx context.Context, id string, at time.Time) (*models.PaymentRecord, *models.Tenant, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.PaymentRecord), args.Get(1).(*models.Tenant), args.Error(2)
}
func (m *mockRepo) ExpireStalePayments(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockRepo) PaymentTotals(ctx context.Context) (models.PaymentTotals, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.PaymentTotals), args.Error(1)
}
func (m *mockRepo) ListTransactions(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Transaction, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}
func (m *mockRepo) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}
func (m *mockRepo) DeleteTransaction(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}
func (m *mockRepo) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminSettings), args.Error(1)
}
func (m *mockRepo) SaveSettings(ctx context.Context, s *models.AdminSettings) error {
	return m.Called(ctx, s).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// fixedClock pins a service clock.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func (m *mockRepo) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockRepo) DeleteTenant(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) UpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockRepo) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) DeleteAppointment(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}
