package domain

import (
	"context"
	"time"

	"agendapro/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TenantRepository interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	SetTenantActive(ctx context.Context, id string, active bool, at time.Time) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, id string) error
	CreateRegistration(
		ctx context.Context,
		tenant *models.Tenant,
		user *models.User,
		profile *models.TenantProfile,
		payment *models.PaymentRecord,
	) error
	GetProfile(ctx context.Context, tenantID string) (*models.TenantProfile, error)
	SaveProfile(ctx context.Context, profile *models.TenantProfile) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, tenantID string) ([]*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

type ServiceRepository interface {
	GetService(ctx context.Context, tenantID, id string) (*models.Service, error)
	ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*models.Service, error)
	CreateService(ctx context.Context, service *models.Service) error
	UpdateService(ctx context.Context, service *models.Service) error
}

type AppointmentRepository interface {
	GetAppointment(ctx context.Context, tenantID, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, tenantID, date string) ([]*models.Appointment, error)
	ListAppointmentsInRange(ctx context.Context, tenantID, from, to string) ([]*models.Appointment, error)
	CreateAppointmentWithLock(ctx context.Context, appointment *models.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, tenantID, id, status string, at time.Time) (*models.Appointment, error)
	DeleteAppointment(ctx context.Context, tenantID, id string) error
}

type PaymentRepository interface {
	GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error)
	ListPayments(ctx context.Context, status string) ([]*models.PaymentRecord, error)
	CreatePayment(ctx context.Context, payment *models.PaymentRecord) error
	// ConfirmPayment confirms a pending payment, activates its tenant and the tenant's
	// users in one atomic step.
	ConfirmPayment(ctx context.Context, id string, at time.Time) (*models.PaymentRecord, *models.Tenant, error)
	ExpireStalePayments(ctx context.Context, createdBefore time.Time) (int64, error)
	PaymentTotals(ctx context.Context) (models.PaymentTotals, error)
}

type TransactionRepository interface {
	ListTransactions(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Transaction, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, tenantID, id string) error
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (*models.AdminSettings, error)
	SaveSettings(ctx context.Context, settings *models.AdminSettings) error
}

// SettingsCache is the fast store in front of SettingsRepository. It also counts
// requests for rate limiting.
type SettingsCache interface {
	GetSettings(ctx context.Context) (*models.AdminSettings, error)
	SetSettings(ctx context.Context, settings *models.AdminSettings) error
	InvalidateSettings(ctx context.Context) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier delivers a plain text message to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Repository is the full persistence surface the services depend on.
type Repository interface {
	TenantRepository
	UserRepository
	ServiceRepository
	AppointmentRepository
	PaymentRepository
	TransactionRepository
	SettingsRepository
}
