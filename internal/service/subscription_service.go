package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agendapro/internal/database"
	"agendapro/internal/domain"
	"agendapro/internal/events"
	"agendapro/internal/logging"
	"agendapro/internal/metrics"
	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/rs/zerolog"
)

type SubscriptionService struct {
	repo     domain.Repository
	settings *SettingsService
	eventBus domain.EventPublisher
	policy   subscription.Policy
	logger   *zerolog.Logger
	now      func() time.Time
}

// StatusSnapshot is what the merchant panel shows about its plan.
type StatusSnapshot struct {
	TenantID      string              `json:"tenant_id"`
	Plan          string              `json:"plan"`
	Status        subscription.Status `json:"status"`
	ExpiresAt     time.Time           `json:"expires_at"`
	DaysRemaining int                 `json:"days_remaining"`
	ExpiringSoon  bool                `json:"expiring_soon"`
	HasAccess     bool                `json:"has_access"`
}

type LoginResult struct {
	User   *models.User        `json:"user"`
	Tenant *models.Tenant      `json:"tenant,omitempty"`
	Status subscription.Status `json:"status,omitempty"`
}

func NewSubscriptionService(
	repo domain.Repository,
	settings *SettingsService,
	eventBus domain.EventPublisher,
	policy subscription.Policy,
	logger *zerolog.Logger,
) *SubscriptionService {
	l := logging.Component(logger, "subscription")
	return &SubscriptionService{
		repo:     repo,
		settings: settings,
		eventBus: eventBus,
		policy:   policy,
		logger:   l,
		now:      time.Now,
	}
}

// Register creates an inactive tenant, its owner and a pending payment priced from settings.
func (s *SubscriptionService) Register(ctx context.Context, draft subscription.Draft) (*subscription.Registration, error) {
	draft = draft.Normalized()
	_, err := s.repo.GetUserByEmail(ctx, draft.Email)
	if err == nil {
		return nil, database.ErrEmailTaken
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	price, err := s.settings.PlanPrice(ctx, draft.Plan)
	if err != nil {
		return nil, err
	}

	reg, err := subscription.Register(draft, price, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRegistration(ctx, reg.Tenant, reg.User, reg.Profile, reg.Payment); err != nil {
		return nil, err
	}

	s.publish(events.EventTenantRegistered, events.TenantEventPayload{
		TenantID:     reg.Tenant.ID,
		BusinessName: reg.Tenant.BusinessName,
		Email:        reg.Tenant.Email,
		Plan:         reg.Tenant.Plan,
		IsActive:     reg.Tenant.IsActive,
		ExpiresAt:    reg.Tenant.ExpiresAt,
	})
	s.logger.Info().
		Str("tenant_id", reg.Tenant.ID).
		Str("plan", reg.Tenant.Plan).
		Str("payment_id", reg.Payment.ID).
		Msg("tenant registered")
	return reg, nil
}

// ConfirmPayment activates the tenant behind a pending payment. A second confirmation
// of the same payment fails with ErrAlreadyProcessed and changes nothing.
func (s *SubscriptionService) ConfirmPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, *models.Tenant, error) {
	payment, tenant, err := s.repo.ConfirmPayment(ctx, paymentID, s.now())
	if err != nil {
		if errors.Is(err, subscription.ErrAlreadyProcessed) {
			s.logger.Warn().Str("payment_id", paymentID).Msg("payment already processed")
		}
		return nil, nil, err
	}

	metrics.IncPaymentConfirmed()
	s.publish(events.EventPaymentConfirmed, events.PaymentEventPayload{
		PaymentID:    payment.ID,
		TenantID:     tenant.ID,
		BusinessName: tenant.BusinessName,
		Plan:         payment.Plan,
		Amount:       payment.Amount,
		Status:       payment.Status,
		ExpiresAt:    tenant.ExpiresAt,
	})
	s.logger.Info().
		Str("payment_id", payment.ID).
		Str("tenant_id", tenant.ID).
		Time("expires_at", tenant.ExpiresAt).
		Msg("payment confirmed")
	return payment, tenant, nil
}

// RequestRenewal opens a pending payment for the tenant's next period. An empty plan
// keeps the current one.
func (s *SubscriptionService) RequestRenewal(ctx context.Context, tenantID, plan string) (*models.PaymentRecord, error) {
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if plan == "" {
		plan = tenant.Plan
	}
	price, err := s.settings.PlanPrice(ctx, plan)
	if err != nil {
		return nil, err
	}
	payment, err := subscription.NewRenewal(tenant, plan, price, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.publish(events.EventPaymentRequested, events.PaymentEventPayload{
		PaymentID:    payment.ID,
		TenantID:     tenant.ID,
		BusinessName: tenant.BusinessName,
		Plan:         payment.Plan,
		Amount:       payment.Amount,
		Status:       payment.Status,
	})
	return payment, nil
}

func (s *SubscriptionService) Status(ctx context.Context, tenantID string) (*StatusSnapshot, error) {
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(tenant), nil
}

func (s *SubscriptionService) snapshot(t *models.Tenant) *StatusSnapshot {
	now := s.now()
	return &StatusSnapshot{
		TenantID:      t.ID,
		Plan:          t.Plan,
		Status:        subscription.EvaluateStatusWith(t, now),
		ExpiresAt:     t.ExpiresAt,
		DaysRemaining: subscription.DaysRemaining(t, now),
		ExpiringSoon:  subscription.ExpiringSoon(t, now),
		HasAccess:     subscription.HasAccess(t, now, s.policy),
	}
}

// CheckLogin gates panel access after credentials were verified elsewhere.
func (s *SubscriptionService) CheckLogin(ctx context.Context, email string) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		if !user.IsActive {
			return nil, ErrUserInactive
		}
		return &LoginResult{User: user}, nil
	}

	tenant, err := s.repo.GetTenant(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	status := subscription.EvaluateStatusWith(tenant, s.now())

	if !user.IsActive && !(status == subscription.Trialing && s.policy.TrialGrantsAccess) {
		return nil, ErrUserInactive
	}
	switch status {
	case subscription.Expired:
		return nil, ErrSubscriptionExpired
	case subscription.Suspended:
		return nil, ErrUserInactive
	}
	return &LoginResult{User: user, Tenant: tenant, Status: status}, nil
}

// SetTenantActive is the admin toggle. Deactivation suspends the tenant and its users.
func (s *SubscriptionService) SetTenantActive(ctx context.Context, tenantID string, active bool) (*models.Tenant, error) {
	tenant, err := s.repo.SetTenantActive(ctx, tenantID, active, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(events.EventTenantActivityToggle, events.TenantEventPayload{
		TenantID:     tenant.ID,
		BusinessName: tenant.BusinessName,
		Email:        tenant.Email,
		Plan:         tenant.Plan,
		IsActive:     tenant.IsActive,
		ExpiresAt:    tenant.ExpiresAt,
	})
	logging.Ctx(logging.WithTenant(ctx, tenantID), s.logger).Info().Bool("active", active).Msg("tenant activity changed")
	return tenant, nil
}

func (s *SubscriptionService) ListPayments(ctx context.Context, status string) ([]*models.PaymentRecord, error) {
	switch status {
	case "", models.PaymentPending, models.PaymentConfirmed, models.PaymentExpired:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}
	return s.repo.ListPayments(ctx, status)
}

func (s *SubscriptionService) PaymentTotals(ctx context.Context) (models.PaymentTotals, error) {
	return s.repo.PaymentTotals(ctx)
}

// ExpireStalePayments expires pending payments older than maxAge.
func (s *SubscriptionService) ExpireStalePayments(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)
	n, err := s.repo.ExpireStalePayments(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.AddPaymentsExpired(n)
	if n > 0 {
		s.publish(events.EventPaymentsExpired, events.ExpiryEventPayload{Expired: n, Cutoff: cutoff.UTC()})
		s.logger.Info().Int64("expired", n).Time("cutoff", cutoff).Msg("stale payments expired")
	}
	return n, nil
}

func (s *SubscriptionService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
