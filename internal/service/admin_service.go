package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"agendapro/internal/domain"
	"agendapro/internal/logging"
	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type AdminStats struct {
	TotalTenants     int             `json:"total_tenants"`
	ActiveTenants    int             `json:"active_tenants"`
	TrialingTenants  int             `json:"trialing_tenants"`
	ExpiredTenants   int             `json:"expired_tenants"`
	TotalUsers       int             `json:"total_users"`
	ActiveUsers      int             `json:"active_users"`
	ConfirmedRevenue decimal.Decimal `json:"confirmed_revenue"`
	PendingRevenue   decimal.Decimal `json:"pending_revenue"`
	PendingPayments  int             `json:"pending_payments"`
}

type AdminService struct {
	repo   domain.Repository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAdminService(repo domain.Repository, logger *zerolog.Logger) *AdminService {
	l := logging.Component(logger, "admin")
	return &AdminService{repo: repo, logger: l, now: time.Now}
}

func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, "")
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.PaymentTotals(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := &AdminStats{
		TotalTenants:     len(tenants),
		TotalUsers:       len(users),
		ConfirmedRevenue: totals.Confirmed,
		PendingRevenue:   totals.Pending,
		PendingPayments:  totals.PendingCount,
	}
	for _, t := range tenants {
		switch subscription.EvaluateStatus(t, now) {
		case subscription.Active:
			stats.ActiveTenants++
		case subscription.Trialing:
			stats.TrialingTenants++
		case subscription.Expired:
			stats.ExpiredTenants++
		}
	}
	for _, u := range users {
		if u.IsActive {
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

// TenantOverview is a tenant with its evaluated subscription state.
type TenantOverview struct {
	*models.Tenant
	Status        subscription.Status `json:"status"`
	DaysRemaining int                 `json:"days_remaining"`
}

func (s *AdminService) ListTenants(ctx context.Context) ([]TenantOverview, error) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]TenantOverview, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, TenantOverview{
			Tenant:        t,
			Status:        subscription.EvaluateStatusWith(t, now),
			DaysRemaining: subscription.DaysRemaining(t, now),
		})
	}
	return out, nil
}

// UserUpdate carries the fields an admin may change on a user. Nil fields are kept.
type UserUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// ListUsers returns every user, or only those with role when it is set.
func (s *AdminService) ListUsers(ctx context.Context, role string) ([]*models.User, error) {
	switch role {
	case "", models.RoleAdmin, models.RoleMerchant:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	users, err := s.repo.ListUsers(ctx, "")
	if err != nil {
		return nil, err
	}
	if role == "" {
		return users, nil
	}
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	wasAdmin := u.IsAdmin() && u.IsActive

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	switch {
	case u.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case u.Role != models.RoleAdmin && u.Role != models.RoleMerchant:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, u.Role)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return nil, fmt.Errorf("%w: email: %v", ErrValidation, err)
	}
	if wasAdmin && !(u.IsAdmin() && u.IsActive) {
		if err := s.keepOneAdmin(ctx, u.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID).Str("role", u.Role).Bool("active", u.IsActive).Msg("user updated")
	return u, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin() && u.IsActive {
		if err := s.keepOneAdmin(ctx, u.ID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// keepOneAdmin fails when the user leaving the admin role is the last active admin.
func (s *AdminService) keepOneAdmin(ctx context.Context, leaving string) error {
	users, err := s.repo.ListUsers(ctx, "")
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != leaving && u.IsAdmin() && u.IsActive {
			return nil
		}
	}
	return fmt.Errorf("%w: the platform needs at least one active admin", ErrValidation)
}

// TenantUpdate carries the fields an admin may change on a tenant. Nil fields are kept.
type TenantUpdate struct {
	Name         *string `json:"name"`
	BusinessName *string `json:"business_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Plan         *string `json:"plan"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateTenant edits a tenant. A plan change moves the tenant to the new plan's
// limits, and an activity change behaves like SetTenantActive.
func (s *AdminService) UpdateTenant(ctx context.Context, id string, in TenantUpdate) (*models.Tenant, error) {
	t, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.BusinessName != nil {
		t.BusinessName = strings.TrimSpace(*in.BusinessName)
	}
	if in.Email != nil {
		t.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		t.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Plan != nil {
		if err := subscription.ChangePlan(t, strings.ToLower(strings.TrimSpace(*in.Plan))); err != nil {
			return nil, err
		}
	}

	switch {
	case t.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case t.BusinessName == "":
		return nil, fmt.Errorf("%w: business name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(t.Email); err != nil {
		return nil, fmt.Errorf("%w: email: %v", ErrValidation, err)
	}

	if err := s.repo.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	if in.IsActive != nil && *in.IsActive != t.IsActive {
		t, err = s.repo.SetTenantActive(ctx, id, *in.IsActive, s.now())
		if err != nil {
			return nil, err
		}
	}
	s.logger.Info().Str("tenant_id", id).Str("plan", t.Plan).Msg("tenant updated")
	return t, nil
}

// DeleteTenant removes a tenant with its users, catalogue, agenda and ledger.
func (s *AdminService) DeleteTenant(ctx context.Context, id string) error {
	if err := s.repo.DeleteTenant(ctx, id); err != nil {
		return err
	}
	s.logger.Warn().Str("tenant_id", id).Msg("tenant deleted")
	return nil
}
