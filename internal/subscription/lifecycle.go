// Package subscription holds the tenant subscription state machine.
//
// Status is never stored: it is derived from the tenant's flags and timestamps
// at the moment it is asked for, so expiry takes effect lazily.
package subscription

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"agendapro/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	Trialing  Status = "trialing"
	Active    Status = "active"
	Expired   Status = "expired"
	Suspended Status = "suspended"
)

const (
	TrialPeriod   = 7 * 24 * time.Hour
	BillingPeriod = 30 * 24 * time.Hour
	day           = 24 * time.Hour
)

var (
	ErrAlreadyProcessed    = errors.New("payment already processed")
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrInvalidRegistration = errors.New("invalid registration")
)

// EvaluateStatus returns Expired once expiresAt has passed, whatever isActive says,
// otherwise Active or Trialing from the flag.
func EvaluateStatus(t *models.Tenant, now time.Time) Status {
	if t.ExpiresAt.Before(now) {
		return Expired
	}
	if t.IsActive {
		return Active
	}
	return Trialing
}

// EvaluateStatusWith is EvaluateStatus that also reports admin suspension.
func EvaluateStatusWith(t *models.Tenant, now time.Time) Status {
	st := EvaluateStatus(t, now)
	if st == Trialing && t.SuspendedAt != nil {
		return Suspended
	}
	return st
}

// DaysRemaining is max(0, ceil((expiresAt-now)/24h)).
func DaysRemaining(t *models.Tenant, now time.Time) int {
	left := t.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(day)))
}

func ExpiringSoon(t *models.Tenant, now time.Time) bool {
	return EvaluateStatus(t, now) == Active && DaysRemaining(t, now) <= models.ExpiringSoonDays
}

// Policy settles whether a trialing tenant can use the product before payment.
type Policy struct {
	TrialGrantsAccess bool
}

func HasAccess(t *models.Tenant, now time.Time, p Policy) bool {
	switch EvaluateStatusWith(t, now) {
	case Active:
		return true
	case Trialing:
		return p.TrialGrantsAccess
	default:
		return false
	}
}

type Draft struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone"`
	Plan         string `json:"plan"`
}

func (d *Draft) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.BusinessName = strings.TrimSpace(d.BusinessName)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Plan = strings.ToLower(strings.TrimSpace(d.Plan))
}

// Normalized returns the draft with trimmed fields, a lower-cased email and plan.
func (d Draft) Normalized() Draft {
	d.normalize()
	return d
}

func (d Draft) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	}
	if d.BusinessName == "" {
		return fmt.Errorf("%w: business name is required", ErrInvalidRegistration)
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return fmt.Errorf("%w: email: %v", ErrInvalidRegistration, err)
	}
	if _, err := LookupPlan(d.Plan); err != nil {
		return err
	}
	return nil
}

// Registration is everything created for a self-registered tenant.
type Registration struct {
	Tenant  *models.Tenant
	User    *models.User
	Profile *models.TenantProfile
	Payment *models.PaymentRecord
}

// Register builds an inactive tenant with a 7 day window, its inactive owner and
// a pending payment for the plan price.
func Register(d Draft, price decimal.Decimal, now time.Time) (*Registration, error) {
	d.normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	plan, _ := LookupPlan(d.Plan)

	tenant := &models.Tenant{
		ID:           uuid.NewString(),
		Name:         d.Name,
		BusinessName: d.BusinessName,
		Email:        d.Email,
		Phone:        d.Phone,
		IsActive:     false,
		CreatedAt:    now,
		ExpiresAt:    now.Add(TrialPeriod),
	}
	applyPlan(tenant, plan)

	user := &models.User{
		ID:        uuid.NewString(),
		Email:     d.Email,
		Name:      d.Name,
		Role:      models.RoleMerchant,
		TenantID:  tenant.ID,
		IsActive:  false,
		CreatedAt: now,
	}

	return &Registration{
		Tenant:  tenant,
		User:    user,
		Profile: models.DefaultProfile(tenant),
		Payment: newPayment(tenant.ID, plan.ID, price, now),
	}, nil
}

// NewRenewal builds the pending payment a tenant owes to (re)subscribe to a plan.
func NewRenewal(t *models.Tenant, planID string, price decimal.Decimal, now time.Time) (*models.PaymentRecord, error) {
	if planID == "" {
		planID = t.Plan
	}
	if _, err := LookupPlan(planID); err != nil {
		return nil, err
	}
	return newPayment(t.ID, planID, price, now), nil
}

func newPayment(tenantID, plan string, price decimal.Decimal, now time.Time) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Plan:      plan,
		Amount:    price,
		Status:    models.PaymentPending,
		CreatedAt: now,
	}
}

// ApplyConfirmation is the confirmPayment transition on in-memory records. Persistent
// stores must perform the same writes atomically, guarded on the pending status.
func ApplyConfirmation(p *models.PaymentRecord, t *models.Tenant, users []*models.User, now time.Time) error {
	if !p.IsPending() {
		return ErrAlreadyProcessed
	}
	if p.TenantID != t.ID {
		return fmt.Errorf("payment %s does not belong to tenant %s", p.ID, t.ID)
	}
	plan, err := LookupPlan(p.Plan)
	if err != nil {
		return err
	}

	confirmedAt := now
	p.Status = models.PaymentConfirmed
	p.ConfirmedAt = &confirmedAt

	t.IsActive = true
	t.ExpiresAt = now.Add(BillingPeriod)
	t.SuspendedAt = nil
	applyPlan(t, plan)

	for _, u := range users {
		if u.TenantID == t.ID {
			u.IsActive = true
		}
	}
	return nil
}
