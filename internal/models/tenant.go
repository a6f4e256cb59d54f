package models

import "time"

type Tenant struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	BusinessName string     `json:"business_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Plan         string     `json:"plan"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	SuspendedAt  *time.Time `json:"suspended_at,omitempty"`
	MaxUsers     int        `json:"max_users"`
	Features     []string   `json:"features"`
}

// HasFeature reports whether the tenant's plan includes the feature.
func (t *Tenant) HasFeature(feature string) bool {
	for _, f := range t.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// OperatingSchedule is the weekly opening window of a tenant.
type OperatingSchedule struct {
	OpenTime      string   `json:"open_time"`
	CloseTime     string   `json:"close_time"`
	OperatingDays []string `json:"operating_days"`
}

// IsZero reports whether no schedule has been configured.
func (s OperatingSchedule) IsZero() bool {
	return s.OpenTime == "" && s.CloseTime == "" && len(s.OperatingDays) == 0
}

type PaymentMethods struct {
	Pix    bool   `json:"pix"`
	Card   bool   `json:"card"`
	Cash   bool   `json:"cash"`
	PixKey string `json:"pix_key,omitempty"`
}

// Accepts reports whether a payment method is enabled.
func (p PaymentMethods) Accepts(method string) bool {
	switch method {
	case PaymentMethodPix:
		return p.Pix
	case PaymentMethodCard:
		return p.Card
	case PaymentMethodCash:
		return p.Cash
	default:
		return false
	}
}

type TenantProfile struct {
	TenantID       string            `json:"tenant_id"`
	BusinessName   string            `json:"business_name"`
	Description    string            `json:"description,omitempty"`
	Address        string            `json:"address,omitempty"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email"`
	PrimaryColor   string            `json:"primary_color,omitempty"`
	Schedule       OperatingSchedule `json:"schedule"`
	PaymentMethods PaymentMethods    `json:"payment_methods"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// DefaultProfile builds the profile a tenant starts with.
func DefaultProfile(t *Tenant) *TenantProfile {
	days := make([]string, len(DefaultOperatingDays))
	copy(days, DefaultOperatingDays)
	return &TenantProfile{
		TenantID:     t.ID,
		BusinessName: t.BusinessName,
		Phone:        t.Phone,
		Email:        t.Email,
		PrimaryColor: "#3B82F6",
		Schedule: OperatingSchedule{
			OpenTime:      DefaultOpenTime,
			CloseTime:     DefaultCloseTime,
			OperatingDays: days,
		},
		PaymentMethods: PaymentMethods{Pix: true, Cash: true},
		UpdatedAt:      t.CreatedAt,
	}
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	TenantID  string    `json:"tenant_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
