package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ServiceSnapshot is the copy of a service kept on an appointment.
type ServiceSnapshot struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
}

func (s *Service) Snapshot() ServiceSnapshot {
	return ServiceSnapshot{
		ID:              s.ID,
		Name:            s.Name,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
	}
}

type Appointment struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenant_id"`
	ClientName       string          `json:"client_name"`
	ClientPhone      string          `json:"client_phone"`
	Service          ServiceSnapshot `json:"service"`
	Date             string          `json:"date"`
	StartTime        string          `json:"start_time"`
	EndTime          string          `json:"end_time"`
	PaymentMethod    string          `json:"payment_method"`
	Status           string          `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	PaymentConfirmed bool            `json:"payment_confirmed"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Blocking reports whether the appointment occupies its slot.
func (a *Appointment) Blocking() bool {
	return IsBlockingStatus(a.Status)
}

func IsBlockingStatus(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

var appointmentTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an appointment may move from one status to another.
// Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidPaymentMethod checks the method against the known set.
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodPix, PaymentMethodCard, PaymentMethodCash:
		return true
	}
	return false
}
