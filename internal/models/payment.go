package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentRecord struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Plan        string          `json:"plan"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}

func (p *PaymentRecord) IsPending() bool {
	return p.Status == PaymentPending
}

type Transaction struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Date          time.Time       `json:"date"`
	AppointmentID string          `json:"appointment_id,omitempty"`
	IsAutomatic   bool            `json:"is_automatic"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the amount with a negative sign for expenses.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// PaymentTotals aggregates payment records by status.
type PaymentTotals struct {
	Confirmed      decimal.Decimal `json:"confirmed"`
	Pending        decimal.Decimal `json:"pending"`
	ConfirmedCount int             `json:"confirmed_count"`
	PendingCount   int             `json:"pending_count"`
}
