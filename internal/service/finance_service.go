package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agendapro/internal/domain"
	"agendapro/internal/logging"
	"agendapro/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type FinanceService struct {
	repo     domain.Repository
	location *time.Location
	logger   *zerolog.Logger
	now      func() time.Time
}

type TransactionInput struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
}

type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	MonthIncome  decimal.Decimal `json:"month_income"`
	MonthExpense decimal.Decimal `json:"month_expense"`
}

type Dashboard struct {
	TodayAppointments   int             `json:"today_appointments"`
	PendingAppointments int             `json:"pending_appointments"`
	WeekRevenue         decimal.Decimal `json:"week_revenue"`
	MonthRevenue        decimal.Decimal `json:"month_revenue"`
}

func NewFinanceService(repo domain.Repository, location *time.Location, logger *zerolog.Logger) *FinanceService {
	if location == nil {
		location = time.UTC
	}
	l := logging.Component(logger, "finance")
	return &FinanceService{repo: repo, location: location, logger: l, now: time.Now}
}

// Add records a manual income or expense.
func (s *FinanceService) Add(ctx context.Context, tenantID string, in TransactionInput) (*models.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Type != models.TransactionIncome && in.Type != models.TransactionExpense:
		return nil, fmt.Errorf("%w: type must be income or expense", ErrValidation)
	case in.Description == "":
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	case !in.Amount.IsPositive():
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Type:        in.Type,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date.UTC(),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Delete removes a manual transaction. Automatic ones fail with database.ErrAutomaticTransaction.
func (s *FinanceService) Delete(ctx context.Context, tenantID, id string) error {
	return s.repo.DeleteTransaction(ctx, tenantID, id)
}

// List returns transactions with from <= date < to. Zero bounds are open.
func (s *FinanceService) List(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Transaction, error) {
	return s.repo.ListTransactions(ctx, tenantID, from, to)
}

func (s *FinanceService) monthBounds(now time.Time) (time.Time, time.Time) {
	now = now.In(s.location)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 1, 0)
}

func (s *FinanceService) Summary(ctx context.Context, tenantID string) (*Summary, error) {
	txs, err := s.repo.ListTransactions(ctx, tenantID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	monthStart, monthEnd := s.monthBounds(s.now())

	sum := &Summary{Balance: decimal.Zero, MonthIncome: decimal.Zero, MonthExpense: decimal.Zero}
	for _, tx := range txs {
		sum.Balance = sum.Balance.Add(tx.Signed())
		if tx.Date.Before(monthStart) || !tx.Date.Before(monthEnd) {
			continue
		}
		if tx.Type == models.TransactionIncome {
			sum.MonthIncome = sum.MonthIncome.Add(tx.Amount)
		} else {
			sum.MonthExpense = sum.MonthExpense.Add(tx.Amount)
		}
	}
	return sum, nil
}

// Dashboard aggregates appointments: revenue counts confirmed and completed ones by
// appointment date, the week starting on Sunday.
func (s *FinanceService) Dashboard(ctx context.Context, tenantID string) (*Dashboard, error) {
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 6)
	monthStart, monthEnd := s.monthBounds(now)
	monthEnd = monthEnd.AddDate(0, 0, -1)

	appointments, err := s.repo.ListAppointmentsInRange(ctx, tenantID, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, err
	}

	todayKey := today.Format(dateLayout)
	weekFrom, weekTo := weekStart.Format(dateLayout), weekEnd.Format(dateLayout)
	monthFrom, monthTo := monthStart.Format(dateLayout), monthEnd.Format(dateLayout)

	d := &Dashboard{WeekRevenue: decimal.Zero, MonthRevenue: decimal.Zero}
	for _, a := range appointments {
		if a.Date == todayKey {
			d.TodayAppointments++
		}
		if a.Status == models.StatusPending {
			d.PendingAppointments++
		}
		if a.Status != models.StatusConfirmed && a.Status != models.StatusCompleted {
			continue
		}
		// dates are YYYY-MM-DD so string order is calendar order
		if a.Date >= weekFrom && a.Date <= weekTo {
			d.WeekRevenue = d.WeekRevenue.Add(a.Service.Price)
		}
		if a.Date >= monthFrom && a.Date <= monthTo {
			d.MonthRevenue = d.MonthRevenue.Add(a.Service.Price)
		}
	}
	return d, nil
}
