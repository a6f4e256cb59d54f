package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agendapro/internal/models"
	"agendapro/internal/subscription"

	"github.com/shopspring/decimal"
)

const paymentColumns = `id, tenant_id, plan, amount, status, created_at, confirmed_at`

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	var (
		p           models.PaymentRecord
		confirmedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.TenantID, &p.Plan, &p.Amount, &p.Status, &p.CreatedAt, &confirmedAt); err != nil {
		return nil, err
	}
	p.ConfirmedAt = timePtr(confirmedAt)
	return &p, nil
}

func (db *DB) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	return getPayment(ctx, db.DB, id)
}

func getPayment(ctx context.Context, q queryer, id string) (*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	p, err := scanPayment(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListPayments returns payments with the given status, or all of them when status is empty.
func (db *DB) ListPayments(ctx context.Context, status string) ([]*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	return insertPayment(ctx, db.DB, p)
}

func insertPayment(ctx context.Context, e execer, p *models.PaymentRecord) error {
	_, err := e.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.Plan, p.Amount, p.Status, p.CreatedAt.UTC(), nullTime(p.ConfirmedAt))
	if isUniqueViolation(err, "payments.tenant_id") {
		return ErrPendingPaymentExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ConfirmPayment applies the confirmation transition to the payment, its tenant and the
// tenant's users in one transaction. The payment update is guarded on status = 'pending'
// so two concurrent confirmations extend the tenant once.
func (db *DB) ConfirmPayment(ctx context.Context, id string, at time.Time) (*models.PaymentRecord, *models.Tenant, error) {
	at = at.UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	payment, err := getPayment(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := getTenant(ctx, tx, payment.TenantID)
	if err != nil {
		return nil, nil, err
	}
	if err := subscription.ApplyConfirmation(payment, tenant, nil, at); err != nil {
		return nil, nil, err
	}

	result, err := tx.ExecContext(ctx, `UPDATE payments SET status = ?, confirmed_at = ? WHERE id = ? AND status = ?`,
		payment.Status, nullTime(payment.ConfirmedAt), id, models.PaymentPending)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return nil, nil, ErrAlreadyProcessed
	}

	_, err = tx.ExecContext(ctx, `UPDATE tenants
		SET is_active = ?, expires_at = ?, plan = ?, max_users = ?, features = ?, suspended_at = NULL
		WHERE id = ?`,
		tenant.IsActive, tenant.ExpiresAt.UTC(), tenant.Plan, tenant.MaxUsers, joinList(tenant.Features), tenant.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to activate tenant: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_active = 1 WHERE tenant_id = ?`, tenant.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to activate users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return payment, tenant, nil
}

// ExpireStalePayments marks pending payments created before the cutoff as expired.
func (db *DB) ExpireStalePayments(ctx context.Context, createdBefore time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `UPDATE payments SET status = ? WHERE status = ? AND created_at < ?`,
		models.PaymentExpired, models.PaymentPending, createdBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire payments: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) PaymentTotals(ctx context.Context) (models.PaymentTotals, error) {
	totals := models.PaymentTotals{Confirmed: decimal.Zero, Pending: decimal.Zero}

	rows, err := db.QueryContext(ctx, `SELECT status, amount FROM payments WHERE status IN (?, ?)`,
		models.PaymentConfirmed, models.PaymentPending)
	if err != nil {
		return totals, fmt.Errorf("failed to sum payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			amount decimal.Decimal
		)
		if err := rows.Scan(&status, &amount); err != nil {
			return totals, fmt.Errorf("failed to scan payment amount: %w", err)
		}
		switch status {
		case models.PaymentConfirmed:
			totals.Confirmed = totals.Confirmed.Add(amount)
			totals.ConfirmedCount++
		case models.PaymentPending:
			totals.Pending = totals.Pending.Add(amount)
			totals.PendingCount++
		}
	}
	return totals, rows.Err()
}
