package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agendapro/internal/models"
)

const transactionColumns = `id, tenant_id, type, description, amount, category, date, appointment_id,
	is_automatic, created_at`

func (db *DB) ListTransactions(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = ?`
	args := []any{tenantID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND date < ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY date DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.TenantID, &t.Type, &t.Description, &t.Amount, &t.Category, &t.Date,
			&t.AppointmentID, &t.IsAutomatic, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (db *DB) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return insertTransaction(ctx, db.DB, t)
}

func insertTransaction(ctx context.Context, e execer, t *models.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := e.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.Type, t.Description, t.Amount, t.Category, t.Date.UTC(),
		t.AppointmentID, t.IsAutomatic, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a manual transaction. Automatic ones are owned by their appointment.
func (db *DB) DeleteTransaction(ctx context.Context, tenantID, id string) error {
	var automatic bool
	err := db.QueryRowContext(ctx, `SELECT is_automatic FROM transactions WHERE tenant_id = ? AND id = ?`,
		tenantID, id).Scan(&automatic)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get transaction: %w", err)
	}
	if automatic {
		return ErrAutomaticTransaction
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE tenant_id = ? AND id = ? AND is_automatic = 0`,
		tenantID, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}
