package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agendapro/internal/availability"
	"agendapro/internal/models"

	"github.com/google/uuid"
)

const appointmentColumns = `id, tenant_id, client_name, client_phone, service_id, service_name, service_price,
	service_duration, date, start_time, end_time, payment_method, status, notes, payment_confirmed,
	created_at, updated_at`

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.ID, &a.TenantID, &a.ClientName, &a.ClientPhone,
		&a.Service.ID, &a.Service.Name, &a.Service.Price, &a.Service.DurationMinutes,
		&a.Date, &a.StartTime, &a.EndTime, &a.PaymentMethod, &a.Status, &a.Notes, &a.PaymentConfirmed,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) GetAppointment(ctx context.Context, tenantID, id string) (*models.Appointment, error) {
	return getAppointment(ctx, db.DB, tenantID, id)
}

func getAppointment(ctx context.Context, q queryer, tenantID, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE tenant_id = ? AND id = ?`
	a, err := scanAppointment(q.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// ListAppointments returns a tenant's appointments on a date, all statuses, ordered by start time.
func (db *DB) ListAppointments(ctx context.Context, tenantID, date string) ([]*models.Appointment, error) {
	return db.ListAppointmentsInRange(ctx, tenantID, date, date)
}

// ListAppointmentsInRange covers dates from..to inclusive, formatted YYYY-MM-DD.
func (db *DB) ListAppointmentsInRange(ctx context.Context, tenantID, from, to string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE tenant_id = ? AND date >= ? AND date <= ?
		ORDER BY date, start_time`
	rows, err := db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var out []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAppointmentWithLock re-checks the slot against pending and confirmed
// appointments inside the write transaction.
func (db *DB) CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error {
	start, err := availability.ParseClock(a.StartTime)
	if err != nil {
		return fmt.Errorf("start time: %w", err)
	}
	end, err := availability.ParseClock(a.EndTime)
	if err != nil {
		return fmt.Errorf("end time: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `SELECT id, start_time, end_time FROM appointments
		WHERE tenant_id = ? AND date = ? AND status IN (?, ?)`,
		a.TenantID, a.Date, models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	var existing []*models.Appointment
	for rows.Next() {
		e := &models.Appointment{Status: models.StatusPending}
		if err := rows.Scan(&e.ID, &e.StartTime, &e.EndTime); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan booked interval: %w", err)
		}
		existing = append(existing, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	booked, bad := availability.BookedFromAppointments(existing)
	for _, e := range bad {
		db.logger.Warn().Err(e).Str("tenant_id", a.TenantID).Str("date", a.Date).Msg("skipping malformed appointment")
	}
	if !availability.Fits(availability.Interval{Start: start, End: end}, booked) {
		return ErrSlotNotAvailable
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.CreatedAt

	_, err = tx.ExecContext(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TenantID, a.ClientName, a.ClientPhone,
		a.Service.ID, a.Service.Name, a.Service.Price, a.Service.DurationMinutes,
		a.Date, a.StartTime, a.EndTime, a.PaymentMethod, a.Status, a.Notes, a.PaymentConfirmed,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert appointment in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateAppointmentStatus moves an appointment along its lifecycle. The first move to
// confirmed or completed books the service price as automatic income.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, tenantID, id, status string, at time.Time) (*models.Appointment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	a, err := getAppointment(ctx, tx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(a.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, status)
	}

	earnsIncome := (status == models.StatusConfirmed || status == models.StatusCompleted) && !a.PaymentConfirmed

	result, err := tx.ExecContext(ctx, `UPDATE appointments
		SET status = ?, payment_confirmed = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		status, a.PaymentConfirmed || earnsIncome, at.UTC(), id, a.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: appointment %s changed concurrently", ErrInvalidTransition, id)
	}

	if earnsIncome {
		income := &models.Transaction{
			ID:            uuid.NewString(),
			TenantID:      tenantID,
			Type:          models.TransactionIncome,
			Description:   fmt.Sprintf("Agendamento confirmado - %s - %s", a.ClientName, a.Service.Name),
			Amount:        a.Service.Price,
			Category:      models.CategoryServices,
			Date:          at,
			AppointmentID: a.ID,
			IsAutomatic:   true,
			CreatedAt:     at,
		}
		if err := insertTransaction(ctx, tx, income); err != nil {
			return nil, err
		}
	}

	updated, err := getAppointment(ctx, tx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// DeleteAppointment removes an appointment. Income already booked for it stays in
// the ledger.
func (db *DB) DeleteAppointment(ctx context.Context, tenantID, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM appointments WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return nil
}
