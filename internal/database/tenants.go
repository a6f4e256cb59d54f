package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agendapro/internal/models"
)

const tenantColumns = `id, name, business_name, email, phone, plan, is_active,
	max_users, features, created_at, expires_at, suspended_at`

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		t           models.Tenant
		features    string
		suspendedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Name, &t.BusinessName, &t.Email, &t.Phone, &t.Plan, &t.IsActive,
		&t.MaxUsers, &features, &t.CreatedAt, &t.ExpiresAt, &suspendedAt)
	if err != nil {
		return nil, err
	}
	t.Features = splitList(features)
	t.SuspendedAt = timePtr(suspendedAt)
	return &t, nil
}

func (db *DB) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	return getTenant(ctx, db.DB, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTenant(ctx context.Context, q queryer, id string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = ?`
	t, err := scanTenant(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tenant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

func (db *DB) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// SetTenantActive toggles the admin activation flag. Deactivation records the suspension time.
func (db *DB) SetTenantActive(ctx context.Context, id string, active bool, at time.Time) (*models.Tenant, error) {
	var suspendedAt sql.NullTime
	if !active {
		suspendedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `UPDATE tenants SET is_active = ?, suspended_at = ? WHERE id = ?`,
		active, suspendedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("tenant %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE tenant_id = ?`, active, id); err != nil {
		return nil, fmt.Errorf("failed to update tenant users: %w", err)
	}

	t, err := getTenant(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

// CreateRegistration stores a new tenant together with its profile, owner and first payment.
func (db *DB) CreateRegistration(
	ctx context.Context,
	tenant *models.Tenant,
	user *models.User,
	profile *models.TenantProfile,
	payment *models.PaymentRecord,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO tenants (`+tenantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID, tenant.Name, tenant.BusinessName, tenant.Email, tenant.Phone, tenant.Plan, tenant.IsActive,
		tenant.MaxUsers, joinList(tenant.Features), tenant.CreatedAt.UTC(), tenant.ExpiresAt.UTC(),
		nullTime(tenant.SuspendedAt))
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	if err := saveProfile(ctx, tx, profile); err != nil {
		return err
	}
	if err := insertPayment(ctx, tx, payment); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const profileColumns = `tenant_id, business_name, description, address, phone, email, primary_color,
	open_time, close_time, operating_days, accepts_pix, accepts_card, accepts_cash, pix_key, updated_at`

func (db *DB) GetProfile(ctx context.Context, tenantID string) (*models.TenantProfile, error) {
	var (
		p    models.TenantProfile
		days string
	)
	query := `SELECT ` + profileColumns + ` FROM tenant_profiles WHERE tenant_id = ?`
	err := db.QueryRowContext(ctx, query, tenantID).Scan(
		&p.TenantID, &p.BusinessName, &p.Description, &p.Address, &p.Phone, &p.Email, &p.PrimaryColor,
		&p.Schedule.OpenTime, &p.Schedule.CloseTime, &days,
		&p.PaymentMethods.Pix, &p.PaymentMethods.Card, &p.PaymentMethods.Cash, &p.PaymentMethods.PixKey,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", tenantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Schedule.OperatingDays = splitList(days)
	return &p, nil
}

func (db *DB) SaveProfile(ctx context.Context, profile *models.TenantProfile) error {
	return saveProfile(ctx, db.DB, profile)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveProfile(ctx context.Context, e execer, p *models.TenantProfile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	query := `INSERT INTO tenant_profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			business_name = excluded.business_name,
			description = excluded.description,
			address = excluded.address,
			phone = excluded.phone,
			email = excluded.email,
			primary_color = excluded.primary_color,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			operating_days = excluded.operating_days,
			accepts_pix = excluded.accepts_pix,
			accepts_card = excluded.accepts_card,
			accepts_cash = excluded.accepts_cash,
			pix_key = excluded.pix_key,
			updated_at = excluded.updated_at`
	_, err := e.ExecContext(ctx, query,
		p.TenantID, p.BusinessName, p.Description, p.Address, p.Phone, p.Email, p.PrimaryColor,
		p.Schedule.OpenTime, p.Schedule.CloseTime, joinList(p.Schedule.OperatingDays),
		p.PaymentMethods.Pix, p.PaymentMethods.Card, p.PaymentMethods.Cash, p.PaymentMethods.PixKey,
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// UpdateTenant rewrites a tenant's identity and plan. The owner account, the user
// whose email matched the old tenant email, follows an email change.
func (db *DB) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := getTenant(ctx, tx, t.ID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE tenants
		SET name = ?, business_name = ?, email = ?, phone = ?, plan = ?, max_users = ?, features = ?
		WHERE id = ?`,
		t.Name, t.BusinessName, t.Email, t.Phone, t.Plan, t.MaxUsers, joinList(t.Features), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if current.Email != t.Email {
		_, err = tx.ExecContext(ctx, `UPDATE users SET email = ? WHERE tenant_id = ? AND email = ?`,
			t.Email, t.ID, current.Email)
		if isUniqueViolation(err, "users.email") {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("failed to update tenant owner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// tenantTables hold rows keyed by tenant_id and go away with their tenant.
var tenantTables = []string{"users", "tenant_profiles", "services", "appointments", "payments", "transactions"}

// DeleteTenant removes a tenant and everything it owns.
func (db *DB) DeleteTenant(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tenant %s: %w", id, ErrNotFound)
	}

	for _, table := range tenantTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tenant_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete tenant %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
