package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"agendapro/internal/models"
)

const userColumns = `id, email, name, role, tenant_id, is_active, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		tenantID sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &tenantID, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.TenantID = tenantID.String
	return &u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	u, err := scanUser(db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns users of a tenant, or every user when tenantID is empty.
func (db *DB) ListUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if tenantID != "" {
		query += ` WHERE tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	return insertUser(ctx, db.DB, user)
}

func insertUser(ctx context.Context, e execer, u *models.User) error {
	var tenantID sql.NullString
	if u.TenantID != "" {
		tenantID = sql.NullString{String: u.TenantID, Valid: true}
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := e.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, tenantID, u.IsActive, u.CreatedAt.UTC())
	if isUniqueViolation(err, "users.email") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUser rewrites the editable fields of a user: name, email, role and activity.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	result, err := db.ExecContext(ctx, `UPDATE users SET name = ?, email = ?, role = ?, is_active = ? WHERE id = ?`,
		u.Name, u.Email, u.Role, u.IsActive, u.ID)
	if isUniqueViolation(err, "users.email") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}
