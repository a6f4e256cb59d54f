package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agendapro/internal/models"
)

const serviceColumns = `id, tenant_id, name, description, price, duration_minutes, is_active, created_at`

func scanService(row rowScanner) (*models.Service, error) {
	var s models.Service
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) GetService(ctx context.Context, tenantID, id string) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE tenant_id = ? AND id = ?`
	s, err := scanService(db.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return s, nil
}

func (db *DB) ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE tenant_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	_, err := db.ExecContext(ctx, `INSERT INTO services (`+serviceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TenantID, s.Name, s.Description, s.Price, s.DurationMinutes, s.IsActive, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert service: %w", err)
	}
	return nil
}

// UpdateService rewrites a service. Appointments keep their own snapshot.
func (db *DB) UpdateService(ctx context.Context, s *models.Service) error {
	result, err := db.ExecContext(ctx, `UPDATE services
		SET name = ?, description = ?, price = ?, duration_minutes = ?, is_active = ?
		WHERE tenant_id = ? AND id = ?`,
		s.Name, s.Description, s.Price, s.DurationMinutes, s.IsActive, s.TenantID, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("service %s: %w", s.ID, ErrNotFound)
	}
	return nil
}
