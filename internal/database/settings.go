package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agendapro/internal/models"
)

// GetSettings returns the stored admin settings, or nil when none were saved yet.
func (db *DB) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	var (
		payload   string
		updatedAt time.Time
	)
	err := db.QueryRowContext(ctx, `SELECT payload, updated_at FROM admin_settings WHERE id = 1`).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var s models.AdminSettings
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.UpdatedAt = updatedAt
	return &s, nil
}

func (db *DB) SaveSettings(ctx context.Context, s *models.AdminSettings) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO admin_settings (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), s.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
