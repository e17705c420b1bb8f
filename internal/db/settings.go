package db

import (
	"context"
	"database/sql"
	"time"
)

// GetSetting returns the value for a key, or "" when unset
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.q.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting writes a key/value pair
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	return err
}

// SetSettingIfMissing writes a default without clobbering an existing value
func (s *Store) SetSettingIfMissing(ctx context.Context, key, value string) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING",
		key, value, time.Now().Unix(),
	)
	return err
}
