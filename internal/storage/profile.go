package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetProfileKey upserts one farm profile key.
func (s *Store) SetProfileKey(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_keys (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("setting profile key %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetProfileKey(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM profile_keys WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *Store) DeleteProfileKey(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM profile_keys WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting profile key %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllProfileKeys(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM profile_keys")
	if err != nil {
		return nil, fmt.Errorf("listing profile keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
