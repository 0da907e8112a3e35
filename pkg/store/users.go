package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureUser creates the row if missing and returns it.
func (s *SQLiteStore) EnsureUser(ctx context.Context, id string) (User, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users(id, state, age_band, created_at_ms) VALUES(?, 'created', 'unknown', ?)
ON CONFLICT(id) DO NOTHING`, id, time.Now().UnixMilli())
	if err != nil {
		return User{}, fmt.Errorf("ensure user: %w", err)
	}
	u, found, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, fmt.Errorf("ensure user %s: row missing after insert", id)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (User, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, state, age_band, created_at_ms FROM users WHERE id = ?`, id)

	var u User
	var createdMS int64
	err := row.Scan(&u.ID, &u.State, &u.AgeBand, &createdMS)
	if err == sql.ErrNoRows {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("load user: %w", err)
	}
	u.CreatedAt = fromMS(createdMS)
	return u, true, nil
}

func (s *SQLiteStore) SetUserState(ctx context.Context, id, state string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET state = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("set user state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetUserAgeBand(ctx context.Context, id, ageBand string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET age_band = ? WHERE id = ?`, ageBand, id)
	if err != nil {
		return fmt.Errorf("set user age band: %w", err)
	}
	return nil
}
