package store

import (
	"context"
	"fmt"
)

// TrimPersonaWindow deletes window-log rows older than the cutoff. Frozen
// assignments are untouched; the anti-cloning window only looks back 24h,
// so retention beyond that is purely an audit concern.
func (s *SQLiteStore) TrimPersonaWindow(ctx context.Context, beforeMS int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM persona_window_log WHERE assigned_at_ms < ?`, beforeMS)
	if err != nil {
		return 0, fmt.Errorf("trim persona window: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trim persona window rows: %w", err)
	}
	return int(n), nil
}
