package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taepop/chingoo-sub000/pkg/persona"
)

// WindowStats counts assignments with timestamp in [since, now), keyed by
// combo. Implements persona.Log.
func (s *SQLiteStore) WindowStats(ctx context.Context, since time.Time) (persona.WindowStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT combo_key, COUNT(*) FROM persona_window_log
WHERE assigned_at_ms >= ? GROUP BY combo_key`, toMS(since))
	if err != nil {
		return persona.WindowStats{}, fmt.Errorf("load persona window: %w", err)
	}
	defer rows.Close()

	stats := persona.WindowStats{PerCombo: map[string]int{}}
	for rows.Next() {
		var combo string
		var count int
		if err := rows.Scan(&combo, &count); err != nil {
			return persona.WindowStats{}, fmt.Errorf("scan persona window row: %w", err)
		}
		stats.PerCombo[combo] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// SaveAssignment persists the frozen assignment and its window-log entry in
// one transaction, so the anti-cloning accounting can never drift from the
// assignments themselves.
func (s *SQLiteStore) SaveAssignment(ctx context.Context, a persona.Assignment) error {
	styleJSON, err := json.Marshal(a.Style)
	if err != nil {
		return fmt.Errorf("encode persona style: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persona tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO persona_assignments(user_id, friend_id, template_id, seed, combo_key, style_json, assigned_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.FriendID, a.TemplateID, a.Seed, a.ComboKey.String(),
		string(styleJSON), toMS(a.AssignedAt))
	if err != nil {
		return fmt.Errorf("save persona assignment: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO persona_window_log(combo_key, assigned_at_ms) VALUES(?, ?)`,
		a.ComboKey.String(), toMS(a.AssignedAt))
	if err != nil {
		return fmt.Errorf("log persona assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persona tx: %w", err)
	}
	return nil
}

// GetAssignment loads the frozen persona for a pair.
func (s *SQLiteStore) GetAssignment(ctx context.Context, userID, friendID string) (persona.Assignment, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT user_id, friend_id, template_id, seed, combo_key, style_json, assigned_at_ms
FROM persona_assignments WHERE user_id = ? AND friend_id = ?`, userID, friendID)

	var a persona.Assignment
	var comboKey, styleJSON string
	var assignedMS int64
	err := row.Scan(&a.UserID, &a.FriendID, &a.TemplateID, &a.Seed, &comboKey, &styleJSON, &assignedMS)
	if err == sql.ErrNoRows {
		return persona.Assignment{}, false, nil
	}
	if err != nil {
		return persona.Assignment{}, false, fmt.Errorf("load persona assignment: %w", err)
	}
	if err := json.Unmarshal([]byte(styleJSON), &a.Style); err != nil {
		return persona.Assignment{}, false, fmt.Errorf("decode persona style: %w", err)
	}
	a.ComboKey = parseComboKey(comboKey)
	a.AssignedAt = fromMS(assignedMS)
	return a, true, nil
}

func parseComboKey(raw string) persona.ComboKey {
	parts := strings.SplitN(raw, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return persona.ComboKey{
		Archetype:    persona.Archetype(parts[0]),
		HumorMode:    persona.HumorMode(parts[1]),
		FriendEnergy: persona.FriendEnergy(parts[2]),
	}
}
