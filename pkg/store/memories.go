package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taepop/chingoo-sub000/pkg/memory"
)

// GetActiveByKey returns the ACTIVE record for a key, if any.
func (s *SQLiteStore) GetActiveByKey(ctx context.Context, userID, friendID, key string) (memory.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, friend_id, mem_type, mem_key, mem_value, confidence, status,
	superseded_by, invalid_reason, source_ids_json, created_at_ms, last_confirmed_at_ms
FROM memories WHERE user_id = ? AND friend_id = ? AND mem_key = ? AND status = 'active'
ORDER BY created_at_ms DESC LIMIT 1`, userID, friendID, key)
	return scanMemory(row)
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (memory.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, friend_id, mem_type, mem_key, mem_value, confidence, status,
	superseded_by, invalid_reason, source_ids_json, created_at_ms, last_confirmed_at_ms
FROM memories WHERE id = ?`, id)
	return scanMemory(row)
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, rec memory.Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO memories(id, user_id, friend_id, mem_type, mem_key, mem_value, confidence,
	status, superseded_by, invalid_reason, source_ids_json, created_at_ms, last_confirmed_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.FriendID, rec.Type, rec.Key, rec.Value, rec.Confidence,
		rec.Status, rec.SupersededBy, rec.InvalidReason, encodeIDs(rec.SourceMessageIDs),
		toMS(rec.CreatedAt), toMS(rec.LastConfirmedAt))
	if err != nil {
		return fmt.Errorf("insert memory record: %w", err)
	}
	return nil
}

// MergeConfirmation appends the source id (deduplicated) and bumps
// confidence and the last-confirmed timestamp.
func (s *SQLiteStore) MergeConfirmation(ctx context.Context, id, sourceMessageID string, confidence float64, at time.Time) error {
	rec, found, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("merge memory %s: no such record", id)
	}
	ids := rec.SourceMessageIDs
	seen := false
	for _, existing := range ids {
		if existing == sourceMessageID {
			seen = true
			break
		}
	}
	if !seen {
		ids = append(ids, sourceMessageID)
	}

	_, err = s.db.ExecContext(ctx, `
UPDATE memories SET confidence = ?, source_ids_json = ?, last_confirmed_at_ms = ?
WHERE id = ?`, confidence, encodeIDs(ids), toMS(at), id)
	if err != nil {
		return fmt.Errorf("merge memory %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) SupersedeRecord(ctx context.Context, oldID, newID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE memories SET status = 'superseded', superseded_by = ?, last_confirmed_at_ms = ?
WHERE id = ?`, newID, toMS(at), oldID)
	if err != nil {
		return fmt.Errorf("supersede memory %s: %w", oldID, err)
	}
	return nil
}

func (s *SQLiteStore) InvalidateRecord(ctx context.Context, id, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE memories SET status = 'invalid', invalid_reason = ?, last_confirmed_at_ms = ?
WHERE id = ?`, reason, toMS(at), id)
	if err != nil {
		return fmt.Errorf("invalidate memory %s: %w", id, err)
	}
	return nil
}

// ListActive returns ACTIVE records oldest first, so surfacing order is
// stable across calls. A non-positive limit returns everything.
func (s *SQLiteStore) ListActive(ctx context.Context, userID, friendID string, limit int) ([]memory.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, friend_id, mem_type, mem_key, mem_value, confidence, status,
	superseded_by, invalid_reason, source_ids_json, created_at_ms, last_confirmed_at_ms
FROM memories WHERE user_id = ? AND friend_id = ? AND status = 'active'
ORDER BY created_at_ms ASC, id ASC LIMIT ?`, userID, friendID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active memories: %w", err)
	}
	defer rows.Close()

	var out []memory.Record
	for rows.Next() {
		rec, err := scanMemoryFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SuppressedKeys(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mem_key FROM suppressed_keys WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list suppressed keys: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan suppressed key: %w", err)
		}
		out[key] = true
	}
	return out, rows.Err()
}

// AddSuppressedKey grows the set monotonically; re-adding is a no-op.
func (s *SQLiteStore) AddSuppressedKey(ctx context.Context, userID, key string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO suppressed_keys(user_id, mem_key, created_at_ms) VALUES(?, ?, ?)
ON CONFLICT(user_id, mem_key) DO NOTHING`, userID, key, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("suppress key %s: %w", key, err)
	}
	return nil
}

func scanMemory(row *sql.Row) (memory.Record, bool, error) {
	rec, err := scanMemoryFrom(row)
	if err == sql.ErrNoRows {
		return memory.Record{}, false, nil
	}
	if err != nil {
		return memory.Record{}, false, err
	}
	return rec, true, nil
}

func scanMemoryFrom(sc rowScanner) (memory.Record, error) {
	var rec memory.Record
	var sourceJSON string
	var createdMS, confirmedMS int64
	err := sc.Scan(&rec.ID, &rec.UserID, &rec.FriendID, &rec.Type, &rec.Key, &rec.Value,
		&rec.Confidence, &rec.Status, &rec.SupersededBy, &rec.InvalidReason,
		&sourceJSON, &createdMS, &confirmedMS)
	if err != nil {
		return memory.Record{}, err
	}
	rec.SourceMessageIDs = decodeIDs(sourceJSON)
	rec.CreatedAt = fromMS(createdMS)
	rec.LastConfirmedAt = fromMS(confirmedMS)
	return rec, nil
}
