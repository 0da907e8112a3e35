package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/taepop/chingoo-sub000/pkg/postproc"
)

// InsertTurn commits the user message and its assistant reply in one
// transaction. A unique-constraint hit on the client message id means a
// racing request already won; the caller replays the committed result.
// With activateUser set, the onboarding-to-active flip commits atomically
// with the turn, so a crash can never leave an activated user without their
// first turn or vice versa.
func (s *SQLiteStore) InsertTurn(ctx context.Context, userMsg, assistantMsg Message, activateUser bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin turn tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range []Message{userMsg, assistantMsg} {
		_, err := tx.ExecContext(ctx, `
INSERT INTO messages(id, client_message_id, conversation_id, user_id, friend_id, role,
	content, opener_norm, surfaced_ids_json, pipeline, trace_id, status, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ClientMessageID, m.ConversationID, m.UserID, m.FriendID, m.Role,
			m.Content, m.OpenerNorm, encodeIDs(m.SurfacedMemoryIDs), m.Pipeline,
			m.TraceID, m.Status, toMS(m.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateMessage
			}
			return fmt.Errorf("insert %s message: %w", m.Role, err)
		}
	}

	if activateUser {
		_, err := tx.ExecContext(ctx,
			`UPDATE users SET state = 'active' WHERE id = ? AND state = 'onboarding'`,
			userMsg.UserID)
		if err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("commit turn tx: %w", err)
	}
	return nil
}

// GetMessageByClientID loads the committed user message for a replay.
func (s *SQLiteStore) GetMessageByClientID(ctx context.Context, conversationID, clientMessageID string) (Message, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, client_message_id, conversation_id, user_id, friend_id, role, content,
	opener_norm, surfaced_ids_json, pipeline, trace_id, status, created_at_ms
FROM messages WHERE conversation_id = ? AND client_message_id = ?`,
		conversationID, clientMessageID)
	return scanMessage(row)
}

// GetMessage loads one message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (Message, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, client_message_id, conversation_id, user_id, friend_id, role, content,
	opener_norm, surfaced_ids_json, pipeline, trace_id, status, created_at_ms
FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

// RecentAssistantMessages implements postproc.History over completed
// assistant messages, newest first.
func (s *SQLiteStore) RecentAssistantMessages(ctx context.Context, conversationID string, limit int) ([]postproc.PriorMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT content, opener_norm FROM messages
WHERE conversation_id = ? AND role = ? AND status = ?
ORDER BY created_at_ms DESC, id DESC LIMIT ?`,
		conversationID, RoleAssistant, StatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent assistant messages: %w", err)
	}
	defer rows.Close()

	var out []postproc.PriorMessage
	for rows.Next() {
		var m postproc.PriorMessage
		if err := rows.Scan(&m.Content, &m.OpenerNorm); err != nil {
			return nil, fmt.Errorf("scan assistant message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LastAssistantSurfacedIDs returns the surfaced ids of the newest completed
// assistant message, for correction targeting.
func (s *SQLiteStore) LastAssistantSurfacedIDs(ctx context.Context, conversationID string) ([]string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT surfaced_ids_json FROM messages
WHERE conversation_id = ? AND role = ? AND status = ?
ORDER BY created_at_ms DESC, id DESC LIMIT 1`,
		conversationID, RoleAssistant, StatusCompleted)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load last assistant message: %w", err)
	}
	return decodeIDs(raw), true, nil
}

// RecentUserMessages returns the newest completed user messages, newest
// first, for generation context.
func (s *SQLiteStore) RecentUserMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, client_message_id, conversation_id, user_id, friend_id, role, content,
	opener_norm, surfaced_ids_json, pipeline, trace_id, status, created_at_ms
FROM messages WHERE conversation_id = ? AND role = ? AND status = ?
ORDER BY created_at_ms DESC, id DESC LIMIT ?`,
		conversationID, RoleUser, StatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent user messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessageRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row *sql.Row) (Message, bool, error) {
	m, err := scanMessageFrom(row)
	if err == sql.ErrNoRows {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	return m, true, nil
}

func scanMessageRows(rows *sql.Rows) (Message, error) {
	return scanMessageFrom(rows)
}

func scanMessageFrom(sc rowScanner) (Message, error) {
	var m Message
	var surfacedJSON string
	var createdMS int64
	err := sc.Scan(&m.ID, &m.ClientMessageID, &m.ConversationID, &m.UserID, &m.FriendID,
		&m.Role, &m.Content, &m.OpenerNorm, &surfacedJSON, &m.Pipeline, &m.TraceID,
		&m.Status, &createdMS)
	if err != nil {
		return Message{}, err
	}
	m.SurfacedMemoryIDs = decodeIDs(surfacedJSON)
	m.CreatedAt = fromMS(createdMS)
	return m, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
