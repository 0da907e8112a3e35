package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taepop/chingoo-sub000/pkg/relationship"
)

// GetRelationship loads the row for one (user, friend) pair.
func (s *SQLiteStore) GetRelationship(ctx context.Context, userID, friendID string) (relationship.State, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT user_id, friend_id, score, stage, sessions_count, session_short_replies, last_interaction_at_ms
FROM relationships WHERE user_id = ? AND friend_id = ?`, userID, friendID)

	var st relationship.State
	var lastMS int64
	err := row.Scan(&st.UserID, &st.FriendID, &st.Score, &st.Stage,
		&st.SessionsCount, &st.SessionShortReplyCount, &lastMS)
	if err == sql.ErrNoRows {
		return relationship.State{}, false, nil
	}
	if err != nil {
		return relationship.State{}, false, fmt.Errorf("load relationship: %w", err)
	}
	st.LastInteractionAt = fromMS(lastMS)
	return st, true, nil
}

// SaveRelationship upserts the full row.
func (s *SQLiteStore) SaveRelationship(ctx context.Context, st relationship.State) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO relationships(user_id, friend_id, score, stage, sessions_count, session_short_replies, last_interaction_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, friend_id) DO UPDATE SET
	score = excluded.score,
	stage = excluded.stage,
	sessions_count = excluded.sessions_count,
	session_short_replies = excluded.session_short_replies,
	last_interaction_at_ms = excluded.last_interaction_at_ms`,
		st.UserID, st.FriendID, st.Score, st.Stage, st.SessionsCount,
		st.SessionShortReplyCount, toMS(st.LastInteractionAt))
	if err != nil {
		return fmt.Errorf("save relationship: %w", err)
	}
	return nil
}

// DecayIdleRelationships drops the score of pairs idle since before the
// cutoff and recomputes their stage. Returns the number of rows touched.
func (s *SQLiteStore) DecayIdleRelationships(ctx context.Context, beforeMS int64, decay int) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, friend_id, score, stage, sessions_count, session_short_replies, last_interaction_at_ms
FROM relationships WHERE last_interaction_at_ms > 0 AND last_interaction_at_ms < ? AND score > 0`,
		beforeMS)
	if err != nil {
		return 0, fmt.Errorf("list idle relationships: %w", err)
	}
	defer rows.Close()

	var idle []relationship.State
	for rows.Next() {
		var st relationship.State
		var lastMS int64
		if err := rows.Scan(&st.UserID, &st.FriendID, &st.Score, &st.Stage,
			&st.SessionsCount, &st.SessionShortReplyCount, &lastMS); err != nil {
			return 0, fmt.Errorf("scan idle relationship: %w", err)
		}
		st.LastInteractionAt = fromMS(lastMS)
		idle = append(idle, st)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for i := range idle {
		score := idle[i].Score - decay
		if score < 0 {
			score = 0
		}
		idle[i].Score = score
		idle[i].Stage = relationship.StageForScore(score)
		if err := s.SaveRelationship(ctx, idle[i]); err != nil {
			return i, err
		}
	}
	return len(idle), nil
}
