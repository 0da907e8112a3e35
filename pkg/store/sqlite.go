package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the canonical persistent storage.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process service. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines and serializes
	// read-modify-write units per pair.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL DEFAULT 'created',
			age_band TEXT NOT NULL DEFAULT 'unknown',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			client_message_id TEXT NOT NULL DEFAULT '',
			conversation_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			opener_norm TEXT NOT NULL DEFAULT '',
			surfaced_ids_json TEXT NOT NULL DEFAULT '[]',
			pipeline TEXT NOT NULL DEFAULT '',
			trace_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS messages_client_id_unique
			ON messages(conversation_id, client_message_id)
			WHERE client_message_id <> '';`,
		`CREATE INDEX IF NOT EXISTS messages_conv_idx
			ON messages(conversation_id, role, status, created_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			mem_type TEXT NOT NULL,
			mem_key TEXT NOT NULL,
			mem_value TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			superseded_by TEXT NOT NULL DEFAULT '',
			invalid_reason TEXT NOT NULL DEFAULT '',
			source_ids_json TEXT NOT NULL DEFAULT '[]',
			created_at_ms INTEGER NOT NULL,
			last_confirmed_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS memories_key_idx
			ON memories(user_id, friend_id, mem_key, status);`,
		`CREATE INDEX IF NOT EXISTS memories_active_idx
			ON memories(user_id, friend_id, status, created_at_ms);`,
		`CREATE TABLE IF NOT EXISTS relationships (
			user_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			stage TEXT NOT NULL DEFAULT 'stranger',
			sessions_count INTEGER NOT NULL DEFAULT 0,
			session_short_replies INTEGER NOT NULL DEFAULT 0,
			last_interaction_at_ms INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(user_id, friend_id)
		);`,
		`CREATE TABLE IF NOT EXISTS persona_assignments (
			user_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			template_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			combo_key TEXT NOT NULL,
			style_json TEXT NOT NULL,
			assigned_at_ms INTEGER NOT NULL,
			PRIMARY KEY(user_id, friend_id)
		);`,
		`CREATE TABLE IF NOT EXISTS persona_window_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			combo_key TEXT NOT NULL,
			assigned_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS persona_window_idx
			ON persona_window_log(assigned_at_ms DESC, combo_key);`,
		`CREATE TABLE IF NOT EXISTS suppressed_keys (
			user_id TEXT NOT NULL,
			mem_key TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL,
			PRIMARY KEY(user_id, mem_key)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(sql string) string {
	line := strings.TrimSpace(sql)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func toMS(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMS(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func encodeIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeIDs(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}
