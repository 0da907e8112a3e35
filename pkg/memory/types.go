// Package memory implements heuristic long-term memory: candidate extraction
// from user text, dedup/conflict persistence rules, correction targeting and
// surfacing selection. Extraction is keyword-driven and referentially
// transparent; no generative calls happen anywhere in this package.
package memory

import (
	"context"
	"time"
)

// Type classifies a memory record.
type Type string

const (
	TypeFact              Type = "fact"
	TypePreference        Type = "preference"
	TypeRelationshipEvent Type = "relationship_event"
	TypeEmotionalPattern  Type = "emotional_pattern"
)

// Status is the lifecycle position of a record. Records are never deleted,
// only status-transitioned, so the audit trail stays intact.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusInvalid    Status = "invalid"
)

// Record is one persisted memory row.
type Record struct {
	ID               string
	UserID           string
	FriendID         string
	Type             Type
	Key              string // namespaced canonical key, e.g. pref:food:pizza
	Value            string
	Confidence       float64
	Status           Status
	SupersededBy     string // set when Status == superseded
	InvalidReason    string
	SourceMessageIDs []string // append-only
	CreatedAt        time.Time
	LastConfirmedAt  time.Time
}

// Candidate is one extraction result before persistence.
type Candidate struct {
	Type       Type
	Key        string
	Value      string
	Confidence float64
}

// Store is the persistence surface this package needs. Implemented by
// pkg/store; the storage layer serializes concurrent writers per owner pair.
type Store interface {
	GetActiveByKey(ctx context.Context, userID, friendID, key string) (Record, bool, error)
	GetRecord(ctx context.Context, id string) (Record, bool, error)
	InsertRecord(ctx context.Context, rec Record) error
	// MergeConfirmation appends sourceMessageID (if absent), sets confidence
	// and bumps the last-confirmed timestamp on an existing row.
	MergeConfirmation(ctx context.Context, id, sourceMessageID string, confidence float64, at time.Time) error
	SupersedeRecord(ctx context.Context, oldID, newID string, at time.Time) error
	InvalidateRecord(ctx context.Context, id, reason string, at time.Time) error
	ListActive(ctx context.Context, userID, friendID string, limit int) ([]Record, error)

	SuppressedKeys(ctx context.Context, userID string) (map[string]bool, error)
	AddSuppressedKey(ctx context.Context, userID, key string) error

	// LastAssistantSurfacedIDs returns the surfaced memory ids of the most
	// recent completed assistant message in the conversation. found is false
	// when the conversation has no assistant message yet.
	LastAssistantSurfacedIDs(ctx context.Context, conversationID string) (ids []string, found bool, err error)
}
