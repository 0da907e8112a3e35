// Package store is the sqlite persistence layer. It owns every shared
// mutable resource (messages, memories, relationship rows, the persona
// window log, user controls) and serializes concurrent writers through a
// single connection.
package store

import (
	"errors"
	"time"
)

// ErrDuplicateMessage reports that a client message id already won its
// insert; the caller replays the committed result instead of reprocessing.
var ErrDuplicateMessage = errors.New("store: duplicate client message id")

// Role tags a message row.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageStatus is the lifecycle of a message row. Only completed assistant
// messages are visible to replay and history checks.
type MessageStatus string

const (
	StatusCompleted MessageStatus = "completed"
)

// Message is one persisted chat message.
type Message struct {
	ID                string
	ClientMessageID   string // unique per conversation, drives idempotency
	ConversationID    string
	UserID            string
	FriendID          string
	Role              Role
	Content           string
	OpenerNorm        string
	SurfacedMemoryIDs []string
	Pipeline          string
	TraceID           string
	Status            MessageStatus
	CreatedAt         time.Time
}

// User is the stored account row.
type User struct {
	ID        string
	State     string // created | onboarding | active
	AgeBand   string // unknown | 13-17 | 18+
	CreatedAt time.Time
}
