// ABOUTME: Store interface and data types for coursly-gateway persistence
// ABOUTME: Defines Session, Turn, Escalation structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEscalation is returned when a session already has an escalation
var ErrDuplicateEscalation = errors.New("escalation already exists for session")

// Turn role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Escalation status constants
const (
	EscalationStatusOpen       = "open"
	EscalationStatusInProgress = "in-progress"
	EscalationStatusClosed     = "closed"
)

// Turn represents a single message within a session transcript.
// Turns are append-only; insertion order is the conversation order.
type Turn struct {
	ID         string
	SessionKey string
	Role       string // "user" or "assistant"
	Content    string
	CreatedAt  time.Time
}

// Session represents a conversation identified by a client-supplied key.
// Turns are ordered oldest-first.
type Session struct {
	SessionKey string
	Turns      []*Turn
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Escalation represents a request to hand a session over to a human advisor.
// At most one escalation exists per session key (UNIQUE constraint).
type Escalation struct {
	ID         string
	SessionKey string
	Name       string
	Email      string
	Message    string
	Status     string // open, in-progress, closed
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ConversationStore defines session and turn persistence.
type ConversationStore interface {
	// GetOrCreateSession returns the session for key, creating an empty one
	// if it has not been seen before. Idempotent.
	GetOrCreateSession(ctx context.Context, key string) (*Session, error)

	// GetSession returns the session with its ordered turns.
	// Returns ErrNotFound for an unseen key.
	GetSession(ctx context.Context, key string) (*Session, error)

	// AppendTurn durably appends a turn to the session before returning.
	AppendTurn(ctx context.Context, key, role, content string) (*Turn, error)
}

// EscalationStore defines escalation persistence.
type EscalationStore interface {
	// CreateEscalation inserts a new escalation record.
	// Returns ErrDuplicateEscalation if one already exists for the session key.
	CreateEscalation(ctx context.Context, esc *Escalation) error

	// GetEscalationBySession returns the escalation for a session key.
	// Returns ErrNotFound if none exists.
	GetEscalationBySession(ctx context.Context, key string) (*Escalation, error)

	// ListEscalations returns a page of escalations, newest first,
	// along with the total record count.
	ListEscalations(ctx context.Context, page, limit int) ([]*Escalation, int, error)
}

// Store combines conversation and escalation persistence.
type Store interface {
	ConversationStore
	EscalationStore

	Close() error
}
