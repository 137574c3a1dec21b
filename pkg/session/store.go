package session

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Store abstracts where sessions live for the lifetime of the process.
// Implementations must be safe for concurrent use across sessions; callers
// are responsible for serializing turns within one session.
type Store interface {
	// Create makes a new session with a fresh identifier.
	Create(ctx context.Context) (*Session, error)

	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if the session doesn't exist.
	Get(ctx context.Context, id string) (*Session, error)

	// Save persists the session's current state. For the in-memory store
	// this only refreshes activity bookkeeping.
	Save(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all live sessions.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
