// ABOUTME: Store interfaces and data models for portal persistence
// ABOUTME: Sessions back the flash messages; activity records every ledger operation outcome

package store

import (
	"context"
	"errors"
	"time"
)

// Store errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Session is a browser session. Data is opaque to the store; the session
// package owns its encoding.
type Session struct {
	ID        string
	Data      []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ActivityStatus is the outcome of a ledger operation.
type ActivityStatus string

const (
	ActivitySucceeded ActivityStatus = "succeeded"
	ActivityFailed    ActivityStatus = "failed"
)

// ActivitySource names the surface that triggered an operation.
type ActivitySource string

const (
	SourceWeb ActivitySource = "web"
	SourceAPI ActivitySource = "api"
)

// ActivityEntry is one ledger operation as seen by the portal.
type ActivityEntry struct {
	ID        string         // UUID v4
	Operation string         // e.g. "create_product"
	Source    ActivitySource // web or api
	Status    ActivityStatus
	Result    string // raw ledger result on success
	Error     string // internal error text on failure, never shown to users
	CreatedAt time.Time
}

// ActivityFilter narrows ListActivity.
type ActivityFilter struct {
	Operation string // empty matches all
	Status    ActivityStatus
	Limit     int // default 50, max 500
}

// SessionStore persists browser sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, id string, data []byte, expiresAt time.Time) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// ActivityStore records ledger operation outcomes.
type ActivityStore interface {
	AppendActivity(ctx context.Context, e *ActivityEntry) error
	ListActivity(ctx context.Context, f ActivityFilter) ([]ActivityEntry, error)
}

// Store is everything the portal persists.
type Store interface {
	SessionStore
	ActivityStore
	Close() error
}
