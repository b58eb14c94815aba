package session

import (
	"context"
	"errors"
	"time"

	"github.com/locas/locas-backend/internal/location"
)

// DefaultTTL is the sliding expiration window renewed on every save.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Message roles. Only user and assistant turns are persisted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation. Messages are append-only.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one user's conversational state. The id is immutable for
// the session's lifetime; history order equals arrival order.
type Session struct {
	ID           string                `json:"id"`
	Messages     []Message             `json:"messages"`
	LastLocation *location.Coordinates `json:"last_location,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
}

// New creates an empty session with the given id.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
	}
}

// Append adds one message to the history.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// clone returns a deep copy so callers never alias stored state.
func (s *Session) clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	if s.LastLocation != nil {
		loc := *s.LastLocation
		c.LastLocation = &loc
	}
	return &c
}

// Store is the durable, TTL-expiring session store contract. Save
// renews the expiration window; Get returns ErrNotFound for unknown or
// expired ids.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}
