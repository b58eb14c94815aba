package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/locas/locas-backend/internal/location"
)

// sweepEvery controls how often Save opportunistically deletes expired rows.
const sweepEvery = 64

// PostgresStore is a Store backed by one sessions table. Expired rows
// are invisible to reads and cleaned up opportunistically on writes.
type PostgresStore struct {
	db    *sqlx.DB
	ttl   time.Duration
	saves atomic.Uint64
}

// NewPostgresStore creates a Postgres-backed store with the given TTL;
// zero means DefaultTTL.
func NewPostgresStore(db *sqlx.DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, ttl: ttl}
}

type sessionRow struct {
	ID           string          `db:"id"`
	Messages     json.RawMessage `db:"messages"`
	LastLocation json.RawMessage `db:"last_location"`
	CreatedAt    time.Time       `db:"created_at"`
	ExpiresAt    time.Time       `db:"expires_at"`
}

// Get retrieves a session by id, treating expired rows as not found.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	query := `SELECT id, messages, last_location, created_at, expires_at
	          FROM sessions WHERE id = $1 AND expires_at > NOW()`

	if err := p.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s := &Session{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if err := json.Unmarshal(row.Messages, &s.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode session messages: %w", err)
	}
	if len(row.LastLocation) > 0 {
		var loc location.Coordinates
		if err := json.Unmarshal(row.LastLocation, &loc); err != nil {
			return nil, fmt.Errorf("failed to decode session location: %w", err)
		}
		s.LastLocation = &loc
	}
	return s, nil
}

// Save upserts the session and renews its expiration window.
func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	messages, err := json.Marshal(s.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode session messages: %w", err)
	}
	if s.Messages == nil {
		messages = json.RawMessage("[]")
	}

	var lastLocation interface{}
	if s.LastLocation != nil {
		encoded, err := json.Marshal(s.LastLocation)
		if err != nil {
			return fmt.Errorf("failed to encode session location: %w", err)
		}
		lastLocation = encoded
	}

	s.ExpiresAt = time.Now().UTC().Add(p.ttl)

	query := `
		INSERT INTO sessions (id, messages, last_location, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET messages = EXCLUDED.messages,
		    last_location = EXCLUDED.last_location,
		    expires_at = EXCLUDED.expires_at`

	if _, err := p.db.ExecContext(ctx, query, s.ID, messages, lastLocation, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if p.saves.Add(1)%sweepEvery == 0 {
		if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`); err != nil {
			return fmt.Errorf("failed to sweep expired sessions: %w", err)
		}
	}
	return nil
}
