package database

import (
	"context"
	"errors"
	"time"

	"github.com/jo-hoe/gopicker/internal/picker"
)

var ErrSessionNotFound = errors.New("session not found")

// DatabaseService stores the current state of page sessions. Only the
// latest snapshot per session is kept; nothing is historised.
type DatabaseService interface {
	CreateDatabase() error
	DoesDatabaseExist() bool
	Close() error

	// SaveSession inserts or replaces the snapshot of a session
	SaveSession(ctx context.Context, session *picker.Session) error
	// GetSession returns ErrSessionNotFound for unknown or expired sessions
	GetSession(ctx context.Context, id string) (*picker.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions last updated before cutoff
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}
