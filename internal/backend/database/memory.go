package database

import (
	"context"
	"sync"
	"time"

	"github.com/jo-hoe/gopicker/internal/picker"
)

type memoryEntry struct {
	data      []byte
	updatedAt time.Time
}

// MemoryDatabase keeps encoded sessions in a map; the default store for a
// single server process.
type MemoryDatabase struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	closed   bool
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		sessions: make(map[string]memoryEntry),
	}
}

func (m *MemoryDatabase) CreateDatabase() error {
	return nil
}

func (m *MemoryDatabase) DoesDatabaseExist() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}

func (m *MemoryDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = make(map[string]memoryEntry)
	return nil
}

func (m *MemoryDatabase) SaveSession(ctx context.Context, session *picker.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = memoryEntry{data: data, updatedAt: session.UpdatedAt}
	return nil
}

func (m *MemoryDatabase) GetSession(ctx context.Context, id string) (*picker.Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(entry.data)
}

func (m *MemoryDatabase) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryDatabase) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, entry := range m.sessions {
		if entry.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}
