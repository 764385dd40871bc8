package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"airdesk/internal/intake"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore creates an in-memory store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Save stores a copy of the session and refreshes its expiry.
func (m *MemoryStore) Save(_ context.Context, firmID string, session *intake.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("save session: missing id")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.entries[key(firmID, session.ID)] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

// Load returns a fresh copy of the session.
func (m *MemoryStore) Load(_ context.Context, firmID, id string) (*intake.Session, error) {
	m.mu.Lock()
	entry, ok := m.entries[key(firmID, id)]
	if ok && !m.now().Before(entry.expires) {
		delete(m.entries, key(firmID, id))
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(entry.data)
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, firmID, id string) error {
	m.mu.Lock()
	delete(m.entries, key(firmID, id))
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) sweep() {
	now := m.now()
	for k, entry := range m.entries {
		if !now.Before(entry.expires) {
			delete(m.entries, k)
		}
	}
}

func decode(data []byte) (*intake.Session, error) {
	var session intake.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.Reasks == nil {
		session.Reasks = make(map[intake.State]int)
	}
	return &session, nil
}
