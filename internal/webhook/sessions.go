package webhook

import "sync"

// SessionStore maps Teams conversation ids to agent-runtime session ids.
// The store never triggers the session-creation RPC itself; the dispatch
// path does that and records the outcome here.
type SessionStore interface {
	Get(conversationID string) (string, bool)
	Put(conversationID, sessionID string)
	Len() int
	Conversations() []string
}

// MemoryStore is the in-process SessionStore. Mappings die with the server.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

// Get returns the session id mapped to a conversation.
func (m *MemoryStore) Get(conversationID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sessions[conversationID]
	return id, ok
}

// Put stores (or replaces) the session id for a conversation.
func (m *MemoryStore) Put(conversationID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[conversationID] = sessionID
}

// Len returns the number of tracked conversations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Conversations returns all tracked conversation ids.
func (m *MemoryStore) Conversations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}
