package store

import (
	"time"
)

// SessionStore maps chat conversation ids to runtime session ids, surviving
// restarts. It implements webhook.SessionStore.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store using the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Get returns the runtime session id mapped to a conversation.
func (s *SessionStore) Get(conversationID string) (string, bool) {
	var sessionID string
	err := s.db.sql.QueryRow(
		`SELECT session_id FROM sessions WHERE conversation_id = ?`, conversationID,
	).Scan(&sessionID)
	if err != nil {
		return "", false
	}
	return sessionID, true
}

// Put stores (or replaces) the session id for a conversation.
func (s *SessionStore) Put(conversationID, sessionID string) {
	now := time.Now().Format(time.DateTime)
	_, err := s.db.sql.Exec(
		`INSERT INTO sessions (conversation_id, session_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		conversationID, sessionID, now, now,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("conversation", conversationID).Msg("failed to store session")
	}
}

// Len returns the number of tracked conversations.
func (s *SessionStore) Len() int {
	var count int
	if err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Conversations returns all conversation ids, most recently used first.
func (s *SessionStore) Conversations() []string {
	rows, err := s.db.sql.Query(`SELECT conversation_id FROM sessions ORDER BY updated_at DESC, conversation_id`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
