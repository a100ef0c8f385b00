package store

import (
	"fmt"
	"time"
)

// Message directions recorded by the audit log.
const (
	DirectionInbound = "inbound"
	DirectionReply   = "reply"
)

// AuditEntry is one recorded message.
type AuditEntry struct {
	ID             int64
	ConversationID string
	Direction      string
	Content        string
	CreatedAt      time.Time
}

// AuditLog records conversation traffic when auditing is enabled.
type AuditLog struct {
	db *DB
}

// NewAuditLog creates an audit log using the given database.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

// LogMessage records one message. Failures are logged, not returned: the
// chat path never fails because auditing did.
func (a *AuditLog) LogMessage(conversationID, direction, content string) {
	_, err := a.db.sql.Exec(
		`INSERT INTO messages (conversation_id, direction, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		conversationID, direction, content, time.Now().Format(time.DateTime),
	)
	if err != nil {
		a.db.log.Error().Err(err).Str("conversation", conversationID).Msg("failed to record message")
	}
}

// RecentMessages returns the newest messages for a conversation, newest
// first.
func (a *AuditLog) RecentMessages(conversationID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.sql.Query(
		`SELECT id, conversation_id, direction, content, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY id DESC LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var created string
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Direction, &e.Content, &created); err != nil {
			continue
		}
		e.CreatedAt, _ = time.Parse(time.DateTime, created)
		entries = append(entries, e)
	}
	return entries, nil
}
