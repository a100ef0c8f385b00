package domain

import (
	"strings"
	"time"
)

// FallbackSessionPrefix marks locally generated session ids substituted
// when the runtime could not issue a real one.
const FallbackSessionPrefix = "fallback-"

// Session maps a Teams conversation to an agent-runtime session.
type Session struct {
	ConversationID string    `json:"conversationId"`
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsFallback reports whether the session id was generated locally rather
// than issued by the runtime.
func (s Session) IsFallback() bool {
	return IsFallbackSessionID(s.SessionID)
}

// IsFallbackSessionID reports whether an id carries the fallback prefix.
func IsFallbackSessionID(id string) bool {
	return strings.HasPrefix(id, FallbackSessionPrefix)
}
