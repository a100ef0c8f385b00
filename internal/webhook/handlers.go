package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Sourcish/ServiceNow-Agent/internal/domain"
	"github.com/Sourcish/ServiceNow-Agent/internal/hooks"
	"github.com/Sourcish/ServiceNow-Agent/internal/runtime"
)

const maxActivityBytes = 1 << 20

const welcomeMessage = `👋 Hello! I'm your ServiceNow assistant powered by Google Agent Engine.

I can help you with:
• 📋 **Incidents**: Create, list, update, close
• 🛒 **Service Catalog**: Browse and request items
• 🔄 **Change Requests**: Create and manage changes
• 👥 **Users & Groups**: Search and assign
• 🔍 **Problems**: View and track

**Try:**
- "Show me all open incidents"
- "Create an incident for broken laptop"
- "What can I request from catalog?"

Just ask me anything!`

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// decodeActivity reads the request body as a Bot Framework activity. A
// body that is missing, undecodable, or an empty object is rejected.
func decodeActivity(w http.ResponseWriter, r *http.Request) (domain.Activity, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActivityBytes))
	if err != nil {
		return domain.Activity{}, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return domain.Activity{}, false
	}

	var activity domain.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		return domain.Activity{}, false
	}
	return activity, true
}

// handleActivity dispatches one inbound activity. Every outcome is a JSON
// response; a panic anywhere in dispatch still answers the connector.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Msg("activity dispatch panicked")
			writeJSON(w, http.StatusInternalServerError, domain.NewMessageReply("Sorry, I encountered an error."))
		}
	}()

	activity, ok := decodeActivity(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No activity data"})
		return
	}

	conversationID := activity.ConversationID()
	userID := activity.UserID()
	userName := activity.UserName()

	s.log.Info().
		Str("type", activity.Type).
		Str("conversation", conversationID).
		Str("user", userName).
		Msg("activity received")
	s.publish("activity", map[string]any{
		"type":         activity.Type,
		"conversation": conversationID,
		"user":         userName,
	})

	switch activity.Type {
	case domain.ActivityConversationUpdate:
		if len(activity.MembersAdded) > 0 {
			s.ensureSession(r.Context(), conversationID, userID)
			writeJSON(w, http.StatusOK, domain.NewMessageReply(welcomeMessage))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case domain.ActivityMessage:
		text := strings.TrimSpace(activity.Text)
		if text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Empty message"})
			return
		}

		s.emitAsync(hooks.EventMessageReceived, map[string]any{
			"conversation": conversationID,
			"user":         userName,
			"text":         text,
		})
		if s.audit != nil {
			s.audit.LogMessage(conversationID, "inbound", text)
		}

		sessionID, _ := s.ensureSession(r.Context(), conversationID, userID)
		reply := s.queryAgent(r.Context(), sessionID, userID, text)

		if s.audit != nil {
			s.audit.LogMessage(conversationID, "reply", reply)
		}
		s.publish("reply", map[string]any{
			"conversation": conversationID,
			"session":      sessionID,
			"chars":        len(reply),
		})
		s.emitAsync(hooks.EventReplySent, map[string]any{
			"conversation": conversationID,
			"session":      sessionID,
		})

		writeJSON(w, http.StatusOK, domain.NewMessageReply(reply))

	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ensureSession returns the session id for a conversation, creating one on
// first contact. Creation failures fall back to a locally generated id so
// the chat surface always answers; the second value reports whether a new
// mapping was stored.
func (s *Server) ensureSession(ctx context.Context, conversationID, userID string) (string, bool) {
	if id, ok := s.sessions.Get(conversationID); ok {
		return id, false
	}

	var sessionID string
	if s.runtime != nil {
		id, err := s.runtime.CreateSession(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Str("conversation", conversationID).Msg("session creation failed, using fallback")
		} else {
			sessionID = id
		}
	}
	if sessionID == "" {
		sessionID = domain.FallbackSessionPrefix + uuid.New().String()
	}

	s.sessions.Put(conversationID, sessionID)
	s.log.Info().
		Str("conversation", conversationID).
		Str("session", sessionID).
		Bool("fallback", domain.IsFallbackSessionID(sessionID)).
		Msg("session mapped")
	s.publish("session", map[string]any{
		"conversation": conversationID,
		"session":      sessionID,
		"fallback":     domain.IsFallbackSessionID(sessionID),
	})
	s.emitAsync(hooks.EventSessionCreated, map[string]any{
		"conversation": conversationID,
		"session":      sessionID,
	})
	return sessionID, true
}

// queryAgent asks the runtime for a reply and maps every failure to a
// user-facing string. It never returns an error: whatever happens, Teams
// gets an answer.
func (s *Server) queryAgent(ctx context.Context, sessionID, userID, message string) string {
	if s.runtime == nil {
		return "An error occurred: agent runtime not configured"
	}

	reply, err := s.runtime.StreamQuery(ctx, sessionID, userID, message)
	if err != nil {
		var httpErr *runtime.HTTPError
		var netErr net.Error
		switch {
		case errors.As(err, &httpErr):
			s.log.Error().Int("status", httpErr.Status).Str("body", httpErr.Body).Msg("agent query failed")
			return fmt.Sprintf("Error: HTTP %d", httpErr.Status)
		case errors.Is(err, context.DeadlineExceeded),
			errors.As(err, &netErr) && netErr.Timeout():
			s.log.Error().Msg("agent query timed out")
			return "The request timed out. Please try again."
		default:
			s.log.Error().Err(err).Msg("agent query failed")
			return fmt.Sprintf("An error occurred: %v", err)
		}
	}
	if reply == "" {
		return "I couldn't generate a response. Please try again."
	}
	return reply
}

func (s *Server) publish(event string, data map[string]any) {
	if s.monitor != nil {
		s.monitor.Publish(event, data)
	}
}

func (s *Server) emitAsync(event string, data map[string]any) {
	if s.hooks != nil {
		// Hooks outlive the request; CommandHandler applies its own timeout.
		s.hooks.EmitAsync(context.Background(), event, data)
	}
}
