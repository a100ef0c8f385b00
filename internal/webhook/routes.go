package webhook

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Handler returns the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log)
}

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /debug/events", s.handleDebugEvents)

	// Single-endpoint connector contract: Teams posts activities to
	// whatever path the bot registration names.
	mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Every GET answers the health probe.
		s.handleHealth(w, r)
	case http.MethodPost:
		s.handleActivity(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// handleHealth reports runtime wiring and session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	baseURL := ""
	if s.runtime != nil {
		baseURL = s.runtime.BaseURL()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"project":         s.cfg.Runtime.Project,
		"location":        s.cfg.Runtime.Location,
		"resource_id":     s.cfg.Runtime.ResourceID,
		"base_url":        baseURL,
		"active_sessions": s.sessions.Len(),
	})
}

// handleDebugEvents upgrades to a websocket and streams monitor frames.
func (s *Server) handleDebugEvents(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Debug.Events || s.monitor == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if token := s.cfg.Debug.Token; token != "" {
		got := r.URL.Query().Get("token")
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimPrefix(auth, "Bearer ")
		}
		if got != token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("event tail upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.monitor.Subscribe()
	defer s.monitor.Unsubscribe(ch)
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("event tail attached")

	// Reader goroutine detects the client hanging up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case frame := <-ch:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
