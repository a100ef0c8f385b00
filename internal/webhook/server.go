// Package webhook serves the Bot Framework endpoint that bridges Microsoft
// Teams activities to the hosted agent runtime.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/hooks"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

// AgentRuntime is the hosted-engine surface the webhook needs.
// runtime.Client implements it.
type AgentRuntime interface {
	BaseURL() string
	CreateSession(ctx context.Context, userID string) (string, error)
	StreamQuery(ctx context.Context, sessionID, userID, message string) (string, error)
}

// Auditor records conversation traffic. store.AuditLog implements it.
type Auditor interface {
	LogMessage(conversationID, direction, content string)
}

// Server is the Teams webhook HTTP server.
type Server struct {
	cfg      config.Config
	log      *logging.Logger
	runtime  AgentRuntime
	sessions SessionStore
	monitor  *Monitor
	hooks    *hooks.Manager
	audit    Auditor

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures the webhook server.
type ServerOption func(*Server)

// WithRuntime sets the agent runtime client activities are bridged to.
func WithRuntime(rt AgentRuntime) ServerOption {
	return func(s *Server) { s.runtime = rt }
}

// WithSessions replaces the default in-memory session store.
func WithSessions(st SessionStore) ServerOption {
	return func(s *Server) { s.sessions = st }
}

// WithMonitor sets the event monitor backing GET /debug/events.
func WithMonitor(m *Monitor) ServerOption {
	return func(s *Server) { s.monitor = m }
}

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) { s.hooks = hm }
}

// WithAudit enables message-transcript recording.
func WithAudit(a Auditor) ServerOption {
	return func(s *Server) { s.audit = a }
}

// New creates a webhook server.
func New(cfg config.Config, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg: cfg,
		log: log.Sub("webhook"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The tail endpoint is token-guarded, not origin-guarded.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sessions == nil {
		s.sessions = NewMemoryStore()
	}
	return s
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "all", "":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	default:
		return fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	}
}

// Start begins serving the webhook. It blocks until the context is
// cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// An agent call can hold the response for the full stream timeout.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("variant", s.cfg.Agent.Variant).
		Bool("debug_events", s.cfg.Debug.Events).
		Msg("webhook server starting")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventServerStart, map[string]any{
			"addr": ln.Addr().String(),
		})
	}

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down webhook server")
		if s.hooks != nil {
			s.hooks.Emit(context.Background(), hooks.EventServerStop, nil)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
