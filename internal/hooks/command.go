package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

const defaultCommandTimeout = 30 * time.Second

// CommandHandler returns a Handler that runs a shell command with the
// event payload JSON on stdin.
func CommandHandler(command string, timeoutMS int) Handler {
	return func(ctx context.Context, p Payload) error {
		timeout := time.Duration(timeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = defaultCommandTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = bytes.NewReader(data)

		out, err := cmd.CombinedOutput()
		if err != nil {
			if msg := strings.TrimSpace(string(out)); msg != "" {
				return fmt.Errorf("command failed: %w: %s", err, msg)
			}
			return fmt.Errorf("command failed: %w", err)
		}
		return nil
	}
}

// FromConfig builds a manager with a command hook registered for every
// configured entry.
func FromConfig(cfg config.HooksConfig, log *logging.Logger) *Manager {
	m := NewManager(log)

	register := func(event string, entries []config.HookEntry) {
		for i, e := range entries {
			if e.Command == "" {
				continue
			}
			name := fmt.Sprintf("%s.%d", event, i)
			m.On(event, name, CommandHandler(e.Command, e.Timeout))
		}
	}

	register(EventMessageReceived, cfg.MessageReceived)
	register(EventReplySent, cfg.ReplySent)
	register(EventSessionCreated, cfg.SessionCreated)
	register(EventServerStart, cfg.ServerStart)
	register(EventServerStop, cfg.ServerStop)
	return m
}
