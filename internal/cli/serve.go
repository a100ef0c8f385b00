package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sourcish/ServiceNow-Agent/internal/agent"
	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/hooks"
	"github.com/Sourcish/ServiceNow-Agent/internal/intake"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
	"github.com/Sourcish/ServiceNow-Agent/internal/runtime"
	"github.com/Sourcish/ServiceNow-Agent/internal/secrets"
	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
	"github.com/Sourcish/ServiceNow-Agent/internal/store"
	"github.com/Sourcish/ServiceNow-Agent/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Teams webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			log = configuredLogger(cfg)

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			password, err := resolveServiceNowPassword(ctx, cfg)
			if err != nil {
				return fmt.Errorf("resolving ServiceNow password: %w", err)
			}
			snow := servicenow.NewClient(cfg.ServiceNow.Instance, cfg.ServiceNow.Username, password, log)

			registry := agent.NewServiceNowRegistry(snow)
			log.Info().
				Int("tools", registry.Len()).
				Str("variant", cfg.Agent.Variant).
				Msg("tool registry ready")

			tokens, err := runtime.DefaultTokenSource(ctx)
			if err != nil {
				return fmt.Errorf("loading Google credentials: %w", err)
			}
			rt := runtime.NewClient(cfg.Runtime.Project, cfg.Runtime.Location, cfg.Runtime.ResourceID, tokens, log)

			hookMgr := hooks.FromConfig(cfg.Hooks, log)

			opts := []webhook.ServerOption{
				webhook.WithRuntime(rt),
				webhook.WithHooks(hookMgr),
			}

			// Session store (SQLite or in-memory)
			if cfg.Sessions.Store == "sqlite" {
				dbPath := cfg.Sessions.Path
				if dbPath == "" {
					dbPath = filepath.Join(paths.Data, "snowagent.db")
				}
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				opts = append(opts, webhook.WithSessions(store.NewSessionStore(db)))
				log.Info().Str("path", dbPath).Msg("using SQLite session store")

				if cfg.Sessions.Audit {
					opts = append(opts, webhook.WithAudit(store.NewAuditLog(db)))
					log.Info().Msg("message auditing enabled")
				}
			} else {
				log.Info().Msg("using in-memory session store")
			}

			if cfg.Debug.Events {
				opts = append(opts, webhook.WithMonitor(webhook.NewMonitor(log)))
			}

			srv := webhook.New(cfg, log, opts...)

			var wg sync.WaitGroup
			if cfg.Intake.Email != nil {
				poller := intake.NewEmailPoller(*cfg.Intake.Email, snow, log)
				wg.Add(1)
				go func() {
					defer wg.Done()
					poller.Run(ctx)
				}()
			}

			err = srv.Start(ctx)
			stop()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (all, loopback, or a host)")

	return cmd
}

// configuredLogger applies the config's logging section. The --log-level flag
// wins over the config level.
func configuredLogger(cfg config.Config) *logging.Logger {
	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	if level == "" {
		level = "info"
	}
	if cfg.Logging.Style == "json" {
		return logging.NewJSON(nil, level)
	}
	return logging.New(nil, level)
}

// resolveServiceNowPassword prefers the literal config value; otherwise it
// fetches the configured secret from Secret Manager.
func resolveServiceNowPassword(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.ServiceNow.Password != "" {
		return cfg.ServiceNow.Password, nil
	}

	mgr, err := secrets.NewManager(ctx, cfg.Runtime.Project)
	if err != nil {
		return "", err
	}
	return secrets.Resolve(ctx, mgr, cfg.ServiceNow.Password, cfg.ServiceNow.PasswordSecret)
}
