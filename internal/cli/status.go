package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("snowagent %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("Server:  port=%d bind=%s\n", cfg.Server.Port, cfg.Server.Bind)

			if cfg.Runtime.Project != "" {
				fmt.Printf("Runtime: project=%s location=%s resource=%s\n",
					cfg.Runtime.Project, cfg.Runtime.Location, cfg.Runtime.ResourceID)
			} else {
				fmt.Println("Runtime: (not configured)")
			}

			if cfg.ServiceNow.Instance != "" {
				source := "secret:" + cfg.ServiceNow.PasswordSecret
				if cfg.ServiceNow.Password != "" {
					source = "config"
				}
				fmt.Printf("SNow:    instance=%s user=%s password=%s\n",
					cfg.ServiceNow.Instance, cfg.ServiceNow.Username, source)
			} else {
				fmt.Println("SNow:    (not configured)")
			}

			fmt.Printf("Agent:   variant=%s model=%s\n", cfg.Agent.Variant, cfg.Agent.Model)
			fmt.Printf("Session: store=%s audit=%v\n", cfg.Sessions.Store, cfg.Sessions.Audit)

			if cfg.Intake.Email != nil {
				fmt.Printf("Intake:  email server=%s mailbox=%s\n",
					cfg.Intake.Email.Server, cfg.Intake.Email.Mailbox)
			} else {
				fmt.Println("Intake:  (none)")
			}

			if cfg.Debug.Events {
				fmt.Println("Debug:   events endpoint enabled")
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
