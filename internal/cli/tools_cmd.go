package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sourcish/ServiceNow-Agent/internal/agent"
	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
)

func newToolsCmd() *cobra.Command {
	var (
		schemas      bool
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the ServiceNow tools the assistant can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}

			// Listing never calls ServiceNow; placeholder credentials are fine.
			instance := cfg.ServiceNow.Instance
			if instance == "" {
				instance = "example.service-now.com"
			}
			snow := servicenow.NewClient(instance, cfg.ServiceNow.Username, "", logging.New(nil, "silent"))
			reg := agent.NewServiceNowRegistry(snow)

			if instructions != "" {
				for _, def := range agent.Definitions(reg) {
					if def.Name == instructions {
						fmt.Println(def.Instruction)
						return nil
					}
				}
				return fmt.Errorf("unknown agent variant %q", instructions)
			}

			for _, def := range reg.Definitions() {
				fmt.Printf("%-28s %s\n", def.Name, def.Description)
				if schemas {
					fmt.Printf("    %s\n", def.InputSchema)
				}
			}
			fmt.Printf("\n%d tools\n", reg.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&schemas, "schemas", false, "include input schemas")
	cmd.Flags().StringVar(&instructions, "instructions", "", "print the instruction prompt for an agent variant (helpdesk, guided)")

	return cmd
}
