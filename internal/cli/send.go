package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sourcish/ServiceNow-Agent/internal/domain"
)

func newSendCmd() *cobra.Command {
	var (
		server       string
		conversation string
		userID       string
		userName     string
		activityType string
		health       bool
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a test activity to a running webhook and print the reply",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := strings.TrimSuffix(server, "/")
			// Replies can be held open for the full agent stream.
			client := &http.Client{Timeout: 2 * time.Minute}

			if health {
				return printHealth(client, base)
			}

			if len(args) == 0 && activityType == domain.ActivityMessage {
				return fmt.Errorf("message text required (or use --health)")
			}

			activity := domain.Activity{
				Type:         activityType,
				Text:         strings.Join(args, " "),
				Conversation: domain.Conversation{ID: conversation},
				From:         domain.ChannelAccount{ID: userID, Name: userName},
			}
			if activityType == domain.ActivityConversationUpdate {
				activity.MembersAdded = []domain.ChannelAccount{{ID: userID, Name: userName}}
			}

			payload, err := json.Marshal(activity)
			if err != nil {
				return err
			}

			resp, err := client.Post(base+"/api/messages", "application/json", bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				var apiErr struct {
					Error string `json:"error"`
				}
				if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
					return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
				}
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}

			var reply domain.Reply
			if err := json.Unmarshal(body, &reply); err != nil {
				return fmt.Errorf("decoding reply: %w", err)
			}
			if reply.Text != "" {
				fmt.Println(reply.Text)
				return nil
			}
			fmt.Println(strings.TrimSpace(string(body)))
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "webhook base URL")
	cmd.Flags().StringVar(&conversation, "conversation", "cli", "conversation id")
	cmd.Flags().StringVar(&userID, "user", "cli-user", "sender id")
	cmd.Flags().StringVar(&userName, "name", "CLI", "sender display name")
	cmd.Flags().StringVar(&activityType, "type", domain.ActivityMessage, "activity type (message, conversationUpdate)")
	cmd.Flags().BoolVar(&health, "health", false, "fetch /health instead of sending an activity")

	return cmd
}

func printHealth(client *http.Client, base string) error {
	resp, err := client.Get(base + "/health")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}
	pretty, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
