package cli

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newTailCmd() *cobra.Command {
	var (
		server string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream live dispatch events from a running webhook",
		Long: "tail attaches to the webhook's /debug/events endpoint and prints one\n" +
			"JSON frame per dispatch event until interrupted. The server must run\n" +
			"with debug.events enabled and the matching debug.token.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := tailURL(server, token)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("connection rejected: HTTP %d", resp.StatusCode)
				}
				return fmt.Errorf("failed to connect to %s: %w", server, err)
			}
			defer conn.Close()

			go func() {
				<-ctx.Done()
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				conn.Close()
			}()

			for {
				_, frame, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("stream closed: %w", err)
				}
				fmt.Println(string(frame))
			}
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "webhook base URL")
	cmd.Flags().StringVar(&token, "token", "", "debug events token")

	return cmd
}

// tailURL rewrites the server base URL into the websocket endpoint.
func tailURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/debug/events"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
