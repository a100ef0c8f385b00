// Package runtime calls a hosted agent runtime (a Vertex AI reasoning
// engine): session creation plus streaming query with SSE aggregation.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sourcish/ServiceNow-Agent/internal/domain"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

// DefaultLocation is used when no location is configured.
const DefaultLocation = "us-central1"

const (
	sessionTimeout = 30 * time.Second
	streamTimeout  = 60 * time.Second

	maxErrorBody = 512
)

// HTTPError is a non-2xx runtime response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Client talks to one reasoning engine resource.
type Client struct {
	project    string
	location   string
	resourceID string
	baseURL    string
	tokens     TokenSource
	client     *http.Client
	log        *logging.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithEndpoint overrides the computed runtime URL. Tests point it at a
// local server.
func WithEndpoint(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a runtime client for the given engine resource.
func NewClient(project, location, resourceID string, tokens TokenSource, log *logging.Logger, opts ...Option) *Client {
	if location == "" {
		location = DefaultLocation
	}

	c := &Client{
		project:    project,
		location:   location,
		resourceID: resourceID,
		baseURL: fmt.Sprintf(
			"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/reasoningEngines/%s",
			location, project, location, resourceID),
		tokens: tokens,
		client: &http.Client{},
		log:    log.Sub("runtime"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the engine resource URL requests are built on.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateSession asks the runtime for a new session owned by userID.
func (c *Client) CreateSession(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	payload := map[string]interface{}{
		"class_method": "create_session",
		"input":        map[string]interface{}{"user_id": userID},
	}

	var out struct {
		Output struct {
			ID string `json:"id"`
		} `json:"output"`
	}
	if err := c.post(ctx, c.baseURL+":query", payload, &out); err != nil {
		return "", err
	}
	if out.Output.ID == "" {
		return "", fmt.Errorf("create_session returned no session id")
	}

	c.log.Debug().Str("session_id", out.Output.ID).Str("user_id", userID).Msg("Created runtime session")
	return out.Output.ID, nil
}

// StreamQuery sends one user message and returns the aggregated final
// response text from the SSE stream. An empty aggregation is returned as
// an empty string, not an error.
func (c *Client) StreamQuery(ctx context.Context, sessionID, userID, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	payload := map[string]interface{}{
		"class_method": "stream_query",
		"input": map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"message":    message,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+":streamQuery?alt=sse", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", &HTTPError{Status: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)))}
	}

	var reply strings.Builder
	scanner := newServerSentEventScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "data: ")
		if line == "" || line == "[DONE]" {
			continue
		}

		var event domain.StreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			c.log.Debug().Err(err).Msg("Skipping undecodable stream line")
			continue
		}

		if event.Content != nil {
			for _, part := range event.Content.Parts {
				if part.Text != "" && part.UserFacing() {
					reply.WriteString(part.Text)
				}
			}
		} else if event.Text != "" {
			reply.WriteString(event.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		if reply.Len() == 0 {
			return "", fmt.Errorf("stream read failed: %w", err)
		}
		c.log.Warn().Err(err).Msg("Stream ended early, keeping partial reply")
	}

	return strings.TrimSpace(reply.String()), nil
}

func (c *Client) post(ctx context.Context, url string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
