// Package servicenow implements a client for the ServiceNow Table API.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

// Result is a decoded Table API response. Failed calls carry an "error" key
// instead of returning a Go error, so tool output can be handed to the model
// as-is.
type Result map[string]any

// Client calls the ServiceNow Table API with basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      *logging.Logger
}

// NewClient creates a Table API client for the given instance host
// (e.g. "dev12345.service-now.com"). A full http(s) URL is also accepted,
// for proxies and test doubles.
func NewClient(instance, username, password string, log *logging.Logger) *Client {
	base := instance
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		baseURL:  strings.TrimSuffix(base, "/") + "/api/now/table",
		username: username,
		password: password,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.Sub("servicenow"),
	}
}

// Username returns the account the client authenticates as.
func (c *Client) Username() string {
	return c.username
}

func (c *Client) get(ctx context.Context, path string, params url.Values) Result {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) Result {
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

func (c *Client) patch(ctx context.Context, path string, payload map[string]any) Result {
	return c.do(ctx, http.MethodPatch, path, nil, payload)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload map[string]any) Result {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Result{"error": fmt.Sprintf("failed to marshal request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return Result{"error": fmt.Sprintf("failed to create request: %v", err)}
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("table API request")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{"error": fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{"error": fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := strings.TrimSpace(string(respBody))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("table API error")
		return Result{
			"error":  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body),
			"status": resp.StatusCode,
			"body":   body,
		}
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Result{"error": fmt.Sprintf("failed to parse response: %v", err)}
	}

	return result
}

// listParams builds the standard query/limit parameter set. Display values
// resolve reference fields to their labels, which is what the model needs.
func listParams(query string, limit int, displayValues bool) url.Values {
	params := url.Values{}
	params.Set("sysparm_query", query)
	params.Set("sysparm_limit", strconv.Itoa(limit))
	if displayValues {
		params.Set("sysparm_display_value", "true")
	}
	return params
}

func recordParams() url.Values {
	params := url.Values{}
	params.Set("sysparm_display_value", "true")
	return params
}

func defaultQuery(query string) string {
	if query == "" {
		return "active=true"
	}
	return query
}

func defaultLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
