package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	endpoint := ts.URL + "/v1/projects/test-project/locations/us-central1/reasoningEngines/eng-1"
	return NewClient("test-project", "us-central1", "eng-1",
		StaticTokenSource("test-token"),
		logging.New(nil, "silent"),
		WithEndpoint(endpoint))
}

func TestBaseURL(t *testing.T) {
	c := NewClient("test-project", "", "eng-1",
		StaticTokenSource("test-token"), logging.New(nil, "silent"))

	assert.Equal(t,
		"https://us-central1-aiplatform.googleapis.com/v1/projects/test-project/locations/us-central1/reasoningEngines/eng-1",
		c.BaseURL())
}

func TestCreateSession(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"output":{"id":"sess-123","userId":"u1"}}`)
	})

	id, err := c.CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "sess-123", id)

	assert.True(t, strings.HasSuffix(gotPath, "reasoningEngines/eng-1:query"), "unexpected path %q", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "create_session", gotBody["class_method"])
	input, ok := gotBody["input"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u1", input["user_id"])
}

func TestCreateSessionNoID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output":{}}`)
	})

	_, err := c.CreateSession(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session id")
}

func TestCreateSessionHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "engine unavailable")
	})

	_, err := c.CreateSession(context.Background(), "u1")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Equal(t, "engine unavailable", httpErr.Body)
}

func TestStreamQuery(t *testing.T) {
	var gotPath, gotAlt string
	var gotBody map[string]interface{}

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAlt = r.URL.Query().Get("alt")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":{\"parts\":[{\"text\":\"Here are\"}]}}\n")
		fmt.Fprint(w, "\n")
		fmt.Fprint(w, "data: {\"content\":{\"parts\":[{\"text\":\"calling\",\"function_call\":{\"name\":\"list_incidents\"}}]}}\n")
		fmt.Fprint(w, "data: not-json\n")
		fmt.Fprint(w, "data: {\"content\":{\"parts\":[{\"text\":\" your incidents.\"}]}}\n")
		fmt.Fprint(w, "data: {\"text\":\"\\nAnything else?\"}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	})

	reply, err := c.StreamQuery(context.Background(), "sess-123", "u1", "show incidents")
	require.NoError(t, err)
	assert.Equal(t, "Here are your incidents.\nAnything else?", reply)
	assert.NotContains(t, reply, "calling")

	assert.True(t, strings.HasSuffix(gotPath, "reasoningEngines/eng-1:streamQuery"), "unexpected path %q", gotPath)
	assert.Equal(t, "sse", gotAlt)
	assert.Equal(t, "stream_query", gotBody["class_method"])
	input, ok := gotBody["input"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u1", input["user_id"])
	assert.Equal(t, "sess-123", input["session_id"])
	assert.Equal(t, "show incidents", input["message"])
}

func TestStreamQueryEmptyAggregation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\":{\"parts\":[{\"text\":\"thinking\",\"function_call\":{\"name\":\"get_incident\"}}]}}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	})

	reply, err := c.StreamQuery(context.Background(), "sess-123", "u1", "hello")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestStreamQueryHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"message":"permission denied"}}`)
	})

	_, err := c.StreamQuery(context.Background(), "sess-123", "u1", "hello")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Status)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestStreamQueryPlainLines(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"content\":{\"parts\":[{\"text\":\"No prefix here.\"}]}}\n")
	})

	reply, err := c.StreamQuery(context.Background(), "sess-123", "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "No prefix here.", reply)
}
