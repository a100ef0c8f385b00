package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name string
	out  string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) InputSchema() string { return `{"type":"object"}` }
func (f *fakeTool) Execute(ctx context.Context, input string) (string, error) {
	return f.out, nil
}

func TestRegistryOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "charlie"})
	reg.Register(&fakeTool{name: "alpha"})
	reg.Register(&fakeTool{name: "bravo"})

	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, reg.Names())
	assert.Equal(t, 3, reg.Len())

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "charlie", defs[0].Name)
	assert.Equal(t, "bravo", defs[2].Name)
}

func TestRegistryReplaceKeepsPosition(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "alpha", out: "v1"})
	reg.Register(&fakeTool{name: "bravo"})
	reg.Register(&fakeTool{name: "alpha", out: "v2"})

	assert.Equal(t, []string{"alpha", "bravo"}, reg.Names())

	tool, ok := reg.Get("alpha")
	require.True(t, ok)
	out, err := tool.Execute(context.Background(), "{}")
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func testSnowClient(t *testing.T, handler http.HandlerFunc) *servicenow.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return servicenow.NewClient(ts.URL, "svc.bot", "secret", logging.New(nil, "silent"))
}

func TestServiceNowToolsOrder(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	tools := ServiceNowTools(c)
	require.Len(t, tools, 24)

	want := []string{
		"list_incidents", "create_incident", "get_incident", "update_incident",
		"list_service_requests", "create_service_request", "get_service_request",
		"list_catalog_items", "search_catalog_items", "get_catalog_item_details", "list_catalog_categories",
		"list_change_requests", "create_change_request", "get_change_request", "update_change_request",
		"list_assignment_groups", "get_assignment_group",
		"search_users", "get_my_info",
		"list_problems", "get_problem",
		"get_incident_categories", "get_priority_urgency_info", "get_change_types_info",
	}

	got := make([]string, len(tools))
	for i, tool := range tools {
		got[i] = tool.Name()
	}
	assert.Equal(t, want, got)
}

func TestNewServiceNowRegistry(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	reg := NewServiceNowRegistry(c)

	assert.Equal(t, 24, reg.Len())

	_, ok := reg.Get("create_incident")
	assert.True(t, ok)
	_, ok = reg.Get("get_change_types_info")
	assert.True(t, ok)
}

func TestToolSchemasAreValidJSON(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	for _, tool := range ServiceNowTools(c) {
		t.Run(tool.Name(), func(t *testing.T) {
			assert.True(t, json.Valid([]byte(tool.InputSchema())))
			assert.NotEmpty(t, tool.Description())
		})
	}
}

func TestExecuteListIncidents(t *testing.T) {
	c := testSnowClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/table/incident", r.URL.Path)
		assert.Equal(t, "priority=1", r.URL.Query().Get("sysparm_query"))
		w.Write([]byte(`{"result":[{"number":"INC0010001"}]}`))
	})

	tool, ok := NewServiceNowRegistry(c).Get("list_incidents")
	require.True(t, ok)

	out, err := tool.Execute(context.Background(), `{"query":"priority=1","limit":5}`)
	require.NoError(t, err)
	assert.Contains(t, out, "INC0010001")
}

func TestExecuteCreateIncidentAppliesDefaults(t *testing.T) {
	c := testSnowClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "3", body["priority"])
		assert.Equal(t, "3", body["urgency"])
		w.Write([]byte(`{"result":{"number":"INC0010002","sys_id":"abc"}}`))
	})

	tool, _ := NewServiceNowRegistry(c).Get("create_incident")
	out, err := tool.Execute(context.Background(), `{"short_description":"Printer not working"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "INC0010002")
}

func TestExecuteEmptyInput(t *testing.T) {
	c := testSnowClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[]}`))
	})

	tool, _ := NewServiceNowRegistry(c).Get("list_incidents")
	out, err := tool.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "result")
}

func TestExecuteInvalidJSONInput(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	tool, _ := NewServiceNowRegistry(c).Get("list_incidents")

	_, err := tool.Execute(context.Background(), "{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_incidents")
}

func TestExecuteWrongArgumentType(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	tool, _ := NewServiceNowRegistry(c).Get("list_incidents")

	// Valid JSON but limit is the wrong type: the failure rides inside the
	// payload so the model can read it.
	out, err := tool.Execute(context.Background(), `{"limit":"ten"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "invalid arguments")
}

func TestExecuteServiceNowErrorInsidePayload(t *testing.T) {
	c := testSnowClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"Insufficient rights"}}`))
	})

	tool, _ := NewServiceNowRegistry(c).Get("get_incident")
	out, err := tool.Execute(context.Background(), `{"sys_id":"abc"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "HTTP 403")
	assert.Contains(t, out, "Insufficient rights")
}

func TestExecuteStaticReferenceTools(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	reg := NewServiceNowRegistry(c)

	tool, _ := reg.Get("get_priority_urgency_info")
	out, err := tool.Execute(context.Background(), "{}")
	require.NoError(t, err)
	assert.Contains(t, out, "Critical - System down, multiple users affected")

	tool, _ = reg.Get("get_change_types_info")
	out, err = tool.Execute(context.Background(), "{}")
	require.NoError(t, err)
	assert.Contains(t, out, "CAB review")
}

func TestHelpdeskInstruction(t *testing.T) {
	assert.True(t, strings.HasPrefix(HelpdeskInstruction, "You are a ServiceNow helpdesk assistant for Microsoft Teams."))
	assert.Contains(t, HelpdeskInstruction, "list_incidents(query, limit)")
	assert.Contains(t, HelpdeskInstruction, "INC0010001")
	assert.Contains(t, HelpdeskInstruction, "Example flow:")
}

func TestGuidedInstruction(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	reg := NewServiceNowRegistry(c)

	text := GuidedInstruction(reg.Definitions())

	assert.Contains(t, text, "Incident management:")
	assert.Contains(t, text, "Change management:")
	assert.Contains(t, text, "Reference data:")
	assert.Contains(t, text, "24. **get_change_types_info**")
	assert.Contains(t, text, "get_priority_urgency_info before asking users")
}

func TestDefinitions(t *testing.T) {
	c := servicenow.NewClient("test.service-now.com", "svc.bot", "secret", logging.New(nil, "silent"))
	reg := NewServiceNowRegistry(c)

	defs := Definitions(reg)
	require.Len(t, defs, 2)

	assert.Equal(t, "helpdesk", defs[0].Name)
	assert.Equal(t, DefaultModel, defs[0].Model)
	assert.Equal(t, HelpdeskInstruction, defs[0].Instruction)
	assert.Len(t, defs[0].ToolNames, 24)

	assert.Equal(t, "guided", defs[1].Name)
	assert.Contains(t, defs[1].Instruction, "Incident management:")
	assert.Len(t, defs[1].ToolNames, 24)
}
