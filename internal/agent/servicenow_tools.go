package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
)

// snowTool binds one ServiceNow client operation to the Tool interface.
// Execute decodes the JSON input, runs the operation, and re-encodes the
// result; ServiceNow failures come back inside the payload, so an error
// return means the input itself was unusable.
type snowTool struct {
	name        string
	description string
	schema      string
	call        func(ctx context.Context, args json.RawMessage) servicenow.Result
}

func (t *snowTool) Name() string        { return t.name }
func (t *snowTool) Description() string { return t.description }
func (t *snowTool) InputSchema() string { return t.schema }

func (t *snowTool) Execute(ctx context.Context, input string) (string, error) {
	if input == "" {
		input = "{}"
	}
	if !json.Valid([]byte(input)) {
		return "", fmt.Errorf("tool %s: input is not valid JSON", t.name)
	}

	res := t.call(ctx, json.RawMessage(input))

	out, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("tool %s: failed to encode result: %w", t.name, err)
	}
	return string(out), nil
}

func invalidArgs(err error) servicenow.Result {
	return servicenow.Result{"error": fmt.Sprintf("invalid arguments: %v", err)}
}

// Argument payloads shared across tools.

type queryArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type sysIDArgs struct {
	SysID string `json:"sys_id"`
}

type limitArgs struct {
	Limit int `json:"limit"`
}

type createIncidentArgs struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	Urgency          string `json:"urgency"`
	AssignmentGroup  string `json:"assignment_group"`
	AssignedTo       string `json:"assigned_to"`
	Category         string `json:"category"`
	Subcategory      string `json:"subcategory"`
}

type updateIncidentArgs struct {
	SysID           string         `json:"sys_id"`
	State           string         `json:"state"`
	WorkNotes       string         `json:"work_notes"`
	CloseNotes      string         `json:"close_notes"`
	AssignmentGroup string         `json:"assignment_group"`
	AssignedTo      string         `json:"assigned_to"`
	Extra           map[string]any `json:"extra"`
}

type createRequestArgs struct {
	CatalogItem      string `json:"catalog_item"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Quantity         int    `json:"quantity"`
}

type catalogListArgs struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type searchTermArgs struct {
	SearchTerm string `json:"search_term"`
	Limit      int    `json:"limit"`
}

type createChangeArgs struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	Risk             string `json:"risk"`
	Priority         string `json:"priority"`
	AssignmentGroup  string `json:"assignment_group"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
}

type updateChangeArgs struct {
	SysID      string         `json:"sys_id"`
	State      string         `json:"state"`
	WorkNotes  string         `json:"work_notes"`
	CloseNotes string         `json:"close_notes"`
	Extra      map[string]any `json:"extra"`
}

type groupNameArgs struct {
	GroupName string `json:"group_name"`
}

const queryLimitSchema = `{"type":"object","properties":{"query":{"type":"string","description":"ServiceNow filter query, e.g. \"active=true\" or \"priority=1\""},"limit":{"type":"integer","description":"Maximum number of results"}},"required":[]}`

const sysIDSchema = `{"type":"object","properties":{"sys_id":{"type":"string","description":"Unique system ID of the record"}},"required":["sys_id"]}`

const limitSchema = `{"type":"object","properties":{"limit":{"type":"integer","description":"Maximum number of results"}},"required":[]}`

const emptySchema = `{"type":"object","properties":{},"required":[]}`

// ServiceNowTools builds the full tool set over the given client, in the
// order the assistant presents them: incidents, service requests, catalog,
// changes, groups, users, problems, reference data.
func ServiceNowTools(c *servicenow.Client) []Tool {
	return []Tool{
		listIncidentsTool(c),
		createIncidentTool(c),
		getIncidentTool(c),
		updateIncidentTool(c),
		listServiceRequestsTool(c),
		createServiceRequestTool(c),
		getServiceRequestTool(c),
		listCatalogItemsTool(c),
		searchCatalogItemsTool(c),
		getCatalogItemDetailsTool(c),
		listCatalogCategoriesTool(c),
		listChangeRequestsTool(c),
		createChangeRequestTool(c),
		getChangeRequestTool(c),
		updateChangeRequestTool(c),
		listAssignmentGroupsTool(c),
		getAssignmentGroupTool(c),
		searchUsersTool(c),
		myInfoTool(c),
		listProblemsTool(c),
		getProblemTool(c),
		incidentCategoriesTool(c),
		priorityUrgencyInfoTool(c),
		changeTypesInfoTool(c),
	}
}

// NewServiceNowRegistry builds a registry pre-loaded with the full tool set.
func NewServiceNowRegistry(c *servicenow.Client) *Registry {
	reg := NewRegistry()
	for _, t := range ServiceNowTools(c) {
		reg.Register(t)
	}
	return reg
}

// --- Incidents ---

func listIncidentsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_incidents",
		description: "List ServiceNow incidents matching a filter query. Defaults to active incidents.",
		schema:      queryLimitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in queryArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListIncidents(ctx, in.Query, in.Limit)
		},
	}
}

func createIncidentTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "create_incident",
		description: "Create a new ServiceNow incident. Priority and urgency default to 3 (moderate).",
		schema: `{"type":"object","properties":{` +
			`"short_description":{"type":"string","description":"Brief title of the incident"},` +
			`"description":{"type":"string","description":"Detailed description"},` +
			`"priority":{"type":"string","description":"1=Critical, 2=High, 3=Moderate, 4=Low, 5=Planning"},` +
			`"urgency":{"type":"string","description":"1=High, 2=Medium, 3=Low"},` +
			`"assignment_group":{"type":"string","description":"Assignment group name or sys_id"},` +
			`"assigned_to":{"type":"string","description":"User name or sys_id to assign"},` +
			`"category":{"type":"string","description":"Incident category, e.g. Hardware, Software, Network"},` +
			`"subcategory":{"type":"string","description":"Incident subcategory"}},` +
			`"required":["short_description"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in createIncidentArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.CreateIncident(ctx, servicenow.IncidentInput{
				ShortDescription: in.ShortDescription,
				Description:      in.Description,
				Priority:         in.Priority,
				Urgency:          in.Urgency,
				AssignmentGroup:  in.AssignmentGroup,
				AssignedTo:       in.AssignedTo,
				Category:         in.Category,
				Subcategory:      in.Subcategory,
			})
		},
	}
}

func getIncidentTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_incident",
		description: "Get a specific ServiceNow incident by sys_id.",
		schema:      sysIDSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in sysIDArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.GetIncident(ctx, in.SysID)
		},
	}
}

func updateIncidentTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "update_incident",
		description: "Update a ServiceNow incident. Only the provided fields change.",
		schema: `{"type":"object","properties":{` +
			`"sys_id":{"type":"string","description":"Unique system ID of the incident"},` +
			`"state":{"type":"string","description":"1=New, 2=In Progress, 3=On Hold, 6=Resolved, 7=Closed, 8=Canceled"},` +
			`"work_notes":{"type":"string","description":"Work notes to add"},` +
			`"close_notes":{"type":"string","description":"Closing notes, required when closing"},` +
			`"assignment_group":{"type":"string","description":"Change assignment group"},` +
			`"assigned_to":{"type":"string","description":"Change assigned user"},` +
			`"extra":{"type":"object","description":"Additional incident fields to set"}},` +
			`"required":["sys_id"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in updateIncidentArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.UpdateIncident(ctx, in.SysID, servicenow.IncidentUpdate{
				State:           in.State,
				WorkNotes:       in.WorkNotes,
				CloseNotes:      in.CloseNotes,
				AssignmentGroup: in.AssignmentGroup,
				AssignedTo:      in.AssignedTo,
				Extra:           in.Extra,
			})
		},
	}
}

// --- Service requests ---

func listServiceRequestsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_service_requests",
		description: "List service catalog requests (RITM items) matching a filter query.",
		schema:      queryLimitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in queryArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListServiceRequests(ctx, in.Query, in.Limit)
		},
	}
}

func createServiceRequestTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "create_service_request",
		description: "Create a new service catalog request for a catalog item.",
		schema: `{"type":"object","properties":{` +
			`"catalog_item":{"type":"string","description":"Catalog item sys_id or name"},` +
			`"short_description":{"type":"string","description":"Brief description"},` +
			`"description":{"type":"string","description":"Detailed description"},` +
			`"quantity":{"type":"integer","description":"Quantity requested, default 1"}},` +
			`"required":["catalog_item","short_description"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in createRequestArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.CreateServiceRequest(ctx, servicenow.RequestInput{
				CatalogItem:      in.CatalogItem,
				ShortDescription: in.ShortDescription,
				Description:      in.Description,
				Quantity:         in.Quantity,
			})
		},
	}
}

func getServiceRequestTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_service_request",
		description: "Get service request details by sys_id.",
		schema:      sysIDSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in sysIDArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.GetServiceRequest(ctx, in.SysID)
		},
	}
}

// --- Service catalog ---

func listCatalogItemsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_catalog_items",
		description: "List service catalog items users can request, optionally filtered by category.",
		schema: `{"type":"object","properties":{` +
			`"category":{"type":"string","description":"Filter by category name"},` +
			`"limit":{"type":"integer","description":"Maximum number of results"}},` +
			`"required":[]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in catalogListArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListCatalogItems(ctx, in.Category, in.Limit)
		},
	}
}

func searchCatalogItemsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "search_catalog_items",
		description: "Search catalog items by name or description keyword, e.g. laptop, software, access.",
		schema: `{"type":"object","properties":{` +
			`"search_term":{"type":"string","description":"Search keyword"},` +
			`"limit":{"type":"integer","description":"Maximum number of results"}},` +
			`"required":["search_term"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in searchTermArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.SearchCatalogItems(ctx, in.SearchTerm, in.Limit)
		},
	}
}

func getCatalogItemDetailsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_catalog_item_details",
		description: "Get detailed information about a specific catalog item.",
		schema:      sysIDSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in sysIDArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.GetCatalogItemDetails(ctx, in.SysID)
		},
	}
}

func listCatalogCategoriesTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_catalog_categories",
		description: "List all service catalog categories.",
		schema:      limitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in limitArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListCatalogCategories(ctx, in.Limit)
		},
	}
}

// --- Change requests ---

func listChangeRequestsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_change_requests",
		description: "List change requests matching a filter query.",
		schema:      queryLimitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in queryArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListChangeRequests(ctx, in.Query, in.Limit)
		},
	}
}

func createChangeRequestTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "create_change_request",
		description: "Create a new change request. Type defaults to normal, risk to moderate.",
		schema: `{"type":"object","properties":{` +
			`"short_description":{"type":"string","description":"Brief title of the change"},` +
			`"description":{"type":"string","description":"Detailed description"},` +
			`"type":{"type":"string","description":"standard, normal, or emergency"},` +
			`"risk":{"type":"string","description":"low, moderate, or high"},` +
			`"priority":{"type":"string","description":"1=Critical, 2=High, 3=Moderate, 4=Low"},` +
			`"assignment_group":{"type":"string","description":"Assignment group"},` +
			`"start_date":{"type":"string","description":"Planned start, format YYYY-MM-DD HH:MM:SS"},` +
			`"end_date":{"type":"string","description":"Planned end"}},` +
			`"required":["short_description"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in createChangeArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.CreateChangeRequest(ctx, servicenow.ChangeInput{
				ShortDescription: in.ShortDescription,
				Description:      in.Description,
				Type:             in.Type,
				Risk:             in.Risk,
				Priority:         in.Priority,
				AssignmentGroup:  in.AssignmentGroup,
				StartDate:        in.StartDate,
				EndDate:          in.EndDate,
			})
		},
	}
}

func getChangeRequestTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_change_request",
		description: "Get change request details by sys_id.",
		schema:      sysIDSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in sysIDArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.GetChangeRequest(ctx, in.SysID)
		},
	}
}

func updateChangeRequestTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "update_change_request",
		description: "Update a change request. Only the provided fields change.",
		schema: `{"type":"object","properties":{` +
			`"sys_id":{"type":"string","description":"Unique system ID of the change request"},` +
			`"state":{"type":"string","description":"-5=New, -4=Assess, -3=Authorize, -2=Scheduled, -1=Implement, 0=Review, 3=Closed"},` +
			`"work_notes":{"type":"string","description":"Work notes to add"},` +
			`"close_notes":{"type":"string","description":"Close notes"},` +
			`"extra":{"type":"object","description":"Additional change fields to set"}},` +
			`"required":["sys_id"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in updateChangeArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.UpdateChangeRequest(ctx, in.SysID, servicenow.ChangeUpdate{
				State:      in.State,
				WorkNotes:  in.WorkNotes,
				CloseNotes: in.CloseNotes,
				Extra:      in.Extra,
			})
		},
	}
}

// --- Assignment groups ---

func listAssignmentGroupsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_assignment_groups",
		description: "List assignment groups matching a filter query.",
		schema:      queryLimitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in queryArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListAssignmentGroups(ctx, in.Query, in.Limit)
		},
	}
}

func getAssignmentGroupTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_assignment_group",
		description: "Get assignment group details, including sys_id, by exact group name.",
		schema: `{"type":"object","properties":{` +
			`"group_name":{"type":"string","description":"Assignment group name"}},` +
			`"required":["group_name"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in groupNameArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.GetAssignmentGroup(ctx, in.GroupName)
		},
	}
}

// --- Users ---

func searchUsersTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "search_users",
		description: "Search for active users by name, email, or username.",
		schema: `{"type":"object","properties":{` +
			`"query":{"type":"string","description":"Name, email, or username to search for"},` +
			`"limit":{"type":"integer","description":"Maximum number of results"}},` +
			`"required":["query"]}`,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in queryArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.SearchUsers(ctx, in.Query, in.Limit)
		},
	}
}

func myInfoTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_my_info",
		description: "Get the current user's information from ServiceNow.",
		schema:      emptySchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			return c.MyInfo(ctx)
		},
	}
}

// --- Problems ---

func listProblemsTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "list_problems",
		description: "List problems matching a filter query.",
		schema:      queryLimitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in queryArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.ListProblems(ctx, in.Query, in.Limit)
		},
	}
}

func getProblemTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_problem",
		description: "Get problem details by sys_id.",
		schema:      sysIDSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in sysIDArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.GetProblem(ctx, in.SysID)
		},
	}
}

// --- Reference data ---

func incidentCategoriesTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_incident_categories",
		description: "Get the available incident categories for suggestions.",
		schema:      limitSchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			var in limitArgs
			if err := json.Unmarshal(args, &in); err != nil {
				return invalidArgs(err)
			}
			return c.IncidentCategories(ctx, in.Limit)
		},
	}
}

func priorityUrgencyInfoTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_priority_urgency_info",
		description: "Get guidance on priority, urgency, and impact levels.",
		schema:      emptySchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			return c.PriorityUrgencyInfo()
		},
	}
}

func changeTypesInfoTool(c *servicenow.Client) Tool {
	return &snowTool{
		name:        "get_change_types_info",
		description: "Get guidance on change request types and risk levels.",
		schema:      emptySchema,
		call: func(ctx context.Context, args json.RawMessage) servicenow.Result {
			return c.ChangeTypesInfo()
		},
	}
}
