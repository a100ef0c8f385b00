package servicenow

import "context"

// IncidentInput holds the fields for creating an incident. ShortDescription
// is required; Priority and Urgency fall back to "3" (moderate).
type IncidentInput struct {
	ShortDescription string
	Description      string
	Priority         string
	Urgency          string
	AssignmentGroup  string
	AssignedTo       string
	Category         string
	Subcategory      string
}

// IncidentUpdate holds the fields for updating an incident. Empty fields are
// left untouched; Extra carries arbitrary additional fields and wins on
// collision.
type IncidentUpdate struct {
	State           string
	WorkNotes       string
	CloseNotes      string
	AssignmentGroup string
	AssignedTo      string
	Extra           map[string]any
}

// ListIncidents returns incidents matching the filter query. An empty query
// defaults to active=true; a non-positive limit defaults to 10.
func (c *Client) ListIncidents(ctx context.Context, query string, limit int) Result {
	params := listParams(defaultQuery(query), defaultLimit(limit, 10), true)
	return c.get(ctx, "/incident", params)
}

// CreateIncident opens a new incident.
func (c *Client) CreateIncident(ctx context.Context, in IncidentInput) Result {
	if in.Priority == "" {
		in.Priority = "3"
	}
	if in.Urgency == "" {
		in.Urgency = "3"
	}

	data := map[string]any{
		"short_description": in.ShortDescription,
		"description":       in.Description,
		"priority":          in.Priority,
		"urgency":           in.Urgency,
	}
	if in.AssignmentGroup != "" {
		data["assignment_group"] = in.AssignmentGroup
	}
	if in.AssignedTo != "" {
		data["assigned_to"] = in.AssignedTo
	}
	if in.Category != "" {
		data["category"] = in.Category
	}
	if in.Subcategory != "" {
		data["subcategory"] = in.Subcategory
	}

	return c.post(ctx, "/incident", data)
}

// GetIncident returns a single incident by sys_id.
func (c *Client) GetIncident(ctx context.Context, sysID string) Result {
	return c.get(ctx, "/incident/"+sysID, recordParams())
}

// UpdateIncident patches an incident with the non-empty fields of the update.
func (c *Client) UpdateIncident(ctx context.Context, sysID string, up IncidentUpdate) Result {
	data := map[string]any{}
	if up.State != "" {
		data["state"] = up.State
	}
	if up.WorkNotes != "" {
		data["work_notes"] = up.WorkNotes
	}
	if up.CloseNotes != "" {
		data["close_notes"] = up.CloseNotes
	}
	if up.AssignmentGroup != "" {
		data["assignment_group"] = up.AssignmentGroup
	}
	if up.AssignedTo != "" {
		data["assigned_to"] = up.AssignedTo
	}
	for k, v := range up.Extra {
		data[k] = v
	}

	return c.patch(ctx, "/incident/"+sysID, data)
}
