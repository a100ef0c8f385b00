package servicenow

import "context"

// ChangeInput holds the fields for creating a change request. Type defaults
// to "normal", Risk to "moderate", Priority to "3".
type ChangeInput struct {
	ShortDescription string
	Description      string
	Type             string
	Risk             string
	Priority         string
	AssignmentGroup  string
	StartDate        string
	EndDate          string
}

// ChangeUpdate holds the fields for updating a change request. Empty fields
// are left untouched; Extra carries arbitrary additional fields and wins on
// collision.
type ChangeUpdate struct {
	State      string
	WorkNotes  string
	CloseNotes string
	Extra      map[string]any
}

// ListChangeRequests returns change requests matching the filter query.
func (c *Client) ListChangeRequests(ctx context.Context, query string, limit int) Result {
	params := listParams(defaultQuery(query), defaultLimit(limit, 10), true)
	return c.get(ctx, "/change_request", params)
}

// CreateChangeRequest opens a new change request. Dates use the instance
// format "YYYY-MM-DD HH:MM:SS".
func (c *Client) CreateChangeRequest(ctx context.Context, in ChangeInput) Result {
	if in.Type == "" {
		in.Type = "normal"
	}
	if in.Risk == "" {
		in.Risk = "moderate"
	}
	if in.Priority == "" {
		in.Priority = "3"
	}

	data := map[string]any{
		"short_description": in.ShortDescription,
		"description":       in.Description,
		"type":              in.Type,
		"risk":              in.Risk,
		"priority":          in.Priority,
	}
	if in.AssignmentGroup != "" {
		data["assignment_group"] = in.AssignmentGroup
	}
	if in.StartDate != "" {
		data["start_date"] = in.StartDate
	}
	if in.EndDate != "" {
		data["end_date"] = in.EndDate
	}

	return c.post(ctx, "/change_request", data)
}

// GetChangeRequest returns a single change request by sys_id.
func (c *Client) GetChangeRequest(ctx context.Context, sysID string) Result {
	return c.get(ctx, "/change_request/"+sysID, recordParams())
}

// UpdateChangeRequest patches a change request with the non-empty fields of
// the update.
func (c *Client) UpdateChangeRequest(ctx context.Context, sysID string, up ChangeUpdate) Result {
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
	for k, v := range up.Extra {
		data[k] = v
	}

	return c.patch(ctx, "/change_request/"+sysID, data)
}
