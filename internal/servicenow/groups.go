package servicenow

import (
	"context"
	"net/url"
)

// ListAssignmentGroups returns assignment groups matching the filter query.
func (c *Client) ListAssignmentGroups(ctx context.Context, query string, limit int) Result {
	params := listParams(defaultQuery(query), defaultLimit(limit, 50), false)
	params.Set("sysparm_fields", "sys_id,name,description,manager,type")
	return c.get(ctx, "/sys_user_group", params)
}

// GetAssignmentGroup looks up an assignment group by exact name.
func (c *Client) GetAssignmentGroup(ctx context.Context, name string) Result {
	params := url.Values{}
	params.Set("sysparm_query", "name="+name)
	params.Set("sysparm_limit", "1")
	return c.get(ctx, "/sys_user_group", params)
}
