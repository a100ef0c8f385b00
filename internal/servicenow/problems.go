package servicenow

import "context"

// ListProblems returns problems matching the filter query.
func (c *Client) ListProblems(ctx context.Context, query string, limit int) Result {
	params := listParams(defaultQuery(query), defaultLimit(limit, 10), true)
	return c.get(ctx, "/problem", params)
}

// GetProblem returns a single problem by sys_id.
func (c *Client) GetProblem(ctx context.Context, sysID string) Result {
	return c.get(ctx, "/problem/"+sysID, recordParams())
}
