package servicenow

import "context"

// RequestInput holds the fields for creating a catalog request item.
type RequestInput struct {
	CatalogItem      string
	ShortDescription string
	Description      string
	Quantity         int
}

// ListServiceRequests returns requested items (RITMs) matching the filter
// query.
func (c *Client) ListServiceRequests(ctx context.Context, query string, limit int) Result {
	params := listParams(defaultQuery(query), defaultLimit(limit, 10), true)
	return c.get(ctx, "/sc_req_item", params)
}

// CreateServiceRequest opens a new requested item against a catalog item
// (sys_id or name).
func (c *Client) CreateServiceRequest(ctx context.Context, in RequestInput) Result {
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	data := map[string]any{
		"cat_item":          in.CatalogItem,
		"short_description": in.ShortDescription,
		"description":       in.Description,
		"quantity":          in.Quantity,
	}

	return c.post(ctx, "/sc_req_item", data)
}

// GetServiceRequest returns a single requested item by sys_id.
func (c *Client) GetServiceRequest(ctx context.Context, sysID string) Result {
	return c.get(ctx, "/sc_req_item/"+sysID, recordParams())
}
