package servicenow

import "context"

// ListCatalogItems returns active catalog items, optionally narrowed to a
// category.
func (c *Client) ListCatalogItems(ctx context.Context, category string, limit int) Result {
	query := "active=true"
	if category != "" {
		query += "^categoryLIKE" + category
	}

	params := listParams(query, defaultLimit(limit, 50), true)
	params.Set("sysparm_fields", "sys_id,name,short_description,description,category,price,picture")
	return c.get(ctx, "/sc_cat_item", params)
}

// SearchCatalogItems finds catalog items whose name or description matches
// the search term.
func (c *Client) SearchCatalogItems(ctx context.Context, term string, limit int) Result {
	query := "active=true^nameLIKE" + term + "^ORshort_descriptionLIKE" + term + "^ORdescriptionLIKE" + term

	params := listParams(query, defaultLimit(limit, 20), true)
	params.Set("sysparm_fields", "sys_id,name,short_description,category,price")
	return c.get(ctx, "/sc_cat_item", params)
}

// GetCatalogItemDetails returns a single catalog item by sys_id.
func (c *Client) GetCatalogItemDetails(ctx context.Context, sysID string) Result {
	return c.get(ctx, "/sc_cat_item/"+sysID, recordParams())
}

// ListCatalogCategories returns active catalog categories.
func (c *Client) ListCatalogCategories(ctx context.Context, limit int) Result {
	params := listParams("active=true", defaultLimit(limit, 50), true)
	params.Set("sysparm_fields", "sys_id,title,description,parent")
	return c.get(ctx, "/sc_category", params)
}
