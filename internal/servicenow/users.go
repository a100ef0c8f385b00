package servicenow

import (
	"context"
	"net/url"
)

// SearchUsers finds active users by name, email, or username.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) Result {
	filter := "nameLIKE" + query + "^ORemailLIKE" + query + "^ORuser_nameLIKE" + query + "^active=true"

	params := listParams(filter, defaultLimit(limit, 10), false)
	params.Set("sysparm_fields", "sys_id,name,email,user_name,title,department")
	return c.get(ctx, "/sys_user", params)
}

// MyInfo returns the user record of the authenticated account.
func (c *Client) MyInfo(ctx context.Context) Result {
	params := url.Values{}
	params.Set("sysparm_query", "user_name="+c.username)
	params.Set("sysparm_limit", "1")
	params.Set("sysparm_fields", "sys_id,name,email,user_name,title,department,manager,phone")
	return c.get(ctx, "/sys_user", params)
}
