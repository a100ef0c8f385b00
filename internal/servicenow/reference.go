package servicenow

import (
	"context"
	"net/url"
	"strconv"
)

// IncidentCategories returns the active category choices for the incident
// table. A probe query first checks that the choice list exists; instances
// without one get an empty result instead of an error.
func (c *Client) IncidentCategories(ctx context.Context, limit int) Result {
	probe := url.Values{}
	probe.Set("sysparm_query", "name=incident^element=category")
	probe.Set("sysparm_limit", "1")

	res := c.get(ctx, "/sys_choice", probe)
	if _, failed := res["error"]; failed {
		return res
	}

	rows, ok := res["result"].([]any)
	if !ok || len(rows) == 0 {
		return Result{"result": []any{}}
	}

	params := url.Values{}
	params.Set("sysparm_query", "name=incident^element=category^inactive=false")
	params.Set("sysparm_limit", strconv.Itoa(defaultLimit(limit, 50)))
	params.Set("sysparm_fields", "label,value")
	return c.get(ctx, "/sys_choice", params)
}

// PriorityUrgencyInfo describes the priority, urgency, and impact scales.
// Static reference data; no network call.
func (c *Client) PriorityUrgencyInfo() Result {
	return Result{
		"priority": map[string]any{
			"1": "Critical - System down, multiple users affected",
			"2": "High - Major functionality impaired",
			"3": "Moderate - Some functionality affected",
			"4": "Low - Minor issue, workaround available",
			"5": "Planning - Enhancement or future need",
		},
		"urgency": map[string]any{
			"1": "High - Immediate attention required",
			"2": "Medium - Attention needed soon",
			"3": "Low - Can wait, not time-sensitive",
		},
		"impact": map[string]any{
			"1": "High - Affects many users or critical business",
			"2": "Medium - Affects some users or important business",
			"3": "Low - Affects few users or minor business impact",
		},
	}
}

// ChangeTypesInfo describes the change request types and risk levels.
// Static reference data; no network call.
func (c *Client) ChangeTypesInfo() Result {
	return Result{
		"types": map[string]any{
			"standard":  "Pre-approved, low-risk changes following established procedures",
			"normal":    "Requires full change approval process and CAB review",
			"emergency": "Urgent changes needed to resolve critical incidents",
		},
		"risk_levels": map[string]any{
			"low":      "Minimal impact, easy rollback, tested procedure",
			"moderate": "Some impact possible, rollback available",
			"high":     "Significant impact potential, complex rollback",
		},
	}
}
