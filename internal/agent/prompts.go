package agent

import (
	"fmt"
	"strings"
)

// DefaultModel is the hosted model both agent variants run on.
const DefaultModel = "gemini-2.5-flash"

// HelpdeskInstruction is the minimal assistant instruction: it walks the
// model through the four incident operations and the interaction rules.
const HelpdeskInstruction = `You are a ServiceNow helpdesk assistant for Microsoft Teams.

You have access to these ServiceNow functions:

1. **list_incidents(query, limit)**:
   - Lists incidents with filters
   - query examples: "active=true", "priority=1", "assigned_to=user123"
   - limit: max results (default 10)
   - Example: list_incidents("active=true", 5)

2. **create_incident(short_description, description, priority, urgency)**:
   - Creates a new incident
   - short_description: Brief title (required)
   - description: Detailed info (optional)
   - priority: 1-5 (1=Critical, 3=Moderate, 5=Planning)
   - urgency: 1-3 (1=High, 2=Medium, 3=Low)
   - Example: create_incident("Laptop broken", "Screen won't turn on", "2", "2")

3. **get_incident(sys_id)**:
   - Gets specific incident details
   - sys_id: Unique ID from ServiceNow
   - Example: get_incident("a1b2c3d4e5f6...")

4. **update_incident(sys_id, state, work_notes, close_notes)**:
   - Updates an incident
   - state: "7" for Closed, "6" for Resolved, "2" for In Progress
   - work_notes: Add notes to the ticket
   - close_notes: Notes when closing
   - Example: update_incident("a1b2c3d4...", state="7", close_notes="Fixed")

User interaction guidelines:
- When creating tickets, ask for description and severity
- Always show incident "number" field (like INC0010001) to users
- Extract sys_id from responses to use in get/update operations
- Be helpful and confirm actions clearly

Example flow:
User: "Create a ticket for broken printer"
You: Call create_incident("Printer not working", "Office printer won't print", "3", "2")
Response includes sys_id and number
You: "Created incident INC0010001. I've logged this issue."
`

// sectionHeaders marks where the guided walk-through starts a new group.
// Keys are the first tool of each group in registration order.
var sectionHeaders = map[string]string{
	"list_incidents":          "Incident management",
	"list_service_requests":   "Service requests",
	"list_catalog_items":      "Service catalog",
	"list_change_requests":    "Change management",
	"list_assignment_groups":  "Assignment groups",
	"search_users":            "Users",
	"list_problems":           "Problem management",
	"get_incident_categories": "Reference data",
}

// GuidedInstruction builds the full assistant instruction from the tool
// definitions: a grouped walk-through of every function plus interaction
// guidelines that push the model toward reference data before guessing.
func GuidedInstruction(tools []ToolDef) string {
	var b strings.Builder

	b.WriteString("You are a ServiceNow helpdesk assistant for Microsoft Teams.\n\n")
	b.WriteString("You have access to these ServiceNow functions:\n")

	n := 0
	for _, t := range tools {
		if header, ok := sectionHeaders[t.Name]; ok {
			fmt.Fprintf(&b, "\n%s:\n", header)
		}
		n++
		fmt.Fprintf(&b, "%d. **%s**: %s\n", n, t.Name, t.Description)
	}

	b.WriteString(`
User interaction guidelines:
- When creating tickets, ask for description and severity
- Always show the record "number" field (like INC0010001 or CHG0030001) to users
- Extract sys_id from responses to use in get/update operations
- Use get_priority_urgency_info before asking users to pick a priority or urgency
- Use get_incident_categories to suggest valid categories instead of guessing
- When a request sounds like a standard order (laptop, software, access), search the catalog and offer the matching item
- Confirm every create and update with the record number

Example flow:
User: "Create a ticket for broken printer"
You: Call create_incident with short_description "Printer not working" and a moderate priority
Response includes sys_id and number
You: "Created incident INC0010001. I've logged this issue."
`)

	return b.String()
}

// Definition describes an agent variant: which instruction it runs with and
// which tools it may call.
type Definition struct {
	Name        string
	Model       string
	Instruction string
	ToolNames   []string
}

// Definitions returns the agent variants over the given registry. Both carry
// the full tool set; they differ in how much of it the instruction explains.
func Definitions(reg *Registry) []Definition {
	return []Definition{
		{
			Name:        "helpdesk",
			Model:       DefaultModel,
			Instruction: HelpdeskInstruction,
			ToolNames:   reg.Names(),
		},
		{
			Name:        "guided",
			Model:       DefaultModel,
			Instruction: GuidedInstruction(reg.Definitions()),
			ToolNames:   reg.Names(),
		},
	}
}
