package domain

import "encoding/json"

// StreamEvent is one agent-runtime SSE event. Final-response chunks arrive
// as content parts; some runtimes emit a bare top-level text field instead.
type StreamEvent struct {
	Content *EventContent `json:"content,omitempty"`
	Text    string        `json:"text,omitempty"`
}

// EventContent carries the parts of a streamed model turn.
type EventContent struct {
	Role  string      `json:"role,omitempty"`
	Parts []EventPart `json:"parts,omitempty"`
}

// EventPart is a single content part. FunctionCall keeps the raw payload:
// its presence alone decides whether the part's text is user-facing.
type EventPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     json.RawMessage `json:"function_call,omitempty"`
	FunctionResponse json.RawMessage `json:"function_response,omitempty"`
}

// UserFacing reports whether the part's text belongs in the reply shown to
// the user. Streamed tool-call announcements carry text too, but are not
// final-response content.
func (p EventPart) UserFacing() bool {
	return p.FunctionCall == nil
}
