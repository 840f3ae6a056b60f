package core

import "github.com/google/uuid"

// ToolCall is a request, surfaced by a model, to invoke a named tool with
// JSON-typed arguments. Once created the ID is stable: it is the correlation
// key for the ToolResult that answers it, and no layer may regenerate it.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewToolCall constructs a ToolCall with a freshly generated id. Use this for
// calls originating locally (e.g. parsed out of tagged text regions); calls
// decoded from API-native records keep the provider-assigned id verbatim.
func NewToolCall(name string, args map[string]any) ToolCall {
	if args == nil {
		args = map[string]any{}
	}
	return ToolCall{ID: NewID(), Name: name, Arguments: args}
}

// ToolResult is the outcome of executing (or failing to execute) a ToolCall.
// CallID always equals the originating ToolCall.ID.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// ErrorResult builds a failed ToolResult for the given call.
func ErrorResult(call ToolCall, msg string) ToolResult {
	return ToolResult{CallID: call.ID, Name: call.Name, Output: msg, IsError: true}
}

// ToolSchema describes a tool capability to the model: a unique name, a short
// natural-language description and a JSON-schema-shaped parameters object.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewID generates a unique identifier used for tool calls and run correlation.
func NewID() string { return uuid.NewString() }
