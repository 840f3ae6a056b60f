package model

import (
	"context"

	"github.com/hupe1980/agentkernel/core"
)

// WireToolCall represents a function call record in a provider's native wire
// format. Unified across vendors so downstream logic does not need
// per-provider branching.
type WireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function WireFunctionCall `json:"function"`
}

// WireFunctionCall describes the concrete function target of a wire tool call.
type WireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// WireTool declaratively exposes a callable function to the model.
type WireTool struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// WireMessage is one conversation entry in provider wire shape.
type WireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []WireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// ToolChoice controls whether the model may emit tool calls for a request.
type ToolChoice string

// Tool choice policies. The kernel selects Auto when the turn has callable
// tools and None otherwise.
const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// Request captures the normalized model input produced by the kernel.
// Extra carries the opaque decoding-constraint payload; clients forward it
// verbatim into the provider request body without interpreting it.
type Request struct {
	Messages    []WireMessage  `json:"messages"`
	Tools       []WireTool     `json:"tools,omitempty"`
	ToolChoice  ToolChoice     `json:"tool_choice,omitempty"`
	MaxTokens   int64          `json:"max_tokens,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	Extra       map[string]any `json:"-"`
}

// Response is the provider completion normalized back into kernel shape.
type Response struct {
	Content      string           `json:"content"`
	ToolCalls    []WireToolCall   `json:"tool_calls,omitempty"`
	Usage        *core.TokenUsage `json:"usage,omitempty"`
	FinishReason string           `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
}

// Client is the minimal interface the kernel requires from an LLM provider.
// Implementations must be safe for concurrent use; the kernel issues at most
// one in-flight call per run but multiple runs may share a client.
type Client interface {
	ChatCompletion(ctx context.Context, req Request) (*Response, error)

	// Close releases any underlying connections. Safe to call more than once.
	Close() error
}

// Info contains metadata about a client implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "local", etc.
	SupportsTools bool   `json:"supports_tools"`
}
