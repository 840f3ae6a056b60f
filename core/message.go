package core

// Role identifies the conversational source of a Message.
type Role string

// Conversation roles understood by the kernel and wire adapters.
const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation. Messages are treated as immutable
// after construction: the kernel copies history rather than mutating entries,
// and the factory helpers below compute every field up front so no
// post-construction fix-up is ever needed.
//
// Content may be empty for assistant messages that carry only tool calls.
// ToolCallID and Name are set only on tool-role messages and correlate the
// rendered result back to the originating call.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// SystemMessage creates a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// DeveloperMessage creates a developer-role message.
func DeveloperMessage(text string) Message {
	return Message{Role: RoleDeveloper, Content: text}
}

// UserMessage creates a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant-role message carrying optional text
// and tool call requests.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage renders a ToolResult as a tool-role message. The ToolCallID is
// copied from the result so the model can correlate it with the request.
func ToolMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Output,
		ToolCallID: result.CallID,
		Name:       result.Name,
	}
}

// CopyMessages returns an independent copy of a message slice. Tool call
// slices inside each message are shared; they are never mutated after
// construction.
func CopyMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
