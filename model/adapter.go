package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentkernel/core"
)

// Adapter translates kernel messages and tool schemas into the wire shape a
// model family expects. ChatAdapter targets models with native tool call
// support; TextAdapter targets plain-text models that emit tool calls inside
// tagged blocks.
type Adapter interface {
	// FormatMessages converts conversation history into wire messages. Tool
	// schemas are passed so text-mode adapters can fold tool instructions
	// into an auxiliary system message.
	FormatMessages(messages []core.Message, tools []core.ToolSchema) ([]WireMessage, error)

	// FormatTools converts tool schemas into wire tool declarations.
	// Text-mode adapters return nil because tools travel inside the prompt.
	FormatTools(tools []core.ToolSchema) []WireTool
}

// ChatAdapter formats for models with first-class tool call support. Tool
// calls ride in the dedicated tool_calls field and tool results reference
// their originating call by id.
type ChatAdapter struct{}

// NewChatAdapter creates an adapter for native tool calling models.
func NewChatAdapter() *ChatAdapter {
	return &ChatAdapter{}
}

// FormatMessages converts history one to one; tool schemas are ignored
// because they are declared separately via FormatTools.
func (a *ChatAdapter) FormatMessages(messages []core.Message, _ []core.ToolSchema) ([]WireMessage, error) {
	wire := make([]WireMessage, 0, len(messages))

	for _, m := range messages {
		wm := WireMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}

		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				return nil, fmt.Errorf("marshal arguments for tool call %q: %w", tc.ID, err)
			}

			wm.ToolCalls = append(wm.ToolCalls, WireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: WireFunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}

		wire = append(wire, wm)
	}

	return wire, nil
}

// FormatTools declares each schema as a wire function tool.
func (a *ChatAdapter) FormatTools(tools []core.ToolSchema) []WireTool {
	if len(tools) == 0 {
		return nil
	}

	wire := make([]WireTool, 0, len(tools))
	for _, t := range tools {
		wire = append(wire, WireTool{
			Type: "function",
			Function: FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return wire
}

// TextAdapter formats for plain-text models without a native tool call
// channel. Tool declarations are folded into an auxiliary system message
// instructing the model to emit calls inside <tool_call> blocks, and prior
// tool activity is rendered back into plain text.
type TextAdapter struct{}

// NewTextAdapter creates an adapter for text-only models.
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{}
}

// FormatMessages renders history as plain text messages. When tools are
// present, a system message describing them is inserted after any leading
// system messages so it does not displace the caller's own instructions.
func (a *TextAdapter) FormatMessages(messages []core.Message, tools []core.ToolSchema) ([]WireMessage, error) {
	wire := make([]WireMessage, 0, len(messages)+1)

	// Preserve leading system messages ahead of the tool instructions.
	i := 0
	for ; i < len(messages); i++ {
		if messages[i].Role != core.RoleSystem && messages[i].Role != core.RoleDeveloper {
			break
		}

		wire = append(wire, WireMessage{Role: string(messages[i].Role), Content: messages[i].Content})
	}

	if len(tools) > 0 {
		instr, err := toolInstructions(tools)
		if err != nil {
			return nil, err
		}

		wire = append(wire, WireMessage{Role: string(core.RoleSystem), Content: instr})
	}

	for ; i < len(messages); i++ {
		m := messages[i]

		switch m.Role {
		case core.RoleAssistant:
			content := m.Content

			// Replay earlier tool calls as tagged blocks so the model sees a
			// consistent transcript.
			for _, tc := range m.ToolCalls {
				args, err := json.Marshal(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("marshal arguments for tool call %q: %w", tc.ID, err)
				}

				block, err := json.Marshal(map[string]any{"name": tc.Name, "arguments": json.RawMessage(args)})
				if err != nil {
					return nil, fmt.Errorf("marshal tool call %q: %w", tc.ID, err)
				}

				if content != "" {
					content += "\n"
				}

				content += "<tool_call>" + string(block) + "</tool_call>"
			}

			wire = append(wire, WireMessage{Role: string(core.RoleAssistant), Content: content})
		case core.RoleTool:
			// Tool results become user visible observations.
			wire = append(wire, WireMessage{
				Role:    string(core.RoleUser),
				Content: fmt.Sprintf("<tool_response name=%q>%s</tool_response>", m.Name, m.Content),
			})
		default:
			wire = append(wire, WireMessage{Role: string(m.Role), Content: m.Content})
		}
	}

	return wire, nil
}

// FormatTools returns nil; tool declarations travel inside the prompt.
func (a *TextAdapter) FormatTools(_ []core.ToolSchema) []WireTool {
	return nil
}

func toolInstructions(tools []core.ToolSchema) (string, error) {
	var sb strings.Builder

	sb.WriteString("You have access to the following tools:\n\n")

	for _, t := range tools {
		params, err := json.Marshal(t.Parameters)
		if err != nil {
			return "", fmt.Errorf("marshal parameters for tool %q: %w", t.Name, err)
		}

		fmt.Fprintf(&sb, "- %s: %s\n  Parameters: %s\n", t.Name, t.Description, params)
	}

	sb.WriteString("\nTo call a tool, emit a block of the form:\n")
	sb.WriteString("<tool_call>{\"name\": \"tool_name\", \"arguments\": {...}}</tool_call>\n")
	sb.WriteString("You may emit multiple blocks in one response. Emit no block when no tool is needed.")

	return sb.String(), nil
}
