package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/agentkernel/core"
)

// toolCallPattern matches tagged tool call blocks emitted by text-mode
// models. Non-greedy so multiple blocks in one response match individually.
var toolCallPattern = regexp.MustCompile(`(?s)<tool_call>\s*(.*?)\s*</tool_call>`)

// ParseError reports a response that could not be interpreted. The kernel
// recovers from it locally by treating the turn as a plain text response.
type ParseError struct {
	Message string
	Raw     string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %s", e.Message)
}

// ParsedResponse is the normalized outcome of parsing a model response.
// Diagnostics records malformed text blocks that were skipped without
// failing the parse.
type ParsedResponse struct {
	Content     string
	ToolCalls   []core.ToolCall
	Diagnostics []string
}

// HasToolCalls reports whether the response requested any tool invocations.
func (p *ParsedResponse) HasToolCalls() bool {
	return len(p.ToolCalls) > 0
}

// Parser extracts tool call requests from model responses. It is stateless;
// the only non-deterministic input is NewID, which supplies identifiers for
// calls parsed out of text (API provided ids are always kept verbatim).
type Parser struct {
	// NewID generates identifiers for tool calls that arrive without one.
	// Defaults to core.NewID.
	NewID func() string
}

// NewParser creates a Parser with default id generation.
func NewParser(optFns ...func(p *Parser)) *Parser {
	p := &Parser{NewID: core.NewID}

	for _, fn := range optFns {
		fn(p)
	}

	if p.NewID == nil {
		p.NewID = core.NewID
	}

	return p
}

// Parse interprets a model response. API level tool calls take precedence
// over text extraction; when present, the content is passed through untouched
// and no tag scanning happens. Otherwise the content is scanned for tagged
// blocks, which are removed from the returned content.
func (p *Parser) Parse(resp *Response) (*ParsedResponse, error) {
	if resp == nil {
		return nil, &ParseError{Message: "nil response"}
	}

	if len(resp.ToolCalls) > 0 {
		return p.parseAPIToolCalls(resp)
	}

	return p.parseText(resp.Content), nil
}

func (p *Parser) parseAPIToolCalls(resp *Response) (*ParsedResponse, error) {
	calls := make([]core.ToolCall, 0, len(resp.ToolCalls))

	for _, wc := range resp.ToolCalls {
		args := map[string]any{}

		if raw := strings.TrimSpace(wc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, &ParseError{
					Message: fmt.Sprintf("invalid arguments for tool call %q (%s): %v", wc.ID, wc.Function.Name, err),
					Raw:     wc.Function.Arguments,
				}
			}
		}

		id := wc.ID
		if id == "" {
			id = p.NewID()
		}

		calls = append(calls, core.ToolCall{
			ID:        id,
			Name:      wc.Function.Name,
			Arguments: args,
		})
	}

	return &ParsedResponse{Content: resp.Content, ToolCalls: calls}, nil
}

func (p *Parser) parseText(content string) *ParsedResponse {
	matches := toolCallPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return &ParsedResponse{Content: content}
	}

	parsed := &ParsedResponse{}

	var remainder strings.Builder

	last := 0

	for _, m := range matches {
		remainder.WriteString(content[last:m[0]])
		last = m[1]

		block := content[m[2]:m[3]]

		var payload struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}

		if err := json.Unmarshal([]byte(block), &payload); err != nil {
			parsed.Diagnostics = append(parsed.Diagnostics, fmt.Sprintf("malformed tool call block: %v", err))
			continue
		}

		if payload.Name == "" {
			parsed.Diagnostics = append(parsed.Diagnostics, "malformed tool call block: missing name")
			continue
		}

		args := map[string]any{}

		if len(payload.Arguments) > 0 {
			if err := json.Unmarshal(payload.Arguments, &args); err != nil {
				parsed.Diagnostics = append(parsed.Diagnostics, fmt.Sprintf("malformed arguments in tool call block for %q: %v", payload.Name, err))
				continue
			}
		}

		parsed.ToolCalls = append(parsed.ToolCalls, core.ToolCall{
			ID:        p.NewID(),
			Name:      payload.Name,
			Arguments: args,
		})
	}

	remainder.WriteString(content[last:])
	parsed.Content = strings.TrimSpace(remainder.String())

	return parsed
}
