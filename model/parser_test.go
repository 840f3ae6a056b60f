package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqParser() *Parser {
	n := 0

	return NewParser(func(p *Parser) {
		p.NewID = func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		}
	})
}

func TestParser_APIToolCalls_PreserveID(t *testing.T) {
	p := seqParser()

	resp := &Response{
		ToolCalls: []WireToolCall{
			{ID: "x", Type: "function", Function: WireFunctionCall{Name: "f", Arguments: `{"a":1}`}},
		},
	}

	parsed, err := p.Parse(resp)
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, "x", parsed.ToolCalls[0].ID)
	assert.Equal(t, "f", parsed.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"a": float64(1)}, parsed.ToolCalls[0].Arguments)
}

func TestParser_APIToolCalls_EmptyArguments(t *testing.T) {
	p := seqParser()

	parsed, err := p.Parse(&Response{
		ToolCalls: []WireToolCall{
			{ID: "c1", Function: WireFunctionCall{Name: "noop", Arguments: ""}},
		},
	})
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 1)
	assert.NotNil(t, parsed.ToolCalls[0].Arguments)
	assert.Empty(t, parsed.ToolCalls[0].Arguments)
}

func TestParser_APIToolCalls_MissingIDGetsGenerated(t *testing.T) {
	p := seqParser()

	parsed, err := p.Parse(&Response{
		ToolCalls: []WireToolCall{
			{Function: WireFunctionCall{Name: "f", Arguments: "{}"}},
		},
	})
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, "gen-1", parsed.ToolCalls[0].ID)
}

func TestParser_APIToolCalls_MalformedArguments(t *testing.T) {
	p := seqParser()

	_, err := p.Parse(&Response{
		ToolCalls: []WireToolCall{
			{ID: "x", Function: WireFunctionCall{Name: "f", Arguments: "{not json"}},
		},
	})
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "f")
}

func TestParser_Text_SingleBlock(t *testing.T) {
	p := seqParser()

	parsed, err := p.Parse(&Response{
		Content: `Let me check. <tool_call>{"name":"f","arguments":{}}</tool_call>`,
	})
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, "gen-1", parsed.ToolCalls[0].ID)
	assert.Equal(t, "f", parsed.ToolCalls[0].Name)
	assert.Empty(t, parsed.ToolCalls[0].Arguments)
	assert.Equal(t, "Let me check.", parsed.Content)
	assert.Empty(t, parsed.Diagnostics)
}

func TestParser_Text_MultipleBlocks(t *testing.T) {
	p := seqParser()

	content := `<tool_call>{"name":"a","arguments":{"x":1}}</tool_call>` +
		"\nand\n" +
		`<tool_call>{"name":"b","arguments":{"y":"z"}}</tool_call>`

	parsed, err := p.Parse(&Response{Content: content})
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 2)
	assert.Equal(t, "a", parsed.ToolCalls[0].Name)
	assert.Equal(t, "b", parsed.ToolCalls[1].Name)
	assert.Equal(t, "gen-1", parsed.ToolCalls[0].ID)
	assert.Equal(t, "gen-2", parsed.ToolCalls[1].ID)
	assert.Equal(t, "and", parsed.Content)
}

func TestParser_Text_MalformedBlockSkipped(t *testing.T) {
	p := seqParser()

	content := `<tool_call>{broken</tool_call>` +
		`<tool_call>{"name":"ok","arguments":{}}</tool_call>`

	parsed, err := p.Parse(&Response{Content: content})
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, "ok", parsed.ToolCalls[0].Name)
	require.Len(t, parsed.Diagnostics, 1)
	assert.Contains(t, parsed.Diagnostics[0], "malformed")
}

func TestParser_Text_MissingNameSkipped(t *testing.T) {
	p := seqParser()

	parsed, err := p.Parse(&Response{
		Content: `<tool_call>{"arguments":{}}</tool_call>`,
	})
	require.NoError(t, err)

	assert.Empty(t, parsed.ToolCalls)
	require.Len(t, parsed.Diagnostics, 1)
	assert.Contains(t, parsed.Diagnostics[0], "missing name")
}

func TestParser_PlainText(t *testing.T) {
	p := seqParser()

	parsed, err := p.Parse(&Response{Content: "just an answer"})
	require.NoError(t, err)

	assert.Equal(t, "just an answer", parsed.Content)
	assert.False(t, parsed.HasToolCalls())
}

func TestParser_NilResponse(t *testing.T) {
	p := seqParser()

	_, err := p.Parse(nil)
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParser_APIPrecedenceOverText(t *testing.T) {
	p := seqParser()

	// Content containing tagged blocks must not be scanned when native calls
	// are present.
	parsed, err := p.Parse(&Response{
		Content: `<tool_call>{"name":"ignored","arguments":{}}</tool_call>`,
		ToolCalls: []WireToolCall{
			{ID: "api-1", Function: WireFunctionCall{Name: "native", Arguments: "{}"}},
		},
	})
	require.NoError(t, err)

	require.Len(t, parsed.ToolCalls, 1)
	assert.Equal(t, "native", parsed.ToolCalls[0].Name)
	assert.Contains(t, parsed.Content, "ignored")
}
