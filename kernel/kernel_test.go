package kernel

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentkernel/constraint"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/internal/testutil"
	"github.com/hupe1980/agentkernel/model"
	"github.com/hupe1980/agentkernel/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTool() tool.Tool {
	return tool.NewFunctionTool(
		"add",
		"Add two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ *core.ExecutionContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
}

func TestRun_NoToolCalls(t *testing.T) {
	client := testutil.NewFakeClient(testutil.TextResponse("hello there"))

	k := New(client)

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, core.ReasonNoToolCalls, result.Reason)
	assert.Equal(t, 1, result.Turns)
	assert.Equal(t, "hello there", result.FinalMessage.Content)
	assert.Equal(t, core.RoleAssistant, result.FinalMessage.Role)
	assert.Len(t, result.History, 2)
	assert.Equal(t, 1, client.Calls())
	assert.Nil(t, result.FinalToolResult)
}

func TestRun_ToolLoop(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("call-1", "add", `{"a":2,"b":3}`)),
		testutil.TextResponse("the sum is 5"),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("2+3?")})
	require.NoError(t, err)

	assert.Equal(t, core.ReasonNoToolCalls, result.Reason)
	assert.Equal(t, 2, result.Turns)
	assert.Equal(t, "the sum is 5", result.FinalMessage.Content)
	assert.Equal(t, 2, client.Calls())

	// user, assistant(tool call), tool result, assistant
	require.Len(t, result.History, 4)
	assert.Equal(t, core.RoleAssistant, result.History[1].Role)
	require.Len(t, result.History[1].ToolCalls, 1)

	toolMsg := result.History[2]
	assert.Equal(t, core.RoleTool, toolMsg.Role)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.Equal(t, "add", toolMsg.Name)
	assert.Equal(t, "5", toolMsg.Content)
}

func TestRun_MaxTurns(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "add", `{"a":1,"b":1}`)),
		testutil.ToolCallResponse(testutil.WireCall("c2", "add", `{"a":2,"b":2}`)),
		testutil.ToolCallResponse(testutil.WireCall("c3", "add", `{"a":3,"b":3}`)),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
		o.MaxTurns = 3
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("keep adding")})
	require.NoError(t, err)

	assert.Equal(t, core.ReasonMaxTurns, result.Reason)
	assert.Equal(t, 3, result.Turns)
	assert.Equal(t, 3, client.Calls())

	require.NotNil(t, result.FinalToolResult)
	assert.Equal(t, "c3", result.FinalToolResult.CallID)
	assert.Equal(t, "6", result.FinalToolResult.Output)
}

func TestRun_UnknownToolBecomesErrorResult(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "ghost", `{}`)),
		testutil.TextResponse("done"),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("call something odd")})
	require.NoError(t, err)

	assert.Equal(t, core.ReasonNoToolCalls, result.Reason)
	assert.Equal(t, 2, result.Turns)

	toolMsg := result.History[2]
	assert.Equal(t, "c1", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, "tool not found: ghost")
}

func TestRun_ClientError(t *testing.T) {
	client := testutil.NewFakeClient().QueueError(errors.New("connection refused"))

	observer := testutil.NewRecordingObserver()

	k := New(client, func(o *Options) {
		o.Observer = observer
	})

	_, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.Error(t, err)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 1, clientErr.Turn)
	assert.Equal(t, PhaseModelCall, clientErr.Phase)

	events := observer.Events()
	require.NotEmpty(t, events)

	end, ok := events[len(events)-1].(core.KernelEndEvent)
	require.True(t, ok)
	assert.Error(t, end.Err)
}

func TestRun_MaxModelCalls(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "add", `{"a":1,"b":1}`)),
		testutil.TextResponse("done"),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
		o.MaxModelCalls = 1
	})

	_, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.Error(t, err)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 2, clientErr.Turn)
	assert.Contains(t, clientErr.Error(), "exceeded max model calls")
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	client := testutil.NewFakeClient(testutil.TextResponse("never used"))

	k := New(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := k.Run(ctx, []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, core.ReasonCancelled, result.Reason)
	assert.Equal(t, 0, result.Turns)
	assert.Equal(t, 0, client.Calls())
}

func TestRun_CancelledDuringToolExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cancelTool := tool.NewFunctionTool("stop", "Cancels the run", map[string]any{"type": "object"},
		func(_ *core.ExecutionContext, _ map[string]any) (any, error) {
			cancel()
			return "stopped", nil
		})

	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "stop", `{}`)),
		testutil.TextResponse("never reached"),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{cancelTool}
	})

	result, err := k.Run(ctx, []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, core.ReasonCancelled, result.Reason)
	assert.Equal(t, 1, client.Calls())
}

func TestRun_InputHistoryNotModified(t *testing.T) {
	client := testutil.NewFakeClient(testutil.TextResponse("reply"))

	k := New(client)

	input := []core.Message{core.UserMessage("hi")}

	result, err := k.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Len(t, input, 1)
	assert.Equal(t, "hi", input[0].Content)
	assert.Len(t, result.History, 2)
}

func TestRun_UsageAccumulated(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.UsageResponse(testutil.ToolCallResponse(testutil.WireCall("c1", "add", `{"a":1,"b":1}`)), 10, 5),
		testutil.UsageResponse(testutil.TextResponse("2"), 20, 7),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("1+1?")})
	require.NoError(t, err)

	require.NotNil(t, result.Usage)
	assert.Equal(t, 30, result.Usage.PromptTokens)
	assert.Equal(t, 12, result.Usage.CompletionTokens)
	assert.Equal(t, 42, result.Usage.TotalTokens)
}

func TestRun_ToolChoice(t *testing.T) {
	client := testutil.NewFakeClient(testutil.TextResponse("no tools here"))

	k := New(client)

	_, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	require.Len(t, client.Requests(), 1)
	assert.Equal(t, model.ToolChoiceNone, client.Requests()[0].ToolChoice)

	client2 := testutil.NewFakeClient(testutil.TextResponse("with tools"))

	k2 := New(client2, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
	})

	_, err = k2.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	req := client2.Requests()[0]
	assert.Equal(t, model.ToolChoiceAuto, req.ToolChoice)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "add", req.Tools[0].Function.Name)
}

func TestRun_ParseFailureDegradesToText(t *testing.T) {
	client := testutil.NewFakeClient(
		&model.Response{
			Content: "broken call follows",
			ToolCalls: []model.WireToolCall{
				{ID: "c1", Function: model.WireFunctionCall{Name: "add", Arguments: "{not json"}},
			},
		},
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	// Malformed arguments are a model fault, not a transport fault: the turn
	// degrades to plain text and the loop terminates normally.
	assert.Equal(t, core.ReasonNoToolCalls, result.Reason)
	assert.Equal(t, "broken call follows", result.FinalMessage.Content)
	assert.Empty(t, result.FinalMessage.ToolCalls)
}

func TestRun_EventSequence(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "add", `{"a":1,"b":2}`)),
		testutil.TextResponse("3"),
	)

	observer := testutil.NewRecordingObserver()

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
		o.Observer = observer
	})

	_, err := k.Run(context.Background(), []core.Message{core.UserMessage("1+2?")})
	require.NoError(t, err)

	events := observer.Events()
	require.NotEmpty(t, events)

	_, ok := events[0].(core.KernelStartEvent)
	assert.True(t, ok, "first event must be KernelStartEvent")

	_, ok = events[len(events)-1].(core.KernelEndEvent)
	assert.True(t, ok, "last event must be KernelEndEvent")

	var starts, ends, requests, responses, toolCalls, toolResults, turnCompletes int

	for _, ev := range events {
		switch ev.(type) {
		case core.KernelStartEvent:
			starts++
		case core.KernelEndEvent:
			ends++
		case core.ModelRequestEvent:
			requests++
		case core.ModelResponseEvent:
			responses++
		case core.ToolCallEvent:
			toolCalls++
		case core.ToolResultEvent:
			toolResults++
		case core.TurnCompleteEvent:
			turnCompletes++
		}
	}

	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)
	assert.Equal(t, 2, requests)
	assert.Equal(t, 2, responses)
	assert.Equal(t, 1, toolCalls)
	assert.Equal(t, 1, toolResults)
	assert.Equal(t, 2, turnCompletes)
}

func TestRun_ConstraintPayloadForwarded(t *testing.T) {
	client := testutil.NewFakeClient(testutil.TextResponse("done"))

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
		o.Pipeline = constraint.NewPipeline(constraint.JSONSchemaStrategy{})
	})

	_, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	req := client.Requests()[0]
	require.NotNil(t, req.Extra)
	assert.Contains(t, req.Extra, "guided_json")
	assert.Contains(t, req.Extra, "parallel_tool_calls")
}

func TestRun_ConstraintFallback(t *testing.T) {
	broken := tool.NewFunctionTool("broken", "Uncompilable schema",
		map[string]any{"type": 12345}, nil)

	client := testutil.NewFakeClient(testutil.TextResponse("done"))

	observer := testutil.NewRecordingObserver()

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{broken}
		o.Pipeline = constraint.NewPipeline(constraint.JSONSchemaStrategy{})
		o.Observer = observer
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, core.ReasonNoToolCalls, result.Reason)

	// Request went out unconstrained.
	assert.Nil(t, client.Requests()[0].Extra)

	fallbacks := observer.EventsOf(func(ev core.Event) bool {
		_, ok := ev.(core.ConstraintFallbackEvent)
		return ok
	})
	require.Len(t, fallbacks, 1)
}

func TestRun_SelectRestrictsActiveTools(t *testing.T) {
	other := tool.NewFunctionTool("other", "Never offered", map[string]any{"type": "object"}, nil)

	client := testutil.NewFakeClient(testutil.TextResponse("done"))

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool(), other}
		o.Select = []ToolRef{ByName("add"), ByName("missing")}
	})

	_, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	// Only the resolved selection reaches the model; the unresolved name is
	// dropped silently.
	req := client.Requests()[0]
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "add", req.Tools[0].Function.Name)
}

func TestRun_DirectToolRef(t *testing.T) {
	unregistered := tool.NewFunctionTool("inline", "Direct instance", map[string]any{"type": "object"},
		func(_ *core.ExecutionContext, _ map[string]any) (any, error) {
			return "ran", nil
		})

	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "inline", `{}`)),
		testutil.TextResponse("done"),
	)

	k := New(client, func(o *Options) {
		o.Select = []ToolRef{Direct(unregistered)}
	})

	result, err := k.Run(context.Background(), []core.Message{core.UserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, "ran", result.History[2].Content)
}

func TestStep_SingleTurn(t *testing.T) {
	client := testutil.NewFakeClient(
		testutil.ToolCallResponse(testutil.WireCall("c1", "add", `{"a":4,"b":5}`)),
	)

	k := New(client, func(o *Options) {
		o.Tools = []tool.Tool{addTool()}
	})

	input := []core.Message{core.UserMessage("4+5?")}

	sr, err := k.Step(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, sr.ToolCalls, 1)
	assert.Equal(t, "c1", sr.ToolCalls[0].ID)

	require.Len(t, sr.ToolResults, 1)
	assert.Equal(t, "c1", sr.ToolResults[0].CallID)
	assert.Equal(t, "9", sr.ToolResults[0].Output)
	assert.False(t, sr.ToolResults[0].IsError)

	// Step does not fold anything back into the caller's history.
	assert.Len(t, input, 1)
}

func TestKernel_Close(t *testing.T) {
	client := testutil.NewFakeClient()

	k := New(client)
	require.NoError(t, k.Close())
	assert.True(t, client.Closed())
}
