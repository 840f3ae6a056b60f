package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/model"
)

// FakeClient is a scripted model.Client for tests. Each ChatCompletion call
// consumes the next queued response; calling past the end of the script
// fails the request. All received requests are recorded for assertions.
type FakeClient struct {
	mu        sync.Mutex
	responses []*model.Response
	errs      []error
	requests  []model.Request
	calls     int
	closed    bool
}

// NewFakeClient creates a client that replays the given responses in order.
func NewFakeClient(responses ...*model.Response) *FakeClient {
	return &FakeClient{responses: responses, errs: make([]error, len(responses))}
}

// QueueResponse appends a scripted response.
func (c *FakeClient) QueueResponse(resp *model.Response) *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responses = append(c.responses, resp)
	c.errs = append(c.errs, nil)

	return c
}

// QueueError appends a scripted failure.
func (c *FakeClient) QueueError(err error) *FakeClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responses = append(c.responses, nil)
	c.errs = append(c.errs, err)

	return c
}

// ChatCompletion implements model.Client.
func (c *FakeClient) ChatCompletion(ctx context.Context, req model.Request) (*model.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)

	if c.calls >= len(c.responses) {
		return nil, fmt.Errorf("fake client: no scripted response for call %d", c.calls+1)
	}

	resp, err := c.responses[c.calls], c.errs[c.calls]
	c.calls++

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Close implements model.Client.
func (c *FakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

// Calls returns the number of completed ChatCompletion invocations.
func (c *FakeClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

// Requests returns all recorded requests.
func (c *FakeClient) Requests() []model.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Request, len(c.requests))
	copy(out, c.requests)

	return out
}

// Closed reports whether Close was called.
func (c *FakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// TextResponse builds a plain text response with no tool calls.
func TextResponse(content string) *model.Response {
	return &model.Response{Content: content, FinishReason: "stop"}
}

// ToolCallResponse builds a response requesting the given native tool calls.
func ToolCallResponse(calls ...model.WireToolCall) *model.Response {
	return &model.Response{ToolCalls: calls, FinishReason: "tool_calls"}
}

// WireCall builds a native wire tool call with a JSON argument string.
func WireCall(id, name, args string) model.WireToolCall {
	return model.WireToolCall{
		ID:   id,
		Type: "function",
		Function: model.WireFunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

// UsageResponse attaches token usage to a response (chainable helper).
func UsageResponse(resp *model.Response, prompt, completion int) *model.Response {
	resp.Usage = &core.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}

	return resp
}
