// Package openai implements model.Client on top of the OpenAI Chat
// Completions API (including function/tool calling). It adapts the kernel's
// normalized Request/Response structures into the SDK's message format and
// back, and forwards opaque constraint payloads as extra request body fields.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the OpenAI client.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Client wraps the OpenAI Chat Completions API behind the generic model.Client interface.
type Client struct {
	client *openai.Client
	opts   Options
}

// NewClient creates a new OpenAI client using the official SDK client.
func NewClient(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewClientFromSDK(&client, optFns...)
}

// NewClientFromSDK creates a new OpenAI client from an existing SDK client.
func NewClientFromSDK(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{client: client, opts: opts}
}

// ChatCompletion issues a non-streaming chat completion and normalizes the
// first choice back into model.Response.
func (c *Client) ChatCompletion(ctx context.Context, req model.Request) (*model.Response, error) {
	params := c.buildParams(req)

	var reqOpts []option.RequestOption
	for k, v := range req.Extra {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api error: no choices returned")
	}

	ch0 := resp.Choices[0]

	out := &model.Response{
		Content:      ch0.Message.Content,
		FinishReason: ch0.FinishReason,
	}

	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.WireToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: model.WireFunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	out.Usage = &core.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	return out, nil
}

// buildParams assembles the OpenAI request parameters including tool
// definitions and tool choice.
func (c *Client) buildParams(req model.Request) openai.ChatCompletionNewParams {
	temperature := c.opts.Temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}

	maxTokens := c.opts.MaxCompletionTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               c.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        t.Function.Name,
					Description: openai.String(t.Function.Description),
					Parameters:  t.Function.Parameters,
				},
			}
		}

		params.Tools = tools
	}

	if req.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(req.ToolChoice)),
		}
	}

	return params
}

// buildMessages converts normalized wire messages into OpenAI chat messages.
func buildMessages(messages []model.WireMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "developer":
			out = append(out, openai.DeveloperMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}

			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}

			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCalls,
			}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}

			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			if m.Content != "" {
				out = append(out, openai.UserMessage(m.Content))
			}
		}
	}

	return out
}

// Close releases resources. The SDK client needs no explicit shutdown.
func (c *Client) Close() error {
	return nil
}

// Info returns metadata describing this OpenAI client implementation.
func (c *Client) Info() model.Info {
	return model.Info{
		Name:          c.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
