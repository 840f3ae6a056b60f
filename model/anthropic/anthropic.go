// Package anthropic implements model.Client on top of the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/model"
)

// Options configures the Anthropic client (temperature, model id, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Client wraps the Anthropic Messages API behind the generic model.Client interface.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// NewClient creates a new Anthropic client using the official SDK client.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Client{
		client: &client,
		opts:   opts,
	}
}

// NewClientFromSDK creates a new Anthropic client from an existing SDK client.
func NewClientFromSDK(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		client: client,
		opts:   opts,
	}
}

// ChatCompletion issues a non-streaming message request and normalizes the
// response back into model.Response.
func (c *Client) ChatCompletion(ctx context.Context, req model.Request) (*model.Response, error) {
	maxTokens := c.opts.MaxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}

	temperature := c.opts.Temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}

	messages, system, err := buildMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}

	if len(system) > 0 {
		params.System = system
	}

	// The Messages API has no "none" tool choice; omitting the tool
	// declarations has the same effect.
	if len(req.Tools) > 0 && req.ToolChoice != model.ToolChoiceNone {
		params.Tools = buildTools(req.Tools)
	}

	var reqOpts []option.RequestOption
	for k, v := range req.Extra {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}

	resp, err := c.client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	out := &model.Response{}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()

			args := "{}"
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}

			out.ToolCalls = append(out.ToolCalls, model.WireToolCall{
				ID:   toolBlock.ID,
				Type: "function",
				Function: model.WireFunctionCall{
					Name:      toolBlock.Name,
					Arguments: args,
				},
			})
		}
	}

	out.FinishReason = "stop"
	if resp.StopReason != "" {
		out.FinishReason = string(resp.StopReason)
	}

	out.Usage = &core.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return out, nil
}

// buildMessages converts wire messages to Anthropic message params. System
// and developer messages are lifted into the dedicated system field.
func buildMessages(messages []model.WireMessage) ([]anthropic.MessageParam, []anthropic.TextBlockParam, error) {
	var out []anthropic.MessageParam

	var system []anthropic.TextBlockParam

	for _, m := range messages {
		switch m.Role {
		case "system", "developer":
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case "assistant":
			var content []anthropic.ContentBlockParamUnion

			if m.Content != "" {
				content = append(content, anthropic.NewTextBlock(m.Content))
			}

			for _, tc := range m.ToolCalls {
				var input any
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
						return nil, nil, fmt.Errorf("invalid arguments for tool call %q: %w", tc.ID, err)
					}
				}

				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
			}

			if len(content) > 0 {
				out = append(out, anthropic.NewAssistantMessage(content...))
			}
		case "tool":
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			if m.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}

	return out, system, nil
}

// buildTools converts wire tool declarations to the Anthropic tool format.
func buildTools(tools []model.WireTool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := t.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				inputSchema.Properties = properties
			}

			if required, ok := params["required"]; ok {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							inputSchema.Required = append(inputSchema.Required, s)
						}
					}
				}
			}
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Function.Name)
	}

	return out
}

// Close releases resources. The SDK client needs no explicit shutdown.
func (c *Client) Close() error {
	return nil
}

// Info returns metadata describing this Anthropic client implementation.
func (c *Client) Info() model.Info {
	return model.Info{
		Name:          string(c.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
