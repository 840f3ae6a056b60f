package constraint

import (
	"github.com/hupe1980/agentkernel/core"
)

// Options configure a Pipeline.
type Options struct {
	// AllowParallelCalls permits the model to request multiple tool calls in
	// one response. Included in the payload as parallel_tool_calls.
	AllowParallelCalls bool

	// SendToolsToAPI controls whether tool declarations are still sent to the
	// provider alongside the constraint payload. Some serving stacks need the
	// declarations for native parsing, others only consume the grammar.
	SendToolsToAPI bool
}

// Pipeline turns the tool schemas of a turn into a guided decoding payload.
type Pipeline struct {
	strategy Strategy
	opts     Options
}

// NewPipeline creates a pipeline for the given strategy.
func NewPipeline(strategy Strategy, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		AllowParallelCalls: true,
		SendToolsToAPI:     true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Pipeline{strategy: strategy, opts: opts}
}

// SendToolsToAPI reports whether tool declarations should accompany the
// constrained request.
func (p *Pipeline) SendToolsToAPI() bool {
	return p.opts.SendToolsToAPI
}

// Constrain builds the extra body payload for a turn. With no tools there is
// nothing to constrain and it returns nil, nil regardless of configuration.
func (p *Pipeline) Constrain(tools []core.ToolSchema) (map[string]any, error) {
	if len(tools) == 0 || p.strategy == nil {
		return nil, nil
	}

	payload, err := p.strategy.Build(tools)
	if err != nil {
		return nil, err
	}

	payload["parallel_tool_calls"] = p.opts.AllowParallelCalls

	return payload, nil
}
