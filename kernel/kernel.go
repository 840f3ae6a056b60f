package kernel

import (
	"context"
	"time"

	"github.com/hupe1980/agentkernel/constraint"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/model"
	"github.com/hupe1980/agentkernel/tool"
)

// Options configure a Kernel.
type Options struct {
	// Adapter formats history and tool schemas for the model family.
	// Defaults to model.NewChatAdapter.
	Adapter model.Adapter

	// Parser extracts tool calls from model responses. Defaults to
	// model.NewParser.
	Parser *model.Parser

	// Pipeline builds guided decoding payloads. Nil disables constraints.
	Pipeline *constraint.Pipeline

	// Registry holds the callable tools. Defaults to an empty registry.
	Registry *tool.Registry

	// Tools are registered into the registry at construction time.
	Tools []tool.Tool

	// Select restricts the active tool set per turn. Empty means the whole
	// registry is active. Unresolved name references are dropped with a
	// warning log.
	Select []ToolRef

	// MaxTurns bounds the run loop. Defaults to 10.
	MaxTurns int

	// MaxConcurrency bounds parallel tool dispatch within a turn. 1 means
	// strictly sequential. Defaults to 4.
	MaxConcurrency int

	// MaxModelCalls bounds model calls per run. 0 means unlimited.
	MaxModelCalls int

	// MaxTokens and Temperature are forwarded to the model client; zero
	// values defer to the client's own defaults.
	MaxTokens   int64
	Temperature float64

	// Observer receives lifecycle events. Defaults to core.NopObserver.
	Observer core.Observer

	// Logger receives structured log output. Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Kernel drives the agent loop against a model client and a tool registry.
// A Kernel is safe for concurrent use; each Run carries its own state.
type Kernel struct {
	client     model.Client
	adapter    model.Adapter
	parser     *model.Parser
	pipeline   *constraint.Pipeline
	registry   *tool.Registry
	observer   core.Observer
	logger     logging.Logger
	dispatcher *dispatcher
	opts       Options
}

// New creates a Kernel around a model client.
func New(client model.Client, optFns ...func(o *Options)) *Kernel {
	opts := Options{
		MaxTurns:       10,
		MaxConcurrency: 4,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxTurns < 1 {
		opts.MaxTurns = 1
	}

	if opts.Adapter == nil {
		opts.Adapter = model.NewChatAdapter()
	}

	if opts.Parser == nil {
		opts.Parser = model.NewParser()
	}

	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry()
	}

	if opts.Observer == nil {
		opts.Observer = core.NopObserver{}
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	opts.Registry.MustRegister(opts.Tools...)

	return &Kernel{
		client:     client,
		adapter:    opts.Adapter,
		parser:     opts.Parser,
		pipeline:   opts.Pipeline,
		registry:   opts.Registry,
		observer:   opts.Observer,
		logger:     opts.Logger,
		dispatcher: newDispatcher(opts.MaxConcurrency, opts.Observer, opts.Logger),
		opts:       opts,
	}
}

// Registry returns the tool registry. Tools registered after construction are
// visible to subsequent turns.
func (k *Kernel) Registry() *tool.Registry {
	return k.registry
}

// Close releases the underlying model client.
func (k *Kernel) Close() error {
	return k.client.Close()
}

// Step executes exactly one turn against the given history: model call,
// parse, tool dispatch. The input slice is not modified; folding the response
// and tool results back into history is the caller's job.
func (k *Kernel) Step(ctx context.Context, messages []core.Message) (*core.StepResult, error) {
	return k.step(ctx, core.NewID(), 1, core.CopyMessages(messages), core.NewCallLimiter(k.opts.MaxModelCalls))
}

// Run executes the agent loop until the model stops requesting tools, the
// turn budget is exhausted or the context is cancelled. The input slice is
// never modified; the returned history is the input plus everything the run
// appended. The only error returned is *ClientError; cancellation is a
// termination reason, not an error.
func (k *Kernel) Run(ctx context.Context, messages []core.Message) (*core.RunResult, error) {
	runID := core.NewID()
	limiter := core.NewCallLimiter(k.opts.MaxModelCalls)
	logger := k.logger

	history := core.CopyMessages(messages)

	k.observer.Emit(core.KernelStartEvent{RunID: runID, MaxTurns: k.opts.MaxTurns, Time: time.Now()})

	logger.Info("kernel.run.start", "run_id", runID, "max_turns", k.opts.MaxTurns, "messages", len(history))

	var (
		finalMessage core.Message
		reason       core.TerminationReason
		usage        *core.TokenUsage
		lastResults  []core.ToolResult
		turns        int
	)

	for turn := 1; turn <= k.opts.MaxTurns; turn++ {
		if ctx.Err() != nil {
			reason = core.ReasonCancelled
			break
		}

		sr, err := k.step(ctx, runID, turn, history, limiter)
		if err != nil {
			if ctx.Err() != nil {
				reason = core.ReasonCancelled
				break
			}

			logger.Error("kernel.run.failed", "run_id", runID, "turn", turn, "error", err.Error())
			k.observer.Emit(core.KernelEndEvent{RunID: runID, Turns: turns, Err: err, Time: time.Now()})

			return nil, err
		}

		turns = turn
		history = append(history, sr.Response)

		if sr.Usage != nil {
			if usage == nil {
				usage = &core.TokenUsage{}
			}

			usage.Add(*sr.Usage)
		}

		if len(sr.ToolCalls) == 0 {
			finalMessage = sr.Response
			reason = core.ReasonNoToolCalls

			break
		}

		// Tool results enter history in request order regardless of
		// completion order.
		for _, r := range sr.ToolResults {
			history = append(history, core.ToolMessage(r))
		}

		lastResults = sr.ToolResults

		if turn == k.opts.MaxTurns {
			finalMessage = sr.Response
			reason = core.ReasonMaxTurns
		}
	}

	if reason == core.ReasonCancelled || reason == "" {
		reason = core.ReasonCancelled

		// Best effort final message: the last assistant entry appended.
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Role == core.RoleAssistant {
				finalMessage = history[i]
				break
			}
		}
	}

	result := &core.RunResult{
		FinalMessage: finalMessage,
		History:      history,
		Turns:        turns,
		Reason:       reason,
		Usage:        usage,
	}

	if reason != core.ReasonNoToolCalls && len(lastResults) > 0 {
		last := lastResults[len(lastResults)-1]
		result.FinalToolResult = &last
	}

	logger.Info("kernel.run.complete", "run_id", runID, "turns", turns, "reason", string(reason))
	k.observer.Emit(core.KernelEndEvent{RunID: runID, Turns: turns, Reason: reason, Time: time.Now()})

	return result, nil
}

// step executes one turn: resolve, constrain, format, model call, parse, dispatch.
func (k *Kernel) step(ctx context.Context, runID string, turn int, history []core.Message, limiter *core.CallLimiter) (*core.StepResult, error) {
	active, byName := k.activeTools()

	schemas := make([]core.ToolSchema, 0, len(active))
	for _, t := range active {
		schemas = append(schemas, tool.Schema(t))
	}

	var extra map[string]any

	if k.pipeline != nil && len(schemas) > 0 {
		payload, err := k.pipeline.Constrain(schemas)
		if err != nil {
			// Constraint build failures degrade to unconstrained decoding.
			k.logger.Warn("kernel.constraint.fallback", "run_id", runID, "turn", turn, "error", err.Error())
			k.observer.Emit(core.ConstraintFallbackEvent{RunID: runID, Turn: turn, Err: err})
		} else {
			extra = payload
		}
	}

	wireMessages, err := k.adapter.FormatMessages(history, schemas)
	if err != nil {
		return nil, &ClientError{Turn: turn, Phase: PhaseFormat, Err: err}
	}

	wireTools := k.adapter.FormatTools(schemas)
	if k.pipeline != nil && !k.pipeline.SendToolsToAPI() {
		wireTools = nil
	}

	toolChoice := model.ToolChoiceNone
	if len(wireTools) > 0 {
		toolChoice = model.ToolChoiceAuto
	}

	if err := limiter.Increment(); err != nil {
		return nil, &ClientError{Turn: turn, Phase: PhaseModelCall, Err: err}
	}

	k.observer.Emit(core.ModelRequestEvent{
		RunID:       runID,
		Turn:        turn,
		Messages:    len(wireMessages),
		Tools:       len(wireTools),
		Constrained: extra != nil,
	})

	start := time.Now()

	resp, err := k.client.ChatCompletion(ctx, model.Request{
		Messages:    wireMessages,
		Tools:       wireTools,
		ToolChoice:  toolChoice,
		MaxTokens:   k.opts.MaxTokens,
		Temperature: k.opts.Temperature,
		Extra:       extra,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &ClientError{Turn: turn, Phase: PhaseModelCall, Err: err}
	}

	k.logger.Debug("kernel.model.call", "run_id", runID, "turn", turn, "duration_ms", time.Since(start).Milliseconds())

	parsed, err := k.parser.Parse(resp)
	if err != nil {
		// A malformed response degrades to a plain text turn.
		k.logger.Warn("kernel.parse.failed", "run_id", runID, "turn", turn, "error", err.Error())

		parsed = &model.ParsedResponse{Content: resp.Content}
	}

	for _, diag := range parsed.Diagnostics {
		k.logger.Warn("kernel.parse.diagnostic", "run_id", runID, "turn", turn, "detail", diag)
	}

	k.observer.Emit(core.ModelResponseEvent{
		RunID:     runID,
		Turn:      turn,
		Content:   parsed.Content,
		ToolCalls: len(parsed.ToolCalls),
		Usage:     resp.Usage,
	})

	results, err := k.dispatcher.dispatch(ctx, runID, turn, parsed.ToolCalls, byName)
	if err != nil {
		return nil, err
	}

	k.observer.Emit(core.TurnCompleteEvent{RunID: runID, Turn: turn, ToolCalls: len(parsed.ToolCalls)})

	return &core.StepResult{
		Response:    core.AssistantMessage(parsed.Content, parsed.ToolCalls...),
		ToolCalls:   parsed.ToolCalls,
		ToolResults: results,
		Usage:       resp.Usage,
	}, nil
}
