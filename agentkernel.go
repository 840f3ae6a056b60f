// Package agentkernel provides a high-level façade over the kernel and its
// service abstractions (history, tools, constraints & logging) enabling rapid
// construction of tool calling agents. Most applications interact with this
// package by:
//  1. Creating an AgentKernel via New() (optionally overriding defaults)
//  2. Registering one or more tools
//  3. Running conversations (RunConversation) or single prompts (Run)
//
// The façade delegates orchestration to kernel.Kernel while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable history store
// and a structured logger.
package agentkernel

import (
	"context"

	"github.com/hupe1980/agentkernel/constraint"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/history"
	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/model"
	"github.com/hupe1980/agentkernel/tool"
)

// Options configures the AgentKernel instance.
type Options struct {
	// SystemPrompt is prepended to every conversation as a system message.
	SystemPrompt string

	// MaxTurns bounds each run. Defaults to 10.
	MaxTurns int

	// MaxConcurrency bounds parallel tool dispatch within a turn. Defaults to 4.
	MaxConcurrency int

	// Adapter overrides the wire formatting strategy (defaults to the native
	// tool calling adapter).
	Adapter model.Adapter

	// Pipeline enables guided decoding. Nil disables it.
	Pipeline *constraint.Pipeline

	// Tools registered at construction time.
	Tools []tool.Tool

	// HistoryStore persists conversations (defaults to in-memory).
	HistoryStore history.Store

	// Observer receives lifecycle events (defaults to discard).
	Observer core.Observer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentKernel is the high-level façade aggregating the kernel and services.
type AgentKernel struct {
	opts    Options
	kernel  *kernel.Kernel
	history history.Store
}

// New creates a new AgentKernel around a model client with optional
// overrides. Any unset service is initialized with an in-memory or no-op
// implementation.
func New(client model.Client, optFns ...func(o *Options)) *AgentKernel {
	opts := Options{
		MaxTurns:       10,
		MaxConcurrency: 4,
		HistoryStore:   history.NewInMemoryStore(),
		Observer:       core.NopObserver{},
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	k := kernel.New(client, func(o *kernel.Options) {
		o.Adapter = opts.Adapter
		o.Pipeline = opts.Pipeline
		o.Tools = opts.Tools
		o.MaxTurns = opts.MaxTurns
		o.MaxConcurrency = opts.MaxConcurrency
		o.Observer = opts.Observer
		o.Logger = opts.Logger
	})

	return &AgentKernel{opts: opts, kernel: k, history: opts.HistoryStore}
}

// RegisterTool adds a tool to the underlying registry.
func (a *AgentKernel) RegisterTool(t tool.Tool) error {
	return a.kernel.Registry().Register(t)
}

// Kernel exposes the underlying kernel for advanced use.
func (a *AgentKernel) Kernel() *kernel.Kernel {
	return a.kernel
}

// Run executes a single prompt as a fresh conversation and returns the run
// result. History is not persisted.
func (a *AgentKernel) Run(ctx context.Context, prompt string) (*core.RunResult, error) {
	return a.kernel.Run(ctx, a.seed(nil, prompt))
}

// RunConversation appends the prompt to the stored conversation, executes a
// run over the combined transcript and persists the messages the run added.
func (a *AgentKernel) RunConversation(ctx context.Context, conversationID, prompt string) (*core.RunResult, error) {
	prior, err := a.history.Get(conversationID)
	if err != nil {
		return nil, err
	}

	messages := a.seed(prior, prompt)

	result, err := a.kernel.Run(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err := a.history.Replace(conversationID, result.History); err != nil {
		return nil, err
	}

	return result, nil
}

// Close releases the underlying model client.
func (a *AgentKernel) Close() error {
	return a.kernel.Close()
}

func (a *AgentKernel) seed(prior []core.Message, prompt string) []core.Message {
	messages := make([]core.Message, 0, len(prior)+2)

	if a.opts.SystemPrompt != "" && (len(prior) == 0 || prior[0].Role != core.RoleSystem) {
		messages = append(messages, core.SystemMessage(a.opts.SystemPrompt))
	}

	messages = append(messages, prior...)
	messages = append(messages, core.UserMessage(prompt))

	return messages
}
