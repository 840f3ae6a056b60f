package core

import (
	"context"

	"github.com/hupe1980/agentkernel/logging"
)

// ExecutionContext provides a constrained, auditable surface for tool
// implementations invoked by the kernel. It always carries the originating
// ToolCall so a tool can recover its own call id for result correlation, the
// ambient cancellation context, and run/turn identifiers for logging. The
// kernel never dispatches with a nil or empty context.
type ExecutionContext struct {
	ctx   context.Context
	call  ToolCall
	runID string
	turn  int

	logger logging.Logger
}

// NewExecutionContext constructs an execution context bound to one tool call.
// A nil ctx defaults to context.Background(); a nil logger to NoOpLogger.
func NewExecutionContext(ctx context.Context, call ToolCall, runID string, turn int, logger logging.Logger) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ExecutionContext{ctx: ctx, call: call, runID: runID, turn: turn, logger: logger}
}

// Context returns the cancellation context for the tool invocation. Tools
// performing blocking work must observe it.
func (ec *ExecutionContext) Context() context.Context { return ec.ctx }

// Call returns the originating ToolCall.
func (ec *ExecutionContext) Call() ToolCall { return ec.call }

// CallID returns the id of the originating ToolCall.
func (ec *ExecutionContext) CallID() string { return ec.call.ID }

// RunID returns the run identifier, empty when the call was dispatched via a
// bare Step outside a run.
func (ec *ExecutionContext) RunID() string { return ec.runID }

// Turn returns the 1-based turn number within the run.
func (ec *ExecutionContext) Turn() int { return ec.turn }

// Logger returns the logger scoped to this invocation. Never nil.
func (ec *ExecutionContext) Logger() logging.Logger { return ec.logger }
