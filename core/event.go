package core

import "time"

// Event is a typed lifecycle notification emitted by the kernel. Concrete
// event types implement the unexported isEvent marker, forming a closed set
// so observers can switch exhaustively.
//
// Per run the kernel emits exactly one KernelStartEvent, then per turn a
// ModelRequestEvent, a ModelResponseEvent, one ToolCallEvent/ToolResultEvent
// pair per dispatched call and a TurnCompleteEvent, and finally exactly one
// KernelEndEvent on every exit path (normal termination, budget exhaustion,
// client failure, cancellation).
//
// ToolCallEvents are emitted at dispatch time in request order. Under
// concurrent dispatch ToolResultEvents arrive in completion order, which may
// differ; history ordering remains request-order regardless.
type Event interface{ isEvent() }

// KernelStartEvent marks run entry.
type KernelStartEvent struct {
	RunID    string
	MaxTurns int
	Time     time.Time
}

func (KernelStartEvent) isEvent() {}

// ModelRequestEvent marks the moment a formatted request is handed to the
// model client.
type ModelRequestEvent struct {
	RunID       string
	Turn        int
	Messages    int
	Tools       int
	Constrained bool
}

func (ModelRequestEvent) isEvent() {}

// ModelResponseEvent carries the parsed model response for one turn.
type ModelResponseEvent struct {
	RunID     string
	Turn      int
	Content   string
	ToolCalls int
	Usage     *TokenUsage
}

func (ModelResponseEvent) isEvent() {}

// ToolCallEvent marks the dispatch of a single tool call.
type ToolCallEvent struct {
	RunID string
	Turn  int
	Call  ToolCall
}

func (ToolCallEvent) isEvent() {}

// ToolResultEvent carries the outcome of a single tool call.
type ToolResultEvent struct {
	RunID    string
	Turn     int
	Result   ToolResult
	Duration time.Duration
}

func (ToolResultEvent) isEvent() {}

// ConstraintFallbackEvent reports a recoverable decoding-constraint build
// failure: the turn proceeded without a constraint.
type ConstraintFallbackEvent struct {
	RunID string
	Turn  int
	Err   error
}

func (ConstraintFallbackEvent) isEvent() {}

// TurnCompleteEvent marks the end of one turn, after all of its tool results
// have been collected.
type TurnCompleteEvent struct {
	RunID     string
	Turn      int
	ToolCalls int
}

func (TurnCompleteEvent) isEvent() {}

// KernelEndEvent marks run exit. Reason is empty only when the run failed
// with a client error; Err is set in that case.
type KernelEndEvent struct {
	RunID  string
	Turns  int
	Reason TerminationReason
	Err    error
	Time   time.Time
}

func (KernelEndEvent) isEvent() {}
