package core

// TokenUsage captures token accounting for one or more model calls.
// Informational only; the kernel never branches on it.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage sample into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// StepResult is the outcome of a single turn: the assistant response, the
// tool calls it requested, the results of dispatching them (in request
// order), and optional usage. Owned by the caller of Step.
type StepResult struct {
	Response    Message      `json:"response"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Usage       *TokenUsage  `json:"usage,omitempty"`
}

// TerminationReason is the closed set of reasons a run can end.
type TerminationReason string

const (
	// ReasonNoToolCalls means the model produced a turn with no tool calls,
	// the benign terminal state of the loop.
	ReasonNoToolCalls TerminationReason = "no_tool_calls"
	// ReasonMaxTurns means the turn budget was exhausted before the model
	// stopped requesting tools.
	ReasonMaxTurns TerminationReason = "max_turns"
	// ReasonCancelled means the run context was cancelled or timed out.
	ReasonCancelled TerminationReason = "cancelled"
)

// RunResult is the outcome of a bounded run: the final message, the complete
// ordered history (initial messages plus everything the run appended), the
// number of turns executed and why the loop stopped.
type RunResult struct {
	FinalMessage    Message           `json:"final_message"`
	History         []Message         `json:"history"`
	Turns           int               `json:"turns"`
	Reason          TerminationReason `json:"reason"`
	FinalToolResult *ToolResult       `json:"final_tool_result,omitempty"`
	Usage           *TokenUsage       `json:"usage,omitempty"`
}
