package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/tool"
)

// dispatcher executes a batch of tool calls, possibly in parallel, and
// collects results in request order. It must:
//   - Respect context cancellation
//   - Never panic (recover internally and convert to error results)
//   - Produce exactly one ToolResult per incoming ToolCall
type dispatcher struct {
	maxConcurrency int
	observer       core.Observer
	logger         logging.Logger
}

func newDispatcher(maxConcurrency int, observer core.Observer, logger logging.Logger) *dispatcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	return &dispatcher{
		maxConcurrency: maxConcurrency,
		observer:       observer,
		logger:         logger,
	}
}

// dispatch runs all calls against the turn's active tool set and returns
// their results indexed like the input. ToolCallEvents are emitted up front
// in request order; ToolResultEvents in completion order. On cancellation the
// partial results are discarded and the context error is returned.
func (d *dispatcher) dispatch(ctx context.Context, runID string, turn int, calls []core.ToolCall, tools map[string]tool.Tool) ([]core.ToolResult, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	for _, call := range calls {
		d.observer.Emit(core.ToolCallEvent{RunID: runID, Turn: turn, Call: call})
	}

	// Fast path: single call or sequential mode.
	if n == 1 || d.maxConcurrency == 1 {
		return d.dispatchSequential(ctx, runID, turn, calls, tools)
	}

	maxPar := d.maxConcurrency
	if maxPar > n {
		maxPar = n
	}

	results := make([]core.ToolResult, n)

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()

	for i := range calls {
		if ctx.Err() != nil { // pre-check cancellation
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[idx] = core.ErrorResult(call, "cancelled")
				return
			}

			results[idx] = d.executeOne(ctx, runID, turn, call, tools)
		}(i, calls[i])
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// In-flight tools are abandoned; their goroutines observe ctx and
		// unwind on their own.
		return nil, ctx.Err()
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	d.logger.Debug("kernel.dispatch.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results, nil
}

func (d *dispatcher) dispatchSequential(ctx context.Context, runID string, turn int, calls []core.ToolCall, tools map[string]tool.Tool) ([]core.ToolResult, error) {
	results := make([]core.ToolResult, len(calls))

	for i, call := range calls {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		results[i] = d.executeOne(ctx, runID, turn, call, tools)
	}

	return results, nil
}

// executeOne resolves and runs a single call, converting every failure mode
// (unknown tool, tool error, panic) into an error-flagged ToolResult carrying
// the originating call id.
func (d *dispatcher) executeOne(ctx context.Context, runID string, turn int, call core.ToolCall, tools map[string]tool.Tool) core.ToolResult {
	start := time.Now()

	result := d.run(ctx, runID, turn, call, tools)

	dur := time.Since(start)

	d.logger.Info("kernel.tool.executed",
		"tool", call.Name,
		"call_id", call.ID,
		"duration_ms", dur.Milliseconds(),
		"error", result.IsError,
	)

	d.observer.Emit(core.ToolResultEvent{RunID: runID, Turn: turn, Result: result, Duration: dur})

	return result
}

func (d *dispatcher) run(ctx context.Context, runID string, turn int, call core.ToolCall, tools map[string]tool.Tool) (result core.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("kernel.tool.panic", "tool", call.Name, "recover", r, "stack", string(debug.Stack()))
			result = core.ErrorResult(call, fmt.Sprintf("tool panicked: %v", r))
		}
	}()

	impl, ok := tools[call.Name]
	if !ok {
		return core.ErrorResult(call, "tool not found: "+call.Name)
	}

	execCtx := core.NewExecutionContext(ctx, call, runID, turn, d.logger)

	out, err := impl.Call(execCtx, call.Arguments)
	if err != nil {
		return core.ErrorResult(call, err.Error())
	}

	output, err := stringify(out)
	if err != nil {
		return core.ErrorResult(call, fmt.Sprintf("marshal tool output: %v", err))
	}

	return core.ToolResult{CallID: call.ID, Name: call.Name, Output: output}
}

// stringify renders a tool return value for the transcript. Strings pass
// through unchanged; everything else is JSON marshaled.
func stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return "", err
		}

		return string(raw), nil
	}
}
