// Package core provides the foundational domain types and contracts used by
// the agent kernel. It defines the core abstractions for:
//
//   - Messages (immutable conversation entries with role semantics)
//   - ToolCall / ToolResult (correlated request/outcome pairs for tool dispatch)
//   - ToolSchema (JSON-schema description of a callable capability)
//   - StepResult / RunResult (per-turn and per-run outcomes)
//   - Events + Observer (typed lifecycle telemetry, decoupled from control flow)
//   - ExecutionContext (scoped environment handed to executing tools)
//
// The package intentionally keeps implementation concerns (wire formats,
// orchestration, concrete tools) out of scope, exposing small value types and
// interfaces so the kernel, model and tool packages can depend on it without
// cycles.
package core
