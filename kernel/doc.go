// Package kernel implements the agent loop: it sends conversation history to
// a model client, parses tool call requests out of the response, dispatches
// them against a tool registry with bounded concurrency, folds the results
// back into history and repeats until the model stops calling tools or the
// turn budget runs out.
//
// The kernel owns orchestration only. Model transport lives behind
// model.Client, tool semantics behind tool.Tool, guided decoding behind
// constraint.Pipeline and telemetry behind core.Observer; all of them are
// injected via functional options.
package kernel
