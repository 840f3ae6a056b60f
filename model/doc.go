// Package model defines the wire-level contract between the kernel and LLM
// providers: normalized request/response shapes, the Client interface every
// provider implementation satisfies, the Adapter capability that formats
// generic messages and tools into model-family specific wire shapes, and the
// stateless response parser that extracts tool call requests from raw model
// output.
//
// Provider implementations live in subpackages (model/openai,
// model/anthropic); the kernel depends only on the interfaces defined here.
package model
