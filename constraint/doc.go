// Package constraint builds guided decoding payloads that restrict model
// output to well formed tool calls. A Pipeline combines a Strategy (EBNF
// grammar, structural tags, or a JSON schema union) with call policy flags
// and produces an opaque payload that provider clients forward verbatim as
// extra request body fields.
//
// The payload keys follow the vLLM guided decoding convention
// (guided_grammar, structured_tag, guided_json, parallel_tool_calls);
// serving stacks that do not understand them ignore them.
package constraint
