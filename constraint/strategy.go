package constraint

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentkernel/core"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Strategy selects how tool call output is constrained during decoding.
// The set of strategies is closed; each variant carries the unexported
// marker method.
type Strategy interface {
	// Build produces the guided decoding payload fragment for the given
	// tool schemas. Called with at least one schema.
	Build(tools []core.ToolSchema) (map[string]any, error)

	isStrategy()
}

// BuildError reports that a strategy could not produce a payload from the
// given tool schemas. The kernel falls back to unconstrained decoding and
// notifies observers.
type BuildError struct {
	Strategy string
	Err      error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s constraint: %v", e.Strategy, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// EBNFStrategy emits an EBNF grammar whose language is exactly the set of
// tagged tool call blocks for the declared tools. Payload key: guided_grammar.
type EBNFStrategy struct{}

func (EBNFStrategy) isStrategy() {}

// Build generates the grammar.
func (EBNFStrategy) Build(tools []core.ToolSchema) (map[string]any, error) {
	var sb strings.Builder

	sb.WriteString("root ::= call+\n")
	sb.WriteString(`call ::= "<tool_call>" body "</tool_call>"` + "\n")

	alts := make([]string, 0, len(tools))
	for i, t := range tools {
		rule := fmt.Sprintf("body%d", i)
		alts = append(alts, rule)

		fmt.Fprintf(&sb, "%s ::= \"{\\\"name\\\": \\\"%s\\\", \\\"arguments\\\": \" json \"}\"\n", rule, t.Name)
	}

	sb.WriteString("body ::= " + strings.Join(alts, " | ") + "\n")
	sb.WriteString(`json ::= "{" ( string ":" value ("," string ":" value)* )? "}"` + "\n")
	sb.WriteString(`value ::= string | number | json | array | "true" | "false" | "null"` + "\n")
	sb.WriteString(`array ::= "[" ( value ("," value)* )? "]"` + "\n")
	sb.WriteString(`string ::= "\"" [^"]* "\""` + "\n")
	sb.WriteString(`number ::= "-"? [0-9]+ ("." [0-9]+)?` + "\n")

	return map[string]any{"guided_grammar": sb.String()}, nil
}

// StructuralTagStrategy emits a structural tag configuration: free text is
// unconstrained, but anything between the trigger tags must match the
// per-tool argument schema. Payload key: structured_tag.
type StructuralTagStrategy struct{}

func (StructuralTagStrategy) isStrategy() {}

// Build generates the tag configuration.
func (StructuralTagStrategy) Build(tools []core.ToolSchema) (map[string]any, error) {
	structures := make([]map[string]any, 0, len(tools))

	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object"}
		}

		structures = append(structures, map[string]any{
			"begin":  fmt.Sprintf(`<tool_call>{"name": %q, "arguments": `, t.Name),
			"schema": params,
			"end":    "}</tool_call>",
		})
	}

	return map[string]any{
		"structured_tag": map[string]any{
			"structures": structures,
			"triggers":   []string{"<tool_call>"},
		},
	}, nil
}

// JSONSchemaStrategy emits a JSON schema that is the union over all declared
// tools of {name, arguments} call objects. The schema is compiled before use
// so malformed tool parameter schemas surface as a BuildError instead of a
// serving-side rejection. Payload key: guided_json.
type JSONSchemaStrategy struct{}

func (JSONSchemaStrategy) isStrategy() {}

// Build generates and validates the union schema.
func (JSONSchemaStrategy) Build(tools []core.ToolSchema) (map[string]any, error) {
	variants := make([]map[string]any, 0, len(tools))

	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object"}
		}

		variants = append(variants, map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":      map[string]any{"const": t.Name},
				"arguments": params,
			},
			"required":             []string{"name", "arguments"},
			"additionalProperties": false,
		})
	}

	schema := map[string]any{"anyOf": variants}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, &BuildError{Strategy: "json_schema", Err: err}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("call.json", strings.NewReader(string(raw))); err != nil {
		return nil, &BuildError{Strategy: "json_schema", Err: err}
	}

	if _, err := compiler.Compile("call.json"); err != nil {
		return nil, &BuildError{Strategy: "json_schema", Err: err}
	}

	return map[string]any{"guided_json": schema}, nil
}
