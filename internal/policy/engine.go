// Package policy gates tool execution through an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the tool policy.
const (
	Allow = "allow"
	Block = "block"
)

// Input is the document a tool policy is evaluated against.
type Input struct {
	ToolName      string
	Args          map[string]any
	DisabledTools []string
}

func (in Input) document() map[string]any {
	disabled := make([]any, 0, len(in.DisabledTools))
	for _, name := range in.DisabledTools {
		disabled = append(disabled, name)
	}
	args := in.Args
	if args == nil {
		args = map[string]any{}
	}
	return map[string]any{
		"tool_name":      in.ToolName,
		"args":           args,
		"disabled_tools": disabled,
	}
}

// Engine is a prepared tool policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles policyContent. The module must live in package
// tool_policy and define decision and reason.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("decision := data.tool_policy.decision; reason := data.tool_policy.reason"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision and reason for one tool call.
func (e *Engine) Evaluate(ctx context.Context, in Input) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in.document()))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 {
		return Allow, "", nil
	}

	decision, _ := results[0].Bindings["decision"].(string)
	reason, _ := results[0].Bindings["reason"].(string)
	if decision == "" {
		decision = Allow
	}
	return decision, reason, nil
}

// DefaultPolicy blocks disabled tools and seasonal lookups for unknown
// seasons.
const DefaultPolicy = `
package tool_policy

default decision = "allow"
default reason = ""

seasons = {"winter", "spring", "summer", "fall"}

disabled {
	input.disabled_tools[_] == input.tool_name
}

bad_season {
	not disabled
	input.tool_name == "get_seasonal_anime"
	not seasons[lower(input.args.season)]
}

decision = "block" {
	disabled
}

reason = "tool is disabled" {
	disabled
}

decision = "block" {
	bad_season
}

reason = "season must be one of winter, spring, summer, fall" {
	bad_season
}
`
