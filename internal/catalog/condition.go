// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Evaluator handles evaluation of mapping-rule CEL conditions. Expressions
// see the raw intent text as `intent` and the caller's variables as `vars`.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a CEL evaluator for mapping conditions.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("intent", cel.StringType),
		cel.Variable("vars", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Compile parses and type-checks an expression. Used at catalog load so a
// broken condition fails fast instead of at planning time.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error parsing expression: %w", issues.Err())
	}

	checked, issues := e.env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error type-checking expression: %w", issues.Err())
	}

	program, err := e.env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("error compiling expression: %w", err)
	}

	return program, nil
}

// Evaluate runs a compiled condition against an intent and its variables.
func (e *Evaluator) Evaluate(program cel.Program, intent string, vars map[string]interface{}) (bool, error) {
	if vars == nil {
		vars = map[string]interface{}{}
	}

	result, _, err := program.Eval(map[string]interface{}{
		"intent": intent,
		"vars":   vars,
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating expression: %w", err)
	}

	if result.Type() != types.BoolType {
		return false, fmt.Errorf("expression did not evaluate to a boolean")
	}

	return result.Value().(bool), nil
}
