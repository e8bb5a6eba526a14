package classify

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	redcell "github.com/zero-day-ai/redcell"
	"github.com/zero-day-ai/redcell/target"
)

// CEL is a classifier whose blocked and executed predicates are CEL
// expressions evaluated over the target response. It lets operators
// substitute stricter classification rules without code changes.
//
// Expressions see three variables:
//
//	success       bool    the target's success claim
//	action        string  the lowercased action_taken field
//	state_changed bool    whether state_changes is non-empty
//
// Example:
//
//	clf, err := classify.NewCEL(
//		`action.contains("denied") || (!success && !state_changed)`,
//		`success || state_changed`,
//	)
type CEL struct {
	blocked  cel.Program
	executed cel.Program
}

// NewCEL compiles the blocked and executed predicate expressions. Both
// must evaluate to bool.
func NewCEL(blockedExpr, executedExpr string) (*CEL, error) {
	env, err := cel.NewEnv(
		cel.Variable("success", cel.BoolType),
		cel.Variable("action", cel.StringType),
		cel.Variable("state_changed", cel.BoolType),
	)
	if err != nil {
		return nil, redcell.NewConfigurationError("classify.NewCEL", err)
	}

	blocked, err := compileBool(env, blockedExpr)
	if err != nil {
		return nil, redcell.NewConfigurationError("classify.NewCEL",
			fmt.Errorf("blocked predicate: %w", err))
	}

	executed, err := compileBool(env, executedExpr)
	if err != nil {
		return nil, redcell.NewConfigurationError("classify.NewCEL",
			fmt.Errorf("executed predicate: %w", err))
	}

	return &CEL{blocked: blocked, executed: executed}, nil
}

func compileBool(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	return env.Program(ast)
}

// Classify implements Classifier. Evaluation errors and responses matching
// neither predicate classify as Indeterminate.
func (c *CEL) Classify(expectedMalicious bool, resp *target.Response) Classification {
	if resp == nil {
		return Classification{Outcome: Indeterminate, Rationale: "no response"}
	}

	vars := map[string]any{
		"success":       resp.Success,
		"action":        strings.ToLower(resp.ActionTaken),
		"state_changed": resp.StateChanged(),
	}

	blocked, err := c.eval(c.blocked, vars)
	if err != nil {
		return Classification{Outcome: Indeterminate, Rationale: "blocked predicate error: " + err.Error()}
	}
	if blocked {
		return outcomeFor(expectedMalicious, true, 1.0, "blocked predicate matched")
	}

	executed, err := c.eval(c.executed, vars)
	if err != nil {
		return Classification{Outcome: Indeterminate, Rationale: "executed predicate error: " + err.Error()}
	}
	if executed {
		return outcomeFor(expectedMalicious, false, 1.0, "executed predicate matched")
	}

	return Classification{
		Outcome:   Indeterminate,
		Rationale: "response matched neither blocked nor executed predicate",
	}
}

func (c *CEL) eval(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, err
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate returned %T, want bool", out.Value())
	}
	return result, nil
}
