package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"objectstore/internal/metadata"
)

// CompileRule compiles a validation rule expression. Rules must evaluate to
// a boolean; true means the write is allowed.
func CompileRule(rule metadata.ValidationRule) (*vm.Program, error) {
	prog, err := expr.Compile(rule.Expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile rule '%s': %w", rule.Name, err)
	}
	return prog, nil
}

// ValidateRules checks every rule a schema carries, compiling each rule
// expression. The environment is the properties map, so expressions refer to
// columns by name; absent columns evaluate as nil.
func ValidateRules(rules []metadata.ValidationRule, properties map[string]any) *AppError {
	if len(rules) == 0 {
		return nil
	}

	env := map[string]any(properties)

	for _, rule := range rules {
		prog, err := CompileRule(rule)
		if err != nil {
			return ValidationError(err.Error())
		}
		result, err := expr.Run(prog, env)
		if err != nil {
			return ValidationError(fmt.Sprintf("rule '%s' evaluation error: %v", rule.Name, err))
		}
		passed, ok := result.(bool)
		if !ok || !passed {
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("Validation rule '%s' failed", rule.Name)
			}
			appErr := ValidationError(msg)
			appErr.Details = []ErrorDetail{{Rule: rule.Name, Message: msg}}
			return appErr
		}
	}
	return nil
}
