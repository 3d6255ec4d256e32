package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Condition is a composable filter tree. Op names the operator; Arguments
// holds either nested *Condition values (for logical operators) or a field
// reference followed by a comparison value.
type Condition struct {
	Op        string `json:"op"`
	Arguments []any  `json:"arguments,omitempty"`
}

// UnmarshalJSON decodes nested objects carrying an "op" key back into
// *Condition values so a tree round-trips through JSON.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op        string            `json:"op"`
		Arguments []json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Op = raw.Op
	c.Arguments = nil
	for _, arg := range raw.Arguments {
		var sub Condition
		if err := json.Unmarshal(arg, &sub); err == nil && sub.Op != "" {
			c.Arguments = append(c.Arguments, &sub)
			continue
		}
		var v any
		if err := json.Unmarshal(arg, &v); err != nil {
			return err
		}
		c.Arguments = append(c.Arguments, v)
	}
	return nil
}

func comparison(op, field string, value any) *Condition {
	return &Condition{Op: op, Arguments: []any{field, value}}
}

func Eq(field string, value any) *Condition  { return comparison("EQ", field, value) }
func Ne(field string, value any) *Condition  { return comparison("NE", field, value) }
func Gt(field string, value any) *Condition  { return comparison("GT", field, value) }
func Lt(field string, value any) *Condition  { return comparison("LT", field, value) }
func Gte(field string, value any) *Condition { return comparison("GTE", field, value) }
func Lte(field string, value any) *Condition { return comparison("LTE", field, value) }

func Contains(field, value string) *Condition   { return comparison("CONTAINS", field, value) }
func StartsWith(field, value string) *Condition { return comparison("STARTS_WITH", field, value) }
func EndsWith(field, value string) *Condition   { return comparison("ENDS_WITH", field, value) }

func In(field string, values []any) *Condition    { return comparison("IN", field, values) }
func NotIn(field string, values []any) *Condition { return comparison("NOT_IN", field, values) }

func IsEmpty(field string) *Condition {
	return &Condition{Op: "IS_EMPTY", Arguments: []any{field}}
}

func IsNotEmpty(field string) *Condition {
	return &Condition{Op: "IS_NOT_EMPTY", Arguments: []any{field}}
}

func IsDefined(field string) *Condition {
	return &Condition{Op: "IS_DEFINED", Arguments: []any{field}}
}

func And(conditions ...*Condition) *Condition { return logical("AND", conditions) }
func Or(conditions ...*Condition) *Condition  { return logical("OR", conditions) }

func Not(condition *Condition) *Condition {
	return &Condition{Op: "NOT", Arguments: []any{condition}}
}

func logical(op string, conditions []*Condition) *Condition {
	args := make([]any, len(conditions))
	for i, c := range conditions {
		args[i] = c
	}
	return &Condition{Op: op, Arguments: args}
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// BuildConditionClause compiles a condition tree into a WHERE fragment and
// its ordered parameters. paramOffset is the 1-based index of the next SQL
// placeholder and is advanced for every parameter emitted, so clauses can be
// appended to statements that already carry parameters.
//
// Comparison leaves wrap themselves in parentheses and AND wraps each
// sub-clause again; OR joins bare, which is safe because AND binds tighter.
func BuildConditionClause(cond *Condition, paramOffset *int) (string, []any, error) {
	var params []any

	switch strings.ToUpper(cond.Op) {
	case "AND", "OR":
		op := strings.ToUpper(cond.Op)
		var clauses []string
		for _, arg := range cond.Arguments {
			sub, ok := arg.(*Condition)
			if !ok {
				continue
			}
			clause, subParams, err := BuildConditionClause(sub, paramOffset)
			if err != nil {
				return "", nil, err
			}
			if op == "AND" {
				clause = "(" + clause + ")"
			}
			clauses = append(clauses, clause)
			params = append(params, subParams...)
		}
		if len(clauses) == 0 {
			return "", nil, fmt.Errorf("%s operation requires at least one condition", op)
		}
		return strings.Join(clauses, " "+op+" "), params, nil

	case "NOT":
		if len(cond.Arguments) != 1 {
			return "", nil, fmt.Errorf("NOT operation requires exactly one argument")
		}
		sub, ok := cond.Arguments[0].(*Condition)
		if !ok {
			return "", nil, fmt.Errorf("NOT operation requires an expression argument")
		}
		clause, subParams, err := BuildConditionClause(sub, paramOffset)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", clause), subParams, nil

	case "EQ", "NE", "GT", "LT", "GTE", "LTE":
		op := strings.ToUpper(cond.Op)
		if len(cond.Arguments) != 2 {
			return "", nil, fmt.Errorf("%s operation requires exactly 2 arguments", op)
		}
		field, err := extractFieldName(cond.Arguments[0])
		if err != nil {
			return "", nil, err
		}
		value := cond.Arguments[1]

		operator := map[string]string{
			"EQ": "=", "NE": "!=", "GT": ">", "LT": "<", "GTE": ">=", "LTE": "<=",
		}[op]

		if value == nil {
			switch op {
			case "EQ":
				return fmt.Sprintf(`"%s" IS NULL`, field), nil, nil
			case "NE":
				return fmt.Sprintf(`"%s" IS NOT NULL`, field), nil, nil
			default:
				return "", nil, fmt.Errorf("%s operation with NULL value is not supported", op)
			}
		}

		params = append(params, valueToString(value))
		clause := fmt.Sprintf(`("%s"::text %s $%d::text)`, field, operator, *paramOffset)
		*paramOffset++
		return clause, params, nil

	case "CONTAINS", "STARTS_WITH", "ENDS_WITH":
		op := strings.ToUpper(cond.Op)
		if len(cond.Arguments) != 2 {
			return "", nil, fmt.Errorf("%s operation requires exactly 2 arguments", op)
		}
		field, err := extractFieldName(cond.Arguments[0])
		if err != nil {
			return "", nil, err
		}
		str, ok := cond.Arguments[1].(string)
		if !ok {
			return "", nil, fmt.Errorf("%s value must be a string", op)
		}

		var pattern string
		switch op {
		case "CONTAINS":
			pattern = "%" + str + "%"
		case "STARTS_WITH":
			pattern = str + "%"
		case "ENDS_WITH":
			pattern = "%" + str
		}
		params = append(params, pattern)
		clause := fmt.Sprintf(`("%s"::text LIKE $%d::text)`, field, *paramOffset)
		*paramOffset++
		return clause, params, nil

	case "IN", "NOT_IN":
		op := strings.ToUpper(cond.Op)
		if len(cond.Arguments) != 2 {
			return "", nil, fmt.Errorf("%s operation requires exactly 2 arguments", op)
		}
		field, err := extractFieldName(cond.Arguments[0])
		if err != nil {
			return "", nil, err
		}
		values, ok := cond.Arguments[1].([]any)
		if !ok {
			return "", nil, fmt.Errorf("%s operation requires an array value", op)
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s values: %w", op, err)
		}
		params = append(params, string(encoded))

		clause := fmt.Sprintf(`"%s"::text = ANY(SELECT jsonb_array_elements_text($%d::jsonb))`, field, *paramOffset)
		if op == "NOT_IN" {
			clause = "NOT (" + clause + ")"
		}
		*paramOffset++
		return clause, params, nil

	case "IS_EMPTY", "IS_NOT_EMPTY", "IS_DEFINED":
		op := strings.ToUpper(cond.Op)
		if len(cond.Arguments) != 1 {
			return "", nil, fmt.Errorf("%s operation requires exactly 1 argument", op)
		}
		field, err := extractFieldName(cond.Arguments[0])
		if err != nil {
			return "", nil, err
		}
		switch op {
		case "IS_EMPTY":
			return fmt.Sprintf(`("%s" IS NULL OR "%s"::text = '')`, field, field), nil, nil
		case "IS_NOT_EMPTY":
			return fmt.Sprintf(`("%s" IS NOT NULL AND "%s"::text != '')`, field, field), nil, nil
		default:
			return fmt.Sprintf(`"%s" IS NOT NULL`, field), nil, nil
		}

	case "LENGTH":
		return "", nil, fmt.Errorf("LENGTH operator must be used within a comparison")

	case "":
		// A bare field reference is a truthiness test.
		if len(cond.Arguments) == 1 {
			field, err := extractFieldName(cond.Arguments[0])
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf(`("%s" IS NOT NULL AND "%s"::text != 'false' AND "%s"::text != '')`, field, field, field), nil, nil
		}
		return "", nil, fmt.Errorf("Condition is missing an operator")

	default:
		return "", nil, fmt.Errorf("Unknown operator: %s", cond.Op)
	}
}

// extractFieldName resolves a field reference argument. Dotted paths keep
// only the final segment.
func extractFieldName(arg any) (string, error) {
	path, ok := arg.(string)
	if !ok {
		return "", fmt.Errorf("Expected a field reference, got %T", arg)
	}
	field := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		field = path[idx+1:]
	}
	if !fieldNamePattern.MatchString(field) {
		return "", fmt.Errorf("Field name contains invalid characters")
	}
	return field, nil
}

// valueToString renders a comparison value as the text it is compared
// against. Every comparison is text-on-text; numbers render without a
// trailing ".0" so they match the cast column text.
func valueToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
