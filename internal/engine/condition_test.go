package engine

import (
	"encoding/json"
	"testing"
)

func TestBuildConditionClauseSimpleEq(t *testing.T) {
	offset := 1
	clause, params, err := BuildConditionClause(Eq("name", "test"), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `("name"::text = $1::text)` {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if len(params) != 1 || params[0] != "test" {
		t.Fatalf("unexpected params: %v", params)
	}
	if offset != 2 {
		t.Fatalf("expected offset 2, got %d", offset)
	}
}

func TestBuildConditionClauseComposite(t *testing.T) {
	cond := And(
		Eq("status", "active"),
		Or(Gt("price", float64(100)), Eq("featured", true)),
	)

	offset := 1
	clause, params, err := BuildConditionClause(cond, &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `(("status"::text = $1::text)) AND (("price"::text > $2::text) OR ("featured"::text = $3::text))`
	if clause != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, clause)
	}
	if len(params) != 3 || params[0] != "active" || params[1] != "100" || params[2] != "true" {
		t.Fatalf("unexpected params: %v", params)
	}
	if offset != 4 {
		t.Fatalf("expected offset 4, got %d", offset)
	}
}

func TestBuildConditionClauseOffsetContinues(t *testing.T) {
	offset := 5
	clause, _, err := BuildConditionClause(And(Eq("a", "1"), Eq("b", "2"), Eq("c", "3")), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `(("a"::text = $5::text)) AND (("b"::text = $6::text)) AND (("c"::text = $7::text))`
	if clause != want {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if offset != 8 {
		t.Fatalf("expected offset 8, got %d", offset)
	}
}

func TestBuildConditionClauseNull(t *testing.T) {
	offset := 1
	clause, params, err := BuildConditionClause(Eq("description", nil), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `"description" IS NULL` {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if len(params) != 0 {
		t.Fatalf("expected no params, got %v", params)
	}
	if offset != 1 {
		t.Fatalf("expected offset to stay 1, got %d", offset)
	}

	clause, _, err = BuildConditionClause(Ne("description", nil), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `"description" IS NOT NULL` {
		t.Fatalf("unexpected clause: %s", clause)
	}

	if _, _, err := BuildConditionClause(Gt("description", nil), &offset); err == nil {
		t.Fatal("expected GT with NULL to fail")
	}
}

func TestBuildConditionClauseLike(t *testing.T) {
	cases := []struct {
		cond  *Condition
		param string
	}{
		{Contains("name", "widget"), "%widget%"},
		{StartsWith("name", "wid"), "wid%"},
		{EndsWith("name", "get"), "%get"},
	}
	for _, c := range cases {
		offset := 1
		clause, params, err := BuildConditionClause(c.cond, &offset)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if clause != `("name"::text LIKE $1::text)` {
			t.Fatalf("unexpected clause: %s", clause)
		}
		if len(params) != 1 || params[0] != c.param {
			t.Fatalf("expected param %q, got %v", c.param, params)
		}
	}

	offset := 1
	if _, _, err := BuildConditionClause(Eq("x", 1).withOp("CONTAINS"), &offset); err == nil {
		t.Fatal("expected CONTAINS with non-string value to fail")
	}
}

func TestBuildConditionClauseIn(t *testing.T) {
	offset := 1
	clause, params, err := BuildConditionClause(In("status", []any{"active", "pending"}), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `"status"::text = ANY(SELECT jsonb_array_elements_text($1::jsonb))` {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if len(params) != 1 || params[0] != `["active","pending"]` {
		t.Fatalf("unexpected params: %v", params)
	}

	offset = 1
	clause, _, err = BuildConditionClause(NotIn("status", []any{"archived"}), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `NOT ("status"::text = ANY(SELECT jsonb_array_elements_text($1::jsonb)))` {
		t.Fatalf("unexpected clause: %s", clause)
	}

	offset = 1
	bad := &Condition{Op: "IN", Arguments: []any{"status", "not-an-array"}}
	if _, _, err := BuildConditionClause(bad, &offset); err == nil {
		t.Fatal("expected IN with non-array value to fail")
	}
}

func TestBuildConditionClauseNullability(t *testing.T) {
	offset := 1
	clause, _, err := BuildConditionClause(IsEmpty("notes"), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `("notes" IS NULL OR "notes"::text = '')` {
		t.Fatalf("unexpected clause: %s", clause)
	}

	clause, _, err = BuildConditionClause(IsNotEmpty("notes"), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `("notes" IS NOT NULL AND "notes"::text != '')` {
		t.Fatalf("unexpected clause: %s", clause)
	}

	clause, _, err = BuildConditionClause(IsDefined("notes"), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `"notes" IS NOT NULL` {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if offset != 1 {
		t.Fatalf("expected offset to stay 1, got %d", offset)
	}
}

func TestBuildConditionClauseNot(t *testing.T) {
	offset := 1
	clause, params, err := BuildConditionClause(Not(Eq("status", "active")), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `NOT (("status"::text = $1::text))` {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if len(params) != 1 {
		t.Fatalf("unexpected params: %v", params)
	}

	bad := &Condition{Op: "NOT", Arguments: []any{Eq("a", "1"), Eq("b", "2")}}
	if _, _, err := BuildConditionClause(bad, &offset); err == nil {
		t.Fatal("expected NOT with two arguments to fail")
	}
}

func TestBuildConditionClauseErrors(t *testing.T) {
	offset := 1

	if _, _, err := BuildConditionClause(&Condition{Op: "AND"}, &offset); err == nil {
		t.Fatal("expected empty AND to fail")
	}
	if _, _, err := BuildConditionClause(&Condition{Op: "LENGTH"}, &offset); err == nil {
		t.Fatal("expected standalone LENGTH to fail")
	}
	if _, _, err := BuildConditionClause(&Condition{Op: "BETWEEN", Arguments: []any{"a", "b"}}, &offset); err == nil {
		t.Fatal("expected unknown operator to fail")
	}
	if _, _, err := BuildConditionClause(Eq("bad name!", "x"), &offset); err == nil {
		t.Fatal("expected invalid field name to fail")
	}
}

func TestBuildConditionClauseDottedField(t *testing.T) {
	offset := 1
	clause, _, err := BuildConditionClause(Eq("data.item.sku", "W1"), &offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != `("sku"::text = $1::text)` {
		t.Fatalf("expected last path segment only, got %s", clause)
	}
}

func TestConditionJSONRoundTrip(t *testing.T) {
	src := And(Eq("status", "active"), Or(Gt("price", float64(100)), Eq("featured", true)))
	raw, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Condition
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	offsetA, offsetB := 1, 1
	clauseA, paramsA, err := BuildConditionClause(src, &offsetA)
	if err != nil {
		t.Fatalf("compile original: %v", err)
	}
	clauseB, paramsB, err := BuildConditionClause(&decoded, &offsetB)
	if err != nil {
		t.Fatalf("compile decoded: %v", err)
	}
	if clauseA != clauseB {
		t.Fatalf("clause changed across JSON round trip:\n%s\n%s", clauseA, clauseB)
	}
	if len(paramsA) != len(paramsB) {
		t.Fatalf("params changed across JSON round trip: %v vs %v", paramsA, paramsB)
	}
	for i := range paramsA {
		if paramsA[i] != paramsB[i] {
			t.Fatalf("param %d changed: %v vs %v", i, paramsA[i], paramsB[i])
		}
	}
}

func TestValueToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{float64(100), "100"},
		{float64(29.99), "29.99"},
		{true, "true"},
		{false, "false"},
		{nil, "null"},
		{map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, c := range cases {
		if got := valueToString(c.in); got != c.want {
			t.Fatalf("valueToString(%v): expected %q, got %q", c.in, c.want, got)
		}
	}
}

// withOp rewrites the operator of a copied condition, for exercising operator
// and argument mismatches.
func (c *Condition) withOp(op string) *Condition {
	return &Condition{Op: op, Arguments: c.Arguments}
}
