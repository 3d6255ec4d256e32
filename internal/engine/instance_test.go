package engine

import (
	"encoding/json"
	"testing"
)

func TestFilterRequestDefaults(t *testing.T) {
	var req FilterRequest
	if err := json.Unmarshal([]byte(`{}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Limit != 100 || req.Offset != 0 {
		t.Fatalf("expected limit 100 offset 0, got %d/%d", req.Limit, req.Offset)
	}

	if err := json.Unmarshal([]byte(`{"limit":5,"offset":10}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Limit != 5 || req.Offset != 10 {
		t.Fatalf("expected explicit pagination to stick, got %d/%d", req.Limit, req.Offset)
	}
}

func TestFilterRequestDecodesCondition(t *testing.T) {
	raw := `{"condition":{"op":"EQ","arguments":["status","active"]},"sortBy":["createdAt"],"sortOrder":["desc"]}`
	var req FilterRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Condition == nil || req.Condition.Op != "EQ" {
		t.Fatalf("expected EQ condition, got %+v", req.Condition)
	}

	offset := 1
	clause, params, err := BuildConditionClause(req.Condition, &offset)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if clause != `("status"::text = $1::text)` || params[0] != "active" {
		t.Fatalf("unexpected compile result: %s %v", clause, params)
	}
}

func TestSimpleFilterEmpty(t *testing.T) {
	req := NewSimpleFilter("products").ToFilterRequest()
	if req.Condition != nil {
		t.Fatalf("expected no condition, got %+v", req.Condition)
	}
	if req.Limit != 100 {
		t.Fatalf("expected default limit 100, got %d", req.Limit)
	}
}

func TestSimpleFilterSingle(t *testing.T) {
	req := NewSimpleFilter("products").Filter("sku", "W1").ToFilterRequest()
	if req.Condition == nil || req.Condition.Op != "EQ" {
		t.Fatalf("expected EQ condition, got %+v", req.Condition)
	}
	offset := 1
	clause, params, err := BuildConditionClause(req.Condition, &offset)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if clause != `("sku"::text = $1::text)` || params[0] != "W1" {
		t.Fatalf("unexpected compile result: %s %v", clause, params)
	}
}

func TestSimpleFilterMultipleBecomesAnd(t *testing.T) {
	req := NewSimpleFilter("products").
		Filter("status", "active").
		Filter("in_stock", true).
		Paginate(10, 20).
		ToFilterRequest()

	if req.Condition == nil || req.Condition.Op != "AND" {
		t.Fatalf("expected AND condition, got %+v", req.Condition)
	}
	if req.Limit != 10 || req.Offset != 20 {
		t.Fatalf("expected pagination 10/20, got %d/%d", req.Limit, req.Offset)
	}

	// Fields compile in sorted order, so the SQL is deterministic.
	offset := 1
	clause, params, err := BuildConditionClause(req.Condition, &offset)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := `(("in_stock"::text = $1::text)) AND (("status"::text = $2::text))`
	if clause != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, clause)
	}
	if params[0] != "true" || params[1] != "active" {
		t.Fatalf("unexpected params: %v", params)
	}
}
