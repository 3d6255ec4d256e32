package engine

import (
	"testing"

	"objectstore/internal/metadata"
)

func TestValidateRulesPass(t *testing.T) {
	rules := []metadata.ValidationRule{
		{Name: "positive_price", Expression: "price > 0", Message: "price must be positive"},
	}
	if err := ValidateRules(rules, map[string]any{"price": 29.99}); err != nil {
		t.Fatalf("expected rule to pass, got %v", err)
	}
}

func TestValidateRulesFail(t *testing.T) {
	rules := []metadata.ValidationRule{
		{Name: "positive_price", Expression: "price > 0", Message: "price must be positive"},
	}
	err := ValidateRules(rules, map[string]any{"price": -1.0})
	if err == nil {
		t.Fatal("expected rule to fail")
	}
	if err.Code != CodeValidation {
		t.Fatalf("expected validation error, got %s", err.Code)
	}
	if err.Message != "price must be positive" {
		t.Fatalf("expected rule message, got %q", err.Message)
	}
}

func TestValidateRulesCompileError(t *testing.T) {
	rules := []metadata.ValidationRule{
		{Name: "broken", Expression: "price >"},
	}
	if err := ValidateRules(rules, map[string]any{"price": 1.0}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestValidateRulesAbsentColumn(t *testing.T) {
	// Absent columns are nil in the environment; rules must guard themselves.
	rules := []metadata.ValidationRule{
		{Name: "discount_bounds", Expression: "discount == nil || discount <= 50", Message: "discount too high"},
	}
	if err := ValidateRules(rules, map[string]any{}); err != nil {
		t.Fatalf("expected absent column to pass guarded rule, got %v", err)
	}
	if err := ValidateRules(rules, map[string]any{"discount": 80}); err == nil {
		t.Fatal("expected rule to fail for out-of-bounds value")
	}
}

func TestValidateRulesEmpty(t *testing.T) {
	if err := ValidateRules(nil, map[string]any{"anything": 1}); err != nil {
		t.Fatalf("expected no rules to pass, got %v", err)
	}
}
