package metadata

import (
	"encoding/json"
	"testing"
)

func TestSQLTypeMapping(t *testing.T) {
	cases := []struct {
		col  ColumnDefinition
		want string
	}{
		{NewColumn("a", KindString), "TEXT"},
		{NewColumn("a", KindInteger), "BIGINT"},
		{NewColumn("a", KindDecimal), "NUMERIC(19,4)"},
		{NewDecimalColumn("a", 10, 2), "NUMERIC(10,2)"},
		{NewColumn("a", KindBoolean), "BOOLEAN"},
		{NewColumn("a", KindTimestamp), "TIMESTAMP WITH TIME ZONE"},
		{NewColumn("a", KindJson), "JSONB"},
	}
	for _, c := range cases {
		if got := c.col.SQLType(); got != c.want {
			t.Fatalf("type %s: expected %q, got %q", c.col.Type, c.want, got)
		}
	}
}

func TestSQLTypeEnum(t *testing.T) {
	col := NewEnumColumn("status", "active", "archived")
	want := `TEXT CHECK ("status" IN ('active', 'archived'))`
	if got := col.SQLType(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	col = NewEnumColumn("mood", "it's fine")
	want = `TEXT CHECK ("mood" IN ('it''s fine'))`
	if got := col.SQLType(); got != want {
		t.Fatalf("expected single quotes doubled, got %q", got)
	}
}

func TestValidateValueInteger(t *testing.T) {
	col := NewColumn("count", KindInteger)
	if err := col.ValidateValue(float64(42)); err != nil {
		t.Fatalf("expected 42 to validate, got %v", err)
	}
	if err := col.ValidateValue("42"); err != nil {
		t.Fatalf("expected \"42\" to validate, got %v", err)
	}
	if err := col.ValidateValue("12.34"); err == nil {
		t.Fatal("expected \"12.34\" to fail integer validation")
	}
	if err := col.ValidateValue("foo"); err == nil {
		t.Fatal("expected \"foo\" to fail integer validation")
	}
	if err := col.ValidateValue(nil); err != nil {
		t.Fatalf("expected NULL to validate, got %v", err)
	}
}

func TestValidateValueDecimal(t *testing.T) {
	col := NewColumn("price", KindDecimal)
	if err := col.ValidateValue(29.99); err != nil {
		t.Fatalf("expected 29.99 to validate, got %v", err)
	}
	if err := col.ValidateValue("29.99"); err != nil {
		t.Fatalf("expected \"29.99\" to validate, got %v", err)
	}
	if err := col.ValidateValue("abc"); err == nil {
		t.Fatal("expected \"abc\" to fail decimal validation")
	}
}

func TestValidateValueBoolean(t *testing.T) {
	col := NewColumn("active", KindBoolean)
	for _, v := range []any{true, false, "true", "FALSE", "1", "0", "yes", "No"} {
		if err := col.ValidateValue(v); err != nil {
			t.Fatalf("expected %v to validate as boolean, got %v", v, err)
		}
	}
	if err := col.ValidateValue("maybe"); err == nil {
		t.Fatal("expected \"maybe\" to fail boolean validation")
	}
}

func TestValidateValueTimestamp(t *testing.T) {
	col := NewColumn("at", KindTimestamp)
	if err := col.ValidateValue("2024-06-01T12:00:00Z"); err != nil {
		t.Fatalf("expected RFC3339 timestamp to validate, got %v", err)
	}
	if err := col.ValidateValue("yesterday"); err == nil {
		t.Fatal("expected non-timestamp string to fail")
	}
}

func TestValidateValueEnum(t *testing.T) {
	col := NewEnumColumn("status", "active", "archived")
	if err := col.ValidateValue("active"); err != nil {
		t.Fatalf("expected member to validate, got %v", err)
	}
	if err := col.ValidateValue("Active"); err == nil {
		t.Fatal("expected enum membership to be case-sensitive")
	}
	if err := col.ValidateValue("gone"); err == nil {
		t.Fatal("expected non-member to fail")
	}
}

func TestColumnDefinitionDecode(t *testing.T) {
	var col ColumnDefinition
	if err := json.Unmarshal([]byte(`{"name":"sku","type":"string"}`), &col); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !col.Nullable {
		t.Fatal("expected columns to default to nullable")
	}

	if err := json.Unmarshal([]byte(`{"name":"price","type":"decimal","nullable":false}`), &col); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if col.Nullable {
		t.Fatal("expected explicit nullable=false to stick")
	}
	if col.Precision != 19 || col.Scale != 4 {
		t.Fatalf("expected default precision 19,4, got %d,%d", col.Precision, col.Scale)
	}

	if err := json.Unmarshal([]byte(`{"name":"price","type":"decimal","precision":10,"scale":2}`), &col); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if col.Precision != 10 || col.Scale != 2 {
		t.Fatalf("expected explicit precision 10,2, got %d,%d", col.Precision, col.Scale)
	}
}
