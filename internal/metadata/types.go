package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnKind is the logical type of a column.
type ColumnKind string

const (
	KindString    ColumnKind = "string"
	KindInteger   ColumnKind = "integer"
	KindDecimal   ColumnKind = "decimal"
	KindBoolean   ColumnKind = "boolean"
	KindTimestamp ColumnKind = "timestamp"
	KindJson      ColumnKind = "json"
	KindEnum      ColumnKind = "enum"
)

const (
	DefaultDecimalPrecision = 19
	DefaultDecimalScale     = 4
)

// ColumnDefinition describes a single user column of a dynamic table.
// Decimal columns carry precision/scale, enum columns carry their value set.
type ColumnDefinition struct {
	Name      string     `json:"name"`
	Type      ColumnKind `json:"type"`
	Precision int        `json:"precision,omitempty"`
	Scale     int        `json:"scale,omitempty"`
	Values    []string   `json:"values,omitempty"`
	Nullable  bool       `json:"nullable"`
	Unique    bool       `json:"unique,omitempty"`
	Default   *string    `json:"default,omitempty"`
}

// UnmarshalJSON applies the defaults: columns are nullable unless stated
// otherwise, and decimals without an explicit precision get NUMERIC(19,4).
func (c *ColumnDefinition) UnmarshalJSON(data []byte) error {
	type plain ColumnDefinition
	aux := plain{Nullable: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = ColumnDefinition(aux)
	if c.Type == KindDecimal && c.Precision == 0 {
		c.Precision = DefaultDecimalPrecision
		c.Scale = DefaultDecimalScale
	}
	return nil
}

// NewColumn returns a nullable, non-unique column of the given kind.
func NewColumn(name string, kind ColumnKind) ColumnDefinition {
	c := ColumnDefinition{Name: name, Type: kind, Nullable: true}
	if kind == KindDecimal {
		c.Precision = DefaultDecimalPrecision
		c.Scale = DefaultDecimalScale
	}
	return c
}

// NewDecimalColumn returns a decimal column with explicit precision and scale.
func NewDecimalColumn(name string, precision, scale int) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: KindDecimal, Precision: precision, Scale: scale, Nullable: true}
}

// NewEnumColumn returns an enum column restricted to the given values.
func NewEnumColumn(name string, values ...string) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: KindEnum, Values: values, Nullable: true}
}

func (c ColumnDefinition) NotNull() ColumnDefinition {
	c.Nullable = false
	return c
}

func (c ColumnDefinition) AsUnique() ColumnDefinition {
	c.Unique = true
	return c
}

// WithDefault sets the DEFAULT expression emitted verbatim into DDL.
func (c ColumnDefinition) WithDefault(expr string) ColumnDefinition {
	c.Default = &expr
	return c
}

// SQLType returns the PostgreSQL type for this column. Enum columns render as
// TEXT with an inline CHECK constraint over the quoted column name.
func (c ColumnDefinition) SQLType() string {
	switch c.Type {
	case KindString:
		return "TEXT"
	case KindInteger:
		return "BIGINT"
	case KindDecimal:
		precision, scale := c.Precision, c.Scale
		if precision == 0 {
			precision = DefaultDecimalPrecision
			scale = DefaultDecimalScale
		}
		return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale)
	case KindBoolean:
		return "BOOLEAN"
	case KindTimestamp:
		return "TIMESTAMP WITH TIME ZONE"
	case KindJson:
		return "JSONB"
	case KindEnum:
		quoted := make([]string, len(c.Values))
		for i, v := range c.Values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return fmt.Sprintf("TEXT CHECK (%s IN (%s))", Quote(c.Name), strings.Join(quoted, ", "))
	default:
		return "TEXT"
	}
}

// ValidateValue checks whether a decoded JSON value is acceptable for this
// column. NULL is always accepted here; nullability is enforced separately.
func (c ColumnDefinition) ValidateValue(value any) error {
	if value == nil {
		return nil
	}
	switch c.Type {
	case KindString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("Cannot convert '%v' to string", value)
		}
	case KindInteger:
		switch v := value.(type) {
		case float64:
			if v != math.Trunc(v) {
				return fmt.Errorf("Cannot convert '%v' to integer", value)
			}
		case int, int64:
		case string:
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return fmt.Errorf("Cannot convert '%s' to integer", v)
			}
		default:
			return fmt.Errorf("Cannot convert '%v' to integer", value)
		}
	case KindDecimal:
		switch v := value.(type) {
		case float64, int, int64:
		case string:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("Cannot convert '%s' to decimal", v)
			}
		default:
			return fmt.Errorf("Cannot convert '%v' to decimal", value)
		}
	case KindBoolean:
		switch v := value.(type) {
		case bool:
		case string:
			switch strings.ToLower(v) {
			case "true", "false", "1", "0", "yes", "no":
			default:
				return fmt.Errorf("Cannot convert '%s' to boolean", v)
			}
		default:
			return fmt.Errorf("Cannot convert '%v' to boolean", value)
		}
	case KindTimestamp:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("Cannot convert '%v' to timestamp", value)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("Invalid timestamp format: %v", err)
		}
	case KindJson:
		// Any JSON value is acceptable.
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("Cannot convert '%v' to enum value", value)
		}
		for _, allowed := range c.Values {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("Value '%s' not in enum values: %s", s, strings.Join(c.Values, ", "))
	}
	return nil
}

// IndexDefinition describes a secondary index on a dynamic table.
type IndexDefinition struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

func NewIndex(name string, columns ...string) IndexDefinition {
	return IndexDefinition{Name: name, Columns: columns}
}

func (i IndexDefinition) AsUnique() IndexDefinition {
	i.Unique = true
	return i
}
