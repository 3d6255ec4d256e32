package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

// postgresReservedWords are keywords that cannot be used as table or column
// names even when quoted, because generated SQL sometimes refers to them bare.
var postgresReservedWords = map[string]bool{
	"ALL": true, "ANALYSE": true, "ANALYZE": true, "AND": true, "ANY": true,
	"ARRAY": true, "AS": true, "ASC": true, "ASYMMETRIC": true, "BOTH": true,
	"CASE": true, "CAST": true, "CHECK": true, "COLLATE": true, "COLUMN": true,
	"CONSTRAINT": true, "CREATE": true, "CURRENT_CATALOG": true,
	"CURRENT_DATE": true, "CURRENT_ROLE": true, "CURRENT_TIME": true,
	"CURRENT_TIMESTAMP": true, "CURRENT_USER": true, "DEFAULT": true,
	"DEFERRABLE": true, "DESC": true, "DISTINCT": true, "DO": true,
	"ELSE": true, "END": true, "EXCEPT": true, "FALSE": true, "FETCH": true,
	"FOR": true, "FOREIGN": true, "FROM": true, "GRANT": true, "GROUP": true,
	"HAVING": true, "IN": true, "INITIALLY": true, "INTERSECT": true,
	"INTO": true, "LATERAL": true, "LEADING": true, "LIMIT": true,
	"LOCALTIME": true, "LOCALTIMESTAMP": true, "NOT": true, "NULL": true,
	"OFFSET": true, "ON": true, "ONLY": true, "OR": true, "ORDER": true,
	"PLACING": true, "PRIMARY": true, "REFERENCES": true, "RETURNING": true,
	"SELECT": true, "SESSION_USER": true, "SOME": true, "SYMMETRIC": true,
	"TABLE": true, "THEN": true, "TO": true, "TRAILING": true, "TRUE": true,
	"UNION": true, "UNIQUE": true, "USER": true, "USING": true,
	"VARIADIC": true, "WHEN": true, "WHERE": true, "WINDOW": true, "WITH": true,
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Quote wraps an identifier in double quotes, doubling any embedded quotes.
func Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// ValidateIdentifier checks a table or column name against the naming rules:
// starts with a lowercase letter, contains only lowercase letters, digits and
// underscores, is not a PostgreSQL reserved keyword, and is not one of the
// given reserved column names.
func ValidateIdentifier(name string, reservedColumns []string) error {
	if name == "" {
		return fmt.Errorf("Identifier cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("Identifier '%s' is invalid. Must start with a lowercase letter and contain only lowercase letters, numbers, and underscores.", name)
	}
	if postgresReservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("Identifier '%s' is a PostgreSQL reserved keyword and cannot be used.", name)
	}
	for _, reserved := range reservedColumns {
		if name == reserved {
			return fmt.Errorf("Column name '%s' is reserved and cannot be used.", name)
		}
	}
	return nil
}
