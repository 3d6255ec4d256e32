package engine

import (
	"fmt"
	"strings"

	"objectstore/internal/metadata"
)

// BuildOrderByClause renders the ORDER BY body (without the keywords) for a
// filter. Fields may be system fields (id, createdAt, updatedAt, accepted in
// either casing) or schema columns; orders pair up positionally and default
// to ASC. With no sort fields the stable default ordering is created_at ASC.
func BuildOrderByClause(sortBy, sortOrder []string, schema *metadata.Schema) (string, error) {
	if len(sortBy) == 0 {
		return "created_at ASC", nil
	}

	systemFields := map[string]bool{
		"id": true, "createdAt": true, "updatedAt": true,
		"created_at": true, "updated_at": true,
	}

	parts := make([]string, 0, len(sortBy))
	for i, field := range sortBy {
		sqlField := field
		switch field {
		case "createdAt":
			sqlField = "created_at"
		case "updatedAt":
			sqlField = "updated_at"
		}

		if !systemFields[field] && !systemFields[sqlField] && schema.Column(field) == nil {
			return "", fmt.Errorf("Invalid sort field: '%s'. Must be a system field (id, createdAt, updatedAt) or a schema column.", field)
		}

		order := "ASC"
		if i < len(sortOrder) {
			order = strings.ToUpper(sortOrder[i])
		}
		if order != "ASC" && order != "DESC" {
			return "", fmt.Errorf("Invalid sort order: '%s'. Must be 'asc' or 'desc'.", order)
		}

		parts = append(parts, metadata.Quote(sqlField)+" "+order)
	}

	return strings.Join(parts, ", "), nil
}
