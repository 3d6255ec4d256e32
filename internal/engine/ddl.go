package engine

import (
	"fmt"
	"strings"

	"objectstore/internal/config"
	"objectstore/internal/metadata"
)

// DDLGenerator renders the SQL statements behind schema lifecycle operations.
// The auto-managed columns it emits are driven by the store configuration.
type DDLGenerator struct {
	cfg config.StoreConfig
}

func NewDDLGenerator(cfg config.StoreConfig) *DDLGenerator {
	return &DDLGenerator{cfg: cfg}
}

// CreateTable renders the CREATE TABLE statement for a dynamic table. Column
// order is fixed: id, user columns in request order, created_at, updated_at,
// deleted.
func (g *DDLGenerator) CreateTable(tableName string, columns []metadata.ColumnDefinition) string {
	var parts []string
	if g.cfg.AutoColumns.ID {
		parts = append(parts, "id VARCHAR(255) PRIMARY KEY DEFAULT gen_random_uuid()::text")
	}
	for _, col := range columns {
		parts = append(parts, g.FormatColumnDefinition(col))
	}
	if g.cfg.AutoColumns.CreatedAt {
		parts = append(parts, "created_at TIMESTAMPTZ DEFAULT NOW()")
	}
	if g.cfg.AutoColumns.UpdatedAt {
		parts = append(parts, "updated_at TIMESTAMPTZ DEFAULT NOW()")
	}
	if g.cfg.SoftDelete {
		parts = append(parts, "deleted BOOLEAN DEFAULT FALSE")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", metadata.Quote(tableName), strings.Join(parts, ", "))
}

// FormatColumnDefinition renders one user column: quoted name, SQL type, then
// UNIQUE, NOT NULL and DEFAULT in that order.
func (g *DDLGenerator) FormatColumnDefinition(col metadata.ColumnDefinition) string {
	var b strings.Builder
	b.WriteString(metadata.Quote(col.Name))
	b.WriteString(" ")
	b.WriteString(col.SQLType())
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.Default)
	}
	return b.String()
}

// AlterTable diffs two column sets and renders the ALTER statements to carry
// the table from old to new: additions first, then drops, then per-column
// type, nullability and default changes. Changes to the unique flag are not
// diffed.
func (g *DDLGenerator) AlterTable(tableName string, oldColumns, newColumns []metadata.ColumnDefinition) []string {
	table := metadata.Quote(tableName)

	oldByName := make(map[string]metadata.ColumnDefinition, len(oldColumns))
	for _, col := range oldColumns {
		oldByName[col.Name] = col
	}
	newByName := make(map[string]metadata.ColumnDefinition, len(newColumns))
	for _, col := range newColumns {
		newByName[col.Name] = col
	}

	var statements []string

	for _, col := range newColumns {
		if _, exists := oldByName[col.Name]; !exists {
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, g.FormatColumnDefinition(col)))
		}
	}

	for _, col := range oldColumns {
		if _, exists := newByName[col.Name]; !exists {
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, metadata.Quote(col.Name)))
		}
	}

	for _, newCol := range newColumns {
		oldCol, exists := oldByName[newCol.Name]
		if !exists {
			continue
		}
		name := metadata.Quote(newCol.Name)

		if oldCol.SQLType() != newCol.SQLType() {
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", table, name, newCol.SQLType()))
		}
		if oldCol.Nullable != newCol.Nullable {
			if newCol.Nullable {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, name))
			} else {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, name))
			}
		}
		if !defaultsEqual(oldCol.Default, newCol.Default) {
			if newCol.Default != nil {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, name, *newCol.Default))
			} else {
				statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, name))
			}
		}
	}

	return statements
}

func defaultsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DropTable renders the teardown statement for a dynamic table.
func (g *DDLGenerator) DropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", metadata.Quote(tableName))
}

// CreateIndex renders a user index. Index names are prefixed with the table
// name to keep them unique across tables.
func (g *DDLGenerator) CreateIndex(tableName string, idx metadata.IndexDefinition) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	quoted := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		quoted[i] = metadata.Quote(col)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
		unique,
		metadata.Quote(tableName+"_"+idx.Name),
		metadata.Quote(tableName),
		strings.Join(quoted, ", "))
}

// CreateDefaultIndex renders the created_at index every table gets. With soft
// deletes enabled it is partial, covering only live rows.
func (g *DDLGenerator) CreateDefaultIndex(tableName string) string {
	stmt := fmt.Sprintf("CREATE INDEX %s ON %s(created_at DESC)",
		metadata.Quote("idx_"+tableName+"_default"),
		metadata.Quote(tableName))
	if g.cfg.SoftDelete {
		stmt += " WHERE deleted = FALSE"
	}
	return stmt
}
