package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"objectstore/internal/metadata"
	"objectstore/internal/store"
)

var knownColumnKinds = map[metadata.ColumnKind]bool{
	metadata.KindString:    true,
	metadata.KindInteger:   true,
	metadata.KindDecimal:   true,
	metadata.KindBoolean:   true,
	metadata.KindTimestamp: true,
	metadata.KindJson:      true,
	metadata.KindEnum:      true,
}

// validateSchemaDefinition checks every identifier and column definition in a
// schema before any SQL runs against the database.
func (s *ObjectStore) validateSchemaDefinition(tableName string, columns []metadata.ColumnDefinition, indexes []metadata.IndexDefinition, rules []metadata.ValidationRule) *AppError {
	if err := metadata.ValidateIdentifier(tableName, nil); err != nil {
		return ValidationError(err.Error())
	}

	reserved := s.cfg.ReservedColumnNames()
	names := make(map[string]bool, len(columns))
	for _, col := range columns {
		if err := metadata.ValidateIdentifier(col.Name, reserved); err != nil {
			return ValidationError(err.Error())
		}
		if names[col.Name] {
			return ValidationError(fmt.Sprintf("Duplicate column name '%s'", col.Name))
		}
		names[col.Name] = true
		if !knownColumnKinds[col.Type] {
			return ValidationError(fmt.Sprintf("Unknown column type '%s'", col.Type))
		}
		if col.Type == metadata.KindEnum && len(col.Values) == 0 {
			return ValidationError(fmt.Sprintf("Enum column '%s' must have at least one value", col.Name))
		}
	}

	for _, idx := range indexes {
		if err := metadata.ValidateIdentifier(idx.Name, nil); err != nil {
			return ValidationError(err.Error())
		}
		if len(idx.Columns) == 0 {
			return ValidationError(fmt.Sprintf("Index '%s' must cover at least one column", idx.Name))
		}
		for _, col := range idx.Columns {
			if !names[col] {
				return ValidationError(fmt.Sprintf("Index '%s' references unknown column '%s'", idx.Name, col))
			}
		}
	}

	for _, rule := range rules {
		if _, err := CompileRule(rule); err != nil {
			return ValidationError(err.Error())
		}
	}
	return nil
}

// CreateSchema registers a schema and creates its table and indexes. The
// catalog row is written first; the row is authoritative if later DDL fails.
func (s *ObjectStore) CreateSchema(ctx context.Context, req metadata.CreateSchemaRequest) (*metadata.Schema, error) {
	if appErr := s.validateSchemaDefinition(req.TableName, req.Columns, req.Indexes, req.Rules); appErr != nil {
		return nil, appErr
	}

	meta := metadata.Quote(s.cfg.MetadataTable)
	liveFilter := ""
	if s.cfg.SoftDelete {
		liveFilter = " AND deleted = FALSE"
	}

	rows, err := store.QueryRows(ctx, s.db.Pool,
		fmt.Sprintf("SELECT name FROM %s WHERE name = $1%s", meta, liveFilter), req.Name)
	if err != nil {
		return nil, DatabaseError(err)
	}
	if len(rows) > 0 {
		return nil, ConflictError(fmt.Sprintf("Schema '%s' already exists", req.Name))
	}

	rows, err = store.QueryRows(ctx, s.db.Pool,
		fmt.Sprintf("SELECT name FROM %s WHERE table_name = $1%s", meta, liveFilter), req.TableName)
	if err != nil {
		return nil, DatabaseError(err)
	}
	if len(rows) > 0 {
		return nil, ConflictError(fmt.Sprintf("Table '%s' already exists", req.TableName))
	}

	columnsJSON, err := encodeJSONParam(req.Columns)
	if err != nil {
		return nil, SerializationError(err)
	}
	var indexesJSON, rulesJSON any
	if len(req.Indexes) > 0 {
		if indexesJSON, err = encodeJSONParam(req.Indexes); err != nil {
			return nil, SerializationError(err)
		}
	}
	if len(req.Rules) > 0 {
		if rulesJSON, err = encodeJSONParam(req.Rules); err != nil {
			return nil, SerializationError(err)
		}
	}

	var description any
	if req.Description != "" {
		description = req.Description
	}

	id := uuid.NewString()
	insert := fmt.Sprintf(
		"INSERT INTO %s (id, name, description, table_name, columns, indexes, rules) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at",
		meta)
	if s.cfg.SoftDelete {
		insert = fmt.Sprintf(
			"INSERT INTO %s (id, name, description, table_name, columns, indexes, rules, deleted) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE) RETURNING created_at, updated_at",
			meta)
	}

	row, err := store.QueryRow(ctx, s.db.Pool, insert,
		id, req.Name, description, req.TableName, columnsJSON, indexesJSON, rulesJSON)
	if err != nil {
		if errors.Is(store.MapError(err), store.ErrUniqueViolation) {
			return nil, ConflictError(fmt.Sprintf("Schema '%s' already exists", req.Name))
		}
		return nil, DatabaseError(err)
	}

	schema := &metadata.Schema{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		TableName:   req.TableName,
		Columns:     req.Columns,
		Indexes:     req.Indexes,
		Rules:       req.Rules,
	}
	schema.CreatedAt = formatRowTime(row["created_at"])
	schema.UpdatedAt = formatRowTime(row["updated_at"])

	if _, err := store.Exec(ctx, s.db.Pool, s.ddl.CreateTable(req.TableName, req.Columns)); err != nil {
		return nil, DatabaseError(err)
	}
	if s.cfg.AutoColumns.CreatedAt {
		if _, err := store.Exec(ctx, s.db.Pool, s.ddl.CreateDefaultIndex(req.TableName)); err != nil {
			return nil, DatabaseError(err)
		}
	}
	for _, idx := range req.Indexes {
		if _, err := store.Exec(ctx, s.db.Pool, s.ddl.CreateIndex(req.TableName, idx)); err != nil {
			return nil, DatabaseError(err)
		}
	}

	return schema, nil
}

// GetSchema loads a schema by name.
func (s *ObjectStore) GetSchema(ctx context.Context, name string) (*metadata.Schema, error) {
	return s.getSchemaBy(ctx, "name", name, name)
}

// GetSchemaByID loads a schema by catalog id.
func (s *ObjectStore) GetSchemaByID(ctx context.Context, id string) (*metadata.Schema, error) {
	return s.getSchemaBy(ctx, "id", id, id)
}

// GetSchemaByTable loads a schema by the table it owns.
func (s *ObjectStore) GetSchemaByTable(ctx context.Context, tableName string) (*metadata.Schema, error) {
	return s.getSchemaBy(ctx, "table_name", tableName, tableName)
}

func (s *ObjectStore) getSchemaBy(ctx context.Context, column, value, label string) (*metadata.Schema, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", metadataColumns, metadata.Quote(s.cfg.MetadataTable), column)
	if s.cfg.SoftDelete {
		sql += " AND deleted = FALSE"
	}
	row, err := store.QueryRow(ctx, s.db.Pool, sql, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, SchemaNotFoundError(label)
		}
		return nil, DatabaseError(err)
	}
	return s.rowToSchema(row)
}

// ListSchemas returns all live schemas, newest first.
func (s *ObjectStore) ListSchemas(ctx context.Context) ([]*metadata.Schema, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s", metadataColumns, metadata.Quote(s.cfg.MetadataTable))
	if s.cfg.SoftDelete {
		sql += " WHERE deleted = FALSE"
	}
	sql += " ORDER BY created_at DESC"

	rows, err := store.QueryRows(ctx, s.db.Pool, sql)
	if err != nil {
		return nil, DatabaseError(err)
	}
	schemas := make([]*metadata.Schema, 0, len(rows))
	for _, row := range rows {
		schema, err := s.rowToSchema(row)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

// UpdateSchema applies a partial update to the catalog row and, when columns
// change, alters the table to match.
func (s *ObjectStore) UpdateSchema(ctx context.Context, name string, req metadata.UpdateSchemaRequest) (*metadata.Schema, error) {
	existing, err := s.GetSchema(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.Columns != nil || req.Indexes != nil || req.Rules != nil {
		columns := existing.Columns
		if req.Columns != nil {
			columns = req.Columns
		}
		indexes := req.Indexes
		rules := req.Rules
		if appErr := s.validateSchemaDefinition(existing.TableName, columns, indexes, rules); appErr != nil {
			return nil, appErr
		}
	}

	sets := []string{"updated_at = NOW()"}
	params := []any{name}
	paramIdx := 2

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, paramIdx))
		params = append(params, value)
		paramIdx++
	}

	if req.Name != nil {
		addSet("name", *req.Name)
	}
	if req.Description != nil {
		addSet("description", *req.Description)
	}
	if req.Columns != nil {
		encoded, err := encodeJSONParam(req.Columns)
		if err != nil {
			return nil, SerializationError(err)
		}
		addSet("columns", encoded)
	}
	if req.Indexes != nil {
		encoded, err := encodeJSONParam(req.Indexes)
		if err != nil {
			return nil, SerializationError(err)
		}
		addSet("indexes", encoded)
	}
	if req.Rules != nil {
		encoded, err := encodeJSONParam(req.Rules)
		if err != nil {
			return nil, SerializationError(err)
		}
		addSet("rules", encoded)
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE name = $1", metadata.Quote(s.cfg.MetadataTable), strings.Join(sets, ", "))
	if s.cfg.SoftDelete {
		sql += " AND deleted = FALSE"
	}
	sql += " RETURNING " + metadataColumns

	row, err := store.QueryRow(ctx, s.db.Pool, sql, params...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, SchemaNotFoundError(name)
		}
		if errors.Is(store.MapError(err), store.ErrUniqueViolation) {
			newName := name
			if req.Name != nil {
				newName = *req.Name
			}
			return nil, ConflictError(fmt.Sprintf("Schema '%s' already exists", newName))
		}
		return nil, DatabaseError(err)
	}

	if req.Columns != nil {
		for _, stmt := range s.ddl.AlterTable(existing.TableName, existing.Columns, req.Columns) {
			if _, err := store.Exec(ctx, s.db.Pool, stmt); err != nil {
				return nil, DatabaseError(err)
			}
		}
	}

	return s.rowToSchema(row)
}

// DeleteSchema removes a schema. With soft deletes the catalog row is only
// flagged and the table is kept; a hard delete drops the table and the row.
func (s *ObjectStore) DeleteSchema(ctx context.Context, name string) error {
	meta := metadata.Quote(s.cfg.MetadataTable)

	if s.cfg.SoftDelete {
		sql := fmt.Sprintf("UPDATE %s SET deleted = TRUE, updated_at = NOW() WHERE name = $1 AND deleted = FALSE", meta)
		affected, err := store.Exec(ctx, s.db.Pool, sql, name)
		if err != nil {
			return DatabaseError(err)
		}
		if affected == 0 {
			return SchemaNotFoundError(name)
		}
		return nil
	}

	schema, err := s.GetSchema(ctx, name)
	if err != nil {
		return err
	}
	if _, err := store.Exec(ctx, s.db.Pool, s.ddl.DropTable(schema.TableName)); err != nil {
		return DatabaseError(err)
	}
	affected, err := store.Exec(ctx, s.db.Pool, fmt.Sprintf("DELETE FROM %s WHERE name = $1", meta), name)
	if err != nil {
		return DatabaseError(err)
	}
	if affected == 0 {
		return SchemaNotFoundError(name)
	}
	return nil
}
