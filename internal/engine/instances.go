package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"objectstore/internal/metadata"
	"objectstore/internal/store"
)

// validateProperties checks a property map against the schema: no unknown
// columns, type-valid values, NULLs only where allowed, and with forCreate
// every required column present. Validation rules run last.
func (s *ObjectStore) validateProperties(schema *metadata.Schema, properties map[string]any, forCreate bool) *AppError {
	for name := range properties {
		if schema.Column(name) == nil {
			return ValidationError(fmt.Sprintf("Column '%s' does not exist in schema '%s'", name, schema.Name))
		}
	}

	for _, col := range schema.Columns {
		value, present := properties[col.Name]
		if present {
			if value == nil {
				if !col.Nullable {
					return ValidationError(fmt.Sprintf("Column '%s' does not allow NULL values", col.Name))
				}
				continue
			}
			if err := col.ValidateValue(value); err != nil {
				return ValidationError(err.Error())
			}
			continue
		}
		if forCreate && !col.Nullable && col.Default == nil {
			return ValidationError(fmt.Sprintf("Required column '%s' is missing", col.Name))
		}
	}

	return ValidateRules(schema.Rules, properties)
}

// bindValue converts a validated JSON value into the Go value bound for the
// column's SQL type.
func bindValue(col metadata.ColumnDefinition, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch col.Type {
	case metadata.KindString, metadata.KindEnum:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case metadata.KindInteger:
		switch v := value.(type) {
		case float64:
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case string:
			return strconv.ParseInt(v, 10, 64)
		}
	case metadata.KindDecimal:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case metadata.KindBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true", "1", "yes":
				return true, nil
			case "false", "0", "no":
				return false, nil
			}
		}
	case metadata.KindTimestamp:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("Cannot convert '%v' to timestamp", value)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("Invalid timestamp format: %v", err)
		}
		return t.UTC(), nil
	case metadata.KindJson:
		return encodeJSONParam(value)
	}
	return nil, fmt.Errorf("Cannot bind value '%v' to column '%s'", value, col.Name)
}

// selectColumns is the select list for instance reads: enabled auto columns
// first, then the quoted user columns.
func (s *ObjectStore) selectColumns(schema *metadata.Schema) string {
	var parts []string
	if s.cfg.AutoColumns.ID {
		parts = append(parts, "id")
	}
	if s.cfg.AutoColumns.CreatedAt {
		parts = append(parts, "created_at")
	}
	if s.cfg.AutoColumns.UpdatedAt {
		parts = append(parts, "updated_at")
	}
	for _, col := range schema.Columns {
		parts = append(parts, metadata.Quote(col.Name))
	}
	return strings.Join(parts, ", ")
}

// rowToInstance rebuilds an Instance from a row map. NULL columns stay out
// of the properties map; timestamps render as RFC3339.
func (s *ObjectStore) rowToInstance(schema *metadata.Schema, row map[string]any) *Instance {
	inst := &Instance{
		SchemaID:   schema.ID,
		SchemaName: schema.Name,
		Properties: make(map[string]any, len(schema.Columns)),
	}
	if s.cfg.AutoColumns.ID {
		if id, ok := row["id"].(string); ok {
			inst.ID = id
		}
	}
	if s.cfg.AutoColumns.CreatedAt {
		inst.CreatedAt = formatRowTime(row["created_at"])
	}
	if s.cfg.AutoColumns.UpdatedAt {
		inst.UpdatedAt = formatRowTime(row["updated_at"])
	}

	for _, col := range schema.Columns {
		value := row[col.Name]
		if value == nil {
			continue
		}
		if col.Type == metadata.KindTimestamp {
			if t, ok := value.(time.Time); ok {
				value = t.UTC().Format(time.RFC3339)
			}
		}
		inst.Properties[col.Name] = value
	}
	return inst
}

// CreateInstance validates and inserts one instance, returning its id.
func (s *ObjectStore) CreateInstance(ctx context.Context, schemaName string, properties map[string]any) (string, error) {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return "", err
	}
	if appErr := s.validateProperties(schema, properties, true); appErr != nil {
		return "", appErr
	}

	var columns []string
	var placeholders []string
	var params []any

	id := ""
	if s.cfg.AutoColumns.ID {
		id = uuid.NewString()
		columns = append(columns, "id")
		params = append(params, id)
		placeholders = append(placeholders, "$1")
	}

	for _, col := range schema.Columns {
		value, present := properties[col.Name]
		if !present {
			continue
		}
		bound, err := bindValue(col, value)
		if err != nil {
			return "", ValidationError(err.Error())
		}
		columns = append(columns, metadata.Quote(col.Name))
		params = append(params, bound)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(params)))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		metadata.Quote(schema.TableName),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	if _, err := store.Exec(ctx, s.db.Pool, sql, params...); err != nil {
		if errors.Is(store.MapError(err), store.ErrUniqueViolation) {
			return "", ConflictError("Unique constraint violation")
		}
		return "", DatabaseError(err)
	}
	return id, nil
}

// GetInstance loads one instance by id.
func (s *ObjectStore) GetInstance(ctx context.Context, schemaName, id string) (*Instance, error) {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.selectColumns(schema), metadata.Quote(schema.TableName))
	if s.cfg.SoftDelete {
		sql += " AND deleted = FALSE"
	}

	row, err := store.QueryRow(ctx, s.db.Pool, sql, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, InstanceNotFoundError(id)
		}
		return nil, DatabaseError(err)
	}
	return s.rowToInstance(schema, row), nil
}

// FilterInstances returns the page selected by the request and the total
// count of matching rows.
func (s *ObjectStore) FilterInstances(ctx context.Context, schemaName string, req FilterRequest) ([]*Instance, int64, error) {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return nil, 0, err
	}
	return s.filterInternal(ctx, schema, req)
}

// QueryInstances runs an equality-only filter.
func (s *ObjectStore) QueryInstances(ctx context.Context, filter SimpleFilter) ([]*Instance, int64, error) {
	return s.FilterInstances(ctx, filter.SchemaName, filter.ToFilterRequest())
}

// InstanceExists returns the first instance matching the filter, or nil.
func (s *ObjectStore) InstanceExists(ctx context.Context, filter SimpleFilter) (*Instance, error) {
	filter.Limit = 1
	filter.Offset = 0
	instances, _, err := s.QueryInstances(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return instances[0], nil
}

func (s *ObjectStore) filterInternal(ctx context.Context, schema *metadata.Schema, req FilterRequest) ([]*Instance, int64, error) {
	var params []any
	whereClause := "TRUE"

	if req.Condition != nil {
		offset := 1
		clause, condParams, err := BuildConditionClause(req.Condition, &offset)
		if err != nil {
			return nil, 0, InvalidConditionError(err.Error())
		}
		whereClause = clause
		params = condParams
	}

	baseWhere := "(" + whereClause + ")"
	if s.cfg.SoftDelete {
		baseWhere = "deleted = FALSE AND " + baseWhere
	}

	table := metadata.Quote(schema.TableName)

	countRow, err := store.QueryRow(ctx, s.db.Pool,
		fmt.Sprintf("SELECT COUNT(*) AS count FROM %s WHERE %s", table, baseWhere), params...)
	if err != nil {
		return nil, 0, DatabaseError(err)
	}
	total, _ := countRow["count"].(int64)

	orderBy, err := BuildOrderByClause(req.SortBy, req.SortOrder, schema)
	if err != nil {
		return nil, 0, ValidationError(err.Error())
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultFilterLimit
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		s.selectColumns(schema), table, baseWhere, orderBy, len(params)+1, len(params)+2)
	params = append(params, limit, req.Offset)

	rows, err := store.QueryRows(ctx, s.db.Pool, sql, params...)
	if err != nil {
		return nil, 0, DatabaseError(err)
	}

	instances := make([]*Instance, 0, len(rows))
	for _, row := range rows {
		instances = append(instances, s.rowToInstance(schema, row))
	}
	return instances, total, nil
}

// UpdateInstance validates and applies a partial update to one instance.
// An empty property map succeeds without touching the row.
func (s *ObjectStore) UpdateInstance(ctx context.Context, schemaName, id string, properties map[string]any) error {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return err
	}
	if appErr := s.validateProperties(schema, properties, false); appErr != nil {
		return appErr
	}
	if len(properties) == 0 {
		return nil
	}

	var sets []string
	if s.cfg.AutoColumns.UpdatedAt {
		sets = append(sets, "updated_at = NOW()")
	}
	params := []any{id}

	for _, col := range schema.Columns {
		value, present := properties[col.Name]
		if !present {
			continue
		}
		bound, err := bindValue(col, value)
		if err != nil {
			return ValidationError(err.Error())
		}
		params = append(params, bound)
		sets = append(sets, fmt.Sprintf("%s = $%d", metadata.Quote(col.Name), len(params)))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", metadata.Quote(schema.TableName), strings.Join(sets, ", "))
	if s.cfg.SoftDelete {
		sql += " AND deleted = FALSE"
	}

	affected, err := store.Exec(ctx, s.db.Pool, sql, params...)
	if err != nil {
		if errors.Is(store.MapError(err), store.ErrUniqueViolation) {
			return ConflictError("Unique constraint violation")
		}
		return DatabaseError(err)
	}
	if affected == 0 {
		return InstanceNotFoundError(id)
	}
	return nil
}

// DeleteInstance removes one instance: flagged with soft deletes on, removed
// with DELETE otherwise.
func (s *ObjectStore) DeleteInstance(ctx context.Context, schemaName, id string) error {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return err
	}
	table := metadata.Quote(schema.TableName)

	var sql string
	if s.cfg.SoftDelete {
		sql = fmt.Sprintf("UPDATE %s SET deleted = TRUE", table)
		if s.cfg.AutoColumns.UpdatedAt {
			sql += ", updated_at = NOW()"
		}
		sql += " WHERE id = $1 AND deleted = FALSE"
	} else {
		sql = fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	}

	affected, err := store.Exec(ctx, s.db.Pool, sql, id)
	if err != nil {
		return DatabaseError(err)
	}
	if affected == 0 {
		return InstanceNotFoundError(id)
	}
	return nil
}
