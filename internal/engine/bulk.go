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

// maxBindParams caps the parameters per statement; batches are chunked so
// rows-per-batch times params-per-row stays below the protocol limit.
const maxBindParams = 32000

func (s *ObjectStore) chunkSize(schema *metadata.Schema) int {
	paramsPerRow := len(schema.Columns)
	if s.cfg.AutoColumns.ID {
		paramsPerRow++
	}
	size := maxBindParams / paramsPerRow
	if size < 1 {
		size = 1
	}
	return size
}

// buildInsertRows renders the column list, placeholder groups and parameters
// for a multi-row insert. Missing optional columns bind NULL so every row
// shares one placeholder shape.
func (s *ObjectStore) buildInsertRows(schema *metadata.Schema, chunk []map[string]any) (string, string, []any, error) {
	var columns []string
	if s.cfg.AutoColumns.ID {
		columns = append(columns, "id")
	}
	for _, col := range schema.Columns {
		columns = append(columns, metadata.Quote(col.Name))
	}

	var params []any
	groups := make([]string, 0, len(chunk))
	for _, properties := range chunk {
		placeholders := make([]string, 0, len(columns))
		if s.cfg.AutoColumns.ID {
			params = append(params, uuid.NewString())
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(params)))
		}
		for _, col := range schema.Columns {
			value := properties[col.Name]
			bound, err := bindValue(col, value)
			if err != nil {
				return "", "", nil, err
			}
			params = append(params, bound)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(params)))
		}
		groups = append(groups, "("+strings.Join(placeholders, ", ")+")")
	}

	return strings.Join(columns, ", "), strings.Join(groups, ", "), params, nil
}

// CreateInstances inserts many instances in one transaction, chunked to stay
// under the bind parameter limit. All rows are validated before any SQL runs.
func (s *ObjectStore) CreateInstances(ctx context.Context, schemaName string, instances []map[string]any) (int64, error) {
	if len(instances) == 0 {
		return 0, nil
	}
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}

	for i, properties := range instances {
		if appErr := s.validateProperties(schema, properties, true); appErr != nil {
			return 0, ValidationError(fmt.Sprintf("Instance at index %d: %s", i, appErr.Message))
		}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	table := metadata.Quote(schema.TableName)
	size := s.chunkSize(schema)

	var total int64
	for start := 0; start < len(instances); start += size {
		end := start + size
		if end > len(instances) {
			end = len(instances)
		}
		columns, values, params, err := s.buildInsertRows(schema, instances[start:end])
		if err != nil {
			return 0, ValidationError(err.Error())
		}
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, columns, values)
		affected, err := store.Exec(ctx, tx, sql, params...)
		if err != nil {
			if errors.Is(store.MapError(err), store.ErrUniqueViolation) {
				return 0, ConflictError("Unique constraint violation")
			}
			return 0, DatabaseError(err)
		}
		total += affected
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, DatabaseError(err)
	}
	return total, nil
}

// UpsertInstances inserts many instances, resolving collisions on the given
// conflict columns by updating every non-conflict column from the incoming
// row. With no updatable columns the conflicting rows are left untouched.
func (s *ObjectStore) UpsertInstances(ctx context.Context, schemaName string, instances []map[string]any, conflictColumns []string) (int64, error) {
	if len(conflictColumns) == 0 {
		return 0, ValidationError("At least one conflict column must be specified")
	}
	if len(instances) == 0 {
		return 0, nil
	}
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}

	conflictSet := make(map[string]bool, len(conflictColumns))
	for _, col := range conflictColumns {
		if col != "id" && schema.Column(col) == nil {
			return 0, ValidationError(fmt.Sprintf("Conflict column '%s' does not exist in schema", col))
		}
		conflictSet[col] = true
	}

	for i, properties := range instances {
		if appErr := s.validateProperties(schema, properties, true); appErr != nil {
			return 0, ValidationError(fmt.Sprintf("Instance at index %d: %s", i, appErr.Message))
		}
	}

	instances = dedupeConflictRows(instances, conflictColumns)

	quotedConflict := make([]string, len(conflictColumns))
	for i, col := range conflictColumns {
		quotedConflict[i] = metadata.Quote(col)
	}

	var updateSets []string
	for _, col := range schema.Columns {
		if conflictSet[col.Name] {
			continue
		}
		quoted := metadata.Quote(col.Name)
		updateSets = append(updateSets, fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted))
	}

	onConflict := fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(quotedConflict, ", "))
	if len(updateSets) > 0 {
		if s.cfg.AutoColumns.UpdatedAt {
			updateSets = append(updateSets, "updated_at = NOW()")
		}
		onConflict = fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(quotedConflict, ", "), strings.Join(updateSets, ", "))
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	table := metadata.Quote(schema.TableName)
	size := s.chunkSize(schema)

	var total int64
	for start := 0; start < len(instances); start += size {
		end := start + size
		if end > len(instances) {
			end = len(instances)
		}
		columns, values, params, err := s.buildInsertRows(schema, instances[start:end])
		if err != nil {
			return 0, ValidationError(err.Error())
		}
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s %s", table, columns, values, onConflict)
		affected, err := store.Exec(ctx, tx, sql, params...)
		if err != nil {
			return 0, DatabaseError(err)
		}
		total += affected
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, DatabaseError(err)
	}
	return total, nil
}

// dedupeConflictRows collapses rows sharing one conflict-key tuple, keeping
// the last occurrence. A single INSERT may not touch the same row twice, so
// within-batch duplicates must be resolved before the statement runs. Rows
// with an absent or NULL conflict column never conflict and are kept as-is.
func dedupeConflictRows(instances []map[string]any, conflictColumns []string) []map[string]any {
	result := make([]map[string]any, 0, len(instances))
	byKey := make(map[string]int, len(instances))
	for _, properties := range instances {
		key, ok := conflictKey(properties, conflictColumns)
		if !ok {
			result = append(result, properties)
			continue
		}
		if idx, seen := byKey[key]; seen {
			result[idx] = properties
			continue
		}
		byKey[key] = len(result)
		result = append(result, properties)
	}
	return result
}

func conflictKey(properties map[string]any, conflictColumns []string) (string, bool) {
	parts := make([]string, len(conflictColumns))
	for i, col := range conflictColumns {
		value, present := properties[col]
		if !present || value == nil {
			return "", false
		}
		parts[i] = valueToString(value)
	}
	return strings.Join(parts, "\x00"), true
}

// UpdateInstances applies one property set to every instance matching the
// condition, in a single transaction. A nil condition matches all live rows.
func (s *ObjectStore) UpdateInstances(ctx context.Context, schemaName string, properties map[string]any, condition *Condition) (int64, error) {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}
	if appErr := s.validateProperties(schema, properties, false); appErr != nil {
		return 0, appErr
	}
	if len(properties) == 0 {
		return 0, nil
	}

	var sets []string
	var params []any
	for _, col := range schema.Columns {
		value, present := properties[col.Name]
		if !present {
			continue
		}
		bound, err := bindValue(col, value)
		if err != nil {
			return 0, ValidationError(err.Error())
		}
		params = append(params, bound)
		sets = append(sets, fmt.Sprintf("%s = $%d", metadata.Quote(col.Name), len(params)))
	}
	if s.cfg.AutoColumns.UpdatedAt {
		sets = append(sets, "updated_at = NOW()")
	}

	whereClause := "TRUE"
	if condition != nil {
		offset := len(params) + 1
		clause, condParams, err := BuildConditionClause(condition, &offset)
		if err != nil {
			return 0, InvalidConditionError(err.Error())
		}
		whereClause = clause
		params = append(params, condParams...)
	}
	where := "(" + whereClause + ")"
	if s.cfg.SoftDelete {
		where = "deleted = FALSE AND " + where
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		metadata.Quote(schema.TableName), strings.Join(sets, ", "), where)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	affected, err := store.Exec(ctx, tx, sql, params...)
	if err != nil {
		if errors.Is(store.MapError(err), store.ErrUniqueViolation) {
			return 0, ConflictError("Unique constraint violation")
		}
		return 0, DatabaseError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, DatabaseError(err)
	}
	return affected, nil
}

// DeleteInstances removes every instance matching the condition, in a single
// transaction. A nil condition matches all live rows.
func (s *ObjectStore) DeleteInstances(ctx context.Context, schemaName string, condition *Condition) (int64, error) {
	schema, err := s.GetSchema(ctx, schemaName)
	if err != nil {
		return 0, err
	}

	whereClause := "TRUE"
	var params []any
	if condition != nil {
		offset := 1
		clause, condParams, err := BuildConditionClause(condition, &offset)
		if err != nil {
			return 0, InvalidConditionError(err.Error())
		}
		whereClause = clause
		params = condParams
	}

	table := metadata.Quote(schema.TableName)
	var sql string
	if s.cfg.SoftDelete {
		set := "deleted = TRUE"
		if s.cfg.AutoColumns.UpdatedAt {
			set += ", updated_at = NOW()"
		}
		sql = fmt.Sprintf("UPDATE %s SET %s WHERE deleted = FALSE AND (%s)", table, set, whereClause)
	} else {
		sql = fmt.Sprintf("DELETE FROM %s WHERE (%s)", table, whereClause)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, DatabaseError(err)
	}
	defer tx.Rollback(ctx)

	affected, err := store.Exec(ctx, tx, sql, params...)
	if err != nil {
		return 0, DatabaseError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, DatabaseError(err)
	}
	return affected, nil
}
