package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"objectstore/internal/config"
	"objectstore/internal/metadata"
	"objectstore/internal/store"
)

// ObjectStore is the schema catalog and instance engine over one database.
type ObjectStore struct {
	db  *store.Store
	cfg config.StoreConfig
	ddl *DDLGenerator
}

func New(db *store.Store, cfg config.StoreConfig) *ObjectStore {
	if cfg.MetadataTable == "" {
		cfg.MetadataTable = "__schema"
	}
	return &ObjectStore{db: db, cfg: cfg, ddl: NewDDLGenerator(cfg)}
}

// Config returns the active store configuration.
func (s *ObjectStore) Config() config.StoreConfig {
	return s.cfg
}

// Init creates the metadata table if it does not exist yet.
func (s *ObjectStore) Init(ctx context.Context) error {
	columns := []string{
		"id VARCHAR(255) PRIMARY KEY DEFAULT gen_random_uuid()::text",
		"name VARCHAR(255) UNIQUE NOT NULL",
		"description TEXT",
		"table_name VARCHAR(255) UNIQUE NOT NULL",
		"columns JSONB NOT NULL",
		"indexes JSONB",
		"rules JSONB",
		"created_at TIMESTAMPTZ DEFAULT NOW()",
		"updated_at TIMESTAMPTZ DEFAULT NOW()",
	}
	if s.cfg.SoftDelete {
		columns = append(columns, "deleted BOOLEAN DEFAULT FALSE")
	}
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		metadata.Quote(s.cfg.MetadataTable), strings.Join(columns, ", "))
	if _, err := store.Exec(ctx, s.db.Pool, sql); err != nil {
		return DatabaseError(err)
	}
	return nil
}

// metadataColumns is the select list for catalog reads.
const metadataColumns = "id, name, description, table_name, columns, indexes, rules, created_at, updated_at"

// rowToSchema rebuilds a Schema from a catalog row. JSONB columns come back
// as decoded JSON values and are re-decoded into their typed form.
func (s *ObjectStore) rowToSchema(row map[string]any) (*metadata.Schema, error) {
	schema := &metadata.Schema{}
	if v, ok := row["id"].(string); ok {
		schema.ID = v
	}
	if v, ok := row["name"].(string); ok {
		schema.Name = v
	}
	if v, ok := row["description"].(string); ok {
		schema.Description = v
	}
	if v, ok := row["table_name"].(string); ok {
		schema.TableName = v
	}
	if v, ok := row["created_at"].(time.Time); ok {
		schema.CreatedAt = v.UTC().Format(time.RFC3339)
	}
	if v, ok := row["updated_at"].(time.Time); ok {
		schema.UpdatedAt = v.UTC().Format(time.RFC3339)
	}

	if err := decodeJSONColumn(row["columns"], &schema.Columns); err != nil {
		return nil, SerializationError(fmt.Errorf("decode columns: %w", err))
	}
	if err := decodeJSONColumn(row["indexes"], &schema.Indexes); err != nil {
		return nil, SerializationError(fmt.Errorf("decode indexes: %w", err))
	}
	if err := decodeJSONColumn(row["rules"], &schema.Rules); err != nil {
		return nil, SerializationError(fmt.Errorf("decode rules: %w", err))
	}
	return schema, nil
}

// formatRowTime renders a timestamp column value as RFC3339 UTC.
func formatRowTime(value any) string {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return ""
}

func decodeJSONColumn(value any, target any) error {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// encodeJSONParam renders a value as JSON text for binding into a jsonb
// column. nil stays nil so the column becomes NULL.
func encodeJSONParam(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
