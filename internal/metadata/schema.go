package metadata

// Schema is a catalog record describing one dynamic table.
type Schema struct {
	ID          string             `json:"id"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TableName   string             `json:"tableName"`
	Columns     []ColumnDefinition `json:"columns"`
	Indexes     []IndexDefinition  `json:"indexes,omitempty"`
	Rules       []ValidationRule   `json:"rules,omitempty"`
}

// Column returns the definition of the named column, or nil.
func (s *Schema) Column(name string) *ColumnDefinition {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

type CreateSchemaRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TableName   string             `json:"tableName"`
	Columns     []ColumnDefinition `json:"columns"`
	Indexes     []IndexDefinition  `json:"indexes,omitempty"`
	Rules       []ValidationRule   `json:"rules,omitempty"`
}

// UpdateSchemaRequest carries the fields to change; nil fields are untouched.
type UpdateSchemaRequest struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Columns     []ColumnDefinition `json:"columns,omitempty"`
	Indexes     []IndexDefinition  `json:"indexes,omitempty"`
	Rules       []ValidationRule   `json:"rules,omitempty"`
}
