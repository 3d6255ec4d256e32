package engine

import (
	"encoding/json"
	"sort"
)

// Instance is one row of a dynamic table. Properties holds the user columns;
// columns that are NULL in the database are absent from the map.
type Instance struct {
	ID         string         `json:"id"`
	CreatedAt  string         `json:"createdAt,omitempty"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
	SchemaID   string         `json:"schemaId,omitempty"`
	SchemaName string         `json:"schemaName,omitempty"`
	Properties map[string]any `json:"properties"`
}

const DefaultFilterLimit = 100

// FilterRequest selects, orders and paginates instances.
type FilterRequest struct {
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
	Condition *Condition `json:"condition,omitempty"`
	SortBy    []string   `json:"sortBy,omitempty"`
	SortOrder []string   `json:"sortOrder,omitempty"`
}

// NewFilterRequest returns a request with the default page of 100 rows.
func NewFilterRequest() FilterRequest {
	return FilterRequest{Limit: DefaultFilterLimit}
}

// UnmarshalJSON applies the pagination defaults (offset 0, limit 100) when
// the fields are absent.
func (f *FilterRequest) UnmarshalJSON(data []byte) error {
	type plain FilterRequest
	aux := plain{Limit: DefaultFilterLimit}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = FilterRequest(aux)
	return nil
}

// SimpleFilter is the equality-only shorthand for FilterRequest: every entry
// in Filters must match exactly.
type SimpleFilter struct {
	SchemaName string         `json:"schemaName"`
	Filters    map[string]any `json:"filters,omitempty"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

func NewSimpleFilter(schemaName string) SimpleFilter {
	return SimpleFilter{SchemaName: schemaName, Limit: DefaultFilterLimit}
}

func (s SimpleFilter) Filter(field string, value any) SimpleFilter {
	filters := make(map[string]any, len(s.Filters)+1)
	for k, v := range s.Filters {
		filters[k] = v
	}
	filters[field] = value
	s.Filters = filters
	return s
}

func (s SimpleFilter) Paginate(limit, offset int) SimpleFilter {
	s.Limit = limit
	s.Offset = offset
	return s
}

// ToFilterRequest reduces the filter map to a condition tree: no entries
// means no condition, one entry becomes EQ, several become AND of EQ. Fields
// are visited in sorted order so the generated SQL is deterministic.
func (s SimpleFilter) ToFilterRequest() FilterRequest {
	req := FilterRequest{Offset: s.Offset, Limit: s.Limit}

	fields := make([]string, 0, len(s.Filters))
	for field := range s.Filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	switch len(fields) {
	case 0:
	case 1:
		req.Condition = Eq(fields[0], s.Filters[fields[0]])
	default:
		conditions := make([]*Condition, len(fields))
		for i, field := range fields {
			conditions[i] = Eq(field, s.Filters[field])
		}
		req.Condition = And(conditions...)
	}
	return req
}
