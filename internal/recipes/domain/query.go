package domain

import "fmt"

// Operator is a comparison operator understood by every store backend.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// SortDirection orders query results.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Filter is a single (field, operator, value) term. Terms in a query are ANDed.
type Filter struct {
	Field string      `json:"field"`
	Op    Operator    `json:"op"`
	Value interface{} `json:"value"`
}

// Sort is a single-field ordering.
type Sort struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Query describes a read against a collection.
// CursorID, when set, starts the page strictly after that record in sort order.
// PageSize 0 means no limit.
type Query struct {
	Filters  []Filter `json:"filters,omitempty"`
	Sort     *Sort    `json:"sort,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
	CursorID string   `json:"cursor_id,omitempty"`
}

// Page is one page of a read.
type Page struct {
	Records []Recipe `json:"records"`
	HasMore bool     `json:"has_more"`
}

// Validate checks the query against the known field vocabulary.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if !KnownField(f.Field) {
			return fmt.Errorf("unknown filter field %q", f.Field)
		}
		if !f.Op.Valid() {
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	if q.Sort != nil {
		if !KnownField(q.Sort.Field) || q.Sort.Field == FieldIngredients {
			return fmt.Errorf("unsupported sort field %q", q.Sort.Field)
		}
		if q.Sort.Direction != Ascending && q.Sort.Direction != Descending {
			return fmt.Errorf("unsupported sort direction %q", q.Sort.Direction)
		}
	}
	if q.PageSize < 0 {
		return fmt.Errorf("negative page size %d", q.PageSize)
	}
	return nil
}

// KnownField reports whether name is a recipe document field.
func KnownField(name string) bool {
	switch name {
	case FieldName, FieldCategory, FieldDirections, FieldPublishDate, FieldIsPublished, FieldIngredients:
		return true
	}
	return false
}
