package catalog

import (
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

// OrderBy selects the publish date ordering of the list.
type OrderBy string

const (
	OrderPublishDateDesc OrderBy = "publishDateDesc"
	OrderPublishDateAsc  OrderBy = "publishDateAsc"
)

// Valid reports whether o is a known ordering.
func (o OrderBy) Valid() bool {
	return o == OrderPublishDateDesc || o == OrderPublishDateAsc
}

func (o OrderBy) direction() domain.SortDirection {
	if o == OrderPublishDateAsc {
		return domain.Ascending
	}
	return domain.Descending
}

// DefaultPageSize is the page size a new controller starts with.
const DefaultPageSize = 3

// PageSizes lists the selectable page sizes.
var PageSizes = []int{3, 6, 9}

func validPageSize(n int) bool {
	for _, v := range PageSizes {
		if v == n {
			return true
		}
	}
	return false
}

// Filter is the user-selected list state. An empty Category shows every category.
type Filter struct {
	Category domain.Category `json:"category"`
	OrderBy  OrderBy         `json:"order_by"`
	PageSize int             `json:"page_size"`
}

// DefaultFilter is newest first, all categories, three per page.
func DefaultFilter() Filter {
	return Filter{OrderBy: OrderPublishDateDesc, PageSize: DefaultPageSize}
}

// Validate rejects unknown categories, orderings and page sizes.
func (f Filter) Validate() error {
	if f.Category != "" && !f.Category.Valid() {
		return &domain.ValidationError{Field: "category", Message: "unknown category " + string(f.Category)}
	}
	if !f.OrderBy.Valid() {
		return &domain.ValidationError{Field: "order_by", Message: "unknown ordering " + string(f.OrderBy)}
	}
	if !validPageSize(f.PageSize) {
		return &domain.ValidationError{Field: "page_size", Message: "page size must be one of 3, 6 or 9"}
	}
	return nil
}

// query builds the store query for f. Viewers who are not signed in only
// ever see published records.
func (f Filter) query(authenticated bool, cursorID string) domain.Query {
	var filters []domain.Filter
	if f.Category != "" {
		filters = append(filters, domain.Filter{Field: domain.FieldCategory, Op: domain.OpEqual, Value: string(f.Category)})
	}
	if !authenticated {
		filters = append(filters, domain.Filter{Field: domain.FieldIsPublished, Op: domain.OpEqual, Value: true})
	}
	return domain.Query{
		Filters:  filters,
		Sort:     &domain.Sort{Field: domain.FieldPublishDate, Direction: f.OrderBy.direction()},
		PageSize: f.PageSize,
		CursorID: cursorID,
	}
}
