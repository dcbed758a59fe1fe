// Package store is the record store adapter: the only place that speaks a
// backend's query vocabulary. Every backend returns *domain.PersistenceError
// on failure and never retries.
package store

import (
	"context"
	"fmt"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

// Store is the create/read/update/delete contract used by the catalog.
type Store interface {
	Create(ctx context.Context, collection string, rec domain.Recipe) (string, error)
	Read(ctx context.Context, collection string, q domain.Query) (domain.Page, error)
	Update(ctx context.Context, collection, id string, rec domain.Recipe) error
	Delete(ctx context.Context, collection, id string) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Operation names used in PersistenceError.Op.
const (
	opCreate = "create"
	opRead   = "read"
	opUpdate = "update"
	opDelete = "delete"
)

// fetchLimit is the number of records to request for a page: one extra
// record tells us whether another page exists.
func fetchLimit(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return pageSize + 1
}

// trimPage cuts records down to pageSize and reports whether more exist.
func trimPage(records []domain.Recipe, pageSize int) domain.Page {
	if records == nil {
		records = []domain.Recipe{}
	}
	if pageSize > 0 && len(records) > pageSize {
		return domain.Page{Records: records[:pageSize], HasMore: true}
	}
	return domain.Page{Records: records}
}

func invalidQuery(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
}

// storedValue converts a filter value into the representation backends store.
func storedValue(v interface{}) interface{} {
	switch x := v.(type) {
	case domain.Category:
		return string(x)
	default:
		return v
	}
}
