package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps collections in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Recipe
	newID       func() string
	log         *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *zap.Logger) *MemoryStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryStore{
		collections: make(map[string]map[string]domain.Recipe),
		newID:       uuid.NewString,
		log:         log,
	}
}

// Create stores rec under a freshly generated id.
func (s *MemoryStore) Create(ctx context.Context, collection string, rec domain.Recipe) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewPersistenceError(opCreate, collection, "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]domain.Recipe)
		s.collections[collection] = docs
	}

	id := s.newID()
	rec = rec.Clone()
	rec.ID = id
	docs[id] = rec

	s.log.Debug("created record", zap.String("collection", collection), zap.String("id", id))
	return id, nil
}

// Read returns one page of records matching q.
func (s *MemoryStore) Read(ctx context.Context, collection string, q domain.Query) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", err)
	}
	if err := q.Validate(); err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", invalidQuery(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]

	matched := make([]domain.Recipe, 0, len(docs))
	for _, rec := range docs {
		if matchesAll(rec, q.Filters) {
			matched = append(matched, rec)
		}
	}

	less := orderFunc(q.Sort)
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	if q.CursorID != "" {
		cursor, ok := docs[q.CursorID]
		if !ok {
			return domain.Page{}, domain.NewPersistenceError(opRead, collection, q.CursorID, domain.ErrNotFound)
		}
		start := sort.Search(len(matched), func(i int) bool { return less(cursor, matched[i]) })
		matched = matched[start:]
	}

	if limit := fetchLimit(q.PageSize); limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]domain.Recipe, len(matched))
	for i, rec := range matched {
		out[i] = rec.Clone()
	}
	return trimPage(out, q.PageSize), nil
}

// Update replaces the editable fields of an existing record.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, rec domain.Recipe) error {
	if err := ctx.Err(); err != nil {
		return domain.NewPersistenceError(opUpdate, collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	if _, ok := docs[id]; !ok {
		return domain.NewPersistenceError(opUpdate, collection, id, domain.ErrNotFound)
	}

	rec = rec.Clone()
	rec.ID = id
	docs[id] = rec
	return nil
}

// Delete removes a record. Deleting an absent id is an error.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewPersistenceError(opDelete, collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	if _, ok := docs[id]; !ok {
		return domain.NewPersistenceError(opDelete, collection, id, domain.ErrNotFound)
	}
	delete(docs, id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matchesAll(rec domain.Recipe, filters []domain.Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

func matches(rec domain.Recipe, f domain.Filter) bool {
	cmp, ok := compareValues(fieldValue(rec, f.Field), storedValue(f.Value))
	if !ok {
		return false
	}
	switch f.Op {
	case domain.OpEqual:
		return cmp == 0
	case domain.OpNotEqual:
		return cmp != 0
	case domain.OpLess:
		return cmp < 0
	case domain.OpLessEqual:
		return cmp <= 0
	case domain.OpGreater:
		return cmp > 0
	case domain.OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

func fieldValue(rec domain.Recipe, field string) interface{} {
	switch field {
	case domain.FieldName:
		return rec.Name
	case domain.FieldCategory:
		return string(rec.Category)
	case domain.FieldDirections:
		return rec.Directions
	case domain.FieldPublishDate:
		return rec.PublishDate
	case domain.FieldIsPublished:
		return rec.IsPublished
	}
	return nil
}

// compareValues orders two values of the same kind. ok is false when the
// values are not comparable, in which case the filter does not match.
func compareValues(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

// orderFunc returns a strict ordering for s with ties broken by id, in the
// same direction as the sort field.
func orderFunc(s *domain.Sort) func(a, b domain.Recipe) bool {
	if s == nil {
		return func(a, b domain.Recipe) bool { return a.ID < b.ID }
	}
	desc := s.Direction == domain.Descending
	return func(a, b domain.Recipe) bool {
		cmp, _ := compareValues(fieldValue(a, s.Field), fieldValue(b, s.Field))
		if cmp == 0 {
			cmp = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	}
}
