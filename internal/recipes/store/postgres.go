package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps each collection in a table of the same name.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresStore wraps an open pool. The caller owns the pool.
func NewPostgresStore(pool *pgxpool.Pool, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{pool: pool, log: log}
}

const recipesSchema = `
create table if not exists recipes (
    id            text primary key,
    name          text not null,
    category      text not null,
    directions    text not null,
    publish_date  timestamptz not null,
    is_published  boolean not null default false,
    ingredients   text[] not null default '{}',
    created_at    timestamptz not null default now(),
    updated_at    timestamptz not null default now()
);
create index if not exists idx_recipes_publish_date on recipes (publish_date, id);
create index if not exists idx_recipes_category on recipes (category);
create index if not exists idx_recipes_is_published on recipes (is_published);
`

// tables lists the collections this store can serve.
var tables = map[string]bool{
	domain.CollectionRecipes: true,
}

var columns = map[string]string{
	domain.FieldName:        "name",
	domain.FieldCategory:    "category",
	domain.FieldDirections:  "directions",
	domain.FieldPublishDate: "publish_date",
	domain.FieldIsPublished: "is_published",
	domain.FieldIngredients: "ingredients",
}

var sqlOperators = map[domain.Operator]string{
	domain.OpEqual:        "=",
	domain.OpNotEqual:     "<>",
	domain.OpLess:         "<",
	domain.OpLessEqual:    "<=",
	domain.OpGreater:      ">",
	domain.OpGreaterEqual: ">=",
}

const selectColumns = `id, name, category, directions, publish_date, is_published, ingredients`

// EnsureSchema creates the recipes table and its indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, recipesSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping checks the pool can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, collection string, rec domain.Recipe) (string, error) {
	if !tables[collection] {
		return "", domain.NewPersistenceError(opCreate, collection, "", unknownCollection(collection))
	}

	id := uuid.NewString()
	q := fmt.Sprintf(`
insert into %s (id, name, category, directions, publish_date, is_published, ingredients)
values ($1, $2, $3, $4, $5, $6, $7)
returning id;
`, collection)

	var out string
	err := s.pool.QueryRow(ctx, q,
		id,
		rec.Name,
		string(rec.Category),
		rec.Directions,
		rec.PublishDate.UTC(),
		rec.IsPublished,
		ingredientsOrEmpty(rec.Ingredients),
	).Scan(&out)
	if err != nil {
		return "", domain.NewPersistenceError(opCreate, collection, "", translatePgErr(err))
	}
	return out, nil
}

func (s *PostgresStore) Read(ctx context.Context, collection string, q domain.Query) (domain.Page, error) {
	if !tables[collection] {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", unknownCollection(collection))
	}
	if err := q.Validate(); err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", invalidQuery(err))
	}

	sortCol, dir := "id", "asc"
	if q.Sort != nil {
		sortCol = columns[q.Sort.Field]
		if q.Sort.Direction == domain.Descending {
			dir = "desc"
		}
	}

	var cursor []interface{}
	if q.CursorID != "" {
		c, err := s.cursorValues(ctx, collection, sortCol, q.CursorID)
		if err != nil {
			return domain.Page{}, domain.NewPersistenceError(opRead, collection, q.CursorID, err)
		}
		cursor = c
	}

	sql, args := buildSelect(collection, q, sortCol, dir, cursor)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", translatePgErr(err))
	}
	defer rows.Close()

	records := make([]domain.Recipe, 0, q.PageSize+1)
	for rows.Next() {
		var rec domain.Recipe
		var category string
		if err := rows.Scan(&rec.ID, &rec.Name, &category, &rec.Directions, &rec.PublishDate, &rec.IsPublished, &rec.Ingredients); err != nil {
			return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", err)
		}
		rec.Category = domain.Category(category)
		rec.PublishDate = rec.PublishDate.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", translatePgErr(err))
	}

	return trimPage(records, q.PageSize), nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, rec domain.Recipe) error {
	if !tables[collection] {
		return domain.NewPersistenceError(opUpdate, collection, id, unknownCollection(collection))
	}

	q := fmt.Sprintf(`
update %s
set name = $2, category = $3, directions = $4, publish_date = $5,
    is_published = $6, ingredients = $7, updated_at = now()
where id = $1;
`, collection)

	ct, err := s.pool.Exec(ctx, q,
		id,
		rec.Name,
		string(rec.Category),
		rec.Directions,
		rec.PublishDate.UTC(),
		rec.IsPublished,
		ingredientsOrEmpty(rec.Ingredients),
	)
	if err != nil {
		return domain.NewPersistenceError(opUpdate, collection, id, translatePgErr(err))
	}
	if ct.RowsAffected() == 0 {
		return domain.NewPersistenceError(opUpdate, collection, id, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if !tables[collection] {
		return domain.NewPersistenceError(opDelete, collection, id, unknownCollection(collection))
	}

	ct, err := s.pool.Exec(ctx, fmt.Sprintf(`delete from %s where id = $1;`, collection), id)
	if err != nil {
		return domain.NewPersistenceError(opDelete, collection, id, translatePgErr(err))
	}
	if ct.RowsAffected() == 0 {
		return domain.NewPersistenceError(opDelete, collection, id, domain.ErrNotFound)
	}
	return nil
}

// cursorValues loads the sort key of the cursor row. The row does not have
// to match the query's filters.
func (s *PostgresStore) cursorValues(ctx context.Context, collection, sortCol, id string) ([]interface{}, error) {
	q := fmt.Sprintf(`select %s, id from %s where id = $1;`, sortCol, collection)

	var key interface{}
	var cursorID string
	err := s.pool.QueryRow(ctx, q, id).Scan(&key, &cursorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, translatePgErr(err)
	}
	if sortCol == "id" {
		return []interface{}{cursorID}, nil
	}
	return []interface{}{key, cursorID}, nil
}

// buildSelect renders the page query. Keyset pagination compares the
// (sort column, id) tuple against the cursor row so pages stay stable under
// concurrent inserts.
func buildSelect(table string, q domain.Query, sortCol, dir string, cursor []interface{}) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		where = append(where, fmt.Sprintf("%s %s %s", columns[f.Field], sqlOperators[f.Op], bind(storedValue(f.Value))))
	}

	cmp := ">"
	if dir == "desc" {
		cmp = "<"
	}
	switch len(cursor) {
	case 1:
		where = append(where, fmt.Sprintf("id %s %s", cmp, bind(cursor[0])))
	case 2:
		where = append(where, fmt.Sprintf("(%s, id) %s (%s, %s)", sortCol, cmp, bind(cursor[0]), bind(cursor[1])))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "select %s from %s", selectColumns, table)
	if len(where) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(where, " and "))
	}
	if sortCol == "id" {
		fmt.Fprintf(&b, " order by id %s", dir)
	} else {
		fmt.Fprintf(&b, " order by %s %s, id %s", sortCol, dir, dir)
	}
	if limit := fetchLimit(q.PageSize); limit > 0 {
		fmt.Fprintf(&b, " limit %d", limit)
	}
	return b.String(), args
}

func ingredientsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func unknownCollection(name string) error {
	return fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidQuery, name)
}

// translatePgErr maps Postgres error codes onto the domain sentinels.
func translatePgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501": // insufficient_privilege
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, pgErr.Message)
		case "22P02", "42883": // invalid_text_representation, undefined_function
			return fmt.Errorf("%w: %s", domain.ErrInvalidQuery, pgErr.Message)
		}
	}
	return err
}
