package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

var _ Store = (*FirestoreStore)(nil)

// FirestoreStore reads and writes recipes in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	log    *zap.Logger
}

// NewFirestoreStore wraps an existing Firestore client. The caller owns the client.
func NewFirestoreStore(client *firestore.Client, log *zap.Logger) *FirestoreStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FirestoreStore{client: client, log: log}
}

// recipeDoc is the document layout in the recipes collection.
type recipeDoc struct {
	Name        string    `firestore:"name"`
	Category    string    `firestore:"category"`
	Directions  string    `firestore:"directions"`
	PublishDate time.Time `firestore:"publishDate"`
	IsPublished bool      `firestore:"isPublished"`
	Ingredients []string  `firestore:"ingredients"`
}

func toDoc(rec domain.Recipe) recipeDoc {
	ingredients := rec.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return recipeDoc{
		Name:        rec.Name,
		Category:    string(rec.Category),
		Directions:  rec.Directions,
		PublishDate: rec.PublishDate.UTC(),
		IsPublished: rec.IsPublished,
		Ingredients: ingredients,
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (domain.Recipe, error) {
	var doc recipeDoc
	if err := snap.DataTo(&doc); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
	}
	return domain.Recipe{
		ID:          snap.Ref.ID,
		Name:        doc.Name,
		Category:    domain.Category(doc.Category),
		Directions:  doc.Directions,
		PublishDate: doc.PublishDate.UTC(),
		IsPublished: doc.IsPublished,
		Ingredients: doc.Ingredients,
	}, nil
}

// Create adds a document and returns the id Firestore assigned.
func (s *FirestoreStore) Create(ctx context.Context, collection string, rec domain.Recipe) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, toDoc(rec))
	if err != nil {
		return "", domain.NewPersistenceError(opCreate, collection, "", translateFirestoreErr(err))
	}
	s.log.Debug("created document", zap.String("collection", collection), zap.String("id", ref.ID))
	return ref.ID, nil
}

// Read runs q against the collection. The cursor document is fetched first
// so the page can start after its snapshot.
func (s *FirestoreStore) Read(ctx context.Context, collection string, q domain.Query) (domain.Page, error) {
	if err := q.Validate(); err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", invalidQuery(err))
	}

	coll := s.client.Collection(collection)
	query := coll.Query

	for _, f := range q.Filters {
		query = query.Where(f.Field, string(f.Op), storedValue(f.Value))
	}

	if q.Sort != nil {
		dir := firestore.Asc
		if q.Sort.Direction == domain.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.Sort.Field, dir)
	}

	if q.CursorID != "" {
		cursor, err := coll.Doc(q.CursorID).Get(ctx)
		if err != nil {
			return domain.Page{}, domain.NewPersistenceError(opRead, collection, q.CursorID, translateFirestoreErr(err))
		}
		query = query.StartAfter(cursor)
	}

	if limit := fetchLimit(q.PageSize); limit > 0 {
		query = query.Limit(limit)
	}

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return domain.Page{}, domain.NewPersistenceError(opRead, collection, "", translateFirestoreErr(err))
	}

	records := make([]domain.Recipe, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := fromSnapshot(snap)
		if err != nil {
			return domain.Page{}, domain.NewPersistenceError(opRead, collection, snap.Ref.ID, err)
		}
		records = append(records, rec)
	}

	return trimPage(records, q.PageSize), nil
}

// Update overwrites the editable fields. Firestore rejects updates to
// missing documents, which surfaces as domain.ErrNotFound.
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, rec domain.Recipe) error {
	doc := toDoc(rec)
	updates := []firestore.Update{
		{Path: domain.FieldName, Value: doc.Name},
		{Path: domain.FieldCategory, Value: doc.Category},
		{Path: domain.FieldDirections, Value: doc.Directions},
		{Path: domain.FieldPublishDate, Value: doc.PublishDate},
		{Path: domain.FieldIsPublished, Value: doc.IsPublished},
		{Path: domain.FieldIngredients, Value: doc.Ingredients},
	}

	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return domain.NewPersistenceError(opUpdate, collection, id, translateFirestoreErr(err))
	}
	return nil
}

// Delete removes the document, failing when it does not exist.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return domain.NewPersistenceError(opDelete, collection, id, translateFirestoreErr(err))
	}
	return nil
}

// translateFirestoreErr maps gRPC status codes onto the domain sentinels.
func translateFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, status.Convert(err).Message())
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, status.Convert(err).Message())
	case codes.FailedPrecondition, codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidQuery, status.Convert(err).Message())
	}
	return err
}

// Ping reads at most one document of the recipes collection.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	it := s.client.Collection(domain.CollectionRecipes).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return translateFirestoreErr(err)
	}
	return nil
}
