// Package catalog is the single owner of a view's catalog state: who is
// signed in, the filter, the accumulated list and the editable form.
//
// Every fetch is tagged with a generation number. Only the response to the
// most recently issued fetch is applied; earlier responses are dropped.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/form"
	"github.com/firebase-recipes/recipes-api/internal/notice"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
	"github.com/firebase-recipes/recipes-api/internal/session"
)

var (
	ErrLoadInProgress     = errors.New("catalog: a page is already loading")
	ErrDeleteNotConfirmed = errors.New("catalog: delete not confirmed")
	ErrClosed             = errors.New("catalog: controller closed")
)

// DeletePrompt is the question a Confirmer must accept before a delete.
const DeletePrompt = "Are you sure you want to delete this recipe?"

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

var _ form.Submitter = (*Controller)(nil)

// Controller is safe for concurrent use. Its lock is never held across a
// store call.
type Controller struct {
	store      store.Store
	source     session.Source
	collection string
	log        *zap.Logger
	notifier   notice.Notifier
	now        func() time.Time
	form       *form.Form

	mu          sync.Mutex
	baseCtx     context.Context
	started     bool
	closed      bool
	unsubscribe session.Unsubscribe
	user        *session.User
	filter      Filter
	records     []domain.Recipe
	hasMore     bool
	inFlight    int
	generation  uint64
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithNotifier(n notice.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithClock overrides the clock used by the form for defaults and publish
// computation.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithCollection overrides the store collection (default "recipes").
func WithCollection(name string) Option {
	return func(c *Controller) { c.collection = name }
}

// New creates a controller. Nothing is fetched until Start.
func New(st store.Store, source session.Source, opts ...Option) *Controller {
	c := &Controller{
		store:      st,
		source:     source,
		collection: domain.CollectionRecipes,
		log:        zap.NewNop(),
		notifier:   notice.Discard,
		now:        time.Now,
		filter:     DefaultFilter(),
		records:    []domain.Recipe{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.form = form.New(form.WithClock(c.now), form.WithNotifier(c.notifier))
	return c
}

// Start subscribes to the session source and loads the first page under
// ctx. Fetches triggered by later session changes keep ctx's values but not
// its cancellation.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.baseCtx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	unsubscribe := c.source.Subscribe(c.onSession)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.started = true
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Close releases the session subscription and drops any in-flight response.
// Calling it more than once is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe == nil {
		return
	}
	if err := unsubscribe(); err != nil {
		c.log.Warn("session unsubscribe failed", zap.Error(err))
	}
}

// onSession receives session changes. The call made during Subscribe only
// records the user; Start issues the first fetch itself.
func (c *Controller) onSession(u *session.User) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !c.started {
		c.user = u
		c.mu.Unlock()
		return
	}
	ctx := c.baseCtx
	c.mu.Unlock()

	if err := c.SetUser(ctx, u); err != nil {
		c.log.Warn("refresh after session change failed", zap.Error(err))
	}
}

// SetUser switches the signed-in user. A change of identity reloads the
// list; signing out also abandons any edit in progress.
func (c *Controller) SetUser(ctx context.Context, u *session.User) error {
	c.mu.Lock()
	if session.SameIdentity(c.user, u) {
		c.user = u
		c.mu.Unlock()
		return nil
	}
	c.user = u
	c.mu.Unlock()

	if u == nil {
		c.form.Reset()
	}
	c.log.Debug("session changed", zap.Bool("authenticated", u != nil))
	return c.Refresh(ctx)
}

// User returns the signed-in user, or nil.
func (c *Controller) User() *session.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Filter returns the current filter.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) SetCategoryFilter(ctx context.Context, category domain.Category) error {
	f := c.Filter()
	f.Category = category
	return c.ApplyFilter(ctx, f)
}

func (c *Controller) SetOrderBy(ctx context.Context, order OrderBy) error {
	f := c.Filter()
	f.OrderBy = order
	return c.ApplyFilter(ctx, f)
}

func (c *Controller) SetPageSize(ctx context.Context, size int) error {
	f := c.Filter()
	f.PageSize = size
	return c.ApplyFilter(ctx, f)
}

// ApplyFilter replaces the whole filter. An invalid filter changes nothing;
// an unchanged filter does not refetch.
func (c *Controller) ApplyFilter(ctx context.Context, f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.filter == f {
		c.mu.Unlock()
		return nil
	}
	c.filter = f
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Loading reports whether any fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Records returns a copy of the accumulated list.
func (c *Controller) Records() []domain.Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Recipe, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// fetchMode says what a fetch does with the list already loaded.
type fetchMode int

const (
	// fetchReset clears the list when the fetch is issued.
	fetchReset fetchMode = iota
	// fetchReload keeps the list until the first page arrives.
	fetchReload
	fetchAppend
)

// Refresh clears the list and loads the first page.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.fetch(ctx, fetchReset)
}

// LoadMore appends the page after the last loaded record. With nothing
// loaded it behaves like Refresh.
func (c *Controller) LoadMore(ctx context.Context) error {
	return c.fetch(ctx, fetchAppend)
}

func (c *Controller) fetch(ctx context.Context, mode fetchMode) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if mode == fetchAppend {
		if c.inFlight > 0 {
			c.mu.Unlock()
			return ErrLoadInProgress
		}
		if len(c.records) == 0 {
			mode = fetchReset
		}
	}

	cursor := ""
	switch mode {
	case fetchAppend:
		cursor = c.records[len(c.records)-1].ID
	case fetchReset:
		c.records = []domain.Recipe{}
		c.hasMore = false
	}
	c.generation++
	gen := c.generation
	q := c.filter.query(c.user != nil, cursor)
	c.inFlight++
	c.mu.Unlock()

	page, err := c.store.Read(ctx, c.collection, q)

	c.mu.Lock()
	c.inFlight--
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug("discarding stale page", zap.Uint64("generation", gen))
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Error("fetch recipes failed", zap.Error(err), zap.String("cursor", cursor))
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error fetching recipes: %s", err)))
		return err
	}
	if mode == fetchAppend {
		c.records = append(c.records, page.Records...)
	} else {
		c.records = append([]domain.Recipe{}, page.Records...)
	}
	c.hasMore = page.HasMore
	n := len(c.records)
	c.mu.Unlock()

	c.log.Debug("fetched recipes",
		zap.Int("page", len(page.Records)),
		zap.Int("total", n),
		zap.Bool("has_more", page.HasMore),
	)
	return nil
}

func (c *Controller) requireUser() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.user == nil {
		return domain.ErrPermissionDenied
	}
	return nil
}

// refreshAfterMutation reloads from the first page, keeping the current list
// on screen until the page arrives. A failed reload has already been reported
// and does not fail the mutation.
func (c *Controller) refreshAfterMutation(ctx context.Context) {
	if err := c.fetch(ctx, fetchReload); err != nil && !errors.Is(err, ErrClosed) {
		c.log.Warn("refresh after mutation failed", zap.Error(err))
	}
}

// AddRecipe creates rec and reloads the list.
func (c *Controller) AddRecipe(ctx context.Context, rec domain.Recipe) (string, error) {
	if err := c.requireUser(); err != nil {
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error adding recipe: %s", err)))
		return "", err
	}
	id, err := c.store.Create(ctx, c.collection, rec)
	if err != nil {
		c.log.Error("add recipe failed", zap.Error(err))
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error adding recipe: %s", err)))
		return "", err
	}
	c.refreshAfterMutation(ctx)
	c.notifier.Notify(notice.Info(fmt.Sprintf("Successfully created a recipe with an ID = %s", id)))
	return id, nil
}

// UpdateRecipe overwrites the record id with rec and reloads the list.
func (c *Controller) UpdateRecipe(ctx context.Context, id string, rec domain.Recipe) error {
	if err := c.requireUser(); err != nil {
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error updating recipe: %s", err)))
		return err
	}
	if err := c.store.Update(ctx, c.collection, id, rec); err != nil {
		c.log.Error("update recipe failed", zap.String("id", id), zap.Error(err))
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error updating recipe: %s", err)))
		return err
	}
	c.refreshAfterMutation(ctx)
	c.notifier.Notify(notice.Info(fmt.Sprintf("Successfully updated recipe with an ID = %s", id)))
	return nil
}

// DeleteRecipe removes id after confirm accepts DeletePrompt. Deleting a
// record that no longer exists is reported as information, not an error.
func (c *Controller) DeleteRecipe(ctx context.Context, id string, confirm Confirmer) error {
	if err := c.requireUser(); err != nil {
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error deleting recipe: %s", err)))
		return err
	}
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return ErrDeleteNotConfirmed
	}

	err := c.store.Delete(ctx, c.collection, id)
	switch {
	case domain.IsNotFound(err):
		c.log.Info("delete of missing recipe", zap.String("id", id))
		c.resetFormIfEditing(id)
		c.refreshAfterMutation(ctx)
		c.notifier.Notify(notice.Info(fmt.Sprintf("Recipe with an ID = %s was already deleted", id)))
		return nil
	case err != nil:
		c.log.Error("delete recipe failed", zap.String("id", id), zap.Error(err))
		c.notifier.Notify(notice.Error(fmt.Sprintf("Error deleting recipe: %s", err)))
		return err
	}

	c.resetFormIfEditing(id)
	c.refreshAfterMutation(ctx)
	c.notifier.Notify(notice.Info(fmt.Sprintf("Successfully deleted a recipe with an ID = %s", id)))
	return nil
}

func (c *Controller) resetFormIfEditing(id string) {
	if c.form.Mode() == form.ModeEdit && c.form.EditingID() == id {
		c.form.Reset()
	}
}

// EditRecipe puts the form into edit mode for a loaded record. It reports
// false, changing nothing, when no user is signed in or id is not loaded.
func (c *Controller) EditRecipe(id string) bool {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return false
	}
	var (
		rec   domain.Recipe
		found bool
	)
	for _, r := range c.records {
		if r.ID == id {
			rec, found = r.Clone(), true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return false
	}
	c.form.Edit(rec)
	return true
}

// CancelEdit leaves edit mode.
func (c *Controller) CancelEdit() {
	c.form.Cancel()
}

// SubmitForm submits the form through the controller.
func (c *Controller) SubmitForm(ctx context.Context) (string, error) {
	return c.form.Submit(ctx, c)
}

// Form exposes the editable form.
func (c *Controller) Form() *form.Form {
	return c.form
}

// Snapshot renders the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	authenticated := c.user != nil
	snap := Snapshot{
		Filter:  c.filter,
		Cards:   make([]Card, 0, len(c.records)),
		Loading: c.inFlight > 0,
		HasMore: c.hasMore,
	}
	if c.user != nil {
		u := *c.user
		snap.User = &u
	}
	for _, r := range c.records {
		snap.Cards = append(snap.Cards, renderCard(r, authenticated))
	}
	c.mu.Unlock()

	snap.Form = c.form.State()
	return snap
}
