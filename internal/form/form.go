// Package form implements the add/edit recipe form: a draft recipe bound
// either to nothing (create mode) or to an existing record (edit mode).
package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/firebase-recipes/recipes-api/internal/notice"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

// Mode of the form.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// MarshalText renders the mode as "create" or "edit".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

const (
	// DateLayout is the publish date format of the draft.
	DateLayout = "2006-01-02"
	// CommitKey adds the pending ingredient when pressed in the ingredient input.
	CommitKey = "Enter"
)

// User-visible validation messages.
const (
	MsgMissingIngredient = "Missing ingredient"
	MsgNoIngredients     = "Ingredients cannot be empty. Please add at least one ingredient."
	MsgNameRequired      = "Recipe name is required"
	MsgCategoryRequired  = "Category is required"
	MsgUnknownCategory   = "Category must be one of the listed categories"
	MsgDirectionsReq     = "Directions are required"
	MsgPublishDateReq    = "Publish date is required"
	MsgPublishDateBad    = "Publish date must be a valid date (YYYY-MM-DD)"
	MsgNoSuchIngredient  = "No such ingredient"
)

// Draft mirrors the recipe fields before validation.
type Draft struct {
	Name           string          `json:"name"`
	Category       domain.Category `json:"category"`
	Directions     string          `json:"directions"`
	PublishDate    string          `json:"publish_date"`
	Ingredients    []string        `json:"ingredients"`
	IngredientName string          `json:"ingredient_name"`
}

func (d Draft) clone() Draft {
	d.Ingredients = append([]string{}, d.Ingredients...)
	return d
}

// Fields is a partial update of the scalar draft fields; nil leaves a field alone.
type Fields struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Directions  *string `json:"directions,omitempty"`
	PublishDate *string `json:"publish_date,omitempty"`
}

// Submitter persists a built recipe.
type Submitter interface {
	AddRecipe(ctx context.Context, rec domain.Recipe) (string, error)
	UpdateRecipe(ctx context.Context, id string, rec domain.Recipe) error
}

// State is a snapshot of the form for rendering.
type State struct {
	Mode       Mode                    `json:"mode"`
	EditingID  string                  `json:"editing_id,omitempty"`
	Draft      Draft                   `json:"draft"`
	Categories []domain.CategoryOption `json:"categories"`
}

// Form is safe for concurrent use.
type Form struct {
	mu        sync.Mutex
	mode      Mode
	editingID string
	draft     Draft
	rev       uint64

	now      func() time.Time
	notifier notice.Notifier
}

// Option configures a Form.
type Option func(*Form)

// WithClock overrides the clock used for defaults and publish computation.
func WithClock(now func() time.Time) Option {
	return func(f *Form) { f.now = now }
}

// WithNotifier routes validation messages to n.
func WithNotifier(n notice.Notifier) Option {
	return func(f *Form) { f.notifier = n }
}

// New creates a form in create mode with a default draft.
func New(opts ...Option) *Form {
	f := &Form{
		now:      time.Now,
		notifier: notice.Discard,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.draft = f.defaultDraft()
	return f
}

func (f *Form) defaultDraft() Draft {
	return Draft{
		PublishDate: f.now().UTC().Format(DateLayout),
		Ingredients: []string{},
	}
}

// State returns a copy of the current form state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Mode:       f.mode,
		EditingID:  f.editingID,
		Draft:      f.draft.clone(),
		Categories: domain.Categories(),
	}
}

func (f *Form) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// EditingID is the bound record id, empty in create mode.
func (f *Form) EditingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editingID
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.clone()
}

func (f *Form) SetName(v string)        { f.update(func(d *Draft) { d.Name = v }) }
func (f *Form) SetDirections(v string)  { f.update(func(d *Draft) { d.Directions = v }) }
func (f *Form) SetPublishDate(v string) { f.update(func(d *Draft) { d.PublishDate = v }) }

func (f *Form) SetCategory(v domain.Category) {
	f.update(func(d *Draft) { d.Category = v })
}

func (f *Form) SetIngredientName(v string) {
	f.update(func(d *Draft) { d.IngredientName = v })
}

// Apply sets every non-nil field.
func (f *Form) Apply(in Fields) {
	f.update(func(d *Draft) {
		if in.Name != nil {
			d.Name = *in.Name
		}
		if in.Category != nil {
			d.Category = domain.Category(*in.Category)
		}
		if in.Directions != nil {
			d.Directions = *in.Directions
		}
		if in.PublishDate != nil {
			d.PublishDate = *in.PublishDate
		}
	})
}

// AddIngredient appends the pending ingredient name and clears it.
// An empty name is rejected and nothing changes.
func (f *Form) AddIngredient() error {
	f.mu.Lock()
	name := strings.TrimSpace(f.draft.IngredientName)
	if name == "" {
		f.mu.Unlock()
		return f.reject(&domain.ValidationError{Field: domain.FieldIngredients, Message: MsgMissingIngredient})
	}
	f.draft.Ingredients = append(f.draft.Ingredients, name)
	f.draft.IngredientName = ""
	f.rev++
	f.mu.Unlock()
	return nil
}

// HandleIngredientKey adds the pending ingredient when key is CommitKey.
// Other keys are ignored.
func (f *Form) HandleIngredientKey(key string) error {
	if key != CommitKey {
		return nil
	}
	return f.AddIngredient()
}

// RemoveIngredient drops the ingredient at index.
func (f *Form) RemoveIngredient(index int) error {
	f.mu.Lock()
	if index < 0 || index >= len(f.draft.Ingredients) {
		f.mu.Unlock()
		return f.reject(&domain.ValidationError{Field: domain.FieldIngredients, Message: MsgNoSuchIngredient})
	}
	f.draft.Ingredients = append(f.draft.Ingredients[:index:index], f.draft.Ingredients[index+1:]...)
	f.rev++
	f.mu.Unlock()
	return nil
}

// Edit binds the form to rec and seeds the draft from it.
func (f *Form) Edit(rec domain.Recipe) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mode = ModeEdit
	f.editingID = rec.ID
	f.draft = Draft{
		Name:        rec.Name,
		Category:    rec.Category,
		Directions:  rec.Directions,
		PublishDate: rec.PublishDate.UTC().Format(DateLayout),
		Ingredients: append([]string{}, rec.Ingredients...),
	}
	f.rev++
}

// Cancel leaves edit mode and restores the default draft.
func (f *Form) Cancel() {
	f.Reset()
}

// Reset returns to create mode with a default draft.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *Form) resetLocked() {
	f.mode = ModeCreate
	f.editingID = ""
	f.draft = f.defaultDraft()
	f.rev++
}

// Validate checks the current draft without building it.
func (f *Form) Validate() error {
	_, err := Build(f.Draft(), f.now())
	return err
}

// Submit validates the draft and hands the recipe to s: UpdateRecipe in
// edit mode, AddRecipe in create mode. On success the form is reset unless
// it was changed while the submission was in flight. On any failure the
// draft is left untouched.
func (f *Form) Submit(ctx context.Context, s Submitter) (string, error) {
	f.mu.Lock()
	mode, id, draft, rev := f.mode, f.editingID, f.draft.clone(), f.rev
	f.mu.Unlock()

	rec, err := Build(draft, f.now())
	if err != nil {
		return "", f.reject(err)
	}

	if mode == ModeEdit {
		err = s.UpdateRecipe(ctx, id, rec)
	} else {
		id, err = s.AddRecipe(ctx, rec)
	}
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	if f.rev == rev {
		f.resetLocked()
	}
	f.mu.Unlock()
	return id, nil
}

// Build validates d and converts it to a recipe. IsPublished is computed
// from the publish date at now; it is never taken from the draft.
func Build(d Draft, now time.Time) (domain.Recipe, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldName, Message: MsgNameRequired}
	}
	if d.Category == "" {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldCategory, Message: MsgCategoryRequired}
	}
	if !d.Category.Valid() {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldCategory, Message: MsgUnknownCategory}
	}
	if strings.TrimSpace(d.Directions) == "" {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldDirections, Message: MsgDirectionsReq}
	}
	if strings.TrimSpace(d.PublishDate) == "" {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldPublishDate, Message: MsgPublishDateReq}
	}
	publishDate, err := time.Parse(DateLayout, strings.TrimSpace(d.PublishDate))
	if err != nil {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldPublishDate, Message: MsgPublishDateBad}
	}
	if len(d.Ingredients) == 0 {
		return domain.Recipe{}, &domain.ValidationError{Field: domain.FieldIngredients, Message: MsgNoIngredients}
	}

	return domain.Recipe{
		Name:        name,
		Category:    d.Category,
		Directions:  d.Directions,
		PublishDate: publishDate,
		IsPublished: domain.IsPublishedAt(publishDate, now),
		Ingredients: append([]string{}, d.Ingredients...),
	}, nil
}

func (f *Form) update(fn func(*Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.draft)
	f.rev++
}

// reject reports a validation error to the user and returns it.
func (f *Form) reject(err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		f.notifier.Notify(notice.Error(ve.Message))
	}
	return err
}
