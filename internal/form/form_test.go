package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebase-recipes/recipes-api/internal/notice"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

var june1 = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return june1 }

type fakeSubmitter struct {
	added   []domain.Recipe
	updated map[string]domain.Recipe
	err     error
}

func (s *fakeSubmitter) AddRecipe(_ context.Context, rec domain.Recipe) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.added = append(s.added, rec)
	return "new-id", nil
}

func (s *fakeSubmitter) UpdateRecipe(_ context.Context, id string, rec domain.Recipe) error {
	if s.err != nil {
		return s.err
	}
	if s.updated == nil {
		s.updated = map[string]domain.Recipe{}
	}
	s.updated[id] = rec
	return nil
}

func newTestForm(t *testing.T) (*Form, *notice.Inbox) {
	t.Helper()
	inbox := notice.NewInbox(0)
	return New(WithClock(fixedClock), WithNotifier(inbox)), inbox
}

func fillValid(f *Form) {
	f.SetName("Pancakes")
	f.SetCategory(domain.CategoryEggsAndBreakfast)
	f.SetDirections("Mix and fry.")
	f.SetPublishDate("2024-05-01")
	f.SetIngredientName("2 eggs")
	_ = f.AddIngredient()
}

func TestNew_DefaultDraft(t *testing.T) {
	f, _ := newTestForm(t)
	st := f.State()

	assert.Equal(t, ModeCreate, st.Mode)
	assert.Empty(t, st.EditingID)
	assert.Equal(t, "2024-06-01", st.Draft.PublishDate)
	assert.Empty(t, st.Draft.Name)
	assert.Empty(t, st.Draft.Ingredients)
	assert.Len(t, st.Categories, 5)
}

func TestAddIngredient(t *testing.T) {
	f, inbox := newTestForm(t)

	err := f.AddIngredient()
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgMissingIngredient, ve.Message)
	assert.Equal(t, MsgMissingIngredient, inbox.Drain()[0].Message)
	assert.Empty(t, f.Draft().Ingredients)

	f.SetIngredientName("1 cup of sugar")
	require.NoError(t, f.AddIngredient())
	d := f.Draft()
	assert.Equal(t, []string{"1 cup of sugar"}, d.Ingredients)
	assert.Empty(t, d.IngredientName)
}

func TestHandleIngredientKey_OnlyCommitKeyAdds(t *testing.T) {
	f, _ := newTestForm(t)
	f.SetIngredientName("salt")

	require.NoError(t, f.HandleIngredientKey("a"))
	assert.Empty(t, f.Draft().Ingredients)

	require.NoError(t, f.HandleIngredientKey(CommitKey))
	assert.Equal(t, []string{"salt"}, f.Draft().Ingredients)

	assert.Error(t, f.HandleIngredientKey(CommitKey), "empty name on commit is rejected")
}

func TestRemoveIngredient(t *testing.T) {
	f, _ := newTestForm(t)
	for _, name := range []string{"a", "b", "c"} {
		f.SetIngredientName(name)
		require.NoError(t, f.AddIngredient())
	}

	require.NoError(t, f.RemoveIngredient(1))
	assert.Equal(t, []string{"a", "c"}, f.Draft().Ingredients)
	assert.Error(t, f.RemoveIngredient(5))
	assert.Error(t, f.RemoveIngredient(-1))
}

func TestSubmit_ZeroIngredientsRejectedDraftIntact(t *testing.T) {
	f, inbox := newTestForm(t)
	f.SetName("Toast")
	f.SetCategory(domain.CategoryBreadsSandwichesAndPizza)
	f.SetDirections("Toast it.")
	f.SetPublishDate("2024-05-01")

	sub := &fakeSubmitter{}
	_, err := f.Submit(context.Background(), sub)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgNoIngredients, ve.Message)
	assert.Empty(t, sub.added, "no backend call on validation failure")
	assert.Equal(t, MsgNoIngredients, inbox.Drain()[0].Message)

	d := f.Draft()
	assert.Equal(t, "Toast", d.Name)
	assert.Equal(t, domain.CategoryBreadsSandwichesAndPizza, d.Category)
	assert.Equal(t, "Toast it.", d.Directions)
	assert.Equal(t, "2024-05-01", d.PublishDate)
}

func TestBuild_RequiredFields(t *testing.T) {
	valid := Draft{
		Name:        "Soup",
		Category:    domain.CategoryVegetables,
		Directions:  "Boil.",
		PublishDate: "2024-05-01",
		Ingredients: []string{"water"},
	}
	_, err := Build(valid, june1)
	require.NoError(t, err)

	cases := []struct {
		name  string
		mut   func(*Draft)
		field string
	}{
		{"name", func(d *Draft) { d.Name = "  " }, domain.FieldName},
		{"category", func(d *Draft) { d.Category = "" }, domain.FieldCategory},
		{"unknown category", func(d *Draft) { d.Category = "pasta" }, domain.FieldCategory},
		{"directions", func(d *Draft) { d.Directions = "" }, domain.FieldDirections},
		{"publish date", func(d *Draft) { d.PublishDate = "" }, domain.FieldPublishDate},
		{"bad publish date", func(d *Draft) { d.PublishDate = "01/05/2024" }, domain.FieldPublishDate},
		{"ingredients", func(d *Draft) { d.Ingredients = nil }, domain.FieldIngredients},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid.clone()
			tc.mut(&d)
			_, err := Build(d, june1)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestBuild_ComputesIsPublished(t *testing.T) {
	d := Draft{Name: "x", Category: domain.CategoryVegetables, Directions: "y", Ingredients: []string{"z"}}

	d.PublishDate = "2024-06-02"
	rec, err := Build(d, june1)
	require.NoError(t, err)
	assert.False(t, rec.IsPublished)

	d.PublishDate = "2024-05-01"
	rec, err = Build(d, june1)
	require.NoError(t, err)
	assert.True(t, rec.IsPublished)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), rec.PublishDate)

	d.PublishDate = "2024-06-01"
	rec, err = Build(d, june1)
	require.NoError(t, err)
	assert.True(t, rec.IsPublished, "today counts as published")
}

func TestSubmit_CreateModeAddsAndResets(t *testing.T) {
	f, _ := newTestForm(t)
	fillValid(f)

	sub := &fakeSubmitter{}
	id, err := f.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)

	require.Len(t, sub.added, 1)
	assert.Equal(t, "Pancakes", sub.added[0].Name)
	assert.True(t, sub.added[0].IsPublished)
	assert.Empty(t, sub.added[0].ID)

	assert.Equal(t, ModeCreate, f.Mode())
	assert.Empty(t, f.Draft().Name)
}

func TestSubmit_EditModeUpdatesAndResets(t *testing.T) {
	f, _ := newTestForm(t)
	f.Edit(domain.Recipe{
		ID:          "r1",
		Name:        "Old",
		Category:    domain.CategoryVegetables,
		Directions:  "Chop.",
		PublishDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		IsPublished: true,
		Ingredients: []string{"kale"},
	})
	f.SetName("New")

	sub := &fakeSubmitter{}
	id, err := f.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	rec := sub.updated["r1"]
	assert.Equal(t, "New", rec.Name)
	assert.False(t, rec.IsPublished, "stale published flag is recomputed")
	assert.Equal(t, ModeCreate, f.Mode())
	assert.Empty(t, f.EditingID())
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	f, _ := newTestForm(t)
	fillValid(f)
	before := f.Draft()

	_, err := f.Submit(context.Background(), &fakeSubmitter{err: errors.New("offline")})
	require.Error(t, err)
	assert.Equal(t, before, f.Draft())
	assert.Equal(t, ModeCreate, f.Mode())
}

func TestEditThenCancelRestoresDefaults(t *testing.T) {
	f, _ := newTestForm(t)
	f.Edit(domain.Recipe{
		ID:          "x",
		Name:        "Fish pie",
		Category:    domain.CategoryFishAndSeafood,
		Directions:  "Bake.",
		PublishDate: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Ingredients: []string{"cod"},
	})
	st := f.State()
	require.Equal(t, ModeEdit, st.Mode)
	assert.Equal(t, "x", st.EditingID)
	assert.Equal(t, "2023-01-02", st.Draft.PublishDate)
	assert.Equal(t, []string{"cod"}, st.Draft.Ingredients)

	f.Cancel()
	st = f.State()
	assert.Equal(t, ModeCreate, st.Mode)
	assert.Empty(t, st.EditingID)
	assert.Equal(t, Draft{PublishDate: "2024-06-01", Ingredients: []string{}}, st.Draft)
}

func TestEdit_DraftDoesNotAliasRecipe(t *testing.T) {
	f, _ := newTestForm(t)
	rec := domain.Recipe{ID: "x", Ingredients: []string{"a"}}
	f.Edit(rec)
	f.SetIngredientName("b")
	require.NoError(t, f.AddIngredient())

	assert.Equal(t, []string{"a"}, rec.Ingredients)
}

func TestApply(t *testing.T) {
	f, _ := newTestForm(t)
	name, cat := "Stew", "vegetables"
	f.Apply(Fields{Name: &name, Category: &cat})

	d := f.Draft()
	assert.Equal(t, "Stew", d.Name)
	assert.Equal(t, domain.CategoryVegetables, d.Category)
	assert.Equal(t, "2024-06-01", d.PublishDate)
}
