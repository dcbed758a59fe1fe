package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
)

const sample = `
- name: Banana bread
  category: dessertsAndBakedGoods
  directions: Mash, mix, bake.
  publishDate: 2024-05-01
  ingredients: [bananas, flour, sugar]
- name: Kedgeree
  category: fishAndSeafood
  directions: Flake the haddock.
  publishDate: "2024-09-01"
  ingredients:
    - haddock
    - rice
`

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestParseAndBuild(t *testing.T) {
	entries, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-05-01", entries[0].PublishDate)

	recs, err := Build(entries, now)
	require.NoError(t, err)
	assert.True(t, recs[0].IsPublished)
	assert.False(t, recs[1].IsPublished)
	assert.Equal(t, domain.CategoryFishAndSeafood, recs[1].Category)
	assert.Equal(t, []string{"haddock", "rice"}, recs[1].Ingredients)
}

func TestParse_Empty(t *testing.T) {
	entries, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("- name: x\n  calories: 100\n"))
	assert.Error(t, err)
}

func TestBuild_RejectsInvalidEntry(t *testing.T) {
	_, err := Build([]YRecipe{{Name: "No ingredients", Category: "vegetables", Directions: "x", PublishDate: "2024-01-01"}}, now)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "recipe 1")
}

func TestLoad(t *testing.T) {
	entries, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	recs, err := Build(entries, now)
	require.NoError(t, err)

	mem := store.NewMemoryStore(nil)
	ids, err := Load(context.Background(), mem, recs, nil)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	page, err := mem.Read(context.Background(), domain.CollectionRecipes, domain.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
}

func TestParseFile(t *testing.T) {
	entries, err := ParseFile("testdata/recipes.yaml")
	require.NoError(t, err)
	recs, err := Build(entries, now)
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.False(t, recs[4].IsPublished)
}
