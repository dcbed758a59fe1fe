package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCategoryLabel(t *testing.T) {
	assert.Equal(t, "Vegetables", LookupCategoryLabel("vegetables"))
	assert.Equal(t, "Eggs & Breakfast", LookupCategoryLabel(CategoryEggsAndBreakfast))
	assert.Equal(t, UnknownCategoryLabel, LookupCategoryLabel("unknownKey"))
	assert.Equal(t, UnknownCategoryLabel, LookupCategoryLabel(""))
}

func TestCategoriesTableHasUniqueKeys(t *testing.T) {
	seen := map[Category]bool{}
	for _, opt := range Categories() {
		require.False(t, seen[opt.Key], "duplicate key %s", opt.Key)
		seen[opt.Key] = true
		assert.True(t, opt.Key.Valid())
		assert.Equal(t, opt.Label, LookupCategoryLabel(opt.Key))
	}
	assert.Len(t, seen, 5)
	assert.False(t, Category("pasta").Valid())
}

func TestFormatDate(t *testing.T) {
	t.Run("uses day/month/year", func(t *testing.T) {
		d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "5/3/2024", FormatDate(d))
	})

	t.Run("uses UTC calendar fields", func(t *testing.T) {
		// 2024-03-05 01:00 UTC is still March 4th in New York.
		ny := time.FixedZone("EST", -5*60*60)
		d := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC).In(ny)
		assert.Equal(t, 4, d.Day())
		assert.Equal(t, "5/3/2024", FormatDate(d))
	})
}

func TestIsPublishedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsPublishedAt(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), now))
	assert.True(t, IsPublishedAt(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), now))
	assert.True(t, IsPublishedAt(now, now))
}

func TestQueryValidate(t *testing.T) {
	ok := Query{
		Filters:  []Filter{{Field: FieldCategory, Op: OpEqual, Value: "vegetables"}},
		Sort:     &Sort{Field: FieldPublishDate, Direction: Descending},
		PageSize: 3,
	}
	require.NoError(t, ok.Validate())

	cases := map[string]Query{
		"unknown field":  {Filters: []Filter{{Field: "owner", Op: OpEqual, Value: "x"}}},
		"bad operator":   {Filters: []Filter{{Field: FieldName, Op: "~=", Value: "x"}}},
		"bad direction":  {Sort: &Sort{Field: FieldPublishDate, Direction: "sideways"}},
		"array sort":     {Sort: &Sort{Field: FieldIngredients, Direction: Ascending}},
		"negative limit": {PageSize: -1},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, q.Validate())
		})
	}
}

func TestPersistenceError(t *testing.T) {
	err := NewPersistenceError("delete", CollectionRecipes, "r1", ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "delete recipes/r1: record not found", err.Error())

	var pe *PersistenceError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe))
	assert.Equal(t, "r1", pe.ID)

	// Already-wrapped errors are not wrapped twice.
	assert.Same(t, err, NewPersistenceError("read", CollectionRecipes, "", err))
	assert.Nil(t, NewPersistenceError("read", CollectionRecipes, "", nil))
}

func TestRecipeClone(t *testing.T) {
	r := Recipe{Name: "Soup", Ingredients: []string{"water"}}
	c := r.Clone()
	c.Ingredients[0] = "stock"
	assert.Equal(t, "water", r.Ingredients[0])
}
