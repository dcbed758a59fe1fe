package domain

import (
	"fmt"
	"time"
)

// CollectionRecipes is the only collection this service reads and writes.
const CollectionRecipes = "recipes"

// Field names as they appear in the document store.
const (
	FieldName        = "name"
	FieldCategory    = "category"
	FieldDirections  = "directions"
	FieldPublishDate = "publishDate"
	FieldIsPublished = "isPublished"
	FieldIngredients = "ingredients"
)

// Recipe represents a persisted recipe document.
// ID is empty until the store assigns one.
type Recipe struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Directions  string    `json:"directions"`
	PublishDate time.Time `json:"publish_date"`
	IsPublished bool      `json:"is_published"`
	Ingredients []string  `json:"ingredients"`
}

// Clone returns a copy that shares no slices with r.
func (r Recipe) Clone() Recipe {
	out := r
	if r.Ingredients != nil {
		out.Ingredients = append([]string(nil), r.Ingredients...)
	}
	return out
}

// IsPublishedAt reports whether a recipe with the given publish date is
// visible at now. A publish date equal to now counts as published.
func IsPublishedAt(publishDate, now time.Time) bool {
	return !publishDate.After(now)
}

// FormatDate renders t as day/month/year using its UTC calendar fields,
// without zero padding (2024-03-05 -> "5/3/2024").
func FormatDate(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%d/%d/%d", u.Day(), int(u.Month()), u.Year())
}
