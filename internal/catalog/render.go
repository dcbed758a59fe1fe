package catalog

import (
	"github.com/firebase-recipes/recipes-api/internal/form"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
	"github.com/firebase-recipes/recipes-api/internal/session"
)

// Card is the rendered form of one recipe in the list.
type Card struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CategoryLabel string `json:"category_label"`
	PublishDate   string `json:"publish_date"`
	Unpublished   bool   `json:"unpublished"`
	Editable      bool   `json:"editable"`
}

// Snapshot is everything a view needs to draw the catalog.
type Snapshot struct {
	User    *session.User `json:"user"`
	Filter  Filter        `json:"filter"`
	Cards   []Card        `json:"cards"`
	Loading bool          `json:"loading"`
	HasMore bool          `json:"has_more"`
	Form    form.State    `json:"form"`
}

func renderCard(rec domain.Recipe, authenticated bool) Card {
	return Card{
		ID:            rec.ID,
		Name:          rec.Name,
		CategoryLabel: domain.LookupCategoryLabel(rec.Category),
		PublishDate:   domain.FormatDate(rec.PublishDate),
		Unpublished:   !rec.IsPublished,
		Editable:      authenticated,
	}
}
