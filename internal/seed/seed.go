// Package seed loads recipes from a YAML file into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/firebase-recipes/recipes-api/internal/form"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
)

// YRecipe is one entry of a seed file.
type YRecipe struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Directions  string   `yaml:"directions"`
	PublishDate string   `yaml:"publishDate"`
	Ingredients []string `yaml:"ingredients"`
}

// Parse decodes a YAML list of recipes.
func Parse(r io.Reader) ([]YRecipe, error) {
	var out []YRecipe
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return out, nil
}

// ParseFile reads and decodes path.
func ParseFile(path string) ([]YRecipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Build validates every entry with the same rules as the recipe form and
// computes isPublished at now. The first invalid entry fails the whole file.
func Build(entries []YRecipe, now time.Time) ([]domain.Recipe, error) {
	out := make([]domain.Recipe, 0, len(entries))
	for i, e := range entries {
		rec, err := form.Build(form.Draft{
			Name:        e.Name,
			Category:    domain.Category(e.Category),
			Directions:  e.Directions,
			PublishDate: e.PublishDate,
			Ingredients: e.Ingredients,
		}, now)
		if err != nil {
			return nil, fmt.Errorf("recipe %d (%q): %w", i+1, e.Name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Load creates every recipe in st and returns the new ids in file order.
func Load(ctx context.Context, st store.Store, recipes []domain.Recipe, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ids := make([]string, 0, len(recipes))
	for _, rec := range recipes {
		id, err := st.Create(ctx, domain.CollectionRecipes, rec)
		if err != nil {
			return ids, fmt.Errorf("seed %q: %w", rec.Name, err)
		}
		log.Info("seeded recipe", zap.String("id", id), zap.String("name", rec.Name))
		ids = append(ids, id)
	}
	return ids, nil
}
