package memory

import (
	"context"
	"sort"

	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/textnorm"
)

// SearchUnits matches the query against unit name and abbreviation shadows.
func (s *Store) SearchUnits(ctx context.Context, q domain.SearchQuery) ([]domain.Unit, error) {
	text, err := q.NormalizedText()
	if err != nil {
		return nil, err
	}
	if q.GroupID == "" {
		return nil, domain.ErrGroupRequired
	}
	var out []domain.Unit
	err = s.View(ctx, func(v domain.TransactionView) error {
		for _, u := range v.ListUnits(q.GroupID) {
			if matchAny(text, q.Fuzzy, u.NameNormalized(), u.AbbreviationNormalized()) {
				out = append(out, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].NameNormalized(), out[j].NameNormalized(), out[i].ID < out[j].ID)
	})
	return limit(out, q.Limit), nil
}

// SearchFoods matches the query against food name shadows.
func (s *Store) SearchFoods(ctx context.Context, q domain.SearchQuery) ([]domain.Food, error) {
	text, err := q.NormalizedText()
	if err != nil {
		return nil, err
	}
	if q.GroupID == "" {
		return nil, domain.ErrGroupRequired
	}
	var out []domain.Food
	err = s.View(ctx, func(v domain.TransactionView) error {
		for _, f := range v.ListFoods(q.GroupID) {
			if matchAny(text, q.Fuzzy, f.NameNormalized()) {
				out = append(out, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].NameNormalized(), out[j].NameNormalized(), out[i].ID < out[j].ID)
	})
	return limit(out, q.Limit), nil
}

// SearchRecipeIngredients matches the query against note and original text
// shadows, optionally within one recipe.
func (s *Store) SearchRecipeIngredients(ctx context.Context, q domain.SearchQuery) ([]domain.RecipeIngredient, error) {
	text, err := q.NormalizedText()
	if err != nil {
		return nil, err
	}
	var out []domain.RecipeIngredient
	s.mu.RLock()
	for _, r := range s.state.ingredients {
		if q.RecipeID != "" && !ownedBy(r, q.RecipeID) {
			continue
		}
		if matchAny(text, q.Fuzzy, r.NoteNormalized(), r.OriginalTextNormalized()) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].NoteNormalized(), out[j].NoteNormalized(), out[i].ID < out[j].ID)
	})
	return limit(out, q.Limit), nil
}

func matchAny(text string, fuzzy bool, shadows ...*string) bool {
	for _, sh := range shadows {
		if textnorm.Match(sh, text, fuzzy) {
			return true
		}
	}
	return false
}

// less orders by shadow value with nil last, falling back to idLess.
func less(a, b *string, idLess bool) bool {
	switch {
	case a == nil && b == nil:
		return idLess
	case a == nil:
		return false
	case b == nil:
		return true
	case *a != *b:
		return *a < *b
	}
	return idLess
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
