package sqlrows

import (
	"context"
	"fmt"
	"strconv"

	"ingredientcore/internal/infra/persistence/memory"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

// Searcher answers domain search queries with SQL against the mirrored
// tables and resolves the matched ids against the authoritative memory state.
// Fuzzy queries on engines without trigram support are answered in-process.
type Searcher struct {
	mirror *Mirror
	store  *memory.Store
}

// NewSearcher pairs a mirror with the memory store it follows.
func NewSearcher(m *Mirror, store *memory.Store) Searcher {
	return Searcher{mirror: m, store: store}
}

func (s Searcher) inProcess(q domain.SearchQuery) bool {
	return q.Fuzzy && s.mirror.catalog.Family() != schema.FamilyTrigram
}

// SearchUnits matches unit name and abbreviation shadows.
func (s Searcher) SearchUnits(ctx context.Context, q domain.SearchQuery) ([]domain.Unit, error) {
	if err := checkQuery(q, true); err != nil {
		return nil, err
	}
	if s.inProcess(q) {
		return s.store.SearchUnits(ctx, q)
	}
	ids, err := s.mirror.SearchIDs(ctx, domain.UnitsTable(), q)
	if err != nil {
		return nil, err
	}
	var out []domain.Unit
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		for _, id := range ids {
			if u, ok := v.FindUnit(fmt.Sprint(id)); ok {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

// SearchFoods matches food name shadows.
func (s Searcher) SearchFoods(ctx context.Context, q domain.SearchQuery) ([]domain.Food, error) {
	if err := checkQuery(q, true); err != nil {
		return nil, err
	}
	if s.inProcess(q) {
		return s.store.SearchFoods(ctx, q)
	}
	ids, err := s.mirror.SearchIDs(ctx, domain.FoodsTable(), q)
	if err != nil {
		return nil, err
	}
	var out []domain.Food
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		for _, id := range ids {
			if f, ok := v.FindFood(fmt.Sprint(id)); ok {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

// SearchRecipeIngredients matches line note and original text shadows.
func (s Searcher) SearchRecipeIngredients(ctx context.Context, q domain.SearchQuery) ([]domain.RecipeIngredient, error) {
	if err := checkQuery(q, false); err != nil {
		return nil, err
	}
	if s.inProcess(q) {
		return s.store.SearchRecipeIngredients(ctx, q)
	}
	ids, err := s.mirror.SearchIDs(ctx, domain.RecipeIngredientsTable(), q)
	if err != nil {
		return nil, err
	}
	var out []domain.RecipeIngredient
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		for _, raw := range ids {
			id, ok := int64ID(raw)
			if !ok {
				return fmt.Errorf("search %s: unexpected id %v", domain.TableRecipeIngredients, raw)
			}
			if line, ok := v.FindRecipeIngredient(id); ok {
				out = append(out, line)
			}
		}
		return nil
	})
	return out, err
}

func checkQuery(q domain.SearchQuery, grouped bool) error {
	if _, err := q.NormalizedText(); err != nil {
		return err
	}
	if grouped && q.GroupID == "" {
		return domain.ErrGroupRequired
	}
	return nil
}

func int64ID(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), x == float64(int64(x))
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}
