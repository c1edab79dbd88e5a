package memory

import "ingredientcore/pkg/domain"

type memoryState struct {
	units            map[string]domain.Unit
	foods            map[string]domain.Food
	ingredients      map[int64]domain.RecipeIngredient
	nextIngredientID int64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Units             map[string]domain.Unit            `json:"units"`
	Foods             map[string]domain.Food            `json:"foods"`
	RecipeIngredients map[int64]domain.RecipeIngredient `json:"recipe_ingredients"`
}

func newMemoryState() memoryState {
	return memoryState{
		units:       make(map[string]domain.Unit),
		foods:       make(map[string]domain.Food),
		ingredients: make(map[int64]domain.RecipeIngredient),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.units {
		cloned.units[k] = v.Clone()
	}
	for k, v := range s.foods {
		cloned.foods[k] = v.Clone()
	}
	for k, v := range s.ingredients {
		cloned.ingredients[k] = v.Clone()
	}
	cloned.nextIngredientID = s.nextIngredientID
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Units:             cloned.units,
		Foods:             cloned.foods,
		RecipeIngredients: cloned.ingredients,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Units {
		state.units[k] = v.Clone()
	}
	for k, v := range s.Foods {
		state.foods[k] = v.Clone()
	}
	for k, v := range s.RecipeIngredients {
		v.ID = k
		state.ingredients[k] = v.Clone()
		if k > state.nextIngredientID {
			state.nextIngredientID = k
		}
	}
	return state
}
