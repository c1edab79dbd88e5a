package memory

import (
	"fmt"
	"sort"
	"time"

	"ingredientcore/pkg/domain"
)

type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TransactionView {
	return transactionView{state: state}
}

// ListUnits returns the units of groupID ordered by id.
func (v transactionView) ListUnits(groupID string) []domain.Unit {
	out := make([]domain.Unit, 0)
	for _, u := range v.state.units {
		if groupID == "" || u.GroupID == groupID {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListFoods returns the foods of groupID ordered by id.
func (v transactionView) ListFoods(groupID string) []domain.Food {
	out := make([]domain.Food, 0)
	for _, f := range v.state.foods {
		if groupID == "" || f.GroupID == groupID {
			out = append(out, f.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) FindUnit(id string) (domain.Unit, bool) {
	u, ok := v.state.units[id]
	if !ok {
		return domain.Unit{}, false
	}
	return u.Clone(), true
}

func (v transactionView) FindFood(id string) (domain.Food, bool) {
	f, ok := v.state.foods[id]
	if !ok {
		return domain.Food{}, false
	}
	return f.Clone(), true
}

func (v transactionView) FindRecipeIngredient(id int64) (domain.RecipeIngredient, bool) {
	r, ok := v.state.ingredients[id]
	if !ok {
		return domain.RecipeIngredient{}, false
	}
	return r.Clone(), true
}

// ListRecipeIngredients returns the lines of recipeID in recipe order. An empty
// recipeID lists detached lines.
func (v transactionView) ListRecipeIngredients(recipeID string) []domain.RecipeIngredient {
	out := make([]domain.RecipeIngredient, 0)
	for _, r := range v.state.ingredients {
		if ownedBy(r, recipeID) {
			out = append(out, r.Clone())
		}
	}
	domain.SortRecipeIngredients(out)
	return out
}

func ownedBy(r domain.RecipeIngredient, recipeID string) bool {
	if recipeID == "" {
		return r.RecipeID == nil
	}
	return r.RecipeID != nil && *r.RecipeID == recipeID
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

// CreateUnit stores a new unit within the transaction.
func (tx *transaction) CreateUnit(u domain.Unit) (domain.Unit, error) {
	if u.ID == "" {
		u.ID = NewID()
	}
	if _, exists := tx.state.units[u.ID]; exists {
		return domain.Unit{}, fmt.Errorf("unit %q already exists", u.ID)
	}
	if u.GroupID == "" {
		return domain.Unit{}, domain.ErrGroupRequired
	}
	if err := u.VerifyShadows(); err != nil {
		return domain.Unit{}, err
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.units[u.ID] = u.Clone()
	tx.recordChange(domain.Change{Entity: domain.EntityUnit, Action: domain.ActionCreate, After: u.Clone()})
	return u.Clone(), nil
}

// UpdateUnit mutates a unit using the provided mutator function.
func (tx *transaction) UpdateUnit(id string, mutator func(*domain.Unit) error) (domain.Unit, error) {
	current, ok := tx.state.units[id]
	if !ok {
		return domain.Unit{}, domain.ErrNotFound{Entity: domain.EntityUnit, ID: id}
	}
	before := current.Clone()
	if err := mutator(&current); err != nil {
		return domain.Unit{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if current.GroupID == "" {
		return domain.Unit{}, domain.ErrGroupRequired
	}
	if err := current.VerifyShadows(); err != nil {
		return domain.Unit{}, err
	}
	tx.state.units[id] = current.Clone()
	tx.recordChange(domain.Change{Entity: domain.EntityUnit, Action: domain.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteUnit removes a unit that no ingredient line references.
func (tx *transaction) DeleteUnit(id string) error {
	current, ok := tx.state.units[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityUnit, ID: id}
	}
	for _, line := range tx.state.ingredients {
		if line.UnitID != nil && *line.UnitID == id {
			return fmt.Errorf("unit %q still referenced by recipe ingredient %d", id, line.ID)
		}
	}
	delete(tx.state.units, id)
	tx.recordChange(domain.Change{Entity: domain.EntityUnit, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// CreateFood stores a new food and assigns ids to its extras.
func (tx *transaction) CreateFood(f domain.Food) (domain.Food, error) {
	if f.ID == "" {
		f.ID = NewID()
	}
	if _, exists := tx.state.foods[f.ID]; exists {
		return domain.Food{}, fmt.Errorf("food %q already exists", f.ID)
	}
	if f.GroupID == "" {
		return domain.Food{}, domain.ErrGroupRequired
	}
	if err := f.VerifyShadows(); err != nil {
		return domain.Food{}, err
	}
	f = f.Clone()
	assignExtraIDs(&f)
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.foods[f.ID] = f.Clone()
	tx.recordChange(domain.Change{Entity: domain.EntityFood, Action: domain.ActionCreate, After: f.Clone()})
	return f.Clone(), nil
}

// UpdateFood mutates a food using the provided mutator function.
func (tx *transaction) UpdateFood(id string, mutator func(*domain.Food) error) (domain.Food, error) {
	current, ok := tx.state.foods[id]
	if !ok {
		return domain.Food{}, domain.ErrNotFound{Entity: domain.EntityFood, ID: id}
	}
	before := current.Clone()
	if err := mutator(&current); err != nil {
		return domain.Food{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if current.GroupID == "" {
		return domain.Food{}, domain.ErrGroupRequired
	}
	if err := current.VerifyShadows(); err != nil {
		return domain.Food{}, err
	}
	assignExtraIDs(&current)
	tx.state.foods[id] = current.Clone()
	tx.recordChange(domain.Change{Entity: domain.EntityFood, Action: domain.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteFood removes a food and its extras. Foods referenced by ingredient
// lines cannot be deleted.
func (tx *transaction) DeleteFood(id string) error {
	current, ok := tx.state.foods[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityFood, ID: id}
	}
	for _, line := range tx.state.ingredients {
		if line.FoodID != nil && *line.FoodID == id {
			return fmt.Errorf("food %q still referenced by recipe ingredient %d", id, line.ID)
		}
	}
	delete(tx.state.foods, id)
	tx.recordChange(domain.Change{Entity: domain.EntityFood, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// CreateRecipeIngredient stores a new line. Lines without an id receive the
// next id in insertion order.
func (tx *transaction) CreateRecipeIngredient(r domain.RecipeIngredient) (domain.RecipeIngredient, error) {
	if r.ID == 0 {
		tx.state.nextIngredientID++
		r.ID = tx.state.nextIngredientID
	}
	if _, exists := tx.state.ingredients[r.ID]; exists {
		return domain.RecipeIngredient{}, fmt.Errorf("recipe ingredient %d already exists", r.ID)
	}
	if r.ID > tx.state.nextIngredientID {
		tx.state.nextIngredientID = r.ID
	}
	if err := r.VerifyShadows(); err != nil {
		return domain.RecipeIngredient{}, err
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.ingredients[r.ID] = r.Clone()
	tx.recordChange(domain.Change{Entity: domain.EntityRecipeIngredient, Action: domain.ActionCreate, After: r.Clone()})
	return r.Clone(), nil
}

// UpdateRecipeIngredient mutates a line using the provided mutator function.
func (tx *transaction) UpdateRecipeIngredient(id int64, mutator func(*domain.RecipeIngredient) error) (domain.RecipeIngredient, error) {
	current, ok := tx.state.ingredients[id]
	if !ok {
		return domain.RecipeIngredient{}, domain.ErrNotFound{Entity: domain.EntityRecipeIngredient, ID: fmt.Sprint(id)}
	}
	before := current.Clone()
	if err := mutator(&current); err != nil {
		return domain.RecipeIngredient{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := current.VerifyShadows(); err != nil {
		return domain.RecipeIngredient{}, err
	}
	tx.state.ingredients[id] = current.Clone()
	tx.recordChange(domain.Change{Entity: domain.EntityRecipeIngredient, Action: domain.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteRecipeIngredient removes one line. Its unit and food are kept.
func (tx *transaction) DeleteRecipeIngredient(id int64) error {
	current, ok := tx.state.ingredients[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityRecipeIngredient, ID: fmt.Sprint(id)}
	}
	delete(tx.state.ingredients, id)
	tx.recordChange(domain.Change{Entity: domain.EntityRecipeIngredient, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// DeleteRecipeIngredients removes every line owned by recipeID.
func (tx *transaction) DeleteRecipeIngredients(recipeID string) (int, error) {
	if recipeID == "" {
		return 0, fmt.Errorf("delete recipe ingredients: recipe id required")
	}
	lines := newTransactionView(&tx.state).ListRecipeIngredients(recipeID)
	for _, line := range lines {
		if err := tx.DeleteRecipeIngredient(line.ID); err != nil {
			return 0, err
		}
	}
	return len(lines), nil
}

func assignExtraIDs(f *domain.Food) {
	for i := range f.Extras {
		if f.Extras[i].ID == "" {
			f.Extras[i].ID = NewID()
		}
	}
}
