package domain

import (
	"context"

	"ingredientcore/pkg/schema"
	"ingredientcore/pkg/textnorm"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateUnit(Unit) (Unit, error)
	UpdateUnit(id string, mutator func(*Unit) error) (Unit, error)
	DeleteUnit(id string) error
	CreateFood(Food) (Food, error)
	UpdateFood(id string, mutator func(*Food) error) (Food, error)
	DeleteFood(id string) error
	CreateRecipeIngredient(RecipeIngredient) (RecipeIngredient, error)
	UpdateRecipeIngredient(id int64, mutator func(*RecipeIngredient) error) (RecipeIngredient, error)
	DeleteRecipeIngredient(id int64) error
	// DeleteRecipeIngredients removes every line owned by recipeID and returns the count.
	DeleteRecipeIngredients(recipeID string) (int, error)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	// ListRecipeIngredients returns the lines of recipeID ordered by position
	// (nulls last), then by id.
	ListRecipeIngredients(recipeID string) []RecipeIngredient
}

// SearchQuery selects catalog records whose normalized text matches Text.
type SearchQuery struct {
	// GroupID scopes unit and food searches; required for them.
	GroupID string
	// RecipeID optionally scopes ingredient line searches.
	RecipeID string
	Text     string
	// Fuzzy also accepts trigram-similar values, not only substrings.
	Fuzzy bool
	// Limit caps the result count; zero means no cap.
	Limit int
}

// NormalizedText returns Text in the form stored in shadow columns, so
// matching is case and diacritic insensitive.
func (q SearchQuery) NormalizedText() (string, error) {
	return textnorm.String(q.Text)
}

// Searcher is implemented by stores that answer catalog search queries. Results
// are ordered by the matched normalized value, then id.
type Searcher interface {
	SearchUnits(ctx context.Context, q SearchQuery) ([]Unit, error)
	SearchFoods(ctx context.Context, q SearchQuery) ([]Food, error)
	SearchRecipeIngredients(ctx context.Context, q SearchQuery) ([]RecipeIngredient, error)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	Searcher
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	// Catalog returns the schema catalog bound to the store's engine.
	Catalog() *schema.Catalog
}
