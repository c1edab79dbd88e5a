// Package core exposes the ingredient catalog service: transactional CRUD over
// units, foods and recipe ingredient lines, catalog search, schema plans and
// blob-backed catalog export/import, wrapped with logging and metrics.
package core

import (
	"context"
	"time"

	"ingredientcore/internal/infra/persistence/memory"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

// Service exposes higher-level transactional operations over a persistent store.
type Service struct {
	store domain.PersistentStore
	opts  serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	return &Service{store: store, opts: applyServiceOptions(opts)}
}

// NewInMemoryService creates a service over a fresh in-memory store. The
// service clock also stamps the store's records.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) (*Service, error) {
	cfg := applyServiceOptions(opts)
	store, err := memory.NewStore(engine, memory.WithClock(cfg.clock.Now))
	if err != nil {
		return nil, err
	}
	return &Service{store: store, opts: cfg}, nil
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) now() time.Time { return s.opts.clock.Now() }

// run wraps one operation with metrics and logging. Non-blocking violations
// of a committed transaction are logged as warnings.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (domain.Result, error)) (domain.Result, error) {
	start := time.Now()
	res, err := fn(ctx)
	s.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.opts.logger.Error("operation failed", "operation", op, "error", err)
		return res, err
	}
	for _, v := range res.Violations {
		s.opts.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", string(v.Severity), "entity", string(v.Entity), "entity_id", v.EntityID, "message", v.Message)
	}
	s.opts.logger.Debug("operation completed", "operation", op)
	return res, nil
}

func (s *Service) read(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := s.run(ctx, op, func(ctx context.Context) (domain.Result, error) {
		return domain.Result{}, fn(ctx)
	})
	return err
}

// CreateUnit builds a unit from fields and persists it.
func (s *Service) CreateUnit(ctx context.Context, fields fieldmap.Fields) (domain.Unit, domain.Result, error) {
	var created domain.Unit
	res, err := s.run(ctx, "create_unit", func(ctx context.Context) (domain.Result, error) {
		unit, err := domain.NewUnit(s.store.Catalog(), fields)
		if err != nil {
			return domain.Result{}, err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateUnit(unit)
			return err
		})
	})
	return created, res, err
}

// UpdateUnit assigns fields onto an existing unit.
func (s *Service) UpdateUnit(ctx context.Context, id string, fields fieldmap.Fields) (domain.Unit, domain.Result, error) {
	var updated domain.Unit
	res, err := s.run(ctx, "update_unit", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateUnit(id, func(u *domain.Unit) error {
				return domain.ApplyUnit(u, fields)
			})
			return err
		})
	})
	return updated, res, err
}

// DeleteUnit removes a unit record.
func (s *Service) DeleteUnit(ctx context.Context, id string) (domain.Result, error) {
	return s.run(ctx, "delete_unit", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteUnit(id)
		})
	})
}

// GetUnit returns the unit with id or domain.ErrNotFound.
func (s *Service) GetUnit(ctx context.Context, id string) (domain.Unit, error) {
	var unit domain.Unit
	err := s.read(ctx, "get_unit", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			var ok bool
			if unit, ok = v.FindUnit(id); !ok {
				return domain.ErrNotFound{Entity: domain.EntityUnit, ID: id}
			}
			return nil
		})
	})
	return unit, err
}

// ListUnits returns the units of a group.
func (s *Service) ListUnits(ctx context.Context, groupID string) ([]domain.Unit, error) {
	var units []domain.Unit
	err := s.read(ctx, "list_units", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			units = v.ListUnits(groupID)
			return nil
		})
	})
	return units, err
}

// CreateFood builds a food from fields and persists it with its extras.
func (s *Service) CreateFood(ctx context.Context, fields fieldmap.Fields) (domain.Food, domain.Result, error) {
	var created domain.Food
	res, err := s.run(ctx, "create_food", func(ctx context.Context) (domain.Result, error) {
		food, err := domain.NewFood(s.store.Catalog(), fields)
		if err != nil {
			return domain.Result{}, err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateFood(food)
			return err
		})
	})
	return created, res, err
}

// UpdateFood assigns fields onto an existing food.
func (s *Service) UpdateFood(ctx context.Context, id string, fields fieldmap.Fields) (domain.Food, domain.Result, error) {
	var updated domain.Food
	res, err := s.run(ctx, "update_food", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateFood(id, func(f *domain.Food) error {
				return domain.ApplyFood(f, fields)
			})
			return err
		})
	})
	return updated, res, err
}

// DeleteFood removes a food and its extras.
func (s *Service) DeleteFood(ctx context.Context, id string) (domain.Result, error) {
	return s.run(ctx, "delete_food", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteFood(id)
		})
	})
}

// GetFood returns the food with id or domain.ErrNotFound.
func (s *Service) GetFood(ctx context.Context, id string) (domain.Food, error) {
	var food domain.Food
	err := s.read(ctx, "get_food", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			var ok bool
			if food, ok = v.FindFood(id); !ok {
				return domain.ErrNotFound{Entity: domain.EntityFood, ID: id}
			}
			return nil
		})
	})
	return food, err
}

// ListFoods returns the foods of a group.
func (s *Service) ListFoods(ctx context.Context, groupID string) ([]domain.Food, error) {
	var foods []domain.Food
	err := s.read(ctx, "list_foods", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			foods = v.ListFoods(groupID)
			return nil
		})
	})
	return foods, err
}

// CreateRecipeIngredient builds a line from fields and persists it.
func (s *Service) CreateRecipeIngredient(ctx context.Context, fields fieldmap.Fields) (domain.RecipeIngredient, domain.Result, error) {
	var created domain.RecipeIngredient
	res, err := s.run(ctx, "create_recipe_ingredient", func(ctx context.Context) (domain.Result, error) {
		line, err := domain.NewRecipeIngredient(s.store.Catalog(), fields)
		if err != nil {
			return domain.Result{}, err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateRecipeIngredient(line)
			return err
		})
	})
	return created, res, err
}

// UpdateRecipeIngredient assigns fields onto an existing line.
func (s *Service) UpdateRecipeIngredient(ctx context.Context, id int64, fields fieldmap.Fields) (domain.RecipeIngredient, domain.Result, error) {
	var updated domain.RecipeIngredient
	res, err := s.run(ctx, "update_recipe_ingredient", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateRecipeIngredient(id, func(r *domain.RecipeIngredient) error {
				return domain.ApplyRecipeIngredient(r, fields)
			})
			return err
		})
	})
	return updated, res, err
}

// DeleteRecipeIngredient removes one line.
func (s *Service) DeleteRecipeIngredient(ctx context.Context, id int64) (domain.Result, error) {
	return s.run(ctx, "delete_recipe_ingredient", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteRecipeIngredient(id)
		})
	})
}

// DeleteRecipeIngredients removes every line of a recipe and reports how many were removed.
func (s *Service) DeleteRecipeIngredients(ctx context.Context, recipeID string) (int, domain.Result, error) {
	var n int
	res, err := s.run(ctx, "delete_recipe_ingredients", func(ctx context.Context) (domain.Result, error) {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			n, err = tx.DeleteRecipeIngredients(recipeID)
			return err
		})
	})
	return n, res, err
}

// ListRecipeIngredients returns the lines of a recipe ordered by position, then id.
func (s *Service) ListRecipeIngredients(ctx context.Context, recipeID string) ([]domain.RecipeIngredient, error) {
	var lines []domain.RecipeIngredient
	err := s.read(ctx, "list_recipe_ingredients", func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.TransactionView) error {
			lines = v.ListRecipeIngredients(recipeID)
			return nil
		})
	})
	return lines, err
}

// SearchUnits matches units on their normalized name and abbreviation.
func (s *Service) SearchUnits(ctx context.Context, q domain.SearchQuery) ([]domain.Unit, error) {
	var units []domain.Unit
	err := s.read(ctx, "search_units", func(ctx context.Context) error {
		var err error
		units, err = s.store.SearchUnits(ctx, q)
		return err
	})
	return units, err
}

// SearchFoods matches foods on their normalized name.
func (s *Service) SearchFoods(ctx context.Context, q domain.SearchQuery) ([]domain.Food, error) {
	var foods []domain.Food
	err := s.read(ctx, "search_foods", func(ctx context.Context) error {
		var err error
		foods, err = s.store.SearchFoods(ctx, q)
		return err
	})
	return foods, err
}

// SearchRecipeIngredients matches lines on their normalized note and original text.
func (s *Service) SearchRecipeIngredients(ctx context.Context, q domain.SearchQuery) ([]domain.RecipeIngredient, error) {
	var lines []domain.RecipeIngredient
	err := s.read(ctx, "search_recipe_ingredients", func(ctx context.Context) error {
		var err error
		lines, err = s.store.SearchRecipeIngredients(ctx, q)
		return err
	})
	return lines, err
}

// SchemaPlans returns the index plans of every catalog table, in dependency
// order, under the store's engine family.
func (s *Service) SchemaPlans() ([]schema.Plan, error) {
	return domain.EnsureTables(s.store.Catalog())
}
