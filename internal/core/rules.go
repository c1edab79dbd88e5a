package core

import (
	"context"
	"fmt"

	"ingredientcore/pkg/domain"
)

// NewDefaultRulesEngine returns an engine with the catalog's built-in rules registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(IngredientReferenceRule())
	return engine
}

// IngredientReferenceRule blocks recipe ingredient lines that reference a unit
// or food missing from the catalog.
func IngredientReferenceRule() domain.Rule {
	return ingredientReferenceRule{}
}

type ingredientReferenceRule struct{}

func (ingredientReferenceRule) Name() string { return "ingredient_references" }

func (r ingredientReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityRecipeIngredient || change.After == nil {
			continue
		}
		line, ok := change.After.(domain.RecipeIngredient)
		if !ok {
			continue
		}
		id := fmt.Sprintf("%d", line.ID)
		if line.UnitID != nil {
			if _, ok := view.FindUnit(*line.UnitID); !ok {
				res.Violations = append(res.Violations, r.violation(id, fmt.Sprintf("recipe ingredient %s references missing unit %s", id, *line.UnitID)))
			}
		}
		if line.FoodID != nil {
			if _, ok := view.FindFood(*line.FoodID); !ok {
				res.Violations = append(res.Violations, r.violation(id, fmt.Sprintf("recipe ingredient %s references missing food %s", id, *line.FoodID)))
			}
		}
	}
	return res, nil
}

func (r ingredientReferenceRule) violation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     r.Name(),
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityRecipeIngredient,
		EntityID: entityID,
	}
}
