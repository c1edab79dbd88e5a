package core

import (
	"context"
	"errors"
	"testing"

	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

func TestServiceUnitLifecycle(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	svc := newTestService(t, WithMetricsRecorder(metrics))

	unit, _, err := svc.CreateUnit(ctx, fieldmap.Fields{"group_id": "g1", "name": "Tablespoon", "abbreviation": "Tbsp"})
	if err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}
	if got := deref(t, unit.NameNormalized()); got != "tablespoon" {
		t.Fatalf("expected normalized name tablespoon, got %q", got)
	}
	if got := deref(t, unit.AbbreviationNormalized()); got != "tbsp" {
		t.Fatalf("expected normalized abbreviation tbsp, got %q", got)
	}
	if !unit.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock timestamp, got %s", unit.CreatedAt)
	}
	if obs := metrics.last(); obs.operation != "create_unit" || !obs.success {
		t.Fatalf("unexpected observation %+v", obs)
	}

	updated, _, err := svc.UpdateUnit(ctx, unit.ID, fieldmap.Fields{"name": "Soup Spoon", "abbreviation": nil})
	if err != nil {
		t.Fatalf("UpdateUnit: %v", err)
	}
	if deref(t, updated.NameNormalized()) != "soup spoon" || updated.AbbreviationNormalized() != nil {
		t.Fatalf("shadows not resynchronised: %+v", updated)
	}

	got, err := svc.GetUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if deref(t, got.Name()) != "Soup Spoon" {
		t.Fatalf("unexpected stored name %v", got.Name())
	}
	units, err := svc.ListUnits(ctx, "g1")
	if err != nil || len(units) != 1 {
		t.Fatalf("ListUnits: %v %d", err, len(units))
	}

	if _, err := svc.DeleteUnit(ctx, unit.ID); err != nil {
		t.Fatalf("DeleteUnit: %v", err)
	}
	_, err = svc.GetUnit(ctx, unit.ID)
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != domain.EntityUnit {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if obs := metrics.last(); obs.operation != "get_unit" || obs.success {
		t.Fatalf("expected failed get_unit observation, got %+v", obs)
	}
}

func TestServiceRejectsDuplicateUnitNames(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	svc := newTestService(t, WithLogger(logger))
	if _, _, err := svc.CreateUnit(ctx, fieldmap.Fields{"group_id": "g1", "name": "Cup"}); err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}
	_, res, err := svc.CreateUnit(ctx, fieldmap.Fields{"group_id": "g1", "name": "Cup"})
	if !domain.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result, got %+v", res)
	}
	if logger.count("error") != 1 {
		t.Fatalf("expected one error log, got %d", logger.count("error"))
	}
	if _, _, err := svc.CreateUnit(ctx, fieldmap.Fields{"group_id": "g2", "name": "Cup"}); err != nil {
		t.Fatalf("same name in another group should succeed: %v", err)
	}
	if _, _, err := svc.CreateUnit(ctx, fieldmap.Fields{"name": "Cup"}); !errors.Is(err, domain.ErrGroupRequired) {
		t.Fatalf("expected ErrGroupRequired, got %v", err)
	}
}

func TestServiceFoodWithExtras(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	food, _, err := svc.CreateFood(ctx, fieldmap.Fields{
		"group_id": "g1",
		"name":     "Crème Fraîche",
		"extras":   map[string]string{"origin": "fr"},
	})
	if err != nil {
		t.Fatalf("CreateFood: %v", err)
	}
	if deref(t, food.NameNormalized()) != "creme fraiche" {
		t.Fatalf("unexpected shadow %v", food.NameNormalized())
	}
	if len(food.Extras) != 1 || food.Extras[0].ID == "" {
		t.Fatalf("expected extra with id, got %+v", food.Extras)
	}
	updated, _, err := svc.UpdateFood(ctx, food.ID, fieldmap.Fields{"extras": nil, "description": "cultured"})
	if err != nil {
		t.Fatalf("UpdateFood: %v", err)
	}
	if len(updated.Extras) != 0 || deref(t, updated.Description) != "cultured" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := svc.GetFood(ctx, food.ID); err != nil {
		t.Fatalf("GetFood: %v", err)
	}
	foods, err := svc.ListFoods(ctx, "g1")
	if err != nil || len(foods) != 1 {
		t.Fatalf("ListFoods: %v %d", err, len(foods))
	}
	if _, err := svc.DeleteFood(ctx, food.ID); err != nil {
		t.Fatalf("DeleteFood: %v", err)
	}
	if _, err := svc.GetFood(ctx, food.ID); err == nil {
		t.Fatal("expected missing food")
	}
}

func TestServiceRecipeIngredients(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	unit, _, err := svc.CreateUnit(ctx, fieldmap.Fields{"group_id": "g1", "name": "Cup"})
	if err != nil {
		t.Fatalf("CreateUnit: %v", err)
	}
	inputs := []fieldmap.Fields{
		{"recipe_id": "r1", "position": 2, "note": "Finely Chopped", "unit_id": unit.ID},
		{"recipe_id": "r1", "note": "to taste"},
		{"recipe_id": "r1", "position": 1, "original_text": "1 cup Flour"},
	}
	var ids []int64
	for _, fields := range inputs {
		line, _, err := svc.CreateRecipeIngredient(ctx, fields)
		if err != nil {
			t.Fatalf("CreateRecipeIngredient: %v", err)
		}
		ids = append(ids, line.ID)
	}
	lines, err := svc.ListRecipeIngredients(ctx, "r1")
	if err != nil {
		t.Fatalf("ListRecipeIngredients: %v", err)
	}
	if len(lines) != 3 || lines[0].ID != ids[2] || lines[1].ID != ids[0] || lines[2].ID != ids[1] {
		t.Fatalf("unexpected order %v for ids %v", lineIDs(lines), ids)
	}

	cleared, _, err := svc.UpdateRecipeIngredient(ctx, ids[0], fieldmap.Fields{"note": nil})
	if err != nil {
		t.Fatalf("UpdateRecipeIngredient: %v", err)
	}
	if cleared.Note() != nil || cleared.NoteNormalized() != nil {
		t.Fatalf("expected nulled note and shadow, got %v %v", cleared.Note(), cleared.NoteNormalized())
	}

	if _, err := svc.DeleteRecipeIngredient(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteRecipeIngredient: %v", err)
	}
	n, _, err := svc.DeleteRecipeIngredients(ctx, "r1")
	if err != nil || n != 2 {
		t.Fatalf("DeleteRecipeIngredients: %v %d", err, n)
	}
}

func TestServiceBlocksDanglingLineReferences(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, res, err := svc.CreateRecipeIngredient(ctx, fieldmap.Fields{"recipe_id": "r1", "unit_id": "missing", "food_id": "gone"})
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "ingredient_references" {
		t.Fatalf("unexpected violations %+v", res.Violations)
	}
	lines, _ := svc.ListRecipeIngredients(ctx, "r1")
	if len(lines) != 0 {
		t.Fatalf("blocked line must not be stored, got %d", len(lines))
	}
}

func TestServiceSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	for _, name := range []string{"Teaspoon", "Tablespoon", "Cup"} {
		if _, _, err := svc.CreateUnit(ctx, fieldmap.Fields{"group_id": "g1", "name": name}); err != nil {
			t.Fatalf("CreateUnit: %v", err)
		}
	}
	units, err := svc.SearchUnits(ctx, domain.SearchQuery{GroupID: "g1", Text: "SPOON"})
	if err != nil {
		t.Fatalf("SearchUnits: %v", err)
	}
	if len(units) != 2 || deref(t, units[0].Name()) != "Tablespoon" || deref(t, units[1].Name()) != "Teaspoon" {
		t.Fatalf("unexpected results %d", len(units))
	}
	if _, err := svc.SearchUnits(ctx, domain.SearchQuery{Text: "cup"}); !errors.Is(err, domain.ErrGroupRequired) {
		t.Fatalf("expected ErrGroupRequired, got %v", err)
	}

	if _, _, err := svc.CreateFood(ctx, fieldmap.Fields{"group_id": "g1", "name": "Jalapeño"}); err != nil {
		t.Fatalf("CreateFood: %v", err)
	}
	foods, err := svc.SearchFoods(ctx, domain.SearchQuery{GroupID: "g1", Text: "jalapeno"})
	if err != nil || len(foods) != 1 {
		t.Fatalf("SearchFoods: %v %d", err, len(foods))
	}

	if _, _, err := svc.CreateRecipeIngredient(ctx, fieldmap.Fields{"recipe_id": "r1", "note": "Diced Onion"}); err != nil {
		t.Fatalf("CreateRecipeIngredient: %v", err)
	}
	lines, err := svc.SearchRecipeIngredients(ctx, domain.SearchQuery{RecipeID: "r1", Text: "onion"})
	if err != nil || len(lines) != 1 {
		t.Fatalf("SearchRecipeIngredients: %v %d", err, len(lines))
	}
}

func TestServiceSchemaPlans(t *testing.T) {
	svc := newTestService(t)
	plans, err := svc.SchemaPlans()
	if err != nil {
		t.Fatalf("SchemaPlans: %v", err)
	}
	if len(plans) != 4 || plans[0].Table.Name != domain.TableUnits {
		t.Fatalf("unexpected plans %d", len(plans))
	}
	for _, p := range plans {
		if p.Family != schema.FamilyGeneric {
			t.Fatalf("memory store should plan generic indexes, got %s", p.Family)
		}
		if p.CountMethod(schema.MethodTrigram) != 0 {
			t.Fatalf("generic plan for %s has trigram indexes", p.Table.Name)
		}
	}
	if len(plans[0].IndexesOn("name_normalized")) != 1 {
		t.Fatalf("expected one index on name_normalized")
	}
}

func lineIDs(lines []domain.RecipeIngredient) []int64 {
	out := make([]int64, len(lines))
	for i, l := range lines {
		out[i] = l.ID
	}
	return out
}
