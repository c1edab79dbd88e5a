package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *Store) (domain.Unit, domain.Food, domain.RecipeIngredient) {
	t.Helper()
	cat := store.Catalog()
	var (
		unit domain.Unit
		food domain.Food
		line domain.RecipeIngredient
	)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		u, err := domain.NewUnit(cat, fieldmap.Fields{"group_id": "g1", "name": "Tablespoon", "abbreviation": "Tbsp", "use_abbreviation": true})
		if err != nil {
			return err
		}
		if unit, err = tx.CreateUnit(u); err != nil {
			return err
		}
		f, err := domain.NewFood(cat, fieldmap.Fields{"group_id": "g1", "name": "Crème Fraîche", "extras": map[string]string{"origin": "fr"}})
		if err != nil {
			return err
		}
		if food, err = tx.CreateFood(f); err != nil {
			return err
		}
		l, err := domain.NewRecipeIngredient(cat, fieldmap.Fields{
			"recipe_id":     "r1",
			"position":      0,
			"note":          "Finely  CHOPPED",
			"original_text": "1 Tbsp crème fraîche",
			"unit_id":       unit.ID,
			"food_id":       food.ID,
			"quantity":      1,
		})
		if err != nil {
			return err
		}
		line, err = tx.CreateRecipeIngredient(l)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return unit, food, line
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store := openStore(t, path)
	unit, food, line := seed(t, store)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	snap := reloaded.ExportState()
	gotUnit, ok := snap.Units[unit.ID]
	if !ok {
		t.Fatalf("unit %s not reloaded", unit.ID)
	}
	if *gotUnit.NameNormalized() != "tablespoon" || !gotUnit.UseAbbreviation || !gotUnit.Fraction {
		t.Fatalf("unexpected unit after reload: %#v", gotUnit)
	}
	if !gotUnit.CreatedAt.Equal(unit.CreatedAt) {
		t.Fatalf("created_at %v, want %v", gotUnit.CreatedAt, unit.CreatedAt)
	}
	gotFood := snap.Foods[food.ID]
	if v, ok := gotFood.Extra("origin"); !ok || *v != "fr" {
		t.Fatalf("extras not reloaded: %#v", gotFood.Extras)
	}
	gotLine := snap.RecipeIngredients[line.ID]
	if gotLine.Position == nil || *gotLine.Position != 0 {
		t.Fatalf("position lost: %#v", gotLine.Position)
	}
	if *gotLine.OriginalTextNormalized() != "1 tbsp creme fraiche" {
		t.Fatalf("original text shadow %q", *gotLine.OriginalTextNormalized())
	}

	_, err := reloaded.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		created, err := tx.CreateRecipeIngredient(domain.RecipeIngredient{})
		if err != nil {
			return err
		}
		if created.ID <= line.ID {
			t.Errorf("expected id after %d, got %d", line.ID, created.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create after reload: %v", err)
	}
}

func TestSQLiteStoreAppliesGenericIndexes(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	var name string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", domain.TableUnits).Scan(&name); err != nil {
		t.Fatalf("lookup units table: %v", err)
	}
	rows, err := store.DB().Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name = ?", domain.TableUnits)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var sawShadow bool
	for rows.Next() {
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if name == "ix_ingredient_units_name_normalized" {
			sawShadow = true
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if !sawShadow {
		t.Fatal("expected b-tree index on name_normalized")
	}
	for _, p := range store.Catalog().Plans() {
		if p.CountMethod(schema.MethodTrigram) != 0 {
			t.Fatalf("sqlite plan for %s carries trigram indexes", p.Table.Name)
		}
	}
}

func TestSQLiteSearch(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	unit, food, line := seed(t, store)
	ctx := context.Background()

	units, err := store.SearchUnits(ctx, domain.SearchQuery{GroupID: "g1", Text: "TBS"})
	if err != nil {
		t.Fatalf("SearchUnits: %v", err)
	}
	if len(units) != 1 || units[0].ID != unit.ID {
		t.Fatalf("abbreviation search: %#v", units)
	}
	if units, _ = store.SearchUnits(ctx, domain.SearchQuery{GroupID: "other", Text: "tbs"}); len(units) != 0 {
		t.Fatalf("search leaked across groups: %#v", units)
	}

	foods, err := store.SearchFoods(ctx, domain.SearchQuery{GroupID: "g1", Text: "CREME"})
	if err != nil {
		t.Fatalf("SearchFoods: %v", err)
	}
	if len(foods) != 1 || foods[0].ID != food.ID {
		t.Fatalf("diacritic-insensitive search: %#v", foods)
	}

	fuzzy, err := store.SearchFoods(ctx, domain.SearchQuery{GroupID: "g1", Text: "crme fraiche", Fuzzy: true})
	if err != nil {
		t.Fatalf("fuzzy SearchFoods: %v", err)
	}
	if len(fuzzy) != 1 {
		t.Fatalf("expected fuzzy fallback match, got %#v", fuzzy)
	}
	if exact, _ := store.SearchFoods(ctx, domain.SearchQuery{GroupID: "g1", Text: "crme fraiche"}); len(exact) != 0 {
		t.Fatalf("substring search should not match a misspelling: %#v", exact)
	}

	lines, err := store.SearchRecipeIngredients(ctx, domain.SearchQuery{RecipeID: "r1", Text: "chopped"})
	if err != nil {
		t.Fatalf("SearchRecipeIngredients: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != line.ID {
		t.Fatalf("line search: %#v", lines)
	}
	if lines, _ = store.SearchRecipeIngredients(ctx, domain.SearchQuery{Text: "100%"}); len(lines) != 0 {
		t.Fatalf("LIKE wildcard leaked into pattern: %#v", lines)
	}
}

func TestSQLiteUniqueViolationKeepsDatabaseClean(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "catalog.db"))
	seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		u, err := domain.NewUnit(store.Catalog(), fieldmap.Fields{"group_id": "g1", "name": "Tablespoon"})
		if err != nil {
			return err
		}
		_, err = tx.CreateUnit(u)
		return err
	})
	if !domain.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	var n int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM " + domain.TableUnits).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unit row, got %d", n)
	}
}
