package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"ingredientcore/internal/infra/persistence/postgres/testutil"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreAppliesTrigramDDL(t *testing.T) {
	store, conn := openStub(t)
	if store.Catalog().Family() != schema.FamilyTrigram {
		t.Fatalf("expected trigram family, got %s", store.Catalog().Family())
	}
	var sawExtension, sawTable bool
	gin := 0
	for _, stmt := range conn.Execs {
		upper := strings.ToUpper(stmt)
		switch {
		case strings.Contains(upper, "CREATE EXTENSION IF NOT EXISTS PG_TRGM"):
			sawExtension = true
		case strings.Contains(upper, "CREATE TABLE IF NOT EXISTS INGREDIENT_UNITS"):
			sawTable = true
		case strings.Contains(stmt, "gin_trgm_ops"):
			gin++
		}
	}
	if !sawExtension || !sawTable {
		t.Fatalf("expected extension and table DDL, got execs: %v", conn.Execs)
	}
	// name + abbreviation, food name, note + original_text
	if gin != 5 {
		t.Fatalf("expected 5 gin indexes, got %d", gin)
	}
}

func TestNewStoreLoadsExistingRows(t *testing.T) {
	db, conn := testutil.NewStubDB()
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	conn.Tables[domain.TableUnits] = []map[string]any{{
		"id":                      "u-1",
		"group_id":                "g1",
		"name":                    "Teaspoon",
		"description":             nil,
		"abbreviation":            "tsp",
		"use_abbreviation":        false,
		"fraction":                true,
		"name_normalized":         "stale",
		"abbreviation_normalized": "tsp",
		"created_at":              created,
		"updated_at":              created,
	}}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var got domain.Unit
	err = store.View(context.Background(), func(v domain.TransactionView) error {
		var ok bool
		got, ok = v.FindUnit("u-1")
		if !ok {
			return errors.New("unit not loaded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if *got.NameNormalized() != "teaspoon" {
		t.Fatalf("expected recomputed shadow, got %q", *got.NameNormalized())
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at %v", got.CreatedAt)
	}
}

func TestRunInTransactionPersistsRows(t *testing.T) {
	store, conn := openStub(t)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		u, err := domain.NewUnit(store.Catalog(), fieldmap.Fields{"group_id": "g1", "name": "Tablespoon"})
		if err != nil {
			return err
		}
		_, err = tx.CreateUnit(u)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	rows := conn.Tables[domain.TableUnits]
	if len(rows) != 1 || rows[0]["name_normalized"] != "tablespoon" {
		t.Fatalf("expected unit row with shadow, got %v", rows)
	}
}

func TestRunInTransactionRollsBackOnPersistFailure(t *testing.T) {
	store, conn := openStub(t)
	conn.FailTables = map[string]bool{domain.TableUnits: true}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		u, err := domain.NewUnit(store.Catalog(), fieldmap.Fields{"group_id": "g1", "name": "Cup"})
		if err != nil {
			return err
		}
		_, err = tx.CreateUnit(u)
		return err
	})
	if err == nil {
		t.Fatal("expected persist failure")
	}
	if n := len(store.ExportState().Units); n != 0 {
		t.Fatalf("expected no units published, got %d", n)
	}
}

func TestFuzzySearchUsesTrigramOperator(t *testing.T) {
	store, conn := openStub(t)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		f, err := domain.NewFood(store.Catalog(), fieldmap.Fields{"group_id": "g1", "name": "Garlic"})
		if err != nil {
			return err
		}
		_, err = tx.CreateFood(f)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	foods, err := store.SearchFoods(context.Background(), domain.SearchQuery{GroupID: "g1", Text: "garlc", Fuzzy: true})
	if err != nil {
		t.Fatalf("SearchFoods: %v", err)
	}
	if len(foods) != 1 || *foods[0].Name() != "Garlic" {
		t.Fatalf("unexpected foods %#v", foods)
	}
	last := conn.Queries[len(conn.Queries)-1]
	if !strings.Contains(last, "name_normalized % $") {
		t.Fatalf("expected trigram operator in search SQL, got %s", last)
	}
}

func TestSearchScopesToGroupAndRecipe(t *testing.T) {
	store, _ := openStub(t)
	ctx := context.Background()
	var g1Food domain.Food
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, group := range []string{"g1", "g2"} {
			f, err := domain.NewFood(store.Catalog(), fieldmap.Fields{"group_id": group, "name": "Garlic"})
			if err != nil {
				return err
			}
			created, err := tx.CreateFood(f)
			if err != nil {
				return err
			}
			if group == "g1" {
				g1Food = created
			}
		}
		for _, recipe := range []string{"r1", "r2"} {
			line, err := domain.NewRecipeIngredient(store.Catalog(), fieldmap.Fields{"recipe_id": recipe, "note": "garlic, minced"})
			if err != nil {
				return err
			}
			if _, err := tx.CreateRecipeIngredient(line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	foods, err := store.SearchFoods(ctx, domain.SearchQuery{GroupID: "g1", Text: "garlic"})
	if err != nil {
		t.Fatalf("SearchFoods: %v", err)
	}
	if len(foods) != 1 || foods[0].ID != g1Food.ID {
		t.Fatalf("expected only the g1 food, got %#v", foods)
	}

	lines, err := store.SearchRecipeIngredients(ctx, domain.SearchQuery{RecipeID: "r2", Text: "garlic"})
	if err != nil {
		t.Fatalf("SearchRecipeIngredients: %v", err)
	}
	if len(lines) != 1 || lines[0].RecipeID == nil || *lines[0].RecipeID != "r2" {
		t.Fatalf("expected only the r2 line, got %#v", lines)
	}
}

func TestNewStoreClosesDBOnError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil {
		t.Fatal("expected ping error")
	}
	conn.FailExec = false
	if err := db.PingContext(context.Background()); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected closed handle, got %v", err)
	}

	db, conn = testutil.NewStubDB()
	conn.FailTables = map[string]bool{domain.TableUnits: true}
	restore2 := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore2()
	if _, err := NewStore("", nil); err == nil {
		t.Fatal("expected load error")
	}
	if err := db.PingContext(context.Background()); err == nil {
		t.Fatal("expected closed handle after load failure")
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestOverrideSQLOpenRestores(t *testing.T) {
	calls := 0
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		calls++
		return nil, errors.New("stub")
	})
	_, _ = NewStore("", nil)
	restore()
	if calls != 1 {
		t.Fatalf("expected override to be used once, got %d", calls)
	}
}
