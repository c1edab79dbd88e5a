package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	_, err := conn.ExecContext(ctx, "INSERT INTO ingredient_units (id, name) VALUES ($1,$2) ON CONFLICT (id) DO UPDATE SET name = excluded.name", []driver.NamedValue{
		{Value: "u-1"},
		{Value: "Cup"},
	})
	if err != nil {
		t.Fatalf("ExecContext insert: %v", err)
	}
	_, err = conn.ExecContext(ctx, "INSERT INTO ingredient_units (id, name) VALUES ($1,$2) ON CONFLICT (id) DO UPDATE SET name = excluded.name", []driver.NamedValue{
		{Value: "u-1"},
		{Value: "Mug"},
	})
	if err != nil {
		t.Fatalf("ExecContext upsert: %v", err)
	}
	if rows := conn.Tables["ingredient_units"]; len(rows) != 1 || rows[0]["name"] != "Mug" {
		t.Fatalf("expected upsert to replace the row, got %v", rows)
	}

	_, err = conn.ExecContext(ctx, "DELETE FROM ingredient_units WHERE id = $1", []driver.NamedValue{{Value: "u-1"}})
	if err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	if len(conn.Tables["ingredient_units"]) != 0 {
		t.Fatalf("expected row deleted, got %v", conn.Tables["ingredient_units"])
	}

	conn.Tables["ingredient_units"] = []map[string]any{{"id": "u-2", "name": "Pinch", "group_id": "g1"}}
	rows, err := conn.QueryContext(ctx, "select id, name from ingredient_units where group_id = $1", []driver.NamedValue{{Value: "g1"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()

	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "u-2" || dest[1] != "Pinch" {
		t.Fatalf("unexpected row values: %v", dest)
	}
	if len(conn.Queries) != 1 {
		t.Fatalf("expected query to be recorded, got %v", conn.Queries)
	}
}

func TestStubDBFiltersEqualityPredicates(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.Tables["recipes_ingredients"] = []map[string]any{
		{"id": int64(1), "group_id": "g1", "recipe_id": "r1"},
		{"id": int64(2), "group_id": "g1", "recipe_id": "r2"},
		{"id": int64(3), "group_id": "g2", "recipe_id": "r1"},
	}
	query := "SELECT id FROM recipes_ingredients WHERE group_id = $1 AND recipe_id = $2 AND " +
		"(note_normalized LIKE $3 ESCAPE '\\' OR original_text_normalized LIKE $4 ESCAPE '\\') ORDER BY id LIMIT 10"
	rows, err := conn.QueryContext(ctx, query, []driver.NamedValue{
		{Value: "g1"}, {Value: "r1"}, {Value: "%%"}, {Value: "%%"},
	})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []any
	dest := make([]driver.Value, 1)
	for rows.Next(dest) == nil {
		ids = append(ids, dest[0])
	}
	if len(ids) != 1 || ids[0] != int64(1) {
		t.Fatalf("expected only row 1, got %v", ids)
	}

	if _, err := conn.QueryContext(ctx, "SELECT id FROM recipes_ingredients WHERE group_id = $1", nil); err == nil {
		t.Fatal("expected error for unbound placeholder")
	}
}

func TestStubDBFailureFlags(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailTables = map[string]bool{"ingredient_foods": true}
	if _, err := conn.ExecContext(ctx, "INSERT INTO ingredient_foods (id) VALUES ($1)", []driver.NamedValue{{Value: "f"}}); err == nil {
		t.Fatal("expected table failure on insert")
	}
	if _, err := conn.QueryContext(ctx, "SELECT id FROM ingredient_foods", nil); err == nil {
		t.Fatal("expected table failure on select")
	}
	conn.FailBegin = true
	if _, err := conn.BeginTx(ctx, driver.TxOptions{}); err == nil {
		t.Fatal("expected begin failure")
	}
	conn.FailExec = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatal("expected ping failure")
	}
}
