package sqlrows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/internal/infra/persistence/memory"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

// ErrUnexpectedChange is returned when a change carries a payload of the wrong type.
var ErrUnexpectedChange = errors.New("sqlrows: unexpected change payload")

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Mirror keeps catalog tables in a SQL database in step with committed
// in-memory transactions.
type Mirror struct {
	db      *sql.DB
	dialect sqlbundle.Dialect
	catalog *schema.Catalog
}

// NewMirror binds db to the plans of cat rendered for dialect d.
func NewMirror(db *sql.DB, d sqlbundle.Dialect, cat *schema.Catalog) *Mirror {
	return &Mirror{db: db, dialect: d, catalog: cat}
}

// Dialect reports the SQL dialect statements are rendered for.
func (m *Mirror) Dialect() sqlbundle.Dialect { return m.dialect }

// ApplySchema ensures every catalog table plan and executes its DDL.
func (m *Mirror) ApplySchema(ctx context.Context) error {
	if _, err := domain.EnsureTables(m.catalog); err != nil {
		return err
	}
	ddl, err := sqlbundle.RenderCatalog(m.dialect, m.catalog)
	if err != nil {
		return err
	}
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// Load reads every catalog row back into a snapshot. Entities are rebuilt
// from their raw columns, so stored shadows are recomputed rather than trusted.
func (m *Mirror) Load(ctx context.Context) (memory.Snapshot, error) {
	snap := memory.Snapshot{
		Units:             make(map[string]domain.Unit),
		Foods:             make(map[string]domain.Food),
		RecipeIngredients: make(map[int64]domain.RecipeIngredient),
	}
	err := m.scan(ctx, domain.UnitsTable(), func(f fieldmap.Fields) error {
		u, err := domain.NewUnit(m.catalog, f)
		if err != nil {
			return err
		}
		snap.Units[u.ID] = u
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}

	extras := make(map[string][]domain.FoodExtra)
	err = m.scan(ctx, domain.FoodExtrasTable(), func(f fieldmap.Fields) error {
		foodID, _ := f["ingredient_food_id"].(string)
		e := domain.FoodExtra{}
		e.ID, _ = f["id"].(string)
		e.Key, _ = f["key_name"].(string)
		if v, ok := f["value"].(string); ok {
			e.Value = &v
		}
		extras[foodID] = append(extras[foodID], e)
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}
	err = m.scan(ctx, domain.FoodsTable(), func(f fieldmap.Fields) error {
		id, _ := f["id"].(string)
		if list := extras[id]; len(list) > 0 {
			sort.Slice(list, func(i, j int) bool {
				if list[i].Key != list[j].Key {
					return list[i].Key < list[j].Key
				}
				return list[i].ID < list[j].ID
			})
			f["extras"] = list
		}
		food, err := domain.NewFood(m.catalog, f)
		if err != nil {
			return err
		}
		snap.Foods[food.ID] = food
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}

	err = m.scan(ctx, domain.RecipeIngredientsTable(), func(f fieldmap.Fields) error {
		line, err := domain.NewRecipeIngredient(m.catalog, f)
		if err != nil {
			return err
		}
		snap.RecipeIngredients[line.ID] = line
		return nil
	})
	if err != nil {
		return memory.Snapshot{}, err
	}
	return snap, nil
}

func (m *Mirror) scan(ctx context.Context, t schema.Table, fn func(fieldmap.Fields) error) error {
	rows, err := m.db.QueryContext(ctx, Select(t))
	if err != nil {
		return fmt.Errorf("select %s: %w", t.Name, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		values := make([]any, len(t.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan %s: %w", t.Name, err)
		}
		fields, err := Decode(t, values)
		if err != nil {
			return err
		}
		if err := fn(fields); err != nil {
			return fmt.Errorf("load %s: %w", t.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", t.Name, err)
	}
	return nil
}

// Persist writes changes in a single database transaction. It has the shape
// of a memory.CommitHook.
func (m *Mirror) Persist(ctx context.Context, changes []domain.Change) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := ApplyChanges(ctx, tx, m.dialect, changes); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// ApplyChanges replays changes, in order, as row upserts and deletes.
func ApplyChanges(ctx context.Context, ex Execer, d sqlbundle.Dialect, changes []domain.Change) error {
	for _, ch := range changes {
		if err := applyChange(ctx, ex, d, ch); err != nil {
			return fmt.Errorf("persist %s %s: %w", ch.Action, ch.Entity, err)
		}
	}
	return nil
}

func applyChange(ctx context.Context, ex Execer, d sqlbundle.Dialect, ch domain.Change) error {
	payload := ch.After
	if ch.Action == domain.ActionDelete {
		payload = ch.Before
	}
	switch v := payload.(type) {
	case domain.Unit:
		if ch.Action == domain.ActionDelete {
			return exec(ctx, ex, Delete(d, domain.TableUnits, "id"), v.ID)
		}
		return upsert(ctx, ex, d, domain.UnitsTable(), v.Row())
	case domain.Food:
		if err := exec(ctx, ex, Delete(d, domain.TableFoodExtras, "ingredient_food_id"), v.ID); err != nil {
			return err
		}
		if ch.Action == domain.ActionDelete {
			return exec(ctx, ex, Delete(d, domain.TableFoods, "id"), v.ID)
		}
		if err := upsert(ctx, ex, d, domain.FoodsTable(), v.Row()); err != nil {
			return err
		}
		for _, row := range v.ExtraRows() {
			if err := upsert(ctx, ex, d, domain.FoodExtrasTable(), row); err != nil {
				return err
			}
		}
		return nil
	case domain.RecipeIngredient:
		if ch.Action == domain.ActionDelete {
			return exec(ctx, ex, Delete(d, domain.TableRecipeIngredients, "id"), v.ID)
		}
		return upsert(ctx, ex, d, domain.RecipeIngredientsTable(), v.Row())
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedChange, payload)
	}
}

func upsert(ctx context.Context, ex Execer, d sqlbundle.Dialect, t schema.Table, row fieldmap.Fields) error {
	return exec(ctx, ex, Upsert(d, t), Args(d, t, row)...)
}

func exec(ctx context.Context, ex Execer, query string, args ...any) error {
	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

// SearchIDs runs a shadow-column search against t and returns matching
// primary keys in result order. Trigram similarity is only consulted when
// fuzzy is requested and the catalog's family supports it.
func (m *Mirror) SearchIDs(ctx context.Context, t schema.Table, q domain.SearchQuery) ([]any, error) {
	text, err := q.NormalizedText()
	if err != nil {
		return nil, err
	}
	trigram := q.Fuzzy && m.catalog.Family() == schema.FamilyTrigram
	query, args := SearchIDs(m.dialect, t, q, text, trigram)
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t.Name, err)
	}
	defer func() { _ = rows.Close() }()
	var ids []any
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.Name, err)
		}
		if b, ok := id.([]byte); ok {
			id = string(b)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.Name, err)
	}
	return ids, nil
}
