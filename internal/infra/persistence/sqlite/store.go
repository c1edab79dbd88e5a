// Package sqlite provides a SQLite-backed persistent store. Catalog tables are
// rendered from generic (b-tree only) schema plans, and every committed
// transaction is mirrored row by row before it becomes visible.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/internal/infra/persistence/memory"
	"ingredientcore/internal/infra/persistence/sqlrows"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const driverName = "sqlite"

// Store persists catalog rows to SQLite while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db     *sql.DB
	search sqlrows.Searcher
	path   string
}

// NewStore opens (or creates) the database at path, applies the catalog DDL and
// hydrates the in-memory store from existing rows.
func NewStore(path string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = "ingredientcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// foreign_keys is per connection.
	db.SetMaxOpenConns(1)
	s, err := newStore(context.Background(), db, path, engine, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, db *sql.DB, path string, engine *domain.RulesEngine, opts []memory.Option) (*Store, error) {
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	cat, err := schema.NewCatalog(schema.Engine(driverName))
	if err != nil {
		return nil, err
	}
	mirror := sqlrows.NewMirror(db, sqlbundle.DialectSQLite, cat)
	if err := mirror.ApplySchema(ctx); err != nil {
		return nil, err
	}
	snapshot, err := mirror.Load(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, memory.WithCatalog(cat), memory.WithCommitHook(mirror.Persist))
	mem, err := memory.NewStore(engine, opts...)
	if err != nil {
		return nil, err
	}
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db, search: sqlrows.NewSearcher(mirror, mem), path: path}, nil
}

// SearchUnits matches unit name and abbreviation shadows with LIKE. Fuzzy
// queries fall back to in-process trigram matching.
func (s *Store) SearchUnits(ctx context.Context, q domain.SearchQuery) ([]domain.Unit, error) {
	return s.search.SearchUnits(ctx, q)
}

// SearchFoods matches food name shadows.
func (s *Store) SearchFoods(ctx context.Context, q domain.SearchQuery) ([]domain.Food, error) {
	return s.search.SearchFoods(ctx, q)
}

// SearchRecipeIngredients matches line note and original text shadows.
func (s *Store) SearchRecipeIngredients(ctx context.Context, q domain.SearchQuery) ([]domain.RecipeIngredient, error) {
	return s.search.SearchRecipeIngredients(ctx, q)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
