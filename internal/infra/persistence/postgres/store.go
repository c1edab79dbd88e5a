// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics while applying trigram-aware catalog DDL on startup.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/internal/infra/persistence/memory"
	"ingredientcore/internal/infra/persistence/sqlrows"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/ingredientcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists catalog rows to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db     *sql.DB
	search sqlrows.Searcher
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It enables pg_trgm, applies the catalog DDL including gin trigram indexes, and
// hydrates the in-memory store from existing rows.
func NewStore(dsn string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store, err := open(db, engine, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func open(db *sql.DB, engine *domain.RulesEngine, opts []memory.Option) (*Store, error) {
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	cat, err := schema.NewCatalog(schema.Engine(defaultDriver))
	if err != nil {
		return nil, err
	}
	mirror := sqlrows.NewMirror(db, sqlbundle.DialectPostgres, cat)
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
	return &Store{Store: mem, db: db, search: sqlrows.NewSearcher(mirror, mem)}, nil
}

// SearchUnits matches unit shadows with LIKE and, for fuzzy queries, the pg_trgm
// similarity operator.
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

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
