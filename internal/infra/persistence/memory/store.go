// Package memory provides the in-memory transactional catalog store. It is the
// authoritative state for every backend: the SQL stores wrap it and mirror
// committed changes into their tables.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// CommitHook runs after rules pass and before the transaction state is
// published. A hook error aborts the commit.
type CommitHook func(ctx context.Context, changes []domain.Change) error

// Option customises a Store.
type Option func(*Store)

// WithCatalog binds the store to an existing schema catalog.
func WithCatalog(cat *schema.Catalog) Option {
	return func(s *Store) {
		if cat != nil {
			s.catalog = cat
		}
	}
}

// WithCommitHook installs hook to mirror committed changes elsewhere.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// Store provides an in-memory transactional store for the ingredient catalog.
type Store struct {
	mu          sync.RWMutex
	state       memoryState
	engine      *domain.RulesEngine
	nowFn       func() time.Time
	catalog     *schema.Catalog
	constraints []schema.Constraint
	hook        CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
// It ensures every catalog table plan and enforces the plans' uniqueness
// constraints on commit.
func NewStore(engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		cat, err := schema.NewCatalog(schema.Engine("memory"))
		if err != nil {
			return nil, err
		}
		s.catalog = cat
	}
	plans, err := domain.EnsureTables(s.catalog)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}
	for _, p := range plans {
		s.constraints = append(s.constraints, p.Constraints...)
	}
	return s, nil
}

// Catalog returns the schema catalog the store was bound to.
func (s *Store) Catalog() *schema.Catalog { return s.catalog }

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Uniqueness constraints and registered rules are evaluated before the commit
// hook; the new state is published only when all three succeed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	result := checkConstraints(&tx.state, s.constraints, tx.changes)
	if result.HasBlocking() {
		return result, domain.RuleViolationError{Result: result}
	}
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result.Merge(res)
		if result.HasBlocking() {
			return result, domain.RuleViolationError{Result: result}
		}
	}

	if s.hook != nil && len(tx.changes) > 0 {
		if err := s.hook(ctx, tx.changes); err != nil {
			return result, fmt.Errorf("commit: %w", err)
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// NewID returns a fresh opaque identifier for units, foods and extras.
func NewID() string { return uuid.NewString() }
