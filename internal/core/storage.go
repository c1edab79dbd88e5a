package core

import (
	"fmt"

	"ingredientcore/internal/config"
	"ingredientcore/internal/infra/persistence/memory"
	"ingredientcore/internal/infra/persistence/postgres"
	"ingredientcore/internal/infra/persistence/sqlite"
	"ingredientcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend from cfg. An empty driver defaults to
// sqlite. SQL backends apply their DDL and load existing rows before returning.
func OpenPersistentStore(cfg config.Storage, engine *domain.RulesEngine, opts ...memory.Option) (domain.PersistentStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	var (
		store domain.PersistentStore
		err   error
	)
	switch driver {
	case StorageMemory:
		store, err = memory.NewStore(engine, opts...)
	case StorageSQLite:
		store, err = sqlite.NewStore(cfg.SQLitePath, engine, opts...)
	case StoragePostgres:
		store, err = postgres.NewStore(cfg.PostgresDSN, engine, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
