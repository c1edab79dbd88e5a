// Package schema describes entity tables and derives the index and constraint
// plan for them according to the indexing family of the active database engine.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Family classifies a database engine by the indexing features it supports.
type Family uint8

const (
	// FamilyUnknown is the zero value and is never accepted by BuildPlan.
	FamilyUnknown Family = iota
	// FamilyGeneric engines support ordinary b-tree style indexes only.
	FamilyGeneric
	// FamilyTrigram engines additionally support trigram (pg_trgm) gin indexes.
	FamilyTrigram
)

func (f Family) String() string {
	switch f {
	case FamilyGeneric:
		return "generic"
	case FamilyTrigram:
		return "trigram"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// ErrUnsupportedEngine is returned when an engine identity maps to no family.
var ErrUnsupportedEngine = errors.New("schema: unsupported database engine")

// Session is the part of an active storage connection consulted during schema setup.
type Session interface {
	EngineName() string
}

// Engine is a Session backed by a fixed engine identity, e.g. the database/sql
// driver name a store was opened with.
type Engine string

// EngineName implements Session.
func (e Engine) EngineName() string { return string(e) }

// ProbeEngine classifies an engine identity. Unrecognised names yield FamilyUnknown.
func ProbeEngine(name string) Family {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return FamilyTrigram
	case "sqlite", "sqlite3", "memory":
		return FamilyGeneric
	default:
		return FamilyUnknown
	}
}

// Probe classifies the engine behind s.
func Probe(s Session) (Family, error) {
	if s == nil {
		return FamilyUnknown, fmt.Errorf("%w: nil session", ErrUnsupportedEngine)
	}
	f := ProbeEngine(s.EngineName())
	if f == FamilyUnknown {
		return f, fmt.Errorf("%w: %q", ErrUnsupportedEngine, s.EngineName())
	}
	return f, nil
}
