package schema

import (
	"errors"
	"fmt"
)

// IndexMethod is the access method of an index.
type IndexMethod string

const (
	// MethodBTree is the engine's ordinary index.
	MethodBTree IndexMethod = "btree"
	// MethodTrigram is a gin index using the gin_trgm_ops operator class.
	MethodTrigram IndexMethod = "gin_trgm"
)

// Index is one index definition in a plan.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Method  IndexMethod
	Unique  bool
}

// Constraint is a named uniqueness constraint.
type Constraint struct {
	Name    string
	Table   string
	Columns []string
}

// Plan is the complete index and constraint set for one table under one family.
type Plan struct {
	Table       Table
	Family      Family
	Indexes     []Index
	Constraints []Constraint
}

// IndexesOn returns the indexes whose leading column is column.
func (p Plan) IndexesOn(column string) []Index {
	var out []Index
	for _, ix := range p.Indexes {
		if len(ix.Columns) > 0 && ix.Columns[0] == column {
			out = append(out, ix)
		}
	}
	return out
}

// CountMethod returns how many indexes in the plan use method.
func (p Plan) CountMethod(method IndexMethod) int {
	n := 0
	for _, ix := range p.Indexes {
		if ix.Method == method {
			n++
		}
	}
	return n
}

var (
	// ErrUnsupportedFamily is returned when BuildPlan receives a family it cannot plan for.
	ErrUnsupportedFamily = errors.New("schema: unsupported capability family")
	// ErrInvalidTable is returned for table definitions that reference missing columns.
	ErrInvalidTable = errors.New("schema: invalid table definition")
)

// BuildPlan derives the index and constraint set for t. The result depends only
// on t and family.
func BuildPlan(t Table, family Family) (Plan, error) {
	if family != FamilyGeneric && family != FamilyTrigram {
		return Plan{}, fmt.Errorf("%w: %s for table %s", ErrUnsupportedFamily, family, t.Name)
	}
	if err := validate(t); err != nil {
		return Plan{}, err
	}
	plan := Plan{Table: t, Family: family}

	for _, c := range t.Columns {
		if c.Indexed && !c.PrimaryKey {
			plan.Indexes = append(plan.Indexes, Index{
				Name:    fmt.Sprintf("ix_%s_%s", t.Name, c.Name),
				Table:   t.Name,
				Columns: []string{c.Name},
				Method:  MethodBTree,
			})
		}
	}

	for _, f := range t.Search {
		col := f.ShadowColumn()
		plan.Indexes = append(plan.Indexes, Index{
			Name:    fmt.Sprintf("ix_%s_%s", t.Name, col),
			Table:   t.Name,
			Columns: []string{col},
			Method:  MethodBTree,
		})
		if family == FamilyTrigram && f.Shape == ShapeFuzzy {
			plan.Indexes = append(plan.Indexes, Index{
				Name:    fmt.Sprintf("ix_%s_%s_gin", t.Name, col),
				Table:   t.Name,
				Columns: []string{col},
				Method:  MethodTrigram,
			})
		}
	}

	for _, u := range t.Unique {
		plan.Constraints = append(plan.Constraints, Constraint{
			Name:    fmt.Sprintf("%s_%s_%s_key", t.Name, u.Field, u.Scope),
			Table:   t.Name,
			Columns: []string{u.Field, u.Scope},
		})
	}
	return plan, nil
}

func validate(t Table) error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty table name", ErrInvalidTable)
	}
	need := func(col string) error {
		if _, ok := t.Column(col); !ok {
			return fmt.Errorf("%w: %s has no column %q", ErrInvalidTable, t.Name, col)
		}
		return nil
	}
	for _, f := range t.Search {
		if f.Shape != ShapeExact && f.Shape != ShapeFuzzy {
			return fmt.Errorf("%w: %s.%s has no index shape", ErrInvalidTable, t.Name, f.Field)
		}
		if err := need(f.Field); err != nil {
			return err
		}
		if err := need(f.ShadowColumn()); err != nil {
			return err
		}
	}
	for _, u := range t.Unique {
		if err := need(u.Field); err != nil {
			return err
		}
		if err := need(u.Scope); err != nil {
			return err
		}
	}
	return nil
}
