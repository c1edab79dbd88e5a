package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog holds the plans established for one storage session. The family is
// probed once when the catalog is bound; Ensure memoizes one plan per table.
type Catalog struct {
	engine string
	family Family

	mu    sync.Mutex
	plans map[string]Plan
}

// NewCatalog probes s and binds a catalog to the resulting family.
func NewCatalog(s Session) (*Catalog, error) {
	family, err := Probe(s)
	if err != nil {
		return nil, err
	}
	return &Catalog{engine: s.EngineName(), family: family, plans: make(map[string]Plan)}, nil
}

// MustCatalog is NewCatalog for engine identities known at compile time.
func MustCatalog(engine string) *Catalog {
	c, err := NewCatalog(Engine(engine))
	if err != nil {
		panic(err)
	}
	return c
}

// Engine returns the engine identity the catalog was bound to.
func (c *Catalog) Engine() string { return c.engine }

// Family returns the probed capability family.
func (c *Catalog) Family() Family { return c.family }

// Ensure returns the plan for t, building it on first use.
func (c *Catalog) Ensure(t Table) (Plan, error) {
	if c == nil {
		return Plan{}, fmt.Errorf("schema: ensure %s: nil catalog", t.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.plans[t.Name]; ok {
		return p, nil
	}
	p, err := BuildPlan(t, c.family)
	if err != nil {
		return Plan{}, err
	}
	c.plans[t.Name] = p
	return p, nil
}

// Plans returns every established plan ordered by table name.
func (c *Catalog) Plans() []Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table.Name < out[j].Table.Name })
	return out
}
