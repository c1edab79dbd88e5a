// Package shadow keeps normalized shadow attributes in step with the raw text
// attributes they mirror. A Set is declared once per entity type; every write
// to a bound raw attribute goes through Set.Assign, which recomputes the paired
// shadow on the same instance before returning.
package shadow

import "fmt"

// Accessor addresses one nullable text attribute on an instance of T.
type Accessor[T any] func(*T) **string

// Pair names a raw attribute and the shadow column derived from it.
type Pair struct {
	Field  string
	Shadow string
}

type rule[T any] struct {
	pair   Pair
	raw    Accessor[T]
	shadow Accessor[T]
}

// Set holds the synchronization rules of one entity type.
type Set[T any] struct {
	entity    string
	normalize func(*string) *string
	rules     map[string]*rule[T]
	shadows   map[string]string
	order     []string
}

// New declares an empty rule set for entity using normalize to derive shadows.
func New[T any](entity string, normalize func(*string) *string) *Set[T] {
	if normalize == nil {
		panic("shadow: normalize function required")
	}
	return &Set[T]{
		entity:    entity,
		normalize: normalize,
		rules:     make(map[string]*rule[T]),
		shadows:   make(map[string]string),
	}
}

// Bind registers the rule for field. It panics on duplicate bindings and on
// bindings that would let a shadow column trigger another rule.
func (s *Set[T]) Bind(field, shadowField string, raw, shadow Accessor[T]) *Set[T] {
	switch {
	case field == "" || shadowField == "":
		panic(fmt.Sprintf("shadow: %s: empty field name", s.entity))
	case field == shadowField:
		panic(fmt.Sprintf("shadow: %s.%s cannot shadow itself", s.entity, field))
	case raw == nil || shadow == nil:
		panic(fmt.Sprintf("shadow: %s.%s: nil accessor", s.entity, field))
	}
	if _, dup := s.rules[field]; dup {
		panic(fmt.Sprintf("shadow: %s.%s already bound", s.entity, field))
	}
	if owner, taken := s.shadows[shadowField]; taken {
		panic(fmt.Sprintf("shadow: %s.%s already shadows %s", s.entity, shadowField, owner))
	}
	if _, isShadow := s.shadows[field]; isShadow {
		panic(fmt.Sprintf("shadow: %s.%s is a shadow column", s.entity, field))
	}
	if _, isRaw := s.rules[shadowField]; isRaw {
		panic(fmt.Sprintf("shadow: %s.%s is a raw field", s.entity, shadowField))
	}
	s.rules[field] = &rule[T]{pair: Pair{Field: field, Shadow: shadowField}, raw: raw, shadow: shadow}
	s.shadows[shadowField] = field
	s.order = append(s.order, field)
	return s
}

// Entity returns the entity name the set was declared for.
func (s *Set[T]) Entity() string { return s.entity }

// Bound reports whether field has a synchronization rule.
func (s *Set[T]) Bound(field string) bool {
	_, ok := s.rules[field]
	return ok
}

// Pairs lists the bindings in registration order.
func (s *Set[T]) Pairs() []Pair {
	out := make([]Pair, 0, len(s.order))
	for _, field := range s.order {
		out = append(out, s.rules[field].pair)
	}
	return out
}

// Assign writes value to field on target and recomputes its shadow. The
// normalized form is computed first so a normalization panic leaves target
// untouched. Assign panics for unbound fields.
func (s *Set[T]) Assign(target *T, field string, value *string) {
	r, ok := s.rules[field]
	if !ok {
		panic(fmt.Sprintf("shadow: %s.%s is not bound", s.entity, field))
	}
	normalized := s.normalize(value)
	*r.raw(target) = clone(value)
	*r.shadow(target) = normalized
}

// Recompute derives every shadow from the current raw values on target.
func (s *Set[T]) Recompute(target *T) {
	for _, field := range s.order {
		r := s.rules[field]
		*r.shadow(target) = s.normalize(*r.raw(target))
	}
}

// Verify returns a *DriftError naming the first shadow that no longer equals
// the normalized raw value.
func (s *Set[T]) Verify(target *T) error {
	for _, field := range s.order {
		r := s.rules[field]
		want := s.normalize(*r.raw(target))
		got := *r.shadow(target)
		if !equal(want, got) {
			return &DriftError{Entity: s.entity, Pair: r.pair, Want: want, Got: got}
		}
	}
	return nil
}

// DriftError reports a shadow attribute that is out of step with its raw value.
type DriftError struct {
	Entity string
	Pair   Pair
	Want   *string
	Got    *string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("shadow: %s.%s drifted: want %s, got %s", e.Entity, e.Pair.Shadow, show(e.Want), show(e.Got))
}

func clone(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func show(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%q", *v)
}
