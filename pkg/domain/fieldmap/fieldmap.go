// Package fieldmap populates entities from a name->value mapping. Known keys are
// assigned through entity setters; unknown keys are ignored.
package fieldmap

import (
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"ingredientcore/pkg/textnorm"
)

// Fields maps attribute names to values.
type Fields map[string]any

// Setter assigns one decoded value to target.
type Setter[T any] func(target *T, value any) error

// Setters is the table of assignable attributes for T.
type Setters[T any] map[string]Setter[T]

// TypeError reports a known field whose value has an unsupported type.
type TypeError struct {
	Field string
	Want  string
	Got   any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("field %q: want %s, got %T", e.Field, e.Want, e.Got)
}

// Populate assigns every known key of fields onto target in sorted key order.
func Populate[T any](target *T, fields Fields, setters Setters[T]) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, ok := setters[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := setters[k](target, fields[k]); err != nil {
			var te *TypeError
			if errors.As(err, &te) && te.Field == "" {
				te.Field = k
				return te
			}
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

// Build populates a copy of initial, then runs finalize on it. Finalize sees
// every field-map assignment already applied.
func Build[T any](initial T, fields Fields, setters Setters[T], finalize func(*T) error) (T, error) {
	out := initial
	if err := Populate(&out, fields, setters); err != nil {
		var zero T
		return zero, err
	}
	if finalize != nil {
		if err := finalize(&out); err != nil {
			var zero T
			return zero, err
		}
	}
	return out, nil
}

// Text accepts nil, string or *string. Invalid UTF-8 yields textnorm.ErrInvalidText.
func Text[T any](assign func(*T, *string)) Setter[T] {
	return func(target *T, value any) error {
		v, err := textValue(value)
		if err != nil {
			return err
		}
		if v != nil && !utf8.ValidString(*v) {
			return textnorm.ErrInvalidText
		}
		assign(target, v)
		return nil
	}
}

// ID accepts the same values as Text but maps empty strings to nil.
func ID[T any](assign func(*T, *string)) Setter[T] {
	return func(target *T, value any) error {
		v, err := textValue(value)
		if err != nil {
			return err
		}
		if v != nil && *v == "" {
			v = nil
		}
		assign(target, v)
		return nil
	}
}

// Bool accepts bool or *bool; nil leaves the zero value.
func Bool[T any](assign func(*T, bool)) Setter[T] {
	return func(target *T, value any) error {
		switch v := value.(type) {
		case nil:
			return nil
		case bool:
			assign(target, v)
		case *bool:
			if v != nil {
				assign(target, *v)
			}
		default:
			return &TypeError{Want: "bool", Got: value}
		}
		return nil
	}
}

// Float accepts any Go numeric type or a pointer to float64.
func Float[T any](assign func(*T, *float64)) Setter[T] {
	return func(target *T, value any) error {
		switch v := value.(type) {
		case nil:
			assign(target, nil)
		case *float64:
			if v == nil {
				assign(target, nil)
				return nil
			}
			f := *v
			assign(target, &f)
		default:
			f, ok := toFloat(value)
			if !ok {
				return &TypeError{Want: "number", Got: value}
			}
			assign(target, &f)
		}
		return nil
	}
}

// Int accepts integers, integral floats, or a pointer to int.
func Int[T any](assign func(*T, *int)) Setter[T] {
	return func(target *T, value any) error {
		switch v := value.(type) {
		case nil:
			assign(target, nil)
		case *int:
			if v == nil {
				assign(target, nil)
				return nil
			}
			i := *v
			assign(target, &i)
		default:
			f, ok := toFloat(value)
			if !ok || f != float64(int(f)) {
				return &TypeError{Want: "integer", Got: value}
			}
			i := int(f)
			assign(target, &i)
		}
		return nil
	}
}

// Time accepts time.Time or an RFC 3339 string.
func Time[T any](assign func(*T, time.Time)) Setter[T] {
	return func(target *T, value any) error {
		switch v := value.(type) {
		case nil:
			return nil
		case time.Time:
			assign(target, v)
		case string:
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return err
			}
			assign(target, ts)
		default:
			return &TypeError{Want: "time", Got: value}
		}
		return nil
	}
}

func textValue(value any) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		c := *v
		return &c, nil
	default:
		return nil, &TypeError{Want: "text", Got: value}
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
