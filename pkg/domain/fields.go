package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"ingredientcore/pkg/domain/fieldmap"
)

// ErrGroupRequired is returned when a unit or food has no owning group.
var ErrGroupRequired = errors.New("domain: group_id required")

func withBaseSetters[T any](mutable fieldmap.Setters[T], base func(*T) *Base) fieldmap.Setters[T] {
	out := make(fieldmap.Setters[T], len(mutable)+3)
	for k, v := range mutable {
		out[k] = v
	}
	out["id"] = fieldmap.ID(func(t *T, v *string) { base(t).ID = deref(v) })
	out["created_at"] = fieldmap.Time(func(t *T, v time.Time) { base(t).CreatedAt = v })
	out["updated_at"] = fieldmap.Time(func(t *T, v time.Time) { base(t).UpdatedAt = v })
	return out
}

func decodeFields(data []byte) (fieldmap.Fields, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fieldmap.Fields{}, nil
	}
	var fields fieldmap.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
