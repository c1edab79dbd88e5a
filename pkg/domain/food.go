package domain

import (
	"encoding/json"
	"sort"
	"time"

	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/domain/shadow"
	"ingredientcore/pkg/schema"
	"ingredientcore/pkg/textnorm"
)

// FoodExtra is a key/value extension record owned by a food. Extras are
// destroyed with their food.
type FoodExtra struct {
	ID    string  `json:"id"`
	Key   string  `json:"key_name"`
	Value *string `json:"value"`
}

// Food is a named ingredient substance scoped to a group.
type Food struct {
	Base
	GroupID     string
	Description *string
	LabelID     *string
	Extras      []FoodExtra

	name           *string
	nameNormalized *string
}

var foodShadows = shadow.New[Food](string(EntityFood), textnorm.Normalize).
	Bind("name", "name_normalized",
		func(f *Food) **string { return &f.name },
		func(f *Food) **string { return &f.nameNormalized })

var foodMutableSetters = fieldmap.Setters[Food]{
	"group_id":    fieldmap.ID(func(f *Food, v *string) { f.GroupID = deref(v) }),
	"name":        fieldmap.Text((*Food).SetName),
	"description": fieldmap.Text(func(f *Food, v *string) { f.Description = v }),
	"label_id":    fieldmap.ID(func(f *Food, v *string) { f.LabelID = v }),
	"extras":      setExtras,
}

var foodSetters = withBaseSetters(foodMutableSetters, func(f *Food) *Base { return &f.Base })

// NewFood builds a food from fields, recomputes its shadow and ensures the
// food table plans in cat.
func NewFood(cat *schema.Catalog, fields fieldmap.Fields) (Food, error) {
	return fieldmap.Build(Food{}, fields, foodSetters, func(f *Food) error {
		foodShadows.Recompute(f)
		if f.GroupID == "" {
			return ErrGroupRequired
		}
		if _, err := cat.Ensure(FoodsTable()); err != nil {
			return err
		}
		_, err := cat.Ensure(FoodExtrasTable())
		return err
	})
}

// ApplyFood assigns fields onto an existing food. Supplying extras replaces the
// whole extension set.
func ApplyFood(f *Food, fields fieldmap.Fields) error {
	if err := fieldmap.Populate(f, fields, foodMutableSetters); err != nil {
		return err
	}
	if f.GroupID == "" {
		return ErrGroupRequired
	}
	return nil
}

// Name returns a copy of the display name.
func (f Food) Name() *string { return cloneString(f.name) }

// SetName assigns the display name and its normalized shadow.
func (f *Food) SetName(v *string) { foodShadows.Assign(f, "name", v) }

// NameNormalized returns the normalized name.
func (f Food) NameNormalized() *string { return cloneString(f.nameNormalized) }

// VerifyShadows reports a *shadow.DriftError when the shadow has drifted.
func (f *Food) VerifyShadows() error { return foodShadows.Verify(f) }

// Extra returns the value stored under key.
func (f Food) Extra(key string) (*string, bool) {
	for _, e := range f.Extras {
		if e.Key == key {
			return cloneString(e.Value), true
		}
	}
	return nil, false
}

// Clone returns a deep copy of f.
func (f Food) Clone() Food {
	c := f
	c.Description = cloneString(f.Description)
	c.LabelID = cloneString(f.LabelID)
	c.name = cloneString(f.name)
	c.nameNormalized = cloneString(f.nameNormalized)
	if f.Extras != nil {
		c.Extras = make([]FoodExtra, len(f.Extras))
		for i, e := range f.Extras {
			c.Extras[i] = FoodExtra{ID: e.ID, Key: e.Key, Value: cloneString(e.Value)}
		}
	}
	return c
}

func setExtras(f *Food, value any) error {
	switch v := value.(type) {
	case nil:
		f.Extras = nil
	case []FoodExtra:
		f.Extras = Food{Extras: v}.Clone().Extras
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		extras := make([]FoodExtra, 0, len(keys))
		for _, k := range keys {
			val := v[k]
			extras = append(extras, FoodExtra{Key: k, Value: &val})
		}
		f.Extras = extras
	case []any:
		extras := make([]FoodExtra, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return &fieldmap.TypeError{Want: "extra object", Got: item}
			}
			key, _ := m["key_name"].(string)
			if key == "" {
				return &fieldmap.TypeError{Want: "extra key_name", Got: m["key_name"]}
			}
			extra := FoodExtra{Key: key}
			if id, ok := m["id"].(string); ok {
				extra.ID = id
			}
			if val, ok := m["value"].(string); ok {
				extra.Value = &val
			}
			extras = append(extras, extra)
		}
		f.Extras = extras
	default:
		return &fieldmap.TypeError{Want: "extras", Got: value}
	}
	return nil
}

type foodJSON struct {
	ID             string      `json:"id"`
	GroupID        string      `json:"group_id"`
	Name           *string     `json:"name"`
	Description    *string     `json:"description"`
	LabelID        *string     `json:"label_id"`
	Extras         []FoodExtra `json:"extras"`
	NameNormalized *string     `json:"name_normalized"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// MarshalJSON includes the normalized shadow as a read-only attribute.
func (f Food) MarshalJSON() ([]byte, error) {
	return json.Marshal(foodJSON{
		ID:             f.ID,
		GroupID:        f.GroupID,
		Name:           f.name,
		Description:    f.Description,
		LabelID:        f.LabelID,
		Extras:         f.Extras,
		NameNormalized: f.nameNormalized,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	})
}

// UnmarshalJSON populates f through the field-map path and recomputes its shadow.
func (f *Food) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	var out Food
	if err := fieldmap.Populate(&out, fields, foodSetters); err != nil {
		return err
	}
	foodShadows.Recompute(&out)
	*f = out
	return nil
}

// Row returns the persisted column values of f keyed by column name. Extras
// are stored separately, see ExtraRows.
func (f Food) Row() fieldmap.Fields {
	return fieldmap.Fields{
		"id":              f.ID,
		"group_id":        f.GroupID,
		"name":            cloneString(f.name),
		"description":     cloneString(f.Description),
		"label_id":        cloneString(f.LabelID),
		"name_normalized": cloneString(f.nameNormalized),
		"created_at":      f.CreatedAt,
		"updated_at":      f.UpdatedAt,
	}
}

// ExtraRows returns the ingredient_food_extras rows owned by f.
func (f Food) ExtraRows() []fieldmap.Fields {
	out := make([]fieldmap.Fields, len(f.Extras))
	for i, e := range f.Extras {
		out[i] = fieldmap.Fields{
			"id":                 e.ID,
			"ingredient_food_id": f.ID,
			"key_name":           e.Key,
			"value":              cloneString(e.Value),
		}
	}
	return out
}
