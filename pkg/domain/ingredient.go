package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/domain/shadow"
	"ingredientcore/pkg/schema"
	"ingredientcore/pkg/textnorm"
)

// RecipeIngredient is one line of a recipe's ingredient list. A line without a
// recipe id is a detached draft.
type RecipeIngredient struct {
	ID          int64
	Position    *int
	RecipeID    *string
	Title       *string
	UnitID      *string
	FoodID      *string
	Quantity    *float64
	ReferenceID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	note                   *string
	originalText           *string
	noteNormalized         *string
	originalTextNormalized *string
}

var ingredientShadows = shadow.New[RecipeIngredient](string(EntityRecipeIngredient), textnorm.Normalize).
	Bind("note", "note_normalized",
		func(r *RecipeIngredient) **string { return &r.note },
		func(r *RecipeIngredient) **string { return &r.noteNormalized }).
	Bind("original_text", "original_text_normalized",
		func(r *RecipeIngredient) **string { return &r.originalText },
		func(r *RecipeIngredient) **string { return &r.originalTextNormalized })

var ingredientMutableSetters = fieldmap.Setters[RecipeIngredient]{
	"position":      fieldmap.Int(func(r *RecipeIngredient, v *int) { r.Position = v }),
	"recipe_id":     fieldmap.ID(func(r *RecipeIngredient, v *string) { r.RecipeID = v }),
	"title":         fieldmap.Text(func(r *RecipeIngredient, v *string) { r.Title = v }),
	"note":          fieldmap.Text((*RecipeIngredient).SetNote),
	"original_text": fieldmap.Text((*RecipeIngredient).SetOriginalText),
	"unit_id":       fieldmap.ID(func(r *RecipeIngredient, v *string) { r.UnitID = v }),
	"food_id":       fieldmap.ID(func(r *RecipeIngredient, v *string) { r.FoodID = v }),
	"quantity":      fieldmap.Float(func(r *RecipeIngredient, v *float64) { r.Quantity = v }),
	"reference_id":  setReferenceID,
}

var ingredientSetters = func() fieldmap.Setters[RecipeIngredient] {
	out := make(fieldmap.Setters[RecipeIngredient], len(ingredientMutableSetters)+3)
	for k, v := range ingredientMutableSetters {
		out[k] = v
	}
	out["id"] = setIngredientID
	out["created_at"] = fieldmap.Time(func(r *RecipeIngredient, v time.Time) { r.CreatedAt = v })
	out["updated_at"] = fieldmap.Time(func(r *RecipeIngredient, v time.Time) { r.UpdatedAt = v })
	return out
}()

// NewRecipeIngredient builds a line from fields, recomputes both shadows and
// ensures the line table plan in cat.
func NewRecipeIngredient(cat *schema.Catalog, fields fieldmap.Fields) (RecipeIngredient, error) {
	return fieldmap.Build(RecipeIngredient{}, fields, ingredientSetters, func(r *RecipeIngredient) error {
		ingredientShadows.Recompute(r)
		_, err := cat.Ensure(RecipeIngredientsTable())
		return err
	})
}

// ApplyRecipeIngredient assigns fields onto an existing line.
func ApplyRecipeIngredient(r *RecipeIngredient, fields fieldmap.Fields) error {
	return fieldmap.Populate(r, fields, ingredientMutableSetters)
}

// Note returns a copy of the free-text note.
func (r RecipeIngredient) Note() *string { return cloneString(r.note) }

// SetNote assigns the note and its normalized shadow.
func (r *RecipeIngredient) SetNote(v *string) { ingredientShadows.Assign(r, "note", v) }

// OriginalText returns a copy of the text the line was parsed from.
func (r RecipeIngredient) OriginalText() *string { return cloneString(r.originalText) }

// SetOriginalText assigns the original text and its normalized shadow.
func (r *RecipeIngredient) SetOriginalText(v *string) {
	ingredientShadows.Assign(r, "original_text", v)
}

// NoteNormalized returns the normalized note.
func (r RecipeIngredient) NoteNormalized() *string { return cloneString(r.noteNormalized) }

// OriginalTextNormalized returns the normalized original text.
func (r RecipeIngredient) OriginalTextNormalized() *string {
	return cloneString(r.originalTextNormalized)
}

// VerifyShadows reports a *shadow.DriftError when a shadow has drifted.
func (r *RecipeIngredient) VerifyShadows() error { return ingredientShadows.Verify(r) }

// Clone returns a deep copy of r.
func (r RecipeIngredient) Clone() RecipeIngredient {
	c := r
	c.Position = cloneInt(r.Position)
	c.RecipeID = cloneString(r.RecipeID)
	c.Title = cloneString(r.Title)
	c.UnitID = cloneString(r.UnitID)
	c.FoodID = cloneString(r.FoodID)
	c.Quantity = cloneFloat(r.Quantity)
	c.ReferenceID = cloneString(r.ReferenceID)
	c.note = cloneString(r.note)
	c.originalText = cloneString(r.originalText)
	c.noteNormalized = cloneString(r.noteNormalized)
	c.originalTextNormalized = cloneString(r.originalTextNormalized)
	return c
}

// SortRecipeIngredients orders lines by position ascending with nil positions
// last; equal positions fall back to id.
func SortRecipeIngredients(lines []RecipeIngredient) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].Position, lines[j].Position
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return lines[i].ID < lines[j].ID
	})
}

func setIngredientID(r *RecipeIngredient, value any) error {
	switch v := value.(type) {
	case nil:
		r.ID = 0
	case int64:
		r.ID = v
	case int:
		r.ID = int64(v)
	case float64:
		if v != float64(int64(v)) {
			return &fieldmap.TypeError{Want: "integer id", Got: value}
		}
		r.ID = int64(v)
	default:
		return &fieldmap.TypeError{Want: "integer id", Got: value}
	}
	return nil
}

func setReferenceID(r *RecipeIngredient, value any) error {
	var raw *string
	if err := fieldmap.ID(func(_ *RecipeIngredient, v *string) { raw = v })(r, value); err != nil {
		return err
	}
	if raw == nil {
		r.ReferenceID = nil
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return fmt.Errorf("reference id: %w", err)
	}
	s := id.String()
	r.ReferenceID = &s
	return nil
}

type recipeIngredientJSON struct {
	ID                     int64     `json:"id"`
	Position               *int      `json:"position"`
	RecipeID               *string   `json:"recipe_id"`
	Title                  *string   `json:"title"`
	Note                   *string   `json:"note"`
	UnitID                 *string   `json:"unit_id"`
	FoodID                 *string   `json:"food_id"`
	Quantity               *float64  `json:"quantity"`
	OriginalText           *string   `json:"original_text"`
	ReferenceID            *string   `json:"reference_id"`
	NoteNormalized         *string   `json:"note_normalized"`
	OriginalTextNormalized *string   `json:"original_text_normalized"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// MarshalJSON includes the normalized shadows as read-only attributes.
func (r RecipeIngredient) MarshalJSON() ([]byte, error) {
	return json.Marshal(recipeIngredientJSON{
		ID:                     r.ID,
		Position:               r.Position,
		RecipeID:               r.RecipeID,
		Title:                  r.Title,
		Note:                   r.note,
		UnitID:                 r.UnitID,
		FoodID:                 r.FoodID,
		Quantity:               r.Quantity,
		OriginalText:           r.originalText,
		ReferenceID:            r.ReferenceID,
		NoteNormalized:         r.noteNormalized,
		OriginalTextNormalized: r.originalTextNormalized,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	})
}

// UnmarshalJSON populates r through the field-map path and recomputes its shadows.
func (r *RecipeIngredient) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	var out RecipeIngredient
	if err := fieldmap.Populate(&out, fields, ingredientSetters); err != nil {
		return err
	}
	ingredientShadows.Recompute(&out)
	*r = out
	return nil
}

// Row returns the persisted column values of r keyed by column name.
func (r RecipeIngredient) Row() fieldmap.Fields {
	return fieldmap.Fields{
		"id":                       r.ID,
		"position":                 cloneInt(r.Position),
		"recipe_id":                cloneString(r.RecipeID),
		"title":                    cloneString(r.Title),
		"note":                     cloneString(r.note),
		"unit_id":                  cloneString(r.UnitID),
		"food_id":                  cloneString(r.FoodID),
		"quantity":                 cloneFloat(r.Quantity),
		"original_text":            cloneString(r.originalText),
		"reference_id":             cloneString(r.ReferenceID),
		"note_normalized":          cloneString(r.noteNormalized),
		"original_text_normalized": cloneString(r.originalTextNormalized),
		"created_at":               r.CreatedAt,
		"updated_at":               r.UpdatedAt,
	}
}
