package domain

import (
	"encoding/json"
	"time"

	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/domain/shadow"
	"ingredientcore/pkg/schema"
	"ingredientcore/pkg/textnorm"
)

// Unit is a named measurement unit scoped to a group.
type Unit struct {
	Base
	GroupID         string
	Description     *string
	UseAbbreviation bool
	Fraction        bool

	name                   *string
	abbreviation           *string
	nameNormalized         *string
	abbreviationNormalized *string
}

var unitShadows = shadow.New[Unit](string(EntityUnit), textnorm.Normalize).
	Bind("name", "name_normalized",
		func(u *Unit) **string { return &u.name },
		func(u *Unit) **string { return &u.nameNormalized }).
	Bind("abbreviation", "abbreviation_normalized",
		func(u *Unit) **string { return &u.abbreviation },
		func(u *Unit) **string { return &u.abbreviationNormalized })

var unitMutableSetters = fieldmap.Setters[Unit]{
	"group_id":         fieldmap.ID(func(u *Unit, v *string) { u.GroupID = deref(v) }),
	"name":             fieldmap.Text((*Unit).SetName),
	"abbreviation":     fieldmap.Text((*Unit).SetAbbreviation),
	"description":      fieldmap.Text(func(u *Unit, v *string) { u.Description = v }),
	"use_abbreviation": fieldmap.Bool(func(u *Unit, v bool) { u.UseAbbreviation = v }),
	"fraction":         fieldmap.Bool(func(u *Unit, v bool) { u.Fraction = v }),
}

var unitSetters = withBaseSetters(unitMutableSetters, func(u *Unit) *Base { return &u.Base })

// NewUnit builds a unit from fields, recomputes its shadows and ensures the
// unit table plan in cat.
func NewUnit(cat *schema.Catalog, fields fieldmap.Fields) (Unit, error) {
	return fieldmap.Build(Unit{Fraction: true}, fields, unitSetters, func(u *Unit) error {
		unitShadows.Recompute(u)
		if u.GroupID == "" {
			return ErrGroupRequired
		}
		_, err := cat.Ensure(UnitsTable())
		return err
	})
}

// ApplyUnit assigns fields onto an existing unit. Identity and timestamps are
// not assignable through it.
func ApplyUnit(u *Unit, fields fieldmap.Fields) error {
	if err := fieldmap.Populate(u, fields, unitMutableSetters); err != nil {
		return err
	}
	if u.GroupID == "" {
		return ErrGroupRequired
	}
	return nil
}

// Name returns a copy of the display name.
func (u Unit) Name() *string { return cloneString(u.name) }

// SetName assigns the display name and its normalized shadow.
func (u *Unit) SetName(v *string) { unitShadows.Assign(u, "name", v) }

// Abbreviation returns a copy of the abbreviation.
func (u Unit) Abbreviation() *string { return cloneString(u.abbreviation) }

// SetAbbreviation assigns the abbreviation and its normalized shadow.
func (u *Unit) SetAbbreviation(v *string) { unitShadows.Assign(u, "abbreviation", v) }

// NameNormalized returns the normalized name, nil when the name is nil.
func (u Unit) NameNormalized() *string { return cloneString(u.nameNormalized) }

// AbbreviationNormalized returns the normalized abbreviation.
func (u Unit) AbbreviationNormalized() *string { return cloneString(u.abbreviationNormalized) }

// VerifyShadows reports a *shadow.DriftError when a shadow no longer matches its raw value.
func (u *Unit) VerifyShadows() error { return unitShadows.Verify(u) }

// Clone returns a deep copy of u.
func (u Unit) Clone() Unit {
	c := u
	c.Description = cloneString(u.Description)
	c.name = cloneString(u.name)
	c.abbreviation = cloneString(u.abbreviation)
	c.nameNormalized = cloneString(u.nameNormalized)
	c.abbreviationNormalized = cloneString(u.abbreviationNormalized)
	return c
}

type unitJSON struct {
	ID                     string    `json:"id"`
	GroupID                string    `json:"group_id"`
	Name                   *string   `json:"name"`
	Description            *string   `json:"description"`
	Abbreviation           *string   `json:"abbreviation"`
	UseAbbreviation        bool      `json:"use_abbreviation"`
	Fraction               bool      `json:"fraction"`
	NameNormalized         *string   `json:"name_normalized"`
	AbbreviationNormalized *string   `json:"abbreviation_normalized"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// MarshalJSON includes the normalized shadows as read-only attributes.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(unitJSON{
		ID:                     u.ID,
		GroupID:                u.GroupID,
		Name:                   u.name,
		Description:            u.Description,
		Abbreviation:           u.abbreviation,
		UseAbbreviation:        u.UseAbbreviation,
		Fraction:               u.Fraction,
		NameNormalized:         u.nameNormalized,
		AbbreviationNormalized: u.abbreviationNormalized,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	})
}

// UnmarshalJSON populates u through the field-map path. Incoming normalized
// attributes are ignored and recomputed.
func (u *Unit) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	out := Unit{Fraction: true}
	if err := fieldmap.Populate(&out, fields, unitSetters); err != nil {
		return err
	}
	unitShadows.Recompute(&out)
	*u = out
	return nil
}

// Row returns the persisted column values of u keyed by column name.
func (u Unit) Row() fieldmap.Fields {
	return fieldmap.Fields{
		"id":                      u.ID,
		"group_id":                u.GroupID,
		"name":                    cloneString(u.name),
		"description":             cloneString(u.Description),
		"abbreviation":            cloneString(u.abbreviation),
		"use_abbreviation":        u.UseAbbreviation,
		"fraction":                u.Fraction,
		"name_normalized":         cloneString(u.nameNormalized),
		"abbreviation_normalized": cloneString(u.abbreviationNormalized),
		"created_at":              u.CreatedAt,
		"updated_at":              u.UpdatedAt,
	}
}
