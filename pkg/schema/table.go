package schema

// ColumnType is the logical storage type of a column; dialects map it to SQL.
type ColumnType string

// Logical column types.
const (
	TypeText      ColumnType = "text"
	TypeID        ColumnType = "id"
	TypeSerial    ColumnType = "serial"
	TypeInteger   ColumnType = "integer"
	TypeBool      ColumnType = "bool"
	TypeFloat     ColumnType = "float"
	TypeTimestamp ColumnType = "timestamp"
)

// ForeignKey points a column at another managed table.
type ForeignKey struct {
	Table  string
	Column string
	// OnDelete is an SQL referential action such as "CASCADE"; empty means none.
	OnDelete string
}

// Column describes one table column.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	NotNull    bool
	// Indexed requests a plain index named ix_<table>_<column>.
	Indexed    bool
	References *ForeignKey
}

// Shape selects the index set a searchable field receives.
type Shape uint8

const (
	// ShapeExact fields get a plain index on the shadow column only.
	ShapeExact Shape = iota + 1
	// ShapeFuzzy fields also get a trigram index when the family supports it.
	ShapeFuzzy
)

// SearchField declares a raw text field whose normalized shadow column is searchable.
type SearchField struct {
	Field string
	Shape Shape
}

// ShadowColumn is the column holding the normalized form of the field.
func (f SearchField) ShadowColumn() string { return ShadowColumn(f.Field) }

// ShadowColumn returns the normalized column name paired with a raw field.
func ShadowColumn(field string) string { return field + "_normalized" }

// UniqueKey declares that Field is unique within Scope (e.g. name within group_id).
type UniqueKey struct {
	Field string
	Scope string
}

// Table is the storage definition of one entity type.
type Table struct {
	Name    string
	Columns []Column
	Search  []SearchField
	Unique  []UniqueKey
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns column names in declaration order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
