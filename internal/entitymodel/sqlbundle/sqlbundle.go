// Package sqlbundle renders schema plans into dialect-specific DDL bundles for
// the SQL persistence adapters.
package sqlbundle

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

// Dialect selects the SQL flavour a bundle is rendered for.
type Dialect int

const (
	// DialectSQLite renders for modernc.org/sqlite.
	DialectSQLite Dialect = iota + 1
	// DialectPostgres renders for PostgreSQL with the pg_trgm extension.
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ErrDialectMismatch is returned when a plan needs index methods the dialect lacks.
var ErrDialectMismatch = errors.New("sqlbundle: plan not supported by dialect")

var columnTypes = map[Dialect]map[schema.ColumnType]string{
	DialectSQLite: {
		schema.TypeText:      "TEXT",
		schema.TypeID:        "TEXT",
		schema.TypeSerial:    "INTEGER",
		schema.TypeInteger:   "INTEGER",
		schema.TypeBool:      "INTEGER",
		schema.TypeFloat:     "REAL",
		schema.TypeTimestamp: "TEXT",
	},
	DialectPostgres: {
		schema.TypeText:      "TEXT",
		schema.TypeID:        "TEXT",
		schema.TypeSerial:    "BIGINT",
		schema.TypeInteger:   "INTEGER",
		schema.TypeBool:      "BOOLEAN",
		schema.TypeFloat:     "DOUBLE PRECISION",
		schema.TypeTimestamp: "TIMESTAMPTZ",
	},
}

// Render produces idempotent DDL for plans in the given order. Callers pass
// plans in foreign-key dependency order.
func Render(d Dialect, plans []schema.Plan) (string, error) {
	types, ok := columnTypes[d]
	if !ok {
		return "", fmt.Errorf("sqlbundle: unknown %s", d)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- ingredientcore %s schema\n", d)
	if d == DialectPostgres && needsTrigram(plans) {
		b.WriteString("CREATE EXTENSION IF NOT EXISTS pg_trgm;\n")
	}
	for _, p := range plans {
		if d == DialectSQLite && p.CountMethod(schema.MethodTrigram) > 0 {
			return "", fmt.Errorf("%w: %s plan for %s has trigram indexes", ErrDialectMismatch, d, p.Table.Name)
		}
		b.WriteString("\n")
		if err := writeTable(&b, types, p); err != nil {
			return "", err
		}
		for _, ix := range p.Indexes {
			writeIndex(&b, ix)
		}
	}
	return b.String(), nil
}

// RenderCatalog renders every catalog table after ensuring its plan in cat.
func RenderCatalog(d Dialect, cat *schema.Catalog) (string, error) {
	plans, err := domain.EnsureTables(cat)
	if err != nil {
		return "", err
	}
	return Render(d, plans)
}

// SQLite returns the catalog DDL for a generic-family SQLite session.
func SQLite() string {
	return mustRender(DialectSQLite, "sqlite")
}

// Postgres returns the catalog DDL for a trigram-family Postgres session.
func Postgres() string {
	return mustRender(DialectPostgres, "postgres")
}

func mustRender(d Dialect, engine string) string {
	ddl, err := RenderCatalog(d, schema.MustCatalog(engine))
	if err != nil {
		panic(err)
	}
	return ddl
}

func needsTrigram(plans []schema.Plan) bool {
	for _, p := range plans {
		if p.CountMethod(schema.MethodTrigram) > 0 {
			return true
		}
	}
	return false
}

func writeTable(b *strings.Builder, types map[schema.ColumnType]string, p schema.Plan) error {
	t := p.Table
	lines := make([]string, 0, len(t.Columns)+len(p.Constraints))
	for _, c := range t.Columns {
		sqlType, ok := types[c.Type]
		if !ok {
			return fmt.Errorf("sqlbundle: %s.%s: unsupported column type %q", t.Name, c.Name, c.Type)
		}
		def := c.Name + " " + sqlType
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		} else if c.NotNull {
			def += " NOT NULL"
		}
		if fk := c.References; fk != nil {
			def += fmt.Sprintf(" REFERENCES %s(%s)", fk.Table, fk.Column)
			if fk.OnDelete != "" {
				def += " ON DELETE " + fk.OnDelete
			}
		}
		lines = append(lines, def)
	}
	for _, con := range p.Constraints {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", con.Name, strings.Join(con.Columns, ", ")))
	}
	fmt.Fprintf(b, "CREATE TABLE IF NOT EXISTS %s (\n    %s\n);\n", t.Name, strings.Join(lines, ",\n    "))
	return nil
}

func writeIndex(b *strings.Builder, ix schema.Index) {
	kind := "INDEX"
	if ix.Unique {
		kind = "UNIQUE INDEX"
	}
	cols := strings.Join(ix.Columns, ", ")
	if ix.Method == schema.MethodTrigram {
		ops := make([]string, len(ix.Columns))
		for i, c := range ix.Columns {
			ops[i] = c + " gin_trgm_ops"
		}
		fmt.Fprintf(b, "CREATE %s IF NOT EXISTS %s ON %s USING gin (%s);\n", kind, ix.Name, ix.Table, strings.Join(ops, ", "))
		return
	}
	fmt.Fprintf(b, "CREATE %s IF NOT EXISTS %s ON %s (%s);\n", kind, ix.Name, ix.Table, cols)
}

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}

	return stmts
}
