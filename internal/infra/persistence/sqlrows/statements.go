// Package sqlrows maps catalog entities to table rows and builds the SQL the
// SQLite and Postgres stores share: upserts, deletes, full-table loads and
// shadow-column searches.
package sqlrows

import (
	"fmt"
	"strconv"
	"strings"

	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/pkg/schema"
)

// Placeholder returns the n-th (1-based) bind parameter for d.
func Placeholder(d sqlbundle.Dialect, n int) string {
	if d == sqlbundle.DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func primaryKey(t schema.Table) string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return "id"
}

// Upsert returns an INSERT that replaces the row sharing the primary key.
func Upsert(d sqlbundle.Dialect, t schema.Table) string {
	cols := t.ColumnNames()
	params := make([]string, len(cols))
	var sets []string
	pk := primaryKey(t)
	for i, c := range cols {
		params[i] = Placeholder(d, i+1)
		if c != pk {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		t.Name, strings.Join(cols, ", "), strings.Join(params, ", "), pk, strings.Join(sets, ", "))
}

// Delete returns a DELETE of every row whose column equals the first parameter.
func Delete(d sqlbundle.Dialect, table, column string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", table, column, Placeholder(d, 1))
}

// Select returns a query for every column of every row of t.
func Select(t schema.Table) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.ColumnNames(), ", "), t.Name)
}
