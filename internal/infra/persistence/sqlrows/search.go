package sqlrows

import (
	"fmt"
	"strings"

	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/schema"
)

// SearchIDs builds a query selecting the primary keys of t whose shadow
// columns contain text. With trigram set, rows similar under the pg_trgm `%`
// operator also match; callers only set it for trigram-family sessions.
// Results order by the first search column (nulls last), then id.
func SearchIDs(d sqlbundle.Dialect, t schema.Table, q domain.SearchQuery, text string, trigram bool) (string, []any) {
	var (
		where []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return Placeholder(d, len(args))
	}
	if q.GroupID != "" {
		if _, ok := t.Column("group_id"); ok {
			where = append(where, "group_id = "+bind(q.GroupID))
		}
	}
	if q.RecipeID != "" {
		if _, ok := t.Column("recipe_id"); ok {
			where = append(where, "recipe_id = "+bind(q.RecipeID))
		}
	}
	pattern := "%" + EscapeLike(text) + "%"
	var match []string
	for _, f := range t.Search {
		match = append(match, fmt.Sprintf("%s LIKE %s ESCAPE '\\'", f.ShadowColumn(), bind(pattern)))
		if trigram && text != "" && f.Shape == schema.ShapeFuzzy {
			match = append(match, fmt.Sprintf("%s %% %s", f.ShadowColumn(), bind(text)))
		}
	}
	if len(match) > 0 {
		where = append(where, "("+strings.Join(match, " OR ")+")")
	}

	var b strings.Builder
	pk := primaryKey(t)
	fmt.Fprintf(&b, "SELECT %s FROM %s", pk, t.Name)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if len(t.Search) > 0 {
		order := t.Search[0].ShadowColumn()
		collate := ""
		if d == sqlbundle.DialectPostgres {
			collate = ` COLLATE "C"`
		}
		fmt.Fprintf(&b, " ORDER BY %s IS NULL, %s%s, %s", order, order, collate, pk)
	} else {
		fmt.Fprintf(&b, " ORDER BY %s", pk)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}

// EscapeLike escapes LIKE wildcards with a backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
