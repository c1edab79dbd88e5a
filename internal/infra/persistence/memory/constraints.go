package memory

import (
	"fmt"
	"slices"
	"strings"

	"ingredientcore/pkg/domain"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

// checkConstraints evaluates the plans' uniqueness constraints against the final
// state of every row created or updated in changes. Rows removed later in the
// same transaction are skipped, and rows with a NULL key column never conflict.
func checkConstraints(state *memoryState, constraints []schema.Constraint, changes []domain.Change) domain.Result {
	var result domain.Result
	for _, t := range touchedRows(changes) {
		rows := tableRows(state, t.table)
		row, ok := rows[t.id]
		if !ok {
			continue
		}
		for _, c := range constraints {
			if c.Table != t.table {
				continue
			}
			key, ok := constraintKey(row, c.Columns)
			if !ok {
				continue
			}
			for otherID, other := range rows {
				if otherID == t.id {
					continue
				}
				if otherKey, ok := constraintKey(other, c.Columns); ok && slices.Equal(otherKey, key) {
					result.Violations = append(result.Violations, domain.Violation{
						Rule:     domain.UniqueConstraintRule + c.Name,
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("%s: duplicate (%s) = (%s)", c.Name, strings.Join(c.Columns, ", "), strings.Join(key, ", ")),
						Entity:   t.entity,
						EntityID: t.id,
					})
					break
				}
			}
		}
	}
	return result
}

type touchedRow struct {
	entity    domain.EntityType
	table, id string
}

// touchedRows lists each created or updated row once, in first-change order.
func touchedRows(changes []domain.Change) []touchedRow {
	var out []touchedRow
	seen := make(map[touchedRow]bool)
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		var t touchedRow
		switch after := change.After.(type) {
		case domain.Unit:
			t = touchedRow{entity: change.Entity, table: domain.TableUnits, id: after.ID}
		case domain.Food:
			t = touchedRow{entity: change.Entity, table: domain.TableFoods, id: after.ID}
		default:
			continue
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func tableRows(state *memoryState, table string) map[string]fieldmap.Fields {
	out := make(map[string]fieldmap.Fields)
	switch table {
	case domain.TableUnits:
		for id, u := range state.units {
			out[id] = u.Row()
		}
	case domain.TableFoods:
		for id, f := range state.foods {
			out[id] = f.Row()
		}
	}
	return out
}

func constraintKey(row fieldmap.Fields, columns []string) ([]string, bool) {
	parts := make([]string, len(columns))
	for i, col := range columns {
		switch v := row[col].(type) {
		case string:
			parts[i] = v
		case *string:
			if v == nil {
				return nil, false
			}
			parts[i] = *v
		default:
			return nil, false
		}
	}
	return parts, true
}
