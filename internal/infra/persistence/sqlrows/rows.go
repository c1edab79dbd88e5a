package sqlrows

import (
	"fmt"
	"strconv"
	"time"

	"ingredientcore/internal/entitymodel/sqlbundle"
	"ingredientcore/pkg/domain/fieldmap"
	"ingredientcore/pkg/schema"
)

// Args orders row values by the table's columns and converts them to values
// the dialect's driver stores faithfully.
func Args(d sqlbundle.Dialect, t schema.Table, row fieldmap.Fields) []any {
	out := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		v := row[c.Name]
		if c.Type == schema.TypeTimestamp && d == sqlbundle.DialectSQLite {
			if ts, ok := v.(time.Time); ok {
				v = ts.UTC().Format(time.RFC3339Nano)
			}
		}
		out[i] = v
	}
	return out
}

// Decode converts scanned driver values, in column order, into a field map
// keyed by column name.
func Decode(t schema.Table, values []any) (fieldmap.Fields, error) {
	if len(values) != len(t.Columns) {
		return nil, fmt.Errorf("decode %s: %d values for %d columns", t.Name, len(values), len(t.Columns))
	}
	out := make(fieldmap.Fields, len(values))
	for i, c := range t.Columns {
		v, err := decodeValue(c.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", t.Name, c.Name, err)
		}
		out[c.Name] = v
	}
	return out, nil
}

func decodeValue(typ schema.ColumnType, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}
	switch typ {
	case schema.TypeText, schema.TypeID:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case schema.TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			return strconv.ParseBool(x)
		}
	case schema.TypeInteger, schema.TypeSerial:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case float64:
			return int64(x), nil
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case schema.TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case string:
			return strconv.ParseFloat(x, 64)
		}
	case schema.TypeTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, err
			}
			return ts.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s column", v, typ)
}
