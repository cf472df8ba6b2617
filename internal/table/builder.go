package table

import (
	"fmt"
	"time"
)

// FromOrderedRows builds a Table from row-oriented data, inferring each
// column's physical Kind from the first non-null value observed. colNames
// fixes the column order (callers typically derive it from the first row's
// key order, since a JSON object's own key order is not preserved by Go's
// decoder without extra bookkeeping — see adapter/http.go's orderedRow).
func FromOrderedRows(colNames []string, rows []Row) (Table, error) {
	cols := make([]Column, len(colNames))
	for i, n := range colNames {
		cols[i] = Column{Name: n, Kind: StringKind}
	}
	kindKnown := make([]bool, len(colNames))

	for _, r := range rows {
		for i, n := range colNames {
			v, ok := r[n]
			if !ok || v == nil {
				continue
			}
			if kindKnown[i] {
				continue
			}
			k, err := inferKind(v)
			if err != nil {
				return Table{}, fmt.Errorf("table: column %q: %w", n, err)
			}
			cols[i].Kind = k
			kindKnown[i] = true
		}
	}

	for i := range cols {
		allocColumn(&cols[i], len(rows))
	}

	for ri, r := range rows {
		for i, n := range colNames {
			v, ok := r[n]
			if !ok || v == nil {
				cols[i].Null[ri] = true
				continue
			}
			if err := setValue(&cols[i], ri, v); err != nil {
				return Table{}, fmt.Errorf("table: column %q row %d: %w", n, ri, err)
			}
		}
	}

	return Table{Columns: cols, Rows: len(rows)}, nil
}

func allocColumn(c *Column, n int) {
	c.Null = make([]bool, n)
	switch c.Kind {
	case IntKind:
		c.Ints = make([]int64, n)
	case FloatKind:
		c.Floats = make([]float64, n)
	case BoolKind:
		c.Bools = make([]bool, n)
	case StringKind:
		c.Strings = make([]string, n)
	case TimeKind:
		c.Times = make([]time.Time, n)
	}
}

func inferKind(v any) (Kind, error) {
	switch v.(type) {
	case bool:
		return BoolKind, nil
	case int, int32, int64:
		return IntKind, nil
	case float32, float64:
		return FloatKind, nil
	case string:
		return StringKind, nil
	case time.Time:
		return TimeKind, nil
	default:
		return StringKind, fmt.Errorf("unsupported value type %T", v)
	}
}

func setValue(c *Column, i int, v any) error {
	switch c.Kind {
	case IntKind:
		iv, err := toInt64(v)
		if err != nil {
			return err
		}
		c.Ints[i] = iv
	case FloatKind:
		fv, err := toFloat64(v)
		if err != nil {
			return err
		}
		c.Floats[i] = fv
	case BoolKind:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		c.Bools[i] = bv
	case StringKind:
		sv, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		c.Strings[i] = sv
	case TimeKind:
		tv, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", v)
		}
		c.Times[i] = tv
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected float, got %T", v)
	}
}
