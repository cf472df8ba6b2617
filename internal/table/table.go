// Package table implements the column-oriented, struct-of-arrays table model
// used throughout SkewSentry: a small closed set of physical column types
// (int64, float64, bool, string, time.Time), each with an explicit null mask.
//
// Per the design note in SPEC_FULL.md §4 / §9, the comparator dispatches on the
// *declared* spec dtype, not on a column's physical Kind here — this package only
// stores whatever concrete values an adapter or loader produced; coercion to the
// feature contract's dtype happens at comparison time.
package table

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the physical representation of a column's values.
type Kind int

const (
	IntKind Kind = iota
	FloatKind
	BoolKind
	StringKind
	TimeKind
)

func (k Kind) String() string {
	switch k {
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BoolKind:
		return "bool"
	case StringKind:
		return "string"
	case TimeKind:
		return "time"
	default:
		return "unknown"
	}
}

// Column is a single named, typed array with an explicit null mask.
type Column struct {
	Name    string
	Kind    Kind
	Ints    []int64
	Floats  []float64
	Bools   []bool
	Strings []string
	Times   []time.Time
	Null    []bool
}

// Len reports the number of rows in the column.
func (c *Column) Len() int { return len(c.Null) }

// Value returns the boxed value at row i, or nil if the cell is null.
func (c *Column) Value(i int) any {
	if c.Null[i] {
		return nil
	}
	switch c.Kind {
	case IntKind:
		return c.Ints[i]
	case FloatKind:
		return c.Floats[i]
	case BoolKind:
		return c.Bools[i]
	case StringKind:
		return c.Strings[i]
	case TimeKind:
		return c.Times[i]
	default:
		return nil
	}
}

// Table is an ordered set of same-length columns sharing a row count.
type Table struct {
	Columns []Column
	Rows    int
}

// New creates an empty table with the given column names and kinds.
func New(names []string, kinds []Kind) Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: kinds[i]}
	}
	return Table{Columns: cols}
}

// Header returns the table's column names in order.
func (t Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Col returns the named column and whether it exists.
func (t Table) Col(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// HasColumns reports whether every name in names is present in the table.
func (t Table) HasColumns(names []string) bool {
	for _, n := range names {
		if _, ok := t.Col(n); !ok {
			return false
		}
	}
	return true
}

// Select projects the table down to the named columns, in the order requested.
// It returns an error naming the first missing column.
func (t Table) Select(names []string) (Table, error) {
	out := Table{Rows: t.Rows}
	for _, n := range names {
		col, ok := t.Col(n)
		if !ok {
			return Table{}, fmt.Errorf("table: column %q not found", n)
		}
		out.Columns = append(out.Columns, *col)
	}
	return out, nil
}

// Slice returns a contiguous row window [start, end) as a new table. Every
// column's values are copied, so the result shares no backing arrays with
// the receiver.
func (t Table) Slice(start, end int) Table {
	if start < 0 {
		start = 0
	}
	if end > t.Rows {
		end = t.Rows
	}
	if end < start {
		end = start
	}
	out := Table{Rows: end - start}
	for _, c := range t.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind, Null: append([]bool{}, c.Null[start:end]...)}
		switch c.Kind {
		case IntKind:
			nc.Ints = append([]int64{}, c.Ints[start:end]...)
		case FloatKind:
			nc.Floats = append([]float64{}, c.Floats[start:end]...)
		case BoolKind:
			nc.Bools = append([]bool{}, c.Bools[start:end]...)
		case StringKind:
			nc.Strings = append([]string{}, c.Strings[start:end]...)
		case TimeKind:
			nc.Times = append([]time.Time{}, c.Times[start:end]...)
		}
		out.Columns = append(out.Columns, nc)
	}
	return out
}

// Concat appends the rows of tables in order. The first table with columns
// fixes the schema; every later table must have each of those columns, by
// name and with the same Kind, in any order. Columns a later table has
// beyond that schema are dropped, and zero-column tables are skipped.
func Concat(tables ...Table) (Table, error) {
	var out Table
	first := true
	for _, tb := range tables {
		if first && len(tb.Columns) > 0 {
			out = Table{Columns: make([]Column, len(tb.Columns))}
			for i, c := range tb.Columns {
				out.Columns[i] = Column{Name: c.Name, Kind: c.Kind}
			}
			first = false
		}
		if len(tb.Columns) == 0 {
			continue
		}
		for i, c := range out.Columns {
			src, ok := tb.Col(c.Name)
			if !ok {
				return Table{}, fmt.Errorf("table: concat schema mismatch, missing column %q", c.Name)
			}
			if src.Kind != c.Kind {
				return Table{}, fmt.Errorf("table: concat schema mismatch on column %q", c.Name)
			}
			out.Columns[i].Null = append(out.Columns[i].Null, src.Null...)
			switch c.Kind {
			case IntKind:
				out.Columns[i].Ints = append(out.Columns[i].Ints, src.Ints...)
			case FloatKind:
				out.Columns[i].Floats = append(out.Columns[i].Floats, src.Floats...)
			case BoolKind:
				out.Columns[i].Bools = append(out.Columns[i].Bools, src.Bools...)
			case StringKind:
				out.Columns[i].Strings = append(out.Columns[i].Strings, src.Strings...)
			case TimeKind:
				out.Columns[i].Times = append(out.Columns[i].Times, src.Times...)
			}
		}
		out.Rows += tb.Rows
	}
	return out, nil
}

// Row is a boxed, per-row view: column name to scalar value, nil for null.
type Row map[string]any

// RowAt boxes row i of the table into a Row.
func (t Table) RowAt(i int) Row {
	r := make(Row, len(t.Columns))
	for _, c := range t.Columns {
		r[c.Name] = c.Value(i)
	}
	return r
}

// AllRows returns every row, boxed, in table order.
func (t Table) AllRows() []Row {
	out := make([]Row, t.Rows)
	for i := 0; i < t.Rows; i++ {
		out[i] = t.RowAt(i)
	}
	return out
}

// KeyTuple renders the key columns of row i into a string usable as a map key
// for alignment/joins. Distinct physical types never collide because each
// value is tagged with its Kind.
func (t Table) KeyTuple(row int, keys []string) (string, error) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		col, ok := t.Col(k)
		if !ok {
			return "", fmt.Errorf("table: key column %q not found", k)
		}
		if col.Null[row] {
			parts[i] = "k:null"
			continue
		}
		parts[i] = fmt.Sprintf("k%d:%v", col.Kind, col.Value(row))
	}
	return strings.Join(parts, "\x1f"), nil
}

// SortedRowOrder returns row indices sorted ascending by the key columns'
// string representation, giving a canonical, deterministic ordering (spec.md
// §4.3: "ordered identically by some canonical key ordering").
func (t Table) SortedRowOrder(keys []string) ([]int, error) {
	idx := make([]int, t.Rows)
	keyStrs := make([]string, t.Rows)
	for i := 0; i < t.Rows; i++ {
		idx[i] = i
		ks, err := t.KeyTuple(i, keys)
		if err != nil {
			return nil, err
		}
		keyStrs[i] = ks
	}
	sort.Slice(idx, func(a, b int) bool { return keyStrs[idx[a]] < keyStrs[idx[b]] })
	return idx, nil
}

// Gather returns a new table containing rows at the given indices, in order.
func (t Table) Gather(indices []int) Table {
	out := Table{Rows: len(indices)}
	for _, c := range t.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind, Null: make([]bool, len(indices))}
		switch c.Kind {
		case IntKind:
			nc.Ints = make([]int64, len(indices))
		case FloatKind:
			nc.Floats = make([]float64, len(indices))
		case BoolKind:
			nc.Bools = make([]bool, len(indices))
		case StringKind:
			nc.Strings = make([]string, len(indices))
		case TimeKind:
			nc.Times = make([]time.Time, len(indices))
		}
		for j, ri := range indices {
			nc.Null[j] = c.Null[ri]
			switch c.Kind {
			case IntKind:
				nc.Ints[j] = c.Ints[ri]
			case FloatKind:
				nc.Floats[j] = c.Floats[ri]
			case BoolKind:
				nc.Bools[j] = c.Bools[ri]
			case StringKind:
				nc.Strings[j] = c.Strings[ri]
			case TimeKind:
				nc.Times[j] = c.Times[ri]
			}
		}
		out.Columns = append(out.Columns, nc)
	}
	return out
}
