// Package inputs loads feature tables from the formats spec.md §2 names
// (CSV, Parquet-shaped CSV exports, XLSX, Google Sheets) into the column-oriented
// table.Table model, plus the deterministic row sampler used before adapter
// invocation (spec.md §5).
package inputs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/skewsentry/internal/table"
)

// LoadCSV reads a CSV file with a header row and infers each column's kind
// from its non-empty cells: int if all parse as integers, float if all parse
// as numbers and one is not an integer, and string as soon as any cell is
// neither a number nor true/false. A true/false cell turns a column that is
// still int into bool. Empty cells are null. Timestamps are not detected;
// date-like cells load as strings. A column mixing true/false with numbers
// fails to load when one of its cells does not parse as the column's kind.
func LoadCSV(path string) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: opening %s: %w", path, err)
	}
	defer f.Close()
	return loadCSVReader(f, path)
}

func loadCSVReader(r io.Reader, source string) (table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: reading header from %s: %w", source, err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("inputs: reading %s: %w", source, err)
		}
		records = append(records, rec)
	}

	kinds := make([]table.Kind, len(header))
	for i := range header {
		kinds[i] = inferColumnKind(records, i)
	}

	rows := make([]table.Row, len(records))
	for ri, rec := range records {
		row := make(table.Row, len(header))
		for ci, name := range header {
			if ci >= len(rec) || rec[ci] == "" {
				row[name] = nil
				continue
			}
			row[name] = parseCell(rec[ci], kinds[ci])
		}
		rows[ri] = row
	}

	return table.FromOrderedRows(header, rows)
}

func inferColumnKind(records [][]string, col int) table.Kind {
	kind := table.IntKind
	sawValue := false
	for _, rec := range records {
		if col >= len(rec) || rec[col] == "" {
			continue
		}
		v := rec[col]
		sawValue = true
		switch {
		case isBoolCell(v):
			if kind == table.IntKind {
				kind = table.BoolKind
			}
		case isIntCell(v):
			// int is compatible with everything so far
		case isFloatCell(v):
			if kind == table.IntKind {
				kind = table.FloatKind
			}
		default:
			return table.StringKind
		}
	}
	if !sawValue {
		return table.StringKind
	}
	return kind
}

func isBoolCell(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	default:
		return false
	}
}

func isIntCell(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

func isFloatCell(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func parseCell(v string, kind table.Kind) any {
	switch kind {
	case table.BoolKind:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return v
		}
		return b
	case table.IntKind:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return v
		}
		return n
	case table.FloatKind:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return v
		}
		return n
	case table.TimeKind:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return v
		}
		return t
	default:
		return v
	}
}
