package inputs

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/yourorg/skewsentry/internal/table"
)

// LoadXLSX reads the first sheet of an XLSX workbook, or sheetName if given,
// treating its first row as a header. Grounded on the teacher's
// converter.XLSXParser: open, GetSheetList, GetRows.
func LoadXLSX(path string, sheetName string) (table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: opening xlsx %s: %w", path, err)
	}
	defer f.Close()
	return loadXLSXFile(f, sheetName)
}

// LoadXLSXReader is the io.Reader counterpart of LoadXLSX, for XLSX payloads
// obtained over the network rather than from the local filesystem.
func LoadXLSXReader(r io.Reader, sheetName string) (table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: reading xlsx: %w", err)
	}
	defer f.Close()
	return loadXLSXFile(f, sheetName)
}

func loadXLSXFile(f *excelize.File, sheetName string) (table.Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.Table{}, fmt.Errorf("inputs: no sheets found in workbook")
	}
	if sheetName == "" {
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return table.Table{}, fmt.Errorf("inputs: reading sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return table.Table{}, fmt.Errorf("inputs: sheet %q is empty", sheetName)
	}

	header := rows[0]
	records := rows[1:]

	kinds := make([]table.Kind, len(header))
	for i := range header {
		kinds[i] = inferColumnKind(records, i)
	}

	out := make([]table.Row, len(records))
	for ri, rec := range records {
		row := make(table.Row, len(header))
		for ci, name := range header {
			if ci >= len(rec) || rec[ci] == "" {
				row[name] = nil
				continue
			}
			row[name] = parseCell(rec[ci], kinds[ci])
		}
		out[ri] = row
	}

	return table.FromOrderedRows(header, out)
}
