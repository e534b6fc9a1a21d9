// Package sheet loads public Google Sheets tabs as tabular data.
package sheet

import "fmt"

// Table is one loaded spreadsheet tab. Headers keep the sheet's column order;
// every row maps each header name to a cell value, with out-of-range trailing
// cells defaulting to empty string. A Table is immutable after creation and
// replaced wholesale on reload.
type Table struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// buildTable zips data lines against the header line by position. Blank header
// names get positional placeholders, duplicates a positional suffix, so every
// row key is unique.
func buildTable(headerCells []string, dataLines [][]string) *Table {
	headers := make([]string, len(headerCells))
	seen := make(map[string]bool, len(headerCells))
	for i, h := range headerCells {
		name := h
		if name == "" {
			name = fmt.Sprintf("Column_%d", i)
		}
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name] = true
		headers[i] = name
	}

	rows := make([]map[string]string, 0, len(dataLines))
	for _, cells := range dataLines {
		row := make(map[string]string, len(headers))
		for i, name := range headers {
			if i < len(cells) {
				row[name] = cells[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}
}
