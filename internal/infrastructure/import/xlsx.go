package csvimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of a workbook into a table. Cells are
// read as their formatted text.
func ParseXLSX(name string, data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrMissingHeader
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	table := &Table{Name: name, Encoding: "xlsx"}
	for i, cells := range rows {
		row := Row{LineNumber: i + 1, Fields: cells}
		if table.Headers == nil {
			if row.IsEmpty() {
				continue
			}
			table.Headers = make([]string, len(cells))
			for j, h := range cells {
				table.Headers[j] = strings.TrimSpace(h)
			}
			continue
		}
		if row.IsEmpty() {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	if table.Headers == nil {
		return nil, ErrMissingHeader
	}
	return table, nil
}
