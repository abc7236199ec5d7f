// Package export writes reconciled datasets as CSV or XLSX.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for output extensions without a writer
var ErrUnsupportedFormat = errors.New("unsupported output format")

// DefaultSheet is the worksheet name of XLSX output
const DefaultSheet = "orders"

// Dataset is a header plus rows of cell text
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Writer writes a dataset to a file
type Writer interface {
	Write(path string, ds Dataset) error
}

// CSVWriter writes UTF-8 CSV
type CSVWriter struct {
	// BOM prefixes the file with a UTF-8 byte order mark so spreadsheet
	// tools detect the encoding
	BOM bool
}

// Write implements Writer
func (w CSVWriter) Write(path string, ds Dataset) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := bufio.NewWriter(f)
	if w.BOM {
		if _, err := buf.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	cw := csv.NewWriter(buf)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range ds.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return f.Close()
}

// XLSXWriter writes a single-sheet workbook through the excelize stream writer
type XLSXWriter struct {
	Sheet string
}

// Write implements Writer
func (w XLSXWriter) Write(path string, ds Dataset) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := w.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	if err := sw.SetRow("A1", cells(ds.Columns)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// cells keeps every value as text so codes like "093766217126" keep their zeros
func cells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// ForPath picks a writer by file extension
func ForPath(path string, bom bool) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSVWriter{BOM: bom}, nil
	case ".xlsx":
		return XLSXWriter{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// WriteFile writes ds to path with the writer matching its extension
func WriteFile(path string, ds Dataset, bom bool) error {
	w, err := ForPath(path, bom)
	if err != nil {
		return err
	}
	return w.Write(path, ds)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
