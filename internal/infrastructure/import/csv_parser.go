// Package csvimport reads marketplace report exports (CSV and XLSX) into
// raw tables of header and cell strings.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one data row with its 1-based line number in the source
type Row struct {
	LineNumber int
	Fields     []string
}

// IsEmpty returns true if the row has no non-blank cell
func (r Row) IsEmpty() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Table is a raw source table
type Table struct {
	Name     string
	Encoding string
	Headers  []string
	Rows     []Row
}

// CSVParser reads decoded CSV text row by row
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	headers    []string
	reader     *csv.Reader
	totalRows  int
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		if d != 0 {
			p.delimiter = d
		}
	}
}

// WithLazyQuotes toggles tolerance of stray quotes inside unquoted fields.
// Lazy is the default.
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// NewCSVParser creates a parser over already decoded text
func NewCSVParser(r io.Reader, opts ...ParserOption) *CSVParser {
	parser := &CSVParser{
		delimiter:  ',',
		lazyQuotes: true,
	}
	for _, opt := range opts {
		opt(parser)
	}

	parser.reader = csv.NewReader(r)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.FieldsPerRecord = -1 // ragged exports are common
	return parser
}

// ParseHeader reads the header row, trimming each name. Leading blank lines
// are skipped.
func (p *CSVParser) ParseHeader() error {
	for {
		record, err := p.reader.Read()
		if err == io.EOF {
			return ErrMissingHeader
		}
		if err != nil {
			return fmt.Errorf("failed to read header: %w", err)
		}
		row := Row{Fields: record}
		if row.IsEmpty() {
			continue
		}
		p.headers = make([]string, len(record))
		for i, h := range record {
			p.headers[i] = strings.TrimSpace(h)
		}
		return nil
	}
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// ReadRow reads the next row
func (p *CSVParser) ReadRow() (Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		return Row{}, fmt.Errorf("error reading row %d: %w", p.totalRows+1, err)
	}
	line, _ := p.reader.FieldPos(0)
	p.totalRows++
	return Row{LineNumber: line, Fields: record}, nil
}

// ReadAllRows reads all remaining rows, skipping completely blank ones
func (p *CSVParser) ReadAllRows() ([]Row, error) {
	var rows []Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TotalRows returns the number of data rows read
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}

// ParseCSV decodes data and parses it into a table
func ParseCSV(name string, data []byte, encodings []string, opts ...ParserOption) (*Table, error) {
	text, enc, err := Decode(data, encodings)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	parser := NewCSVParser(strings.NewReader(text), opts...)
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}
	return &Table{Name: name, Encoding: enc, Headers: parser.Headers(), Rows: rows}, nil
}
