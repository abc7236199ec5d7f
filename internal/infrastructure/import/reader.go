package csvimport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Reader loads source files by extension
type Reader struct {
	delimiter    rune
	strictQuotes bool
	encodings    []string
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithCSVDelimiter sets the CSV delimiter; zero keeps the comma
func WithCSVDelimiter(d rune) ReaderOption {
	return func(r *Reader) {
		if d != 0 {
			r.delimiter = d
		}
	}
}

// WithStrictQuotes rejects CSV files with stray quotes in unquoted fields
func WithStrictQuotes(strict bool) ReaderOption {
	return func(r *Reader) {
		r.strictQuotes = strict
	}
}

// WithEncodings sets the encoding fallback order for CSV files
func WithEncodings(encodings ...string) ReaderOption {
	return func(r *Reader) {
		if len(encodings) > 0 {
			r.encodings = append([]string{}, encodings...)
		}
	}
}

// NewReader creates a Reader with the default encodings and a comma delimiter
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{delimiter: ',', encodings: DefaultEncodings}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadTable reads one source file. Every failure is a *SourceReadError.
func (r *Reader) ReadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sourceError(path, err)
	}
	name := filepath.Base(path)

	var table *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		delim := r.delimiter
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delim = '\t'
		}
		table, err = ParseCSV(name, data, r.encodings, WithDelimiter(delim), WithLazyQuotes(!r.strictQuotes))
	case ".xlsx", ".xlsm":
		table, err = ParseXLSX(name, data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, sourceError(path, err)
	}
	return table, nil
}

// Glob expands patterns into a sorted, de-duplicated file list
func Glob(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", p, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}
