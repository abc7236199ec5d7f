// Package reconcile turns raw marketplace report tables into one canonical
// record per order line: normalization, composite keys, source-priority merge
// and deduplication.
package reconcile

import "strings"

// Value is one canonical cell
type Value struct {
	Text string
	// Defaulted marks a type default filled in for a blank, invalid or absent source value
	Defaulted bool
}

// IsEmpty reports whether the value carries no source data
func (v Value) IsEmpty() bool {
	return v.Defaulted || strings.TrimSpace(v.Text) == ""
}

// Text creates a value from source data
func Text(s string) Value {
	return Value{Text: s}
}

// Record is a canonical record: canonical field names in ordinal order, plus
// any enrichment columns appended later
type Record struct {
	Source string // report type that produced the record
	Rank   int    // priority rank of the source
	Seq    int    // global ingestion order
	File   string
	Line   int

	Key         string
	KeyComplete bool

	fields []string
	values map[string]Value
}

// NewRecord creates an empty record with the given field order
func NewRecord(fields []string) *Record {
	r := &Record{
		fields: make([]string, len(fields)),
		values: make(map[string]Value, len(fields)),
	}
	copy(r.fields, fields)
	for _, f := range fields {
		r.values[f] = Value{}
	}
	return r
}

// Fields returns the record's field names in order
func (r *Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Has reports whether the record has a column for field
func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Get returns the value of a field
func (r *Record) Get(field string) Value {
	return r.values[field]
}

// Text returns the text of a field
func (r *Record) Text(field string) string {
	return r.values[field].Text
}

// Set stores a value, appending the field to the order when it is new
func (r *Record) Set(field string, v Value) {
	if !r.Has(field) {
		r.fields = append(r.fields, field)
	}
	r.values[field] = v
}

// SetText stores source text for a field
func (r *Record) SetText(field, text string) {
	r.Set(field, Text(text))
}

// Clone returns a deep copy
func (r *Record) Clone() *Record {
	c := *r
	c.fields = make([]string, len(r.fields))
	copy(c.fields, r.fields)
	c.values = make(map[string]Value, len(r.values))
	for k, v := range r.values {
		c.values[k] = v
	}
	return &c
}

// Row returns the texts of the given columns, blank for absent ones
func (r *Record) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = r.values[c].Text
	}
	return row
}

// SourceDataset is the canonical output of one report type
type SourceDataset struct {
	ReportType string
	Rank       int
	Records    []*Record
}

// Columns returns the union of field names over records, in first-seen order,
// starting with base
func Columns(base []string, records []*Record) []string {
	seen := make(map[string]bool, len(base))
	cols := make([]string, 0, len(base))
	for _, c := range base {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, r := range records {
		for _, f := range r.fields {
			if !seen[f] {
				seen[f] = true
				cols = append(cols, f)
			}
		}
	}
	return cols
}
