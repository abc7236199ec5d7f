package reconcile

import (
	"github.com/erp/orderrecon/internal/domain/schema"
)

// RawRow is one row of a raw report with its source line number
type RawRow struct {
	Line  int
	Cells []string
}

// RawTable is a raw report as read from a file: arbitrary headers and cells
type RawTable struct {
	Name    string
	Headers []string
	Rows    []RawRow
}

// NormalizeReport describes what normalization did to one table
type NormalizeReport struct {
	Matches                []ColumnMatch
	DroppedColumns         []string
	RowsIn                 int
	BlankIdentifierDropped int
	Warnings               []Warning
}

// Normalizer renames, fills and coerces raw tables into canonical records
type Normalizer struct {
	registry     *schema.Registry
	coercer      schema.Coercer
	matcher      ColumnMatcher
	primaryField string
}

// NormalizerOption configures a Normalizer
type NormalizerOption func(*Normalizer)

// WithPrimaryField sets the business identifier whose blank value drops a row
func WithPrimaryField(field string) NormalizerOption {
	return func(n *Normalizer) {
		n.primaryField = field
	}
}

// WithMatchThreshold sets the fuzzy column matching threshold
func WithMatchThreshold(threshold float64) NormalizerOption {
	return func(n *Normalizer) {
		n.matcher = NewColumnMatcher(n.registry, threshold)
	}
}

// NewNormalizer creates a Normalizer for one registry
func NewNormalizer(registry *schema.Registry, coercer schema.Coercer, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		registry: registry,
		coercer:  coercer,
		matcher:  NewColumnMatcher(registry, DefaultMatchThreshold),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts a raw table into canonical records tagged with
// reportType. Row order is preserved. A bad cell never drops a row; only a
// blank primary identifier does.
func (n *Normalizer) Normalize(table *RawTable, reportType string) ([]*Record, NormalizeReport) {
	matches, unmatched := n.matcher.Match(table.Headers)
	report := NormalizeReport{
		Matches:        matches,
		DroppedColumns: unmatched,
		RowsIn:         len(table.Rows),
	}

	columnOf := make(map[string]int, len(matches))
	for _, m := range matches {
		columnOf[m.Field] = m.Index
	}

	specs := n.registry.Fields()
	order := n.registry.OrderedFields()
	records := make([]*Record, 0, len(table.Rows))

	for _, row := range table.Rows {
		rec := NewRecord(order)
		rec.Source = reportType
		rec.File = table.Name
		rec.Line = row.Line

		for _, spec := range specs {
			idx, mapped := columnOf[spec.Name]
			if !mapped || idx >= len(row.Cells) {
				rec.Set(spec.Name, Value{Text: n.coercer.Default(spec), Defaulted: true})
				continue
			}

			raw := row.Cells[idx]
			res := n.coercer.Coerce(spec, raw)
			if res.Invalid {
				report.Warnings = append(report.Warnings,
					FieldCoercionWarning(table.Name, row.Line, spec.Name, raw, string(spec.Type)))
			}
			rec.Set(spec.Name, Value{Text: res.Text, Defaulted: res.Defaulted})
		}

		if n.primaryField != "" && rec.Get(n.primaryField).IsEmpty() {
			report.BlankIdentifierDropped++
			continue
		}
		records = append(records, rec)
	}

	return records, report
}
