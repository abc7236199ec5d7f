package reconcile

import (
	"fmt"
	"strings"
)

// WarningKind classifies a recovered condition
type WarningKind string

const (
	KindFieldCoercion WarningKind = "FIELD_COERCION"
	KindUnmatchedKey  WarningKind = "UNMATCHED_KEY"
	KindSourceRead    WarningKind = "SOURCE_READ"
	KindDroppedColumn WarningKind = "DROPPED_COLUMN"
)

// Warning is a condition recorded during a run instead of being raised
type Warning struct {
	Kind    WarningKind `json:"kind"`
	File    string      `json:"file,omitempty"`
	Line    int         `json:"line,omitempty"`
	Field   string      `json:"field,omitempty"`
	Value   string      `json:"value,omitempty"`
	Message string      `json:"message"`
}

// String renders the warning for logs
func (w Warning) String() string {
	var sb strings.Builder
	sb.WriteString(string(w.Kind))
	if w.File != "" {
		sb.WriteString(" " + w.File)
		if w.Line > 0 {
			fmt.Fprintf(&sb, ":%d", w.Line)
		}
	}
	if w.Field != "" {
		fmt.Fprintf(&sb, " field '%s'", w.Field)
	}
	sb.WriteString(": " + w.Message)
	return sb.String()
}

// FieldCoercionWarning records a cell that could not be coerced to its declared type
func FieldCoercionWarning(file string, line int, field, value, declared string) Warning {
	return Warning{
		Kind:    KindFieldCoercion,
		File:    file,
		Line:    line,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("cannot coerce to %s, default used", declared),
	}
}

// UnmatchedKeyWarning records an enrichment lookup miss
func UnmatchedKeyWarning(index, key string) Warning {
	return Warning{
		Kind:    KindUnmatchedKey,
		Field:   index,
		Value:   key,
		Message: fmt.Sprintf("no %s master record", index),
	}
}

// WarningLog keeps the first warnings up to a cap and counts all of them
type WarningLog struct {
	warnings []Warning
	max      int
	total    int
	byKind   map[WarningKind]int
}

// NewWarningLog creates a log keeping at most max warnings
func NewWarningLog(max int) *WarningLog {
	if max <= 0 {
		max = 200
	}
	return &WarningLog{
		warnings: make([]Warning, 0),
		max:      max,
		byKind:   make(map[WarningKind]int),
	}
}

// Add records a warning
func (l *WarningLog) Add(w Warning) {
	l.total++
	l.byKind[w.Kind]++
	if len(l.warnings) < l.max {
		l.warnings = append(l.warnings, w)
	}
}

// Warnings returns the kept warnings
func (l *WarningLog) Warnings() []Warning {
	return l.warnings
}

// Total returns the number of warnings including those past the cap
func (l *WarningLog) Total() int {
	return l.total
}

// Count returns the number of warnings of one kind
func (l *WarningLog) Count(kind WarningKind) int {
	return l.byKind[kind]
}

// IsTruncated returns true if some warnings were not kept
func (l *WarningLog) IsTruncated() bool {
	return l.total > l.max
}

// String returns a printable list of kept warnings
func (l *WarningLog) String() string {
	if l.total == 0 {
		return "no warnings"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d warning(s)", l.total)
	if l.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", l.max)
	}
	sb.WriteString(":\n")
	for _, w := range l.warnings {
		sb.WriteString("  - " + w.String() + "\n")
	}
	return sb.String()
}

// SkippedFile is an input that could not be read
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// DroppedColumn is a raw column that matched no canonical field
type DroppedColumn struct {
	File   string `json:"file"`
	Column string `json:"column"`
}

// Diagnostics is the summary of a run. Every recovered condition ends up
// here, so nothing is lost even though the run does not stop.
type Diagnostics struct {
	FilesRead              int                 `json:"files_read"`
	SkippedFiles           []SkippedFile       `json:"skipped_files,omitempty"`
	RowsRead               int                 `json:"rows_read"`
	BlankIdentifierDropped int                 `json:"blank_identifier_dropped"`
	DroppedColumns         []DroppedColumn     `json:"dropped_columns,omitempty"`
	FuzzyMatchedColumns    int                 `json:"fuzzy_matched_columns"`
	IncompleteKeys         int                 `json:"incomplete_keys"`
	SourceDedupRemoved     int                 `json:"source_dedup_removed"`
	MergedKeys             int                 `json:"merged_keys"`
	FallbackMerged         int                 `json:"fallback_merged"`
	FallbackFields         int                 `json:"fallback_fields"`
	DedupRemoved           int                 `json:"dedup_removed"`
	Enriched               map[string]int      `json:"enriched,omitempty"`
	Unmatched              map[string][]string `json:"unmatched,omitempty"`
	OutputRows             int                 `json:"output_rows"`
	CoercionWarnings       int                 `json:"coercion_warnings"`

	log *WarningLog
}

// NewDiagnostics creates an empty summary keeping at most maxWarnings warnings
func NewDiagnostics(maxWarnings int) *Diagnostics {
	return &Diagnostics{
		Enriched:  make(map[string]int),
		Unmatched: make(map[string][]string),
		log:       NewWarningLog(maxWarnings),
	}
}

// Warn records a warning
func (d *Diagnostics) Warn(w Warning) {
	if w.Kind == KindFieldCoercion {
		d.CoercionWarnings++
	}
	d.log.Add(w)
}

// Warnings returns the warning log
func (d *Diagnostics) Warnings() *WarningLog {
	return d.log
}

// SkipFile records an unreadable input
func (d *Diagnostics) SkipFile(path string, err error) {
	d.SkippedFiles = append(d.SkippedFiles, SkippedFile{Path: path, Reason: err.Error()})
	d.log.Add(Warning{Kind: KindSourceRead, File: path, Message: err.Error()})
}

// DropColumn records a raw column that was not mapped
func (d *Diagnostics) DropColumn(file, column string) {
	d.DroppedColumns = append(d.DroppedColumns, DroppedColumn{File: file, Column: column})
	d.log.Add(Warning{Kind: KindDroppedColumn, File: file, Field: column, Message: "no matching canonical field"})
}

// AddUnmatched records distinct unmatched enrichment keys for an index
func (d *Diagnostics) AddUnmatched(index string, keys []string) {
	if len(keys) == 0 {
		return
	}
	seen := make(map[string]bool, len(d.Unmatched[index]))
	for _, k := range d.Unmatched[index] {
		seen[k] = true
	}
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		d.Unmatched[index] = append(d.Unmatched[index], k)
		d.log.Add(UnmatchedKeyWarning(index, k))
	}
}

// Summary returns the headline counters
func (d *Diagnostics) Summary() map[string]int {
	unmatched := 0
	for _, keys := range d.Unmatched {
		unmatched += len(keys)
	}
	return map[string]int{
		"files_read":               d.FilesRead,
		"files_skipped":            len(d.SkippedFiles),
		"rows_read":                d.RowsRead,
		"blank_identifier_dropped": d.BlankIdentifierDropped,
		"dropped_columns":          len(d.DroppedColumns),
		"incomplete_keys":          d.IncompleteKeys,
		"source_dedup_removed":     d.SourceDedupRemoved,
		"fallback_merged":          d.FallbackMerged,
		"dedup_removed":            d.DedupRemoved,
		"unmatched_keys":           unmatched,
		"coercion_warnings":        d.CoercionWarnings,
		"output_rows":              d.OutputRows,
	}
}
