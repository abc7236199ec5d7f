// Package master holds read-only reference data (product catalog, shop
// master) and the joiner that copies it onto reconciled records.
package master

import "strings"

// Strategy names the lookup rule that produced a match
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyLeftPad  Strategy = "left_pad"
	StrategyRightPad Strategy = "right_pad"
	StrategyPrefix   Strategy = "prefix"
)

// Record is one master entry: its lookup code and attributes in document order
type Record struct {
	Code       string
	Fields     []string
	Attributes map[string]string
}

// NewRecord creates a master record. Attributes are copied.
func NewRecord(code string, fields []string, attrs map[string]string) Record {
	r := Record{
		Code:       code,
		Fields:     make([]string, len(fields)),
		Attributes: make(map[string]string, len(attrs)),
	}
	copy(r.Fields, fields)
	for k, v := range attrs {
		r.Attributes[k] = v
	}
	return r
}

// Value returns an attribute with null placeholders treated as blank
func (r Record) Value(attr string) (string, bool) {
	v, ok := r.Attributes[attr]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if isNull(v) {
		return "", true
	}
	return v, true
}

// Index resolves a lookup key to a master record
type Index interface {
	// Name identifies the index in diagnostics ("product", "shop")
	Name() string
	Lookup(key string) (Record, Strategy, bool)
	Len() int
}

func isNull(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "none", "null", "<na>":
		return true
	}
	return false
}

// attributeOrder returns the distinct attribute names of records in first-seen order
func attributeOrder(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		for _, f := range r.Fields {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
