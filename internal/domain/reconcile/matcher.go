package reconcile

import (
	"strings"
	"unicode"

	"github.com/erp/orderrecon/internal/domain/schema"
	"golang.org/x/text/unicode/norm"
)

// DefaultMatchThreshold is the minimum similarity for a fuzzy column match
const DefaultMatchThreshold = 0.85

// MatchStage tags how a raw column was matched to a canonical field
type MatchStage string

const (
	StageExact      MatchStage = "exact"
	StageNormalized MatchStage = "normalized"
	StageFuzzy      MatchStage = "fuzzy"
)

// ColumnMatch maps one raw column to a canonical field
type ColumnMatch struct {
	Column string
	Index  int
	Field  string
	Stage  MatchStage
	Score  float64
}

// ColumnMatcher resolves raw report headers to canonical fields. Candidates
// are each field's display name and canonical name. Stages run in order
// (exact, normalized, fuzzy) and each field is claimed at most once.
type ColumnMatcher struct {
	fields    []schema.FieldSpec
	threshold float64
}

// NewColumnMatcher creates a matcher over a registry. A threshold outside
// (0, 1] falls back to DefaultMatchThreshold.
func NewColumnMatcher(registry *schema.Registry, threshold float64) ColumnMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return ColumnMatcher{fields: registry.Fields(), threshold: threshold}
}

// Threshold returns the fuzzy similarity threshold in use
func (m ColumnMatcher) Threshold() float64 {
	return m.threshold
}

// Match returns the matched columns in header order and the headers that
// matched nothing
func (m ColumnMatcher) Match(headers []string) ([]ColumnMatch, []string) {
	claimed := make(map[string]bool, len(m.fields))
	found := make(map[int]ColumnMatch, len(headers))

	stages := []struct {
		stage MatchStage
		try   func(header string) (string, float64)
	}{
		{StageExact, func(h string) (string, float64) { return m.exact(h, claimed) }},
		{StageNormalized, func(h string) (string, float64) { return m.normalized(h, claimed) }},
		{StageFuzzy, func(h string) (string, float64) { return m.fuzzy(h, claimed) }},
	}

	for _, st := range stages {
		for i, h := range headers {
			if _, done := found[i]; done {
				continue
			}
			field, score := st.try(h)
			if field == "" {
				continue
			}
			claimed[field] = true
			found[i] = ColumnMatch{Column: h, Index: i, Field: field, Stage: st.stage, Score: score}
		}
	}

	matches := make([]ColumnMatch, 0, len(found))
	var unmatched []string
	for i, h := range headers {
		if cm, ok := found[i]; ok {
			matches = append(matches, cm)
			continue
		}
		unmatched = append(unmatched, h)
	}
	return matches, unmatched
}

func (m ColumnMatcher) exact(header string, claimed map[string]bool) (string, float64) {
	for _, f := range m.fields {
		if claimed[f.Name] {
			continue
		}
		if header == f.DisplayName || header == f.Name {
			return f.Name, 1
		}
	}
	return "", 0
}

func (m ColumnMatcher) normalized(header string, claimed map[string]bool) (string, float64) {
	h := NormalizeHeader(header)
	if h == "" {
		return "", 0
	}
	for _, f := range m.fields {
		if claimed[f.Name] {
			continue
		}
		if h == NormalizeHeader(f.DisplayName) || h == NormalizeHeader(f.Name) {
			return f.Name, 1
		}
	}
	return "", 0
}

func (m ColumnMatcher) fuzzy(header string, claimed map[string]bool) (string, float64) {
	h := NormalizeHeader(header)
	if h == "" {
		return "", 0
	}
	best, bestScore := "", 0.0
	for _, f := range m.fields {
		if claimed[f.Name] {
			continue
		}
		score := Similarity(h, NormalizeHeader(f.DisplayName))
		if s := Similarity(h, NormalizeHeader(f.Name)); s > score {
			score = s
		}
		if score >= m.threshold && score > bestScore {
			best, bestScore = f.Name, score
		}
	}
	return best, bestScore
}

// NormalizeHeader folds a header for comparison: NFKC (full-width to
// half-width), lower case, whitespace and format characters removed
func NormalizeHeader(s string) string {
	s = norm.NFKC.String(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.Is(unicode.Cf, r) || unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

func editDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
