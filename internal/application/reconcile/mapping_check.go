package reconcile

import (
	"sort"
	"strings"

	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/erp/orderrecon/internal/infrastructure/config"
	csvimport "github.com/erp/orderrecon/internal/infrastructure/import"
	"github.com/erp/orderrecon/internal/infrastructure/refdata"
	"go.uber.org/zap"
)

// MappingCheck compares one report's header with a platform mapping
type MappingCheck struct {
	File    string
	Mapping string
	Matched []reconcile.ColumnMatch
	// Extra lists header columns that match no canonical field
	Extra []string
	// Missing lists canonical fields no header column resolved to
	Missing []string
	// DuplicateDisplayNames maps a display name to every field declaring it
	DuplicateDisplayNames map[string][]string
}

// OK reports whether the header and mapping agree completely
func (c *MappingCheck) OK() bool {
	return len(c.Extra) == 0 && len(c.Missing) == 0 && len(c.DuplicateDisplayNames) == 0
}

// FuzzyMatches returns the columns resolved only by similarity
func (c *MappingCheck) FuzzyMatches() []reconcile.ColumnMatch {
	var out []reconcile.ColumnMatch
	for _, m := range c.Matched {
		if m.Stage == reconcile.StageFuzzy {
			out = append(out, m)
		}
	}
	return out
}

// CheckMapping reads the header of file and matches it against the mapping
// of platform with the same stages a run uses. Duplicate display names are
// reported instead of failing; the first declaration wins for matching.
func (s *Service) CheckMapping(platform, file string) (*MappingCheck, error) {
	pc, err := s.cfg.Platform(platform)
	if err != nil {
		return nil, err
	}

	entries, err := refdata.LoadMappingEntries(pc.Mapping)
	if err != nil {
		return nil, err
	}
	unique, duplicates := splitDuplicateDisplayNames(entries)
	registry, err := schema.NewRegistry(pc.Mapping, unique)
	if err != nil {
		return nil, err
	}

	reader := csvimport.NewReader(
		csvimport.WithEncodings(pc.Encodings...),
		csvimport.WithCSVDelimiter(pc.DelimiterFor(config.SourceConfig{})),
		csvimport.WithStrictQuotes(pc.StrictQuotes),
	)
	table, err := reader.ReadTable(file)
	if err != nil {
		return nil, err
	}

	matched, extra := reconcile.NewColumnMatcher(registry, pc.MatchThreshold).Match(table.Headers)
	resolved := make(map[string]bool, len(matched))
	for _, m := range matched {
		resolved[m.Field] = true
	}
	var missing []string
	for _, name := range registry.OrderedFields() {
		if !resolved[name] {
			missing = append(missing, name)
		}
	}

	check := &MappingCheck{
		File:                  file,
		Mapping:               pc.Mapping,
		Matched:               matched,
		Extra:                 extra,
		Missing:               missing,
		DuplicateDisplayNames: duplicates,
	}
	s.logger.Info("mapping checked",
		zap.String("platform", pc.Name),
		zap.String("file", file),
		zap.Int("matched", len(matched)),
		zap.Int("extra", len(extra)),
		zap.Int("missing", len(missing)),
		zap.Int("duplicate_display_names", len(duplicates)))
	return check, nil
}

// splitDuplicateDisplayNames keeps the first entry per display name and
// groups the field names of every display name declared more than once
func splitDuplicateDisplayNames(entries []schema.MappingEntry) ([]schema.MappingEntry, map[string][]string) {
	owners := make(map[string][]string)
	var order []string
	unique := make([]schema.MappingEntry, 0, len(entries))
	for _, e := range entries {
		display := displayName(e)
		if _, seen := owners[display]; !seen {
			order = append(order, display)
			unique = append(unique, e)
		}
		owners[display] = append(owners[display], e.Name)
	}

	duplicates := make(map[string][]string)
	for _, display := range order {
		if names := owners[display]; len(names) > 1 {
			sort.Strings(names)
			duplicates[display] = names
		}
	}
	return unique, duplicates
}

func displayName(e schema.MappingEntry) string {
	for _, attr := range []string{schema.AttrZhName, schema.AttrDisplayName} {
		if v, ok := e.Attributes[attr]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(e.Name)
}
