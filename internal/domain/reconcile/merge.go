package reconcile

import "sort"

// MergeStats summarizes a merge
type MergeStats struct {
	Sources         int
	Keys            int
	FallbackRecords int // records that received at least one back-filled value
	FallbackFields  int
	IncompleteKeys  int
}

// Merger combines report datasets of one platform into one record per
// composite key. The highest-priority source supplies the base record and
// empty fields are back-filled field by field from the remaining candidates.
type Merger struct{}

// NewMerger creates a Merger
func NewMerger() Merger {
	return Merger{}
}

type candidateSet struct {
	key        string
	candidates []*Record
}

// Merge merges sources. Sources are ordered by descending Rank; equal ranks
// keep their input order, so the first listed source wins. Records with an
// incomplete key are passed through untouched after the merged records.
func (Merger) Merge(sources []SourceDataset) ([]*Record, MergeStats) {
	ordered := make([]SourceDataset, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank > ordered[j].Rank
	})

	stats := MergeStats{Sources: len(ordered)}
	index := make(map[string]*candidateSet)
	var keys []*candidateSet
	var incomplete []*Record

	for _, src := range ordered {
		for _, r := range src.Records {
			if !r.KeyComplete {
				incomplete = append(incomplete, r)
				continue
			}
			set, ok := index[r.Key]
			if !ok {
				set = &candidateSet{key: r.Key}
				index[r.Key] = set
				keys = append(keys, set)
			}
			set.candidates = append(set.candidates, r)
		}
	}

	out := make([]*Record, 0, len(keys)+len(incomplete))
	for _, set := range keys {
		base := set.candidates[0].Clone()
		filled := 0
		for _, field := range base.fields {
			if !base.Get(field).IsEmpty() {
				continue
			}
			for _, c := range set.candidates[1:] {
				if v := c.Get(field); !v.IsEmpty() {
					base.Set(field, v)
					filled++
					break
				}
			}
		}
		if filled > 0 {
			stats.FallbackRecords++
			stats.FallbackFields += filled
		}
		out = append(out, base)
	}

	stats.Keys = len(keys)
	stats.IncompleteKeys = len(incomplete)
	out = append(out, incomplete...)
	return out, stats
}
