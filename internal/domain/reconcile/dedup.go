package reconcile

import (
	"fmt"
	"math"
	"strings"

	"github.com/erp/orderrecon/internal/domain/schema"
)

// KeepPolicy decides which record survives a rank tie
type KeepPolicy string

const (
	KeepFirst KeepPolicy = "first"
	KeepLast  KeepPolicy = "last"
)

// ParseKeepPolicy parses a keep policy, defaulting to KeepFirst
func ParseKeepPolicy(s string) (KeepPolicy, error) {
	switch KeepPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeepFirst:
		return KeepFirst, nil
	case KeepLast:
		return KeepLast, nil
	}
	return "", fmt.Errorf("unknown keep policy %q", s)
}

// KeyFunc groups records. An empty key means the record is never grouped.
type KeyFunc func(*Record) string

// RankFunc orders records inside a group; the highest rank survives
type RankFunc func(*Record) int64

// ByCompositeKey groups by the assigned composite key, skipping incomplete keys
func ByCompositeKey(r *Record) string {
	if !r.KeyComplete {
		return ""
	}
	return r.Key
}

// ByKeyBuilder groups by a key built from other fields, skipping incomplete keys
func ByKeyBuilder(b KeyBuilder) KeyFunc {
	return func(r *Record) string {
		key, complete := b.Build(r)
		if !complete {
			return ""
		}
		return key
	}
}

// ByPriority ranks by source priority
func ByPriority(r *Record) int64 {
	return int64(r.Rank)
}

// BySequence ranks by ingestion order, so later files win
func BySequence(r *Record) int64 {
	return int64(r.Seq)
}

// ByTimestamp ranks by a DATE or DATETIME field. Records whose field does not
// parse rank lowest.
func ByTimestamp(field string, dates schema.DateParser) RankFunc {
	return func(r *Record) int64 {
		v := r.Get(field)
		if v.IsEmpty() {
			return math.MinInt64
		}
		t, ok := dates.ParseDateTime(v.Text)
		if !ok {
			return math.MinInt64
		}
		return t.UnixNano()
	}
}

// Deduplicator keeps one record per key
type Deduplicator struct {
	key  KeyFunc
	rank RankFunc
	keep KeepPolicy
}

// NewDeduplicator creates a Deduplicator
func NewDeduplicator(key KeyFunc, rank RankFunc, keep KeepPolicy) Deduplicator {
	if keep == "" {
		keep = KeepFirst
	}
	if rank == nil {
		rank = BySequence
	}
	return Deduplicator{key: key, rank: rank, keep: keep}
}

// Deduplicate keeps the highest-ranked record of each group and returns how
// many records were removed. The survivor takes the position of the group's
// first record.
func (d Deduplicator) Deduplicate(records []*Record) ([]*Record, int) {
	out := make([]*Record, 0, len(records))
	slot := make(map[string]int, len(records))
	removed := 0

	for _, r := range records {
		key := d.key(r)
		if key == "" {
			out = append(out, r)
			continue
		}
		i, seen := slot[key]
		if !seen {
			slot[key] = len(out)
			out = append(out, r)
			continue
		}
		removed++
		current, challenger := d.rank(out[i]), d.rank(r)
		if challenger > current || (challenger == current && d.keep == KeepLast) {
			out[i] = r
		}
	}

	return out, removed
}
