package reconcile

import (
	"testing"

	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicator_ByPriority(t *testing.T) {
	low := rec("2001_01", 2, "status", "low")
	high := rec("2001_01", 5, "status", "high")

	out, removed := NewDeduplicator(ByCompositeKey, ByPriority, KeepFirst).Deduplicate([]*Record{low, high})

	require.Len(t, out, 1)
	assert.Same(t, high, out[0])
	assert.Equal(t, 1, removed)
}

func TestDeduplicator_TiePolicy(t *testing.T) {
	first := rec("K", 1, "v", "first")
	last := rec("K", 1, "v", "last")

	t.Run("keep first", func(t *testing.T) {
		out, _ := NewDeduplicator(ByCompositeKey, ByPriority, KeepFirst).Deduplicate([]*Record{first, last})
		assert.Same(t, first, out[0])
	})

	t.Run("keep last", func(t *testing.T) {
		out, _ := NewDeduplicator(ByCompositeKey, ByPriority, KeepLast).Deduplicate([]*Record{first, last})
		assert.Same(t, last, out[0])
	})
}

func TestDeduplicator_OneRecordPerKey(t *testing.T) {
	var records []*Record
	for i := 0; i < 30; i++ {
		key := []string{"A", "B", "C"}[i%3]
		r := rec(key, i%7, "i", "x")
		r.Seq = i
		records = append(records, r)
	}
	records = append(records, rec("", 0, "i", "blank"), rec("", 0, "i", "blank"))

	out, removed := NewDeduplicator(ByCompositeKey, BySequence, KeepFirst).Deduplicate(records)

	assert.Equal(t, 27, removed)
	require.Len(t, out, 5)
	seen := map[string]int{}
	for _, r := range out {
		if r.KeyComplete {
			seen[r.Key]++
		}
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, seen)
	assert.Equal(t, 27, out[0].Seq)
}

func TestDeduplicator_ByTimestamp(t *testing.T) {
	dates := schema.NewDateParser()
	older := rec("K", 0, "updated_at", "2025-08-01 10:00:00")
	newer := rec("K", 0, "updated_at", "2025/8/2")
	unparsed := rec("K", 0, "updated_at", "soon")

	out, removed := NewDeduplicator(ByCompositeKey, ByTimestamp("updated_at", dates), KeepFirst).
		Deduplicate([]*Record{unparsed, newer, older})

	assert.Equal(t, 2, removed)
	require.Len(t, out, 1)
	assert.Same(t, newer, out[0])
}

func TestDeduplicator_ByKeyBuilder(t *testing.T) {
	byOrder := ByKeyBuilder(NewKeyBuilder(KeyPart{Field: "order_sn"}))
	a := rec("1_01", 0, "order_sn", "1")
	b := rec("1_02", 0, "order_sn", "1")
	c := rec("x", 0, "order_sn", "")

	out, removed := NewDeduplicator(byOrder, nil, KeepLast).Deduplicate([]*Record{a, b, c})

	assert.Equal(t, 1, removed)
	require.Len(t, out, 2)
	assert.Same(t, b, out[0])
	assert.Same(t, c, out[1])
}

func TestParseKeepPolicy(t *testing.T) {
	p, err := ParseKeepPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	p, err = ParseKeepPolicy("LAST")
	assert.NoError(t, err)
	assert.Equal(t, KeepLast, p)

	_, err = ParseKeepPolicy("random")
	assert.Error(t, err)
}
