package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarningLog_Cap(t *testing.T) {
	log := NewWarningLog(3)
	for i := 0; i < 5; i++ {
		log.Add(FieldCoercionWarning("a.csv", i+2, "quantity", fmt.Sprint(i), "INTEGER"))
	}
	log.Add(UnmatchedKeyWarning("product", "X1"))

	assert.Len(t, log.Warnings(), 3)
	assert.Equal(t, 6, log.Total())
	assert.Equal(t, 5, log.Count(KindFieldCoercion))
	assert.Equal(t, 1, log.Count(KindUnmatchedKey))
	assert.True(t, log.IsTruncated())
	assert.Contains(t, log.String(), "showing first 3")
}

func TestWarningLog_Empty(t *testing.T) {
	log := NewWarningLog(0)
	assert.Equal(t, "no warnings", log.String())
	assert.False(t, log.IsTruncated())
}

func TestWarning_String(t *testing.T) {
	w := FieldCoercionWarning("momo.csv", 7, "order_date", "abc", "DATE")
	assert.Equal(t, "FIELD_COERCION momo.csv:7 field 'order_date': cannot coerce to DATE, default used", w.String())
}

func TestDiagnostics(t *testing.T) {
	d := NewDiagnostics(50)

	d.Warn(FieldCoercionWarning("a.csv", 2, "quantity", "x", "INTEGER"))
	d.SkipFile("broken.xlsx", errors.New("zip: not a valid zip file"))
	d.DropColumn("a.csv", "備註")
	d.AddUnmatched("product", []string{"P1", "P2", "P1"})
	d.AddUnmatched("product", []string{"P2", "P3"})
	d.AddUnmatched("shop", nil)

	assert.Equal(t, 1, d.CoercionWarnings)
	assert.Equal(t, []SkippedFile{{Path: "broken.xlsx", Reason: "zip: not a valid zip file"}}, d.SkippedFiles)
	assert.Equal(t, []DroppedColumn{{File: "a.csv", Column: "備註"}}, d.DroppedColumns)
	assert.Equal(t, []string{"P1", "P2", "P3"}, d.Unmatched["product"])
	assert.NotContains(t, d.Unmatched, "shop")
	assert.Equal(t, 3, d.Warnings().Count(KindUnmatchedKey))
	assert.Equal(t, 1, d.Warnings().Count(KindSourceRead))
	assert.Equal(t, 1, d.Warnings().Count(KindDroppedColumn))

	summary := d.Summary()
	assert.Equal(t, 1, summary["files_skipped"])
	assert.Equal(t, 3, summary["unmatched_keys"])
	assert.Equal(t, 1, summary["coercion_warnings"])
}
