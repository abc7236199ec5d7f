package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	reg := newOrderRegistry(t)
	n := NewNormalizer(reg, newCoercer(), WithPrimaryField("order_sn"))

	table := &RawTable{
		Name:    "momo_sales.csv",
		Headers: []string{"訂單編號 ", "項次", "數量", "訂單日期", "收件人姓名", "多餘欄位"},
		Rows: []RawRow{
			{Line: 2, Cells: []string{"1001", "1", "5.0", "2025/8/3", " Alice\n Chen ", "x"}},
			{Line: 3, Cells: []string{"1002", "2", "", "not a date", "Bob", "y"}},
			{Line: 4, Cells: []string{"   ", "1", "3", "2025-08-04", "Nobody", "z"}},
			{Line: 5, Cells: []string{"1003", "abc"}},
		},
	}

	records, report := n.Normalize(table, "sales")

	require.Len(t, records, 3)
	assert.Equal(t, 4, report.RowsIn)
	assert.Equal(t, 1, report.BlankIdentifierDropped)
	assert.Equal(t, []string{"多餘欄位"}, report.DroppedColumns)

	t.Run("columns follow ordinal order", func(t *testing.T) {
		assert.Equal(t, reg.OrderedFields(), records[0].Fields())
	})

	t.Run("types are coerced", func(t *testing.T) {
		first := records[0]
		assert.Equal(t, "1001", first.Text("order_sn"))
		assert.Equal(t, "5", first.Text("quantity"))
		assert.Equal(t, "2025-08-03", first.Text("order_date"))
		assert.Equal(t, "Alice Chen", first.Text("recipient_name"))
		assert.Equal(t, "sales", first.Source)
		assert.Equal(t, 2, first.Line)
	})

	t.Run("blank and invalid cells take defaults", func(t *testing.T) {
		second := records[1]
		assert.Equal(t, "0", second.Text("quantity"))
		assert.True(t, second.Get("quantity").Defaulted)
		assert.Equal(t, "", second.Text("order_date"))
	})

	t.Run("missing canonical fields are created", func(t *testing.T) {
		first := records[0]
		assert.Equal(t, "0.00", first.Text("product_cost"))
		assert.Equal(t, "false", first.Text("is_gift"))
		assert.True(t, first.Get("product_cost").Defaulted)
	})

	t.Run("short rows are padded", func(t *testing.T) {
		third := records[2]
		assert.Equal(t, "1003", third.Text("order_sn"))
		assert.Equal(t, "0", third.Text("item_no"))
		assert.Equal(t, "", third.Text("recipient_name"))
	})

	t.Run("coercion warnings are reported", func(t *testing.T) {
		require.Len(t, report.Warnings, 2)
		assert.Equal(t, KindFieldCoercion, report.Warnings[0].Kind)
		assert.Equal(t, "order_date", report.Warnings[0].Field)
		assert.Equal(t, 3, report.Warnings[0].Line)
		assert.Equal(t, "item_no", report.Warnings[1].Field)
		assert.Equal(t, "abc", report.Warnings[1].Value)
	})
}

func TestNormalizer_IntegerScenarios(t *testing.T) {
	reg := newOrderRegistry(t)
	n := NewNormalizer(reg, newCoercer())

	records, _ := n.Normalize(&RawTable{
		Headers: []string{"quantity"},
		Rows: []RawRow{
			{Line: 2, Cells: []string{"5.0"}},
			{Line: 3, Cells: []string{""}},
		},
	}, "sales")

	require.Len(t, records, 2)
	assert.Equal(t, "5", records[0].Text("quantity"))
	assert.Equal(t, "0", records[1].Text("quantity"))
}

func TestNormalizer_Idempotent(t *testing.T) {
	reg := newOrderRegistry(t)
	n := NewNormalizer(reg, newCoercer(), WithPrimaryField("order_sn"))

	first, _ := n.Normalize(&RawTable{
		Name:    "etmall.csv",
		Headers: []string{"訂單編號", "項次", "訂單日期", "數量", "商品成本", "是否贈品", "收件人姓名"},
		Rows: []RawRow{
			{Line: 2, Cells: []string{"A1", "1.0", "20250803", "2", "10.505", "是", "  Amy  "}},
			{Line: 3, Cells: []string{"A2", "2", "2025/8/4", "x", "", "0", "Ben"}},
		},
	}, "sales")

	// feed the canonical output back in with canonical headers
	canonical := &RawTable{Name: "canonical.csv", Headers: reg.OrderedFields()}
	for i, r := range first {
		canonical.Rows = append(canonical.Rows, RawRow{Line: i + 2, Cells: r.Row(reg.OrderedFields())})
	}
	second, report := n.Normalize(canonical, "sales")

	assert.Empty(t, report.DroppedColumns)
	assert.Empty(t, report.Warnings)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Fields(), second[i].Fields())
		assert.Equal(t, first[i].Row(reg.OrderedFields()), second[i].Row(reg.OrderedFields()))
	}
}
