package reconcile

import (
	"testing"

	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/stretchr/testify/require"
)

func field(name, order, zh, typ string) schema.MappingEntry {
	return schema.MappingEntry{
		Name: name,
		Attributes: map[string]string{
			schema.AttrOrder:       order,
			schema.AttrZhName:      zh,
			schema.AttrType:        typ,
			schema.AttrDescription: "",
			schema.AttrRequired:    "否",
			schema.AttrNote:        "",
		},
	}
}

func newOrderRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry("orders.json", []schema.MappingEntry{
		field("order_sn", "1", "訂單編號", "STRING"),
		field("item_no", "2", "項次", "INTEGER"),
		field("order_date", "3", "訂單日期", "DATE"),
		field("recipient_name", "4", "收件人姓名", "STRING"),
		field("quantity", "5", "數量", "INTEGER"),
		field("product_cost", "6", "商品成本", "FLOAT"),
		field("is_gift", "7", "是否贈品", "BOOLEAN"),
	})
	require.NoError(t, err)
	return reg
}

func newCoercer() schema.Coercer {
	return schema.NewCoercer(schema.NewDateParser(), []string{"product_cost"})
}

// rec builds a keyed record from alternating field/value pairs
func rec(key string, rank int, kv ...string) *Record {
	fields := make([]string, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields = append(fields, kv[i])
	}
	r := NewRecord(fields)
	for i := 0; i < len(kv); i += 2 {
		r.SetText(kv[i], kv[i+1])
	}
	r.Key = key
	r.KeyComplete = key != ""
	r.Rank = rank
	return r
}
