package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mappingJSON = `{
  "order_sn": {"order": 1, "zh_name": "訂單編號", "type": "STRING", "description": "訂單號", "required": "是", "note": ""},
  "quantity": {"order": 3, "zh_name": "數量", "type": "INTEGER", "description": "", "required": "否", "note": null},
  "item_no":  {"order": 2, "zh_name": "項次", "type": "INTEGER", "description": "", "required": "否", "note": ""}
}`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMapping(t *testing.T) {
	t.Run("json keeps document order and sorts by ordinal", func(t *testing.T) {
		path := writeDoc(t, "momo_fields_mapping.json", mappingJSON)

		entries, err := LoadMappingEntries(path)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "order_sn", entries[0].Name)
		assert.Equal(t, "quantity", entries[1].Name)
		assert.Equal(t, "1", entries[0].Attributes["order"])
		assert.Equal(t, "", entries[1].Attributes["note"])

		reg, err := LoadMapping(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"order_sn", "item_no", "quantity"}, reg.OrderedFields())
		assert.Equal(t, "order_sn", reg.DisplayToCanonical()["訂單編號"])
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeDoc(t, "mapping.yaml", `
order_sn:
  order: 1
  display_name: Order No
  type: STRING
  description: ""
  required: yes
  note: ""
`)
		reg, err := LoadMapping(path)
		require.NoError(t, err)
		spec, ok := reg.Field("order_sn")
		require.True(t, ok)
		assert.Equal(t, "Order No", spec.DisplayName)
		assert.True(t, spec.Required)
	})

	t.Run("missing attribute is a config error", func(t *testing.T) {
		path := writeDoc(t, "bad.json", `{"order_sn": {"order": 1, "zh_name": "訂單編號", "type": "STRING"}}`)

		_, err := LoadMapping(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrConfig)
		var cfgErr *schema.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, schema.ErrCodeAttributeMissing, cfgErr.Code)
		assert.Equal(t, "order_sn", cfgErr.Field)
	})

	t.Run("document errors", func(t *testing.T) {
		cases := map[string]string{
			"malformed":     `{"order_sn": `,
			"not a mapping": `["order_sn"]`,
			"empty":         ``,
			"duplicate key": "a: {order: 1}\na: {order: 2}\n",
			"scalar entry":  `{"order_sn": "STRING"}`,
			"nested value":  `{"order_sn": {"order": {"x": 1}}}`,
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseMappingEntries(name, []byte(content))
				assert.ErrorIs(t, err, schema.ErrConfig)
			})
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := LoadMapping(filepath.Join(t.TempDir(), "missing.json"))
		assert.ErrorIs(t, err, schema.ErrConfig)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoadProductMaster(t *testing.T) {
	path := writeDoc(t, "products.yaml", `
"093766217126":
  product_name: Cat Food 2kg
  brand: Acme
  cost: 120.5
  tags: [cat, dry]
  barcode: ~
"4710000000":
  product_name: Dog Toy
`)

	records, err := LoadProductMaster(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "093766217126", first.Code)
	assert.Equal(t, []string{"product_name", "brand", "cost", "tags", "barcode"}, first.Fields)
	assert.Equal(t, "120.5", first.Attributes["cost"])
	assert.Equal(t, "cat, dry", first.Attributes["tags"])
	assert.Equal(t, "", first.Attributes["barcode"])
	assert.Equal(t, "4710000000", records[1].Code)
}

func TestParseProductMaster_Wrapped(t *testing.T) {
	records, err := ParseProductMaster("products.json", []byte(`{"products": {"P1": {"brand": "Acme"}}}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P1", records[0].Code)
}

func TestLoadShopMaster(t *testing.T) {
	path := writeDoc(t, "A02_Shops_Master.json", `{
  "shops": [
    {"platform": "momo", "shop_id": "S01", "shop_status": "active", "is_ad_shopee_ads_enabled": false, "department": "EC", "manager": "Lin"},
    {"platform": "Yahoo", "shop_id": "S02"}
  ]
}`)

	records, err := LoadShopMaster(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "momo", records[0].Code)
	assert.Equal(t, []string{"shop_id", "shop_status", "is_ad_shopee_ads_enabled", "department", "manager"}, records[0].Fields)
	assert.Equal(t, "false", records[0].Attributes["is_ad_shopee_ads_enabled"])
	assert.NotContains(t, records[0].Attributes, "platform")

	t.Run("missing platform", func(t *testing.T) {
		_, err := ParseShopMaster("shops.json", []byte(`{"shops": [{"shop_id": "S01"}]}`))
		var cfgErr *schema.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "platform", cfgErr.Attribute)
	})

	t.Run("missing list", func(t *testing.T) {
		_, err := ParseShopMaster("shops.json", []byte(`{"stores": []}`))
		assert.ErrorIs(t, err, schema.ErrConfig)
	})
}
