package master

import "strings"

// DefaultProductFields are the catalog attributes copied onto order lines
var DefaultProductFields = []string{
	"category_level_1", "category_level_2", "brand", "series", "pet_type",
	"product_name", "item_code", "sku", "tags", "spec", "unit", "weight_g",
	"package_size", "package_type", "package_qty", "origin", "barcode",
	"min_qty", "price_date", "msrp", "price", "supplier_price", "list_price",
	"status", "supplier_code", "supplier", "supplier_ref",
}

// Padding bounds for barcode-like product codes
const (
	minPadLength    = 10
	maxPadLength    = 15
	minPrefixLength = 8
)

// ProductIndex looks products up by manufacturer code. Platform exports
// often lose leading zeros or a trailing digit, so lookups try padded and
// prefix variants after an exact match fails.
type ProductIndex struct {
	byCode map[string]Record
	codes  []string // document order, for prefix scans
	fields []string
}

// NewProductIndex builds an index. The first record of a repeated code wins.
func NewProductIndex(records []Record) *ProductIndex {
	idx := &ProductIndex{
		byCode: make(map[string]Record, len(records)),
		codes:  make([]string, 0, len(records)),
		fields: attributeOrder(records),
	}
	for _, r := range records {
		code := strings.TrimSpace(r.Code)
		if code == "" {
			continue
		}
		if _, dup := idx.byCode[code]; dup {
			continue
		}
		idx.byCode[code] = r
		idx.codes = append(idx.codes, code)
	}
	return idx
}

// Name returns "product"
func (p *ProductIndex) Name() string { return "product" }

// Len returns the number of indexed codes
func (p *ProductIndex) Len() int { return len(p.codes) }

// Fields returns the attribute names seen in the catalog
func (p *ProductIndex) Fields() []string {
	out := make([]string, len(p.fields))
	copy(out, p.fields)
	return out
}

// CleanCode trims a code and drops the ".0" a spreadsheet adds to numeric cells
func CleanCode(code string) string {
	code = strings.TrimSpace(code)
	if isNull(code) {
		return ""
	}
	return strings.TrimSuffix(code, ".0")
}

// Lookup tries, in order: exact, left zero-padding to 10..15 digits and
// leading-zero stripping, right zero-padding to 10..15 digits and the
// 14+1 padding, then a prefix match in either direction for codes of at
// least 8 characters.
func (p *ProductIndex) Lookup(code string) (Record, Strategy, bool) {
	code = CleanCode(code)
	if code == "" {
		return Record{}, "", false
	}
	if r, ok := p.byCode[code]; ok {
		return r, StrategyExact, true
	}

	for n := minPadLength; n <= maxPadLength; n++ {
		if len(code) < n {
			if r, ok := p.byCode[padLeft(code, n)]; ok {
				return r, StrategyLeftPad, true
			}
		}
	}
	if stripped := strings.TrimLeft(code, "0"); stripped != "" && stripped != code {
		if r, ok := p.byCode[stripped]; ok {
			return r, StrategyLeftPad, true
		}
	}

	for n := minPadLength; n <= maxPadLength; n++ {
		if len(code) < n {
			if r, ok := p.byCode[padRight(code, n)]; ok {
				return r, StrategyRightPad, true
			}
		}
	}
	if len(code) < maxPadLength {
		if r, ok := p.byCode[padRight(padLeft(code, maxPadLength-1), maxPadLength)]; ok {
			return r, StrategyRightPad, true
		}
	}

	if len(code) >= minPrefixLength {
		for _, c := range p.codes {
			if strings.HasPrefix(c, code) || strings.HasPrefix(code, c) {
				return p.byCode[c], StrategyPrefix, true
			}
		}
	}
	return Record{}, "", false
}

func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat("0", n-len(s))
}
