package schema

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceResult is the outcome of coercing one cell
type CoerceResult struct {
	Text string
	// Defaulted is true when the input was blank or invalid and Text is the
	// type's default value
	Defaulted bool
	// Invalid is true when a non-blank input could not be parsed
	Invalid bool
}

// Coercer converts raw cell text to the canonical text of a declared type.
// Coerce is a pure function of its inputs.
type Coercer struct {
	dates    DateParser
	currency map[string]bool
}

// NewCoercer creates a Coercer. currencyFields lists FLOAT fields rounded to
// two decimal places.
func NewCoercer(dates DateParser, currencyFields []string) Coercer {
	currency := make(map[string]bool, len(currencyFields))
	for _, f := range currencyFields {
		currency[f] = true
	}
	return Coercer{dates: dates, currency: currency}
}

// IsCurrency reports whether a field is rounded as money
func (c Coercer) IsCurrency(field string) bool {
	return c.currency[field]
}

// Default returns the default text for a field
func (c Coercer) Default(spec FieldSpec) string {
	if spec.Type == TypeFloat && c.currency[spec.Name] {
		return "0.00"
	}
	return spec.Type.DefaultText()
}

// Coerce converts raw to the canonical text of spec's declared type
func (c Coercer) Coerce(spec FieldSpec, raw string) CoerceResult {
	switch spec.Type {
	case TypeString:
		return CoerceResult{Text: CleanText(raw)}
	case TypeBoolean:
		return c.coerceBoolean(raw)
	}

	value := strings.TrimSpace(raw)
	if value == "" || isNullToken(value) {
		return CoerceResult{Text: c.Default(spec), Defaulted: true}
	}

	switch spec.Type {
	case TypeInteger:
		d, ok := parseDecimal(value)
		if !ok {
			return c.invalid(spec)
		}
		return CoerceResult{Text: d.Truncate(0).String()}
	case TypeFloat:
		d, ok := parseDecimal(value)
		if !ok {
			return c.invalid(spec)
		}
		if c.currency[spec.Name] {
			return CoerceResult{Text: d.Round(2).StringFixed(2)}
		}
		return CoerceResult{Text: formatFloat(d)}
	case TypeDate:
		t, ok := c.dates.ParseDate(value)
		if !ok {
			return c.invalid(spec)
		}
		return CoerceResult{Text: c.dates.FormatDate(t)}
	case TypeDateTime:
		t, ok := c.dates.ParseDateTime(value)
		if !ok {
			return c.invalid(spec)
		}
		return CoerceResult{Text: c.dates.FormatDateTime(t)}
	}

	return CoerceResult{Text: CleanText(raw)}
}

func (c Coercer) invalid(spec FieldSpec) CoerceResult {
	return CoerceResult{Text: c.Default(spec), Defaulted: true, Invalid: true}
}

func (c Coercer) coerceBoolean(raw string) CoerceResult {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "true", "1", "yes", "是":
		return CoerceResult{Text: "true"}
	case "":
		return CoerceResult{Text: "false", Defaulted: true}
	}
	return CoerceResult{Text: "false"}
}

// Bounds on parsed magnitudes; anything larger is not an order amount.
const (
	maxIntegerDigits  = 30
	maxFractionDigits = 30
)

// parseDecimal accepts plain and thousands-separated numbers
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	exp := int64(d.Exponent())
	if exp < -maxFractionDigits || int64(d.NumDigits())+exp > maxIntegerDigits {
		return decimal.Zero, false
	}
	return d, true
}

// formatFloat prints the shortest form with at least one decimal place
func formatFloat(d decimal.Decimal) string {
	s := d.String()
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func isNullToken(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "null", "none", "nat", "<na>":
		return true
	}
	return false
}
