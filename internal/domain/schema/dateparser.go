package schema

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Output layouts for coerced values
const (
	DateLayout      = "2006-01-02"
	DateTimeLayout  = "2006-01-02 15:04:05-07:00"
	TimestampLayout = time.DateTime
)

// DefaultOffset is the fixed offset applied to timestamps that carry none (UTC+8)
const DefaultOffset = 8 * time.Hour

var defaultDateLayouts = []string{
	"2006-01-02",
	"2006/1/2",
	"20060102",
	"2006-1-2",
	"2006.1.2",
}

// Layouts carrying an explicit offset come first so the offset is honored.
var defaultDateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"20060102150405",
	"20060102 15:04:05",
}

var (
	embeddedDate = regexp.MustCompile(`(\d{4})\s*[-/.年]\s*(\d{1,2})\s*[-/.月]\s*(\d{1,2})`)
	compactDate  = regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})(\d{2})(?:\D|$)`)
	embeddedTime = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
)

// DateParser is the single authority for DATE and DATETIME parsing. It tries
// an ordered list of layouts and falls back to extracting a date embedded in
// a longer string. The zero value is not usable; call NewDateParser.
type DateParser struct {
	dateLayouts     []string
	dateTimeLayouts []string
	location        *time.Location
}

// DateParserOption configures a DateParser
type DateParserOption func(*DateParser)

// WithOffset sets the fixed offset assumed for timestamps without one
func WithOffset(offset time.Duration) DateParserOption {
	return func(p *DateParser) {
		p.location = FixedZone(offset)
	}
}

// WithDateLayouts prepends extra date layouts to the default list
func WithDateLayouts(layouts ...string) DateParserOption {
	return func(p *DateParser) {
		p.dateLayouts = append(append([]string{}, layouts...), p.dateLayouts...)
	}
}

// NewDateParser creates a DateParser with the default layouts
func NewDateParser(opts ...DateParserOption) DateParser {
	p := DateParser{
		dateLayouts:     defaultDateLayouts,
		dateTimeLayouts: defaultDateTimeLayouts,
		location:        FixedZone(DefaultOffset),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// FixedZone returns a location named after its offset, e.g. "+08:00"
func FixedZone(offset time.Duration) *time.Location {
	secs := int(offset / time.Second)
	sign := "+"
	abs := secs
	if secs < 0 {
		sign = "-"
		abs = -secs
	}
	name := sign + pad2(abs/3600) + ":" + pad2(abs%3600/60)
	return time.FixedZone(name, secs)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Location returns the location applied to offset-less timestamps
func (p DateParser) Location() *time.Location {
	return p.location
}

// ParseDate returns the calendar date found in s
func (p DateParser) ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range p.dateLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, true
		}
	}
	if t, ok := p.ParseDateTime(s); ok {
		y, m, d := t.In(p.location).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, p.location), true
	}
	return p.extractDate(s)
}

// ParseDateTime returns the instant found in s. A missing time of day is
// midnight and a missing offset is the parser's fixed offset.
func (p DateParser) ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range p.dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, true
		}
	}
	for _, layout := range p.dateLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, true
		}
	}

	day, ok := p.extractDate(s)
	if !ok {
		return time.Time{}, false
	}
	rest := s
	if loc := embeddedDate.FindStringIndex(s); loc != nil {
		rest = s[loc[1]:]
	}
	if m := embeddedTime.FindStringSubmatch(rest); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss := 0
		if m[3] != "" {
			ss, _ = strconv.Atoi(m[3])
		}
		if hh < 24 && mm < 60 && ss < 60 {
			if hh < 12 && strings.Contains(rest, "下午") {
				hh += 12
			}
			y, mo, d := day.Date()
			return time.Date(y, mo, d, hh, mm, ss, 0, p.location), true
		}
	}
	return day, true
}

func (p DateParser) extractDate(s string) (time.Time, bool) {
	if m := embeddedDate.FindStringSubmatch(s); m != nil {
		if t, ok := p.civil(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	if m := compactDate.FindStringSubmatch(s); m != nil {
		if t, ok := p.civil(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// civil validates a year/month/day triple without letting time.Date normalize it
func (p DateParser) civil(ys, ms, ds string) (time.Time, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if y < 1900 || m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, p.location)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a date in the canonical DATE layout
func (p DateParser) FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDateTime renders an instant in the canonical DATETIME layout,
// expressed in the parser's offset
func (p DateParser) FormatDateTime(t time.Time) string {
	return t.In(p.location).Format(DateTimeLayout)
}

// FormatTimestamp renders an instant as wall-clock time in the parser's
// offset, without the offset suffix
func (p DateParser) FormatTimestamp(t time.Time) string {
	return t.In(p.location).Format(TimestampLayout)
}
