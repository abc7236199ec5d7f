package reconcile

import (
	"regexp"
	"strings"
)

// KeySeparator joins composite key parts
const KeySeparator = "_"

var integerLike = regexp.MustCompile(`^(-?\d+)\.0+$`)

// KeyPart is one field of a composite key. Pad left-pads digit strings with
// zeros to that width (0 disables padding).
type KeyPart struct {
	Field string
	Pad   int
}

// KeyBuilder derives composite keys from a fixed list of key parts. It has no
// state besides its configuration.
type KeyBuilder struct {
	parts []KeyPart
}

// NewKeyBuilder creates a KeyBuilder
func NewKeyBuilder(parts ...KeyPart) KeyBuilder {
	p := make([]KeyPart, len(parts))
	copy(p, parts)
	return KeyBuilder{parts: p}
}

// Parts returns the configured key parts
func (b KeyBuilder) Parts() []KeyPart {
	out := make([]KeyPart, len(b.parts))
	copy(out, b.parts)
	return out
}

// Build returns the key of a record. complete is false when any part is blank;
// the key is still produced.
func (b KeyBuilder) Build(r *Record) (key string, complete bool) {
	return b.BuildFunc(func(field string) string {
		v := r.Get(field)
		if v.Defaulted {
			return ""
		}
		return v.Text
	})
}

// BuildFunc builds a key reading values through get
func (b KeyBuilder) BuildFunc(get func(field string) string) (string, bool) {
	if len(b.parts) == 0 {
		return "", false
	}
	complete := true
	values := make([]string, len(b.parts))
	for i, p := range b.parts {
		v := NormalizeKeyPart(get(p.Field), p.Pad)
		if v == "" {
			complete = false
		}
		values[i] = v
	}
	return strings.Join(values, KeySeparator), complete
}

// Assign stores the key on every record and returns how many are incomplete
func (b KeyBuilder) Assign(records []*Record) int {
	incomplete := 0
	for _, r := range records {
		r.Key, r.KeyComplete = b.Build(r)
		if !r.KeyComplete {
			incomplete++
		}
	}
	return incomplete
}

// NormalizeKeyPart trims a key value, drops a zero fraction from integer-like
// numbers ("1.0" -> "1") and zero-pads digit strings to width
func NormalizeKeyPart(v string, width int) string {
	v = strings.TrimSpace(v)
	if m := integerLike.FindStringSubmatch(v); m != nil {
		v = m[1]
	}
	if width > 0 && len(v) < width && isDigits(v) {
		v = strings.Repeat("0", width-len(v)) + v
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
