package schema

import (
	"strings"
	"unicode"
)

// CleanText normalizes free text: control characters and symbols outside
// the basic multilingual plane (emoji) are removed, line breaks become
// spaces, whitespace runs collapse to one space and the ends are trimmed.
func CleanText(s string) string {
	if s == "" {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case r == '\r' || r == '\n' || r == '\t' || unicode.IsSpace(r):
			pendingSpace = true
			continue
		case r == unicode.ReplacementChar:
			continue
		case unicode.IsControl(r), r > 0xFFFF, isVariationSelector(r):
			continue
		}
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func isVariationSelector(r rune) bool {
	return (r >= 0xFE00 && r <= 0xFE0F) || r == 0x200D
}
