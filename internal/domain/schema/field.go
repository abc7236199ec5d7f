// Package schema holds the declarative field model that drives normalization:
// field specs, the mapping registry, the date parser and type coercion.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is the declared type of a canonical field
type FieldType string

const (
	TypeString   FieldType = "STRING"
	TypeInteger  FieldType = "INTEGER"
	TypeFloat    FieldType = "FLOAT"
	TypeDate     FieldType = "DATE"
	TypeDateTime FieldType = "DATETIME"
	TypeBoolean  FieldType = "BOOLEAN"
)

// IsValid checks if the field type is one of the supported types
func (t FieldType) IsValid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeDate, TypeDateTime, TypeBoolean:
		return true
	}
	return false
}

// ParseFieldType parses a declared type name, case-insensitively.
// TIMESTAMP is accepted as an alias of DATETIME and NUMERIC of FLOAT.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case "TIMESTAMP":
		t = TypeDateTime
	case "NUMERIC":
		t = TypeFloat
	case "BOOL":
		t = TypeBoolean
	case "INT", "INT64":
		t = TypeInteger
	}
	if !t.IsValid() {
		return "", fmt.Errorf("unknown field type %q", s)
	}
	return t, nil
}

// FieldSpec describes one canonical field as declared in a mapping document
type FieldSpec struct {
	Name        string
	DisplayName string
	Type        FieldType
	Order       int
	Required    bool
	Description string
	Note        string
}

// DefaultText returns the text a field of this type takes when the source
// has no usable value
func (t FieldType) DefaultText() string {
	switch t {
	case TypeInteger:
		return "0"
	case TypeFloat:
		return "0.0"
	case TypeBoolean:
		return "false"
	default:
		return ""
	}
}
