package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Mapping document attribute names
const (
	AttrOrder       = "order"
	AttrZhName      = "zh_name"
	AttrDisplayName = "display_name"
	AttrType        = "type"
	AttrDescription = "description"
	AttrRequired    = "required"
	AttrNote        = "note"
)

// MappingEntry is one canonical field of a mapping document, with its
// attributes as raw strings. Entries are given in document order.
type MappingEntry struct {
	Name       string
	Attributes map[string]string
}

// Registry exposes per-field metadata for one platform or report family.
// It is immutable once built.
type Registry struct {
	source  string
	fields  []FieldSpec // sorted by order, ties in document order
	byName  map[string]int
	display map[string]string
}

// NewRegistry builds a registry from mapping entries. source names the
// document in error messages.
func NewRegistry(source string, entries []MappingEntry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, &ConfigError{Code: ErrCodeEmptyMapping, Source: source, Message: "mapping document has no fields"}
	}

	specs := make([]FieldSpec, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, &ConfigError{Code: ErrCodeAttributeInvalid, Source: source, Message: "empty canonical field name"}
		}
		if seen[name] {
			return nil, &ConfigError{Code: ErrCodeAttributeInvalid, Source: source, Field: name, Message: "declared more than once"}
		}
		seen[name] = true

		spec, err := parseEntry(source, name, entry.Attributes)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].Order < specs[j].Order
	})

	r := &Registry{
		source:  source,
		fields:  specs,
		byName:  make(map[string]int, len(specs)),
		display: make(map[string]string, len(specs)),
	}
	for i, spec := range specs {
		r.byName[spec.Name] = i
		if other, dup := r.display[spec.DisplayName]; dup {
			return nil, &ConfigError{
				Code:      ErrCodeDuplicateDisplay,
				Source:    source,
				Field:     spec.Name,
				Attribute: AttrZhName,
				Message:   fmt.Sprintf("display name %q already used by '%s'", spec.DisplayName, other),
			}
		}
		r.display[spec.DisplayName] = spec.Name
	}

	return r, nil
}

func parseEntry(source, name string, attrs map[string]string) (FieldSpec, error) {
	missing := func(attr string) error {
		return &ConfigError{
			Code:      ErrCodeAttributeMissing,
			Source:    source,
			Field:     name,
			Attribute: attr,
			Message:   "required attribute is missing",
		}
	}
	invalid := func(attr, msg string) error {
		return &ConfigError{
			Code:      ErrCodeAttributeInvalid,
			Source:    source,
			Field:     name,
			Attribute: attr,
			Message:   msg,
		}
	}

	orderText, ok := attrs[AttrOrder]
	if !ok {
		return FieldSpec{}, missing(AttrOrder)
	}
	display, ok := attrs[AttrZhName]
	if !ok {
		display, ok = attrs[AttrDisplayName]
	}
	if !ok {
		return FieldSpec{}, missing(AttrZhName)
	}
	typeText, ok := attrs[AttrType]
	if !ok {
		return FieldSpec{}, missing(AttrType)
	}
	description, ok := attrs[AttrDescription]
	if !ok {
		return FieldSpec{}, missing(AttrDescription)
	}
	requiredText, ok := attrs[AttrRequired]
	if !ok {
		return FieldSpec{}, missing(AttrRequired)
	}
	note, ok := attrs[AttrNote]
	if !ok {
		return FieldSpec{}, missing(AttrNote)
	}

	order, err := strconv.Atoi(strings.TrimSpace(orderText))
	if err != nil {
		return FieldSpec{}, invalid(AttrOrder, fmt.Sprintf("order %q is not an integer", orderText))
	}
	fieldType, err := ParseFieldType(typeText)
	if err != nil {
		return FieldSpec{}, invalid(AttrType, err.Error())
	}
	required, err := parseRequired(requiredText)
	if err != nil {
		return FieldSpec{}, invalid(AttrRequired, err.Error())
	}
	display = strings.TrimSpace(display)
	if display == "" {
		display = name
	}

	return FieldSpec{
		Name:        name,
		DisplayName: display,
		Type:        fieldType,
		Order:       order,
		Required:    required,
		Description: strings.TrimSpace(description),
		Note:        strings.TrimSpace(note),
	}, nil
}

func parseRequired(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "是", "yes", "y", "true", "1":
		return true, nil
	case "否", "no", "n", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("required flag %q is not 是/否", s)
}

// Source returns the name of the document the registry was loaded from
func (r *Registry) Source() string {
	return r.source
}

// OrderedFields returns canonical names sorted by order ascending
func (r *Registry) OrderedFields() []string {
	names := make([]string, len(r.fields))
	for i, spec := range r.fields {
		names[i] = spec.Name
	}
	return names
}

// Fields returns a copy of the field specs in output order
func (r *Registry) Fields() []FieldSpec {
	out := make([]FieldSpec, len(r.fields))
	copy(out, r.fields)
	return out
}

// Field returns the spec of a canonical field
func (r *Registry) Field(name string) (FieldSpec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return r.fields[i], true
}

// Has reports whether a canonical field is declared
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// DisplayToCanonical returns the reverse lookup from display name to canonical name
func (r *Registry) DisplayToCanonical() map[string]string {
	out := make(map[string]string, len(r.display))
	for k, v := range r.display {
		out[k] = v
	}
	return out
}

// TypeOf returns the declared type of a field
func (r *Registry) TypeOf(name string) (FieldType, bool) {
	spec, ok := r.Field(name)
	if !ok {
		return "", false
	}
	return spec.Type, true
}

// Len returns the number of declared fields
func (r *Registry) Len() int {
	return len(r.fields)
}
