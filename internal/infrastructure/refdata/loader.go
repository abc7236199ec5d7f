// Package refdata loads the configuration documents a run depends on: field
// mappings, the product catalog and the shop master. JSON and YAML are both
// read through the YAML node API so document order survives.
package refdata

import (
	"fmt"
	"os"
	"strings"

	"github.com/erp/orderrecon/internal/domain/master"
	"github.com/erp/orderrecon/internal/domain/schema"
	"gopkg.in/yaml.v3"
)

// LoadMapping reads a mapping document and builds its registry
func LoadMapping(path string) (*schema.Registry, error) {
	entries, err := LoadMappingEntries(path)
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(path, entries)
}

// LoadMappingEntries reads the raw entries of a mapping document without
// validating them
func LoadMappingEntries(path string) ([]schema.MappingEntry, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMappingEntries(path, data)
}

// ParseMappingEntries parses {canonical: {attribute: value}} in document order
func ParseMappingEntries(source string, data []byte) ([]schema.MappingEntry, error) {
	root, err := parseRoot(source, data)
	if err != nil {
		return nil, err
	}
	pairs, err := mappingPairs(source, root)
	if err != nil {
		return nil, err
	}

	entries := make([]schema.MappingEntry, 0, len(pairs))
	for _, p := range pairs {
		_, attrs, err := attributes(source, p.key, p.value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, schema.MappingEntry{Name: p.key, Attributes: attrs})
	}
	return entries, nil
}

// LoadProductMaster reads a {code: {attribute: value}} catalog
func LoadProductMaster(path string) ([]master.Record, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProductMaster(path, data)
}

// ParseProductMaster parses a product catalog in document order
func ParseProductMaster(source string, data []byte) ([]master.Record, error) {
	root, err := parseRoot(source, data)
	if err != nil {
		return nil, err
	}
	if products := lookupKey(root, "products"); products != nil && products.Kind == yaml.MappingNode {
		root = products
	}
	pairs, err := mappingPairs(source, root)
	if err != nil {
		return nil, err
	}

	records := make([]master.Record, 0, len(pairs))
	for _, p := range pairs {
		fields, attrs, err := attributes(source, p.key, p.value)
		if err != nil {
			return nil, err
		}
		records = append(records, master.NewRecord(p.key, fields, attrs))
	}
	return records, nil
}

// LoadShopMaster reads a {"shops": [...]} document
func LoadShopMaster(path string) ([]master.Record, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseShopMaster(path, data)
}

// ParseShopMaster parses the shop list. Each shop is keyed by its platform
// attribute, which is not copied as an attribute itself.
func ParseShopMaster(source string, data []byte) ([]master.Record, error) {
	root, err := parseRoot(source, data)
	if err != nil {
		return nil, err
	}
	shops := lookupKey(root, "shops")
	if shops == nil || shops.Kind != yaml.SequenceNode {
		return nil, schema.NewConfigError(source, "expected a 'shops' list", nil)
	}

	records := make([]master.Record, 0, len(shops.Content))
	for i, item := range shops.Content {
		name := fmt.Sprintf("shops[%d]", i)
		fields, attrs, err := attributes(source, name, item)
		if err != nil {
			return nil, err
		}
		platform := strings.TrimSpace(attrs["platform"])
		if platform == "" {
			return nil, &schema.ConfigError{
				Code:      schema.ErrCodeAttributeMissing,
				Source:    source,
				Field:     name,
				Attribute: "platform",
				Message:   "missing required attribute",
			}
		}
		kept := make([]string, 0, len(fields))
		for _, f := range fields {
			if f != "platform" {
				kept = append(kept, f)
			}
		}
		delete(attrs, "platform")
		records = append(records, master.NewRecord(platform, kept, attrs))
	}
	return records, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewConfigError(path, "cannot read document", err)
	}
	return data, nil
}

func parseRoot(source string, data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewConfigError(source, "malformed document", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &schema.ConfigError{Code: schema.ErrCodeEmptyMapping, Source: source, Message: "document is empty"}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, schema.NewConfigError(source, "expected a mapping at the top level", nil)
	}
	return root, nil
}

type pair struct {
	key   string
	value *yaml.Node
}

func mappingPairs(source string, n *yaml.Node) ([]pair, error) {
	pairs := make([]pair, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := strings.TrimSpace(n.Content[i].Value)
		if key == "" {
			return nil, schema.NewConfigError(source, fmt.Sprintf("empty key at line %d", n.Content[i].Line), nil)
		}
		if seen[key] {
			return nil, schema.NewConfigError(source, fmt.Sprintf("duplicate key '%s' at line %d", key, n.Content[i].Line), nil)
		}
		seen[key] = true
		pairs = append(pairs, pair{key: key, value: n.Content[i+1]})
	}
	return pairs, nil
}

func lookupKey(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// attributes flattens a mapping of scalars. Sequences of scalars are joined
// with ", ".
func attributes(source, name string, n *yaml.Node) ([]string, map[string]string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, &schema.ConfigError{
			Code:    schema.ErrCodeDocument,
			Source:  source,
			Field:   name,
			Message: fmt.Sprintf("expected a mapping of attributes at line %d", n.Line),
		}
	}
	pairs, err := mappingPairs(source, n)
	if err != nil {
		return nil, nil, err
	}
	fields := make([]string, 0, len(pairs))
	attrs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		v, err := scalarText(p.value)
		if err != nil {
			return nil, nil, &schema.ConfigError{
				Code:      schema.ErrCodeAttributeInvalid,
				Source:    source,
				Field:     name,
				Attribute: p.key,
				Message:   err.Error(),
			}
		}
		fields = append(fields, p.key)
		attrs[p.key] = v
	}
	return fields, attrs, nil
}

func scalarText(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := scalarText(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, v)
		}
		return strings.Join(parts, ", "), nil
	case yaml.AliasNode:
		return scalarText(n.Alias)
	}
	return "", fmt.Errorf("nested value at line %d is not supported", n.Line)
}
