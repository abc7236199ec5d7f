package master

import "strings"

// ShopIndex looks up shop master data by platform name, case-insensitively
type ShopIndex struct {
	byPlatform map[string]Record
	fields     []string
}

// NewShopIndex builds an index over shop records whose Code is the platform.
// The first shop listed for a platform wins.
func NewShopIndex(records []Record) *ShopIndex {
	idx := &ShopIndex{
		byPlatform: make(map[string]Record, len(records)),
		fields:     attributeOrder(records),
	}
	for _, r := range records {
		key := platformKey(r.Code)
		if key == "" {
			continue
		}
		if _, dup := idx.byPlatform[key]; !dup {
			idx.byPlatform[key] = r
		}
	}
	return idx
}

// Name returns "shop"
func (s *ShopIndex) Name() string { return "shop" }

// Len returns the number of platforms
func (s *ShopIndex) Len() int { return len(s.byPlatform) }

// Fields returns the attribute names seen in the shop master
func (s *ShopIndex) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup finds the shop of a platform
func (s *ShopIndex) Lookup(platform string) (Record, Strategy, bool) {
	r, ok := s.byPlatform[platformKey(platform)]
	if !ok {
		return Record{}, "", false
	}
	return r, StrategyExact, true
}

func platformKey(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
