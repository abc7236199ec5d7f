package master

import (
	"strings"

	"github.com/erp/orderrecon/internal/domain/reconcile"
)

// JoinSpec configures how one index is joined onto records
type JoinSpec struct {
	// KeyField is the record field holding the lookup key
	KeyField string
	// DefaultKey is used when the record has no value in KeyField
	DefaultKey string
	// Prefix is prepended to copied attribute names unless already present
	Prefix string
	// Fields lists the master attributes to copy; empty copies all of them
	Fields []string
	// Renames maps a master attribute to an explicit output column
	Renames map[string]string
	// Authoritative lists output columns the master may overwrite
	Authoritative []string
}

// Column returns the output column for a master attribute
func (s JoinSpec) Column(attr string) string {
	if col, ok := s.Renames[attr]; ok {
		return col
	}
	if s.Prefix == "" || strings.HasPrefix(attr, s.Prefix) {
		return attr
	}
	return s.Prefix + attr
}

// ProductJoinSpec is the default product enrichment
func ProductJoinSpec(keyField string) JoinSpec {
	return JoinSpec{
		KeyField: keyField,
		Prefix:   "product_",
		Fields:   append(append([]string{}, DefaultProductFields...), "cost"),
		Renames:  map[string]string{"cost": "product_cost_from_catalog"},
	}
}

// ShopJoinSpec is the default shop enrichment
func ShopJoinSpec(keyField, platform string) JoinSpec {
	return JoinSpec{
		KeyField:   keyField,
		DefaultKey: platform,
		Prefix:     "shop_",
	}
}

// Joiner copies master attributes onto records. It never erases or
// overwrites populated values except for authoritative columns.
type Joiner struct {
	index         Index
	spec          JoinSpec
	attrs         []string
	authoritative map[string]bool
}

// fieldLister is implemented by indices that know their attribute names
type fieldLister interface {
	Fields() []string
}

// NewJoiner creates a joiner for index
func NewJoiner(index Index, spec JoinSpec) *Joiner {
	attrs := spec.Fields
	if len(attrs) == 0 {
		if fl, ok := index.(fieldLister); ok {
			attrs = fl.Fields()
		}
	}
	auth := make(map[string]bool, len(spec.Authoritative))
	for _, c := range spec.Authoritative {
		auth[c] = true
	}
	return &Joiner{
		index:         index,
		spec:          spec,
		attrs:         append([]string{}, attrs...),
		authoritative: auth,
	}
}

// Name returns the index name
func (j *Joiner) Name() string {
	return j.index.Name()
}

// Columns returns the enrichment columns in output order
func (j *Joiner) Columns() []string {
	cols := make([]string, len(j.attrs))
	for i, a := range j.attrs {
		cols[i] = j.spec.Column(a)
	}
	return cols
}

// Enrich joins the index onto records in place
func (j *Joiner) Enrich(records []*reconcile.Record) reconcile.EnrichResult {
	res := reconcile.EnrichResult{
		Index:    j.index.Name(),
		Strategy: make(map[string]int),
	}
	missed := make(map[string]bool)

	for _, r := range records {
		key := strings.TrimSpace(r.Text(j.spec.KeyField))
		if key == "" || r.Get(j.spec.KeyField).Defaulted {
			key = j.spec.DefaultKey
		}
		if key == "" {
			res.BlankKeys++
			j.addColumns(r)
			continue
		}

		m, strategy, ok := j.index.Lookup(key)
		if !ok {
			j.addColumns(r)
			if !missed[key] {
				missed[key] = true
				res.Unmatched = append(res.Unmatched, key)
			}
			continue
		}

		res.Matched++
		res.Strategy[string(strategy)]++
		j.apply(r, m)
	}
	return res
}

func (j *Joiner) addColumns(r *reconcile.Record) {
	for _, a := range j.attrs {
		if col := j.spec.Column(a); !r.Has(col) {
			r.Set(col, reconcile.Value{})
		}
	}
}

func (j *Joiner) apply(r *reconcile.Record, m Record) {
	for _, a := range j.attrs {
		col := j.spec.Column(a)
		v, _ := m.Value(a)
		if v == "" {
			if !r.Has(col) {
				r.Set(col, reconcile.Value{})
			}
			continue
		}
		if !r.Get(col).IsEmpty() && !j.authoritative[col] {
			continue
		}
		r.Set(col, reconcile.Text(v))
	}
}
