package reconcile

import (
	"fmt"

	"github.com/erp/orderrecon/internal/domain/master"
	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/erp/orderrecon/internal/infrastructure/config"
	"github.com/erp/orderrecon/internal/infrastructure/refdata"
	"go.uber.org/zap"
)

// buildContext loads every configuration document of a platform and
// assembles the run context. Any problem here is a ConfigError and stops the
// run before a file is read.
func (s *Service) buildContext(pc config.PlatformConfig, runID string, log *zap.Logger) (*reconcile.RunContext, error) {
	registry, err := refdata.LoadMapping(pc.Mapping)
	if err != nil {
		return nil, err
	}

	dateOpts := []schema.DateParserOption{schema.WithOffset(s.cfg.Engine.UTCOffset)}
	if len(pc.DateLayouts) > 0 {
		dateOpts = append(dateOpts, schema.WithDateLayouts(pc.DateLayouts...))
	}
	dates := schema.NewDateParser(dateOpts...)

	if err := requireFields(registry, "primary_field", pc.PrimaryField); err != nil {
		return nil, err
	}
	parts := make([]reconcile.KeyPart, 0, len(pc.KeyParts))
	for _, p := range pc.KeyParts {
		if err := requireFields(registry, "key_parts", p.Field); err != nil {
			return nil, err
		}
		parts = append(parts, reconcile.KeyPart{Field: p.Field, Pad: p.Pad})
	}
	coercer := schema.NewCoercer(dates, pc.CurrencyFields)
	for _, f := range pc.CurrencyFields {
		if !registry.Has(f) {
			log.Warn("currency field not in mapping", zap.String("field", f))
		}
	}
	for _, spec := range registry.Fields() {
		if coercer.IsCurrency(spec.Name) && spec.Type != schema.TypeFloat {
			log.Warn("currency field is not FLOAT, rounding skipped",
				zap.String("field", spec.Name), zap.String("type", string(spec.Type)))
		}
	}

	sourceDedup, err := dedupPolicy(registry, dates, "source_dedup", pc.SourceDedup)
	if err != nil {
		return nil, err
	}
	finalDedup, err := dedupPolicy(registry, dates, "dedup", pc.Dedup)
	if err != nil {
		return nil, err
	}

	enrichers, err := s.enrichers(pc, log)
	if err != nil {
		return nil, err
	}

	return &reconcile.RunContext{
		RunID:          runID,
		Platform:       pc.Name,
		Registry:       registry,
		Dates:          dates,
		Coercer:        coercer,
		Keys:           reconcile.NewKeyBuilder(parts...),
		PrimaryField:   pc.PrimaryField,
		MatchThreshold: pc.MatchThreshold,
		Priorities:     pc.ReportTypes,
		SourceDedup:    sourceDedup,
		FinalDedup:     finalDedup,
		Enrichers:      enrichers,
		TimestampField: s.cfg.Engine.TimestampField,
		Now:            s.now,
		Diagnostics:    reconcile.NewDiagnostics(s.cfg.Engine.MaxWarnings),
		Logger:         log,
	}, nil
}

func requireFields(registry *schema.Registry, setting string, fields ...string) error {
	for _, f := range fields {
		if f != "" && !registry.Has(f) {
			return &schema.ConfigError{
				Code:      schema.ErrCodeAttributeInvalid,
				Source:    registry.Source(),
				Field:     f,
				Attribute: setting,
				Message:   "not a canonical field of the mapping",
			}
		}
	}
	return nil
}

func dedupPolicy(registry *schema.Registry, dates schema.DateParser, setting string, dc config.DedupConfig) (reconcile.DedupPolicy, error) {
	if dc.Disabled {
		return reconcile.DedupPolicy{}, nil
	}

	policy := reconcile.DedupPolicy{Key: reconcile.ByCompositeKey}
	if len(dc.Key) > 0 {
		if err := requireFields(registry, setting+".key", dc.Key...); err != nil {
			return policy, err
		}
		parts := make([]reconcile.KeyPart, len(dc.Key))
		for i, f := range dc.Key {
			parts[i] = reconcile.KeyPart{Field: f}
		}
		policy.Key = reconcile.ByKeyBuilder(reconcile.NewKeyBuilder(parts...))
	}

	switch dc.Rank {
	case "", "priority":
		policy.Rank = reconcile.ByPriority
	case "sequence":
		policy.Rank = reconcile.BySequence
	case "timestamp":
		if err := requireFields(registry, setting+".timestamp_field", dc.TimestampField); err != nil {
			return policy, err
		}
		policy.Rank = reconcile.ByTimestamp(dc.TimestampField, dates)
	default:
		return policy, schema.NewConfigError(setting, fmt.Sprintf("unknown rank %q", dc.Rank), nil)
	}

	keep, err := reconcile.ParseKeepPolicy(dc.Keep)
	if err != nil {
		return policy, schema.NewConfigError(setting, "invalid keep policy", err)
	}
	policy.Keep = keep
	return policy, nil
}

// enrichers loads the configured master documents. Product runs before shop.
func (s *Service) enrichers(pc config.PlatformConfig, log *zap.Logger) ([]reconcile.Enricher, error) {
	var out []reconcile.Enricher

	if pc.Product.Enabled() {
		records, err := refdata.LoadProductMaster(pc.Product.Path)
		if err != nil {
			return nil, err
		}
		index := master.NewProductIndex(records)
		spec := master.ProductJoinSpec(pc.Product.KeyField)
		if len(pc.Product.Fields) > 0 {
			spec.Fields = pc.Product.Fields
		}
		spec.Authoritative = pc.Authoritative
		out = append(out, master.NewJoiner(index, spec))
		log.Info("loaded product master", zap.String("path", pc.Product.Path), zap.Int("codes", index.Len()))
	}

	if pc.Shop.Enabled() {
		records, err := refdata.LoadShopMaster(pc.Shop.Path)
		if err != nil {
			return nil, err
		}
		index := master.NewShopIndex(records)
		spec := master.ShopJoinSpec(pc.Shop.KeyField, pc.Name)
		if len(pc.Shop.Fields) > 0 {
			spec.Fields = pc.Shop.Fields
		}
		spec.Authoritative = pc.Authoritative
		out = append(out, master.NewJoiner(index, spec))
		log.Info("loaded shop master", zap.String("path", pc.Shop.Path), zap.Int("platforms", index.Len()))
	}

	return out, nil
}
