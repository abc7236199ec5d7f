package reconcile

import (
	"time"

	"github.com/erp/orderrecon/internal/domain/schema"
	"go.uber.org/zap"
)

// EnrichResult summarizes one enrichment pass
type EnrichResult struct {
	Index     string
	Matched   int
	BlankKeys int
	Unmatched []string // distinct keys in first-seen order
	Strategy  map[string]int
}

// Enricher joins reference data onto reconciled records
type Enricher interface {
	Name() string
	Enrich(records []*Record) EnrichResult
}

// DedupPolicy configures the final deduplication pass
type DedupPolicy struct {
	Key  KeyFunc
	Rank RankFunc
	Keep KeepPolicy
}

// RunContext carries everything one reconciliation run needs. It is built
// once per run and handed to each stage; no stage reads package-level state.
type RunContext struct {
	RunID    string
	Platform string

	Registry *schema.Registry
	Dates    schema.DateParser
	Coercer  schema.Coercer
	Keys     KeyBuilder

	PrimaryField   string
	MatchThreshold float64

	// Priorities maps report type to rank; higher wins
	Priorities map[string]int
	// SourceDedup collapses re-exported rows inside one report type
	SourceDedup DedupPolicy
	// FinalDedup runs after merge
	FinalDedup DedupPolicy

	Enrichers []Enricher

	TimestampField string
	Now            func() time.Time

	Diagnostics *Diagnostics
	Logger      *zap.Logger
}

// Normalizer returns a normalizer bound to this run's registry and coercion rules
func (rc *RunContext) Normalizer() *Normalizer {
	return NewNormalizer(rc.Registry, rc.Coercer,
		WithPrimaryField(rc.PrimaryField),
		WithMatchThreshold(rc.MatchThreshold),
	)
}

// RankOf returns the priority rank of a report type; unknown types rank lowest
func (rc *RunContext) RankOf(reportType string) int {
	if rank, ok := rc.Priorities[reportType]; ok {
		return rank
	}
	return 0
}

// Log returns the run logger, never nil
func (rc *RunContext) Log() *zap.Logger {
	if rc.Logger == nil {
		return zap.NewNop()
	}
	return rc.Logger
}

// ProcessingTime returns the run clock's current time
func (rc *RunContext) ProcessingTime() time.Time {
	if rc.Now == nil {
		return time.Now()
	}
	return rc.Now()
}

// Reconcile runs key assignment, per-source dedup, merge, final dedup and
// enrichment over normalized datasets, recording every count in the run
// diagnostics. Datasets must already carry their records' Rank and Seq.
func (rc *RunContext) Reconcile(datasets []SourceDataset) []*Record {
	diag := rc.Diagnostics
	log := rc.Log()

	prepared := make([]SourceDataset, 0, len(datasets))
	for _, ds := range datasets {
		diag.IncompleteKeys += rc.Keys.Assign(ds.Records)
		records := ds.Records
		if rc.SourceDedup.Key != nil {
			var removed int
			records, removed = NewDeduplicator(rc.SourceDedup.Key, rc.SourceDedup.Rank, rc.SourceDedup.Keep).Deduplicate(records)
			diag.SourceDedupRemoved += removed
			if removed > 0 {
				log.Info("collapsed re-exported rows",
					zap.String("report_type", ds.ReportType),
					zap.Int("removed", removed))
			}
		}
		prepared = append(prepared, SourceDataset{ReportType: ds.ReportType, Rank: ds.Rank, Records: records})
	}

	merged, stats := NewMerger().Merge(prepared)
	diag.MergedKeys += stats.Keys
	diag.FallbackMerged += stats.FallbackRecords
	diag.FallbackFields += stats.FallbackFields
	log.Info("merged sources",
		zap.Int("sources", stats.Sources),
		zap.Int("keys", stats.Keys),
		zap.Int("fallback_records", stats.FallbackRecords),
		zap.Int("fallback_fields", stats.FallbackFields),
		zap.Int("incomplete_keys", stats.IncompleteKeys))

	out := merged
	if rc.FinalDedup.Key != nil {
		var removed int
		out, removed = NewDeduplicator(rc.FinalDedup.Key, rc.FinalDedup.Rank, rc.FinalDedup.Keep).Deduplicate(merged)
		diag.DedupRemoved += removed
		log.Info("deduplicated", zap.Int("removed", removed), zap.Int("remaining", len(out)))
	}

	for _, e := range rc.Enrichers {
		res := e.Enrich(out)
		diag.Enriched[res.Index] += res.Matched
		diag.AddUnmatched(res.Index, res.Unmatched)
		fields := []zap.Field{
			zap.String("index", res.Index),
			zap.Int("matched", res.Matched),
			zap.Int("unmatched", len(res.Unmatched)),
			zap.Int("blank_keys", res.BlankKeys),
		}
		for strategy, n := range res.Strategy {
			fields = append(fields, zap.Int("strategy_"+strategy, n))
		}
		log.Info("enriched", fields...)
		if len(res.Unmatched) > 0 {
			sample := res.Unmatched
			if len(sample) > 10 {
				sample = sample[:10]
			}
			log.Warn("unmatched enrichment keys", zap.String("index", res.Index), zap.Strings("sample", sample))
		}
	}

	return out
}
