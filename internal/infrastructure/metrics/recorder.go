// Package metrics exports run diagnostics as Prometheus metrics, pushed to a
// Pushgateway when a run ends.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/erp/orderrecon/internal/domain/history"
	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "orderrecon"

// Recorder holds the run metrics on a private registry
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec
	counts        *prometheus.GaugeVec
	enriched      *prometheus.GaugeVec
	unmatchedKeys *prometheus.GaugeVec
	warnings      *prometheus.GaugeVec
}

// NewRecorder creates a Recorder. An empty namespace uses DefaultNamespace.
func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reconciliation runs by final status.",
		}, []string{"platform", "status"}),
		runDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}, []string{"platform"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}, []string{"platform"}),
		counts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "diagnostics",
			Help:      "Diagnostic counters of the last run.",
		}, []string{"platform", "counter"}),
		enriched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enriched_records",
			Help:      "Records matched by each master index in the last run.",
		}, []string{"platform", "index"}),
		unmatchedKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_keys",
			Help:      "Distinct keys missing from each master index in the last run.",
		}, []string{"platform", "index"}),
		warnings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "warnings",
			Help:      "Warnings of the last run by kind.",
		}, []string{"platform", "kind"}),
	}
	r.registry.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.lastSuccess,
		r.counts,
		r.enriched,
		r.unmatchedKeys,
		r.warnings,
	)
	return r
}

// Registry returns the recorder's registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRun records the outcome of a run. diag may be nil for runs that
// failed before processing.
func (r *Recorder) RecordRun(run *history.Run, diag *reconcile.Diagnostics) {
	platform := run.Platform
	r.runsTotal.WithLabelValues(platform, string(run.Status)).Inc()
	r.runDuration.WithLabelValues(platform).Set(run.Duration().Seconds())
	if run.Status == history.StatusCompleted && run.CompletedAt != nil {
		r.lastSuccess.WithLabelValues(platform).Set(float64(run.CompletedAt.Unix()))
	}
	if diag == nil {
		return
	}

	summary := diag.Summary()
	summary["merged_keys"] = diag.MergedKeys
	summary["fallback_fields"] = diag.FallbackFields
	summary["fuzzy_matched_columns"] = diag.FuzzyMatchedColumns
	for counter, n := range summary {
		r.counts.WithLabelValues(platform, counter).Set(float64(n))
	}

	for index, n := range diag.Enriched {
		r.enriched.WithLabelValues(platform, index).Set(float64(n))
	}
	for index, keys := range diag.Unmatched {
		r.unmatchedKeys.WithLabelValues(platform, index).Set(float64(len(keys)))
	}

	log := diag.Warnings()
	for _, kind := range []reconcile.WarningKind{
		reconcile.KindFieldCoercion,
		reconcile.KindUnmatchedKey,
		reconcile.KindSourceRead,
		reconcile.KindDroppedColumn,
	} {
		r.warnings.WithLabelValues(platform, string(kind)).Set(float64(log.Count(kind)))
	}
}

// Push sends the registry to a Pushgateway, grouped by platform as the instance
func (r *Recorder) Push(ctx context.Context, url, job, platform string) error {
	pusher := push.New(url, job).
		Gatherer(r.registry).
		Grouping("instance", platform).
		Client(&http.Client{Timeout: 10 * time.Second})
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
