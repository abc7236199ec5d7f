package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/orderrecon/internal/domain/history"
	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedRun() *history.Run {
	started := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	return &history.Run{
		Platform:    "momo",
		Status:      history.StatusCompleted,
		StartedAt:   &started,
		CompletedAt: &completed,
	}
}

func sampleDiagnostics() *reconcile.Diagnostics {
	diag := reconcile.NewDiagnostics(10)
	diag.FilesRead = 3
	diag.RowsRead = 120
	diag.OutputRows = 100
	diag.MergedKeys = 100
	diag.Enriched["product"] = 95
	diag.AddUnmatched("product", []string{"4710000000001", "4710000000002"})
	diag.SkipFile("data/bad.csv", errors.New("undecodable"))
	diag.Warn(reconcile.FieldCoercionWarning("sales.csv", 4, "quantity", "abc", "INTEGER"))
	return diag
}

func TestRecorder_RecordRun(t *testing.T) {
	r := NewRecorder("")
	r.RecordRun(completedRun(), sampleDiagnostics())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("momo", "completed")))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.runDuration.WithLabelValues("momo")))
	assert.Equal(t, float64(completedRun().CompletedAt.Unix()), testutil.ToFloat64(r.lastSuccess.WithLabelValues("momo")))

	assert.Equal(t, 120.0, testutil.ToFloat64(r.counts.WithLabelValues("momo", "rows_read")))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.counts.WithLabelValues("momo", "output_rows")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.counts.WithLabelValues("momo", "files_skipped")))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.counts.WithLabelValues("momo", "merged_keys")))

	assert.Equal(t, 95.0, testutil.ToFloat64(r.enriched.WithLabelValues("momo", "product")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.unmatchedKeys.WithLabelValues("momo", "product")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.warnings.WithLabelValues("momo", "FIELD_COERCION")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.warnings.WithLabelValues("momo", "UNMATCHED_KEY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.warnings.WithLabelValues("momo", "SOURCE_READ")))
}

func TestRecorder_FailedRunWithoutDiagnostics(t *testing.T) {
	r := NewRecorder("recon")
	run := &history.Run{Platform: "yahoo", Status: history.StatusFailed}

	r.RecordRun(run, nil)
	r.RecordRun(run, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("yahoo", "failed")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.lastSuccess))
	assert.Equal(t, 0, testutil.CollectAndCount(r.counts))

	problems, err := testutil.GatherAndLint(r.Registry())
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestRecorder_Exposition(t *testing.T) {
	r := NewRecorder("")
	r.RecordRun(completedRun(), sampleDiagnostics())

	expected := `
# HELP orderrecon_runs_total Reconciliation runs by final status.
# TYPE orderrecon_runs_total counter
orderrecon_runs_total{platform="momo",status="completed"} 1
# HELP orderrecon_enriched_records Records matched by each master index in the last run.
# TYPE orderrecon_enriched_records gauge
orderrecon_enriched_records{index="product",platform="momo"} 95
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected),
		"orderrecon_runs_total", "orderrecon_enriched_records")
	assert.NoError(t, err)
}

func TestRecorder_Push(t *testing.T) {
	var method, path, body string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		method = req.Method
		path = req.URL.Path
		data, _ := io.ReadAll(req.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	r := NewRecorder("")
	r.RecordRun(completedRun(), sampleDiagnostics())

	require.NoError(t, r.Push(context.Background(), gateway.URL, "orderrecon", "momo"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/orderrecon/instance/momo", path)
	assert.NotEmpty(t, body)

	t.Run("gateway error", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer failing.Close()

		err := r.Push(context.Background(), failing.URL, "orderrecon", "momo")
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "push metrics"))
	})
}
