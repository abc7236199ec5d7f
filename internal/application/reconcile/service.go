// Package reconcile runs reconciliation for one configured platform: it
// reads the platform's reports, reconciles them and writes the output
// dataset, recording the run in history and metrics.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/erp/orderrecon/internal/domain/history"
	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/erp/orderrecon/internal/infrastructure/config"
	"github.com/erp/orderrecon/internal/infrastructure/export"
	"github.com/erp/orderrecon/internal/infrastructure/logger"
	"github.com/erp/orderrecon/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the outcome of a completed run
type Result struct {
	Run         *history.Run
	Diagnostics *reconcile.Diagnostics
	OutputPath  string
	Columns     []string
}

// Service runs reconciliations
type Service struct {
	cfg      *config.Config
	runs     history.Repository
	recorder *metrics.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRunRepository persists every run
func WithRunRepository(repo history.Repository) ServiceOption {
	return func(s *Service) {
		s.runs = repo
	}
}

// WithRecorder records run metrics
func WithRecorder(recorder *metrics.Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithClock sets the clock used for the processing timestamp
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service
func NewService(cfg *config.Config, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reconciles one platform. A ConfigError or an output write failure
// fails the run; unreadable inputs are skipped and recorded.
func (s *Service) Run(ctx context.Context, platform string) (*Result, error) {
	pc, err := s.cfg.Platform(platform)
	if err != nil {
		return nil, err
	}

	run, err := history.NewRun(pc.Name)
	if err != nil {
		return nil, err
	}
	ctx, log := logger.ForRun(ctx, s.logger, run.ID.String(), pc.Name)
	s.save(ctx, run)

	rc, err := s.buildContext(pc, run.ID.String(), log)
	if err != nil {
		return nil, s.fail(ctx, run, nil, err)
	}
	if err := run.Start(pc.Output); err != nil {
		return nil, err
	}
	s.save(ctx, run)
	log.Info("run started",
		zap.Int("fields", rc.Registry.Len()),
		zap.Int("sources", len(pc.Sources)),
		zap.Int("enrichers", len(rc.Enrichers)))

	datasets, err := s.ingest(ctx, rc, pc)
	if err != nil {
		return nil, s.fail(ctx, run, rc.Diagnostics, err)
	}

	records := rc.Reconcile(datasets)
	diag := rc.Diagnostics
	diag.OutputRows = len(records)

	ds := outputDataset(rc, records)
	if err := export.WriteFile(pc.Output, ds, s.cfg.Engine.OutputBOM); err != nil {
		return nil, s.fail(ctx, run, diag, err)
	}

	counts := history.Counts{
		FilesRead:    diag.FilesRead,
		FilesSkipped: len(diag.SkippedFiles),
		RowsRead:     diag.RowsRead,
		OutputRows:   diag.OutputRows,
		Warnings:     diag.Warnings().Total(),
	}
	if err := run.Complete(counts, diag); err != nil {
		return nil, err
	}
	s.save(ctx, run)
	s.record(ctx, run, diag)

	fields := []zap.Field{zap.String("output", pc.Output), zap.Duration("duration", run.Duration())}
	for name, n := range diag.Summary() {
		fields = append(fields, zap.Int(name, n))
	}
	log.Info("run completed", fields...)
	if diag.Warnings().Total() > 0 {
		log.Warn("run finished with warnings", zap.String("warnings", diag.Warnings().String()))
	}

	return &Result{Run: run, Diagnostics: diag, OutputPath: pc.Output, Columns: ds.Columns}, nil
}

// outputDataset lays out the output: canonical fields in ordinal order,
// enrichment columns in first-seen order, then the processing timestamp
func outputDataset(rc *reconcile.RunContext, records []*reconcile.Record) export.Dataset {
	columns := reconcile.Columns(rc.Registry.OrderedFields(), records)
	stamp := ""
	if rc.TimestampField != "" {
		columns = append(columns, rc.TimestampField)
		stamp = rc.Dates.FormatTimestamp(rc.ProcessingTime())
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		if rc.TimestampField != "" {
			r.SetText(rc.TimestampField, stamp)
		}
		rows[i] = r.Row(columns)
	}
	return export.Dataset{Columns: columns, Rows: rows}
}

// fail marks the run failed, persists it and returns cause
func (s *Service) fail(ctx context.Context, run *history.Run, diag *reconcile.Diagnostics, cause error) error {
	log := logger.FromContext(ctx)
	log.Error("run failed", zap.Error(cause))
	if err := run.Fail(cause); err != nil {
		log.Warn("cannot mark run failed", zap.Error(err))
		return cause
	}
	if diag != nil {
		if err := run.SetDiagnostics(diag); err != nil {
			log.Warn("cannot store diagnostics", zap.Error(err))
		}
	}
	s.save(ctx, run)
	s.record(ctx, run, diag)
	return cause
}

// save persists the run; history is best effort and never fails a run
func (s *Service) save(ctx context.Context, run *history.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.FromContext(ctx).Warn("failed to save run history", zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, run *history.Run, diag *reconcile.Diagnostics) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordRun(run, diag)
	if !s.cfg.Metrics.Enabled || s.cfg.Metrics.PushURL == "" {
		return
	}
	if err := s.recorder.Push(context.WithoutCancel(ctx), s.cfg.Metrics.PushURL, s.cfg.Metrics.Job, run.Platform); err != nil {
		logger.FromContext(ctx).Warn("failed to push metrics", zap.Error(err))
	}
}

// ErrNoRepository is returned by history queries when no store is configured
var ErrNoRepository = errors.New("run history is not configured")

// History lists recent runs
func (s *Service) History(ctx context.Context, filter history.Filter) ([]*history.Run, error) {
	if s.runs == nil {
		return nil, ErrNoRepository
	}
	return s.runs.FindRecent(ctx, filter)
}

// FindRun returns one run
func (s *Service) FindRun(ctx context.Context, id uuid.UUID) (*history.Run, error) {
	if s.runs == nil {
		return nil, ErrNoRepository
	}
	return s.runs.FindByID(ctx, id)
}
