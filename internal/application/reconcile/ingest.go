package reconcile

import (
	"context"

	"github.com/erp/orderrecon/internal/domain/reconcile"
	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/erp/orderrecon/internal/infrastructure/config"
	csvimport "github.com/erp/orderrecon/internal/infrastructure/import"
	"go.uber.org/zap"
)

// ingest reads and normalizes every source of a platform in configuration
// order, tagging records with their source rank and a global sequence number.
// Files are read one at a time; cancellation is checked between files.
func (s *Service) ingest(ctx context.Context, rc *reconcile.RunContext, pc config.PlatformConfig) ([]reconcile.SourceDataset, error) {
	diag := rc.Diagnostics
	log := rc.Log()
	normalizer := rc.Normalizer()

	datasets := make([]reconcile.SourceDataset, 0, len(pc.Sources))
	seq := 0
	for _, src := range pc.Sources {
		files, err := csvimport.Glob(src.Globs)
		if err != nil {
			return nil, schema.NewConfigError("platforms."+pc.Name+".sources", "invalid glob for "+src.ReportType, err)
		}
		if len(files) == 0 {
			log.Warn("no files matched", zap.String("report_type", src.ReportType), zap.Strings("globs", src.Globs))
		}

		reader := csvimport.NewReader(
			csvimport.WithEncodings(pc.Encodings...),
			csvimport.WithCSVDelimiter(pc.DelimiterFor(src)),
			csvimport.WithStrictQuotes(pc.StrictQuotes),
		)
		rank := rc.RankOf(src.ReportType)

		var records []*reconcile.Record
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			table, err := reader.ReadTable(path)
			if err != nil {
				diag.SkipFile(path, err)
				log.Warn("skipped unreadable file", zap.String("path", path), zap.Error(err))
				continue
			}
			diag.FilesRead++

			recs, report := normalizer.Normalize(rawTable(table), src.ReportType)
			s.collect(log, diag, table, report)
			for _, r := range recs {
				seq++
				r.Rank = rank
				r.Seq = seq
			}
			records = append(records, recs...)

			log.Debug("read file",
				zap.String("path", path),
				zap.String("report_type", src.ReportType),
				zap.String("encoding", table.Encoding),
				zap.Int("rows", report.RowsIn),
				zap.Int("records", len(recs)))
		}

		datasets = append(datasets, reconcile.SourceDataset{
			ReportType: src.ReportType,
			Rank:       rank,
			Records:    records,
		})
	}
	return datasets, nil
}

// collect folds one table's normalization report into the run diagnostics
func (s *Service) collect(log *zap.Logger, diag *reconcile.Diagnostics, table *csvimport.Table, report reconcile.NormalizeReport) {
	diag.RowsRead += report.RowsIn
	diag.BlankIdentifierDropped += report.BlankIdentifierDropped
	for _, column := range report.DroppedColumns {
		diag.DropColumn(table.Name, column)
	}
	if len(report.DroppedColumns) > 0 {
		log.Warn("dropped unmapped columns", zap.String("file", table.Name), zap.Strings("columns", report.DroppedColumns))
	}
	for _, m := range report.Matches {
		if m.Stage == reconcile.StageFuzzy {
			diag.FuzzyMatchedColumns++
			log.Info("fuzzy matched column",
				zap.String("file", table.Name),
				zap.String("column", m.Column),
				zap.String("field", m.Field),
				zap.Float64("score", m.Score))
		}
	}
	for _, w := range report.Warnings {
		diag.Warn(w)
	}
	if report.BlankIdentifierDropped > 0 {
		log.Info("dropped rows without identifier", zap.String("file", table.Name), zap.Int("rows", report.BlankIdentifierDropped))
	}
}

func rawTable(t *csvimport.Table) *reconcile.RawTable {
	rows := make([]reconcile.RawRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = reconcile.RawRow{Line: r.LineNumber, Cells: r.Fields}
	}
	return &reconcile.RawTable{Name: t.Name, Headers: t.Headers, Rows: rows}
}
