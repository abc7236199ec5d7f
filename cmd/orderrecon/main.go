// Package main provides the orderrecon command line entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	reconapp "github.com/erp/orderrecon/internal/application/reconcile"
	"github.com/erp/orderrecon/internal/domain/history"
	"github.com/erp/orderrecon/internal/infrastructure/config"
	"github.com/erp/orderrecon/internal/infrastructure/logger"
	"github.com/erp/orderrecon/internal/infrastructure/metrics"
	"github.com/erp/orderrecon/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs once configuration is loaded
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *persistence.Database
	service *reconapp.Service
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = logger.Sync(a.log)
}

// setup loads configuration and wires the logger, run history and metrics
func setup(ctx context.Context, configPath string, withHistory bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	opts := []reconapp.ServiceOption{reconapp.WithRecorder(metrics.NewRecorder(metrics.DefaultNamespace))}
	if withHistory {
		db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		a.db = db
		repo := persistence.NewGormRunRepository(db.DB)
		if err := repo.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to migrate run history: %w", err)
		}
		opts = append(opts, reconapp.WithRunRepository(repo))
	}
	a.service = reconapp.NewService(cfg, log, opts...)

	log.Debug("configuration loaded",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Strings("platforms", cfg.PlatformNames()),
		zap.String("database", cfg.Database.Driver))
	return a, nil
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "orderrecon",
		Short:        "Reconcile marketplace order reports into one canonical dataset",
		Version:      fmt.Sprintf("%s (built %s, commit %s)", version, buildTime, gitCommit),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml (default: search ., ./config, /etc/orderrecon)")

	root.AddCommand(
		newRunCommand(&configPath),
		newCheckMappingCommand(&configPath),
		newHistoryCommand(&configPath),
		newPlatformsCommand(&configPath),
	)
	return root
}

func newRunCommand(configPath *string) *cobra.Command {
	var (
		platforms []string
		noHistory bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one or more platforms",
		Long: `Reads every configured source report of a platform, merges them by
composite key, deduplicates, enriches with the product and shop masters and
writes the output dataset. Without --platform every configured platform runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), *configPath, !noHistory)
			if err != nil {
				return err
			}
			defer a.close()

			if len(platforms) == 0 {
				platforms = a.cfg.PlatformNames()
			}
			if len(platforms) == 0 {
				return errors.New("no platforms configured")
			}

			var failed []string
			for _, p := range platforms {
				res, err := a.service.Run(cmd.Context(), p)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
					failed = append(failed, p)
					if errors.Is(err, context.Canceled) {
						break
					}
					continue
				}
				printResult(cmd.OutOrStdout(), res)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d platform(s) failed: %s", len(failed), len(platforms), strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "platform to reconcile (repeatable)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	return cmd
}

func printResult(w io.Writer, res *reconapp.Result) {
	diag := res.Diagnostics
	fmt.Fprintf(w, "%s: %d rows -> %s (%s)\n", res.Run.Platform, diag.OutputRows, res.OutputPath, res.Run.Duration().Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	summary := diag.Summary()
	for _, name := range []string{
		"files_read", "files_skipped", "rows_read", "blank_identifier_dropped",
		"dropped_columns", "incomplete_keys", "source_dedup_removed",
		"fallback_merged", "dedup_removed", "unmatched_keys", "coercion_warnings",
	} {
		fmt.Fprintf(tw, "  %s\t%d\n", name, summary[name])
	}
	for index, n := range diag.Enriched {
		fmt.Fprintf(tw, "  enriched_%s\t%d\n", index, n)
	}
	_ = tw.Flush()

	if log := diag.Warnings(); log.Total() > 0 {
		fmt.Fprintf(w, "warnings:\n%s", log.String())
	}
}

func newCheckMappingCommand(configPath *string) *cobra.Command {
	var platform, file string
	cmd := &cobra.Command{
		Use:   "check-mapping",
		Short: "Compare a report header with a platform mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			check, err := a.service.CheckMapping(platform, file)
			if err != nil {
				return err
			}
			printCheck(cmd.OutOrStdout(), check)
			if !check.OK() {
				return errors.New("header and mapping differ")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "platform whose mapping is checked")
	cmd.Flags().StringVarP(&file, "file", "f", "", "report file to read the header from")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printCheck(w io.Writer, check *reconapp.MappingCheck) {
	fmt.Fprintf(w, "%s against %s\n", check.File, check.Mapping)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  COLUMN\tFIELD\tSTAGE\tSCORE")
	for _, m := range check.Matched {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%.2f\n", m.Column, m.Field, m.Stage, m.Score)
	}
	_ = tw.Flush()

	if len(check.Extra) > 0 {
		fmt.Fprintf(w, "extra columns: %s\n", strings.Join(check.Extra, ", "))
	}
	if len(check.Missing) > 0 {
		fmt.Fprintf(w, "missing fields: %s\n", strings.Join(check.Missing, ", "))
	}
	for display, fields := range check.DuplicateDisplayNames {
		fmt.Fprintf(w, "duplicate display name %q: %s\n", display, strings.Join(fields, ", "))
	}
	if check.OK() {
		fmt.Fprintln(w, "ok")
	}
}

func newHistoryCommand(configPath *string) *cobra.Command {
	var (
		platform string
		status   string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := history.Filter{Platform: strings.ToLower(strings.TrimSpace(platform)), Limit: limit}
			if status != "" {
				s := history.Status(strings.ToLower(status))
				if !s.IsValid() {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &s
			}

			a, err := setup(cmd.Context(), *configPath, true)
			if err != nil {
				return err
			}
			defer a.close()

			runs, err := a.service.History(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "only runs of this platform")
	cmd.Flags().StringVar(&status, "status", "", "only runs in this status (pending, processing, completed, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", persistence.DefaultRunLimit, "maximum number of runs")
	return cmd
}

func printRuns(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLATFORM\tSTATUS\tSTARTED\tDURATION\tFILES\tROWS\tOUTPUT\tWARNINGS")
	for _, r := range runs {
		started := "-"
		if r.StartedAt != nil {
			started = r.StartedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\n",
			r.ID, r.Platform, r.Status, started, r.Duration().Round(time.Millisecond),
			r.FilesRead, r.FilesRead+r.FilesSkipped, r.RowsRead, r.OutputRows, r.Warnings)
		if r.ErrorMessage != "" {
			fmt.Fprintf(tw, "\t\t\terror: %s\n", r.ErrorMessage)
		}
	}
	_ = tw.Flush()
}

func newPlatformsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List configured platforms and their sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			w := cmd.OutOrStdout()
			for _, name := range cfg.PlatformNames() {
				pc := cfg.Platforms[name]
				fmt.Fprintf(w, "%s -> %s\n", name, pc.Output)
				for _, src := range pc.Sources {
					fmt.Fprintf(w, "  %-12s priority %d  %s\n", src.ReportType, src.Priority, strings.Join(src.Globs, " "))
				}
			}
			return nil
		},
	}
}
