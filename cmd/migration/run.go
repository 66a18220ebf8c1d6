// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/exporter"
	"github.com/netSkope/dump-migration-tool/internal/mapping"
	"github.com/netSkope/dump-migration-tool/internal/metrics"
	"github.com/netSkope/dump-migration-tool/internal/migration"
	"github.com/netSkope/dump-migration-tool/internal/s3"
	"github.com/netSkope/dump-migration-tool/internal/source"
	"github.com/netSkope/dump-migration-tool/internal/sqlgen"
	"github.com/netSkope/dump-migration-tool/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Replace the destination tables with the rows found in the dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, e.cleanup()) }()

			if err := e.cfg.ValidateRun(); err != nil {
				return err
			}
			return runMigration(cmd.Context(), e, cmd.OutOrStdout())
		},
	}
}

// target is where mapped records go and how the run is described.
type target struct {
	dest        migration.Destination
	script      *sqlgen.ScriptWriter
	db          *store.SQLClient
	description string
}

func runMigration(ctx context.Context, e *env, out io.Writer) (err error) {
	cfg, logger := e.cfg, e.logger

	schemas, err := cfg.SelectedSchemas()
	if err != nil {
		return err
	}

	logger.Info("Starting migration tool",
		zap.String("dump_file", cfg.DumpFile),
		zap.Strings("tables", cfg.Tables),
		zap.String("db_type", cfg.DBType),
		zap.Bool("dry_run", cfg.DryRun))

	var down source.Downloader
	if e.s3 != nil {
		down = e.s3
	}
	dump, err := source.Load(ctx, cfg.DumpFile, down, logger)
	if err != nil {
		return err
	}

	t, err := openTarget(ctx, e, schemas)
	if err != nil {
		return err
	}
	if t.db != nil {
		defer func() { err = multierr.Append(err, t.db.Close()) }()
	}

	recorder := metrics.NewRecorder()
	opts := migration.Options{
		ProgressEvery: cfg.ProgressEvery,
		InsertTimeout: cfg.InsertTimeout,
		RunTimeout:    cfg.RunTimeout,
		Verbose:       cfg.Verbose,
		DryRun:        cfg.DryRun,
		Observer:      recorder,
	}
	if !cfg.Quiet {
		opts.Progress = out
	}

	var rejects *exporter.RejectExporter
	if cfg.RejectsFile != "" {
		var up exporter.FileUploader
		if e.s3 != nil {
			up = e.s3
		}
		if rejects, err = exporter.NewRejectExporter(cfg.RejectsFile, up, logger); err != nil {
			return err
		}
		opts.Rejects = rejects
	}

	results, runErr := migration.RunAll(ctx, dump, schemas, t.dest, opts, logger)

	// Reports are written even when a table failed.
	if rejects != nil {
		runErr = multierr.Append(runErr, rejects.Close(ctx))
	}
	if runErr == nil && t.script != nil {
		runErr = writeScript(ctx, e, t.script, schemas)
	}
	if runErr == nil {
		recorder.MarkSuccess(time.Now())
	}
	if cfg.MetricsFile != "" {
		runErr = multierr.Append(runErr, recorder.WriteTextfile(cfg.MetricsFile))
	}

	printSummary(out, cfg.DumpFile, t.description, results, rejects)

	if runErr != nil {
		logger.Error("Migration failed", zap.Error(runErr))
		return runErr
	}
	logger.Info("Migration completed successfully")
	return nil
}

func openTarget(ctx context.Context, e *env, schemas []*mapping.Schema) (*target, error) {
	cfg := e.cfg

	switch {
	case cfg.DryRun:
		return &target{description: "dry run (no writes)"}, nil

	case cfg.ScriptFile != "":
		dialect, err := sqlgen.DialectFor(cfg.DBType)
		if err != nil {
			return nil, err
		}
		w := sqlgen.NewScriptWriter(dialect)
		return &target{dest: w, script: w, description: fmt.Sprintf("%s script %s", dialect.Name(), cfg.ScriptFile)}, nil
	}

	db, err := connect(ctx, e)
	if err != nil {
		return nil, err
	}

	if cfg.CreateTables {
		for _, s := range schemas {
			if err := db.EnsureTable(ctx, s); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
	}

	desc := fmt.Sprintf("%s %s", cfg.DBType, cfg.DBDatabase())
	if cfg.DBType != store.DBTypeSQLite {
		desc = fmt.Sprintf("%s %s/%s", cfg.DBType, cfg.DBAddress(), cfg.DBName)
	}
	return &target{dest: db, db: db, description: desc}, nil
}

func writeScript(ctx context.Context, e *env, w *sqlgen.ScriptWriter, schemas []*mapping.Schema) error {
	var stmts []string
	if e.cfg.CreateTables {
		for _, s := range schemas {
			stmts = append(stmts, w.Dialect().CreateTableSQL(s)+";")
		}
	}
	stmts = append(stmts, w.Statements()...)

	if s3.IsURI(e.cfg.ScriptFile) {
		return sqlgen.UploadSQL(ctx, stmts, e.cfg.ScriptFile, e.s3, e.logger)
	}
	if err := sqlgen.WriteSQLFile(stmts, e.cfg.ScriptFile); err != nil {
		return err
	}
	e.logger.Info("Wrote SQL script",
		zap.String("path", e.cfg.ScriptFile),
		zap.Int("statements", len(stmts)))
	return nil
}

func printSummary(out io.Writer, dumpFile, dest string, results []migration.TableResult, rejects *exporter.RejectExporter) {
	fmt.Fprintf(out, "\n=== Migration Summary ===\n")
	fmt.Fprintf(out, "Dump: %s\n", dumpFile)
	fmt.Fprintf(out, "Destination: %s\n", dest)
	for _, r := range results {
		label := r.Schema.DisplayName()
		fmt.Fprintf(out, "%s imported: %d\n", label, r.Counters.Imported)
		fmt.Fprintf(out, "%s skipped: %d\n", label, r.Counters.Skipped)
		if r.Counters.StatementsSkipped > 0 {
			fmt.Fprintf(out, "%s statements skipped: %d\n", label, r.Counters.StatementsSkipped)
		}
		if r.Err != nil {
			fmt.Fprintf(out, "%s failed: %v\n", label, r.Err)
		}
	}
	if rejects != nil {
		fmt.Fprintf(out, "Rejected rows: %d (%s)\n", rejects.Count(), rejects.Target())
	}
	fmt.Fprintf(out, "=======================\n")
}
