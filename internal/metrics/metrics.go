// Copyright (c) 2024 Netskope, Inc. All rights reserved.

// Package metrics records per-table run outcomes and writes them in the
// node_exporter textfile format for batch scraping.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/netSkope/dump-migration-tool/internal/migration"
)

// Row outcome label values.
const (
	OutcomeImported            = "imported"
	OutcomeInsufficientColumns = "insufficient_columns"
	OutcomeInsertError         = "insert_error"
)

// Recorder is a migration.Observer backed by a private registry.
type Recorder struct {
	registry *prometheus.Registry

	rows              *prometheus.CounterVec
	statements        *prometheus.CounterVec
	statementsSkipped *prometheus.CounterVec
	duration          *prometheus.GaugeVec
	lastSuccess       prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dump_migration_rows_total",
			Help: "Rows seen in the dump, by destination table and outcome",
		}, []string{"table", "outcome"}),
		statements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dump_migration_statements_total",
			Help: "INSERT statements found for each source table",
		}, []string{"table"}),
		statementsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dump_migration_statements_skipped_total",
			Help: "INSERT statements skipped because their row list could not be split",
		}, []string{"table"}),
		duration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dump_migration_last_run_duration_seconds",
			Help: "Wall time of the last run for each table",
		}, []string{"table"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dump_migration_last_success_timestamp_seconds",
			Help: "Unix time the last run finished without a fatal error",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun implements migration.Observer.
func (r *Recorder) ObserveRun(table string, c migration.RunCounters, elapsed time.Duration) {
	r.rows.WithLabelValues(table, OutcomeImported).Add(float64(c.Imported))
	r.rows.WithLabelValues(table, OutcomeInsufficientColumns).Add(float64(c.InsufficientColumns))
	r.rows.WithLabelValues(table, OutcomeInsertError).Add(float64(c.InsertErrors))
	r.statements.WithLabelValues(table).Add(float64(c.Statements))
	r.statementsSkipped.WithLabelValues(table).Add(float64(c.StatementsSkipped))
	r.duration.WithLabelValues(table).Set(elapsed.Seconds())
}

// MarkSuccess stamps the time of a completed migration.
func (r *Recorder) MarkSuccess(at time.Time) {
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
