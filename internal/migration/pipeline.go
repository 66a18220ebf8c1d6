// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package migration

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

const (
	// DefaultProgressEvery is the number of successful inserts between
	// progress reports.
	DefaultProgressEvery = 25

	// maxLoggedRaw caps the raw row text carried in logs and reject reports.
	maxLoggedRaw = 200
)

// Reason classifies a rejected row.
type Reason string

const (
	ReasonInsufficientColumns Reason = "insufficient-columns"
	ReasonInsertError         Reason = "insert-error"
	ReasonCorruptStatement    Reason = "corrupt-statement"
)

// Destination is the store a run loads into.
type Destination interface {
	Clear(ctx context.Context, table string) error
	Insert(ctx context.Context, table string, rec mapping.Record) error
}

// Reject describes a row, or for ReasonCorruptStatement a whole statement,
// that was not loaded.
type Reject struct {
	Table     string
	Statement int
	Offset    int
	Line      int
	// Row is the 0-based row index within the statement, -1 for a statement.
	Row    int
	Reason Reason
	Err    error
	Raw    string
}

// RejectSink receives rejected rows as they happen.
type RejectSink interface {
	Reject(r Reject) error
}

// Observer is notified when a table run finishes.
type Observer interface {
	ObserveRun(table string, c RunCounters, elapsed time.Duration)
}

// Options tune a run. The zero value loads with default progress cadence and
// no timeouts.
type Options struct {
	ProgressEvery int
	InsertTimeout time.Duration
	RunTimeout    time.Duration
	Verbose       bool
	DryRun        bool
	// Progress receives human-readable progress lines; nil disables them.
	Progress io.Writer
	Rejects  RejectSink
	Observer Observer
	Mapper   []mapping.MapperOption
}

// Run loads every row of schema's source table found in dump into dest.
// The destination table is cleared first; a failed clear is fatal. When the
// dump holds no statements for the table nothing is cleared. Row-level
// problems are counted and reported but never stop the run. A cancelled or
// expired context stops the run and is returned with the counters so far.
func Run(ctx context.Context, dump string, schema *mapping.Schema, dest Destination, opts Options, logger *zap.Logger) (RunCounters, error) {
	start := time.Now()
	if opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
		defer cancel()
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}

	l := &loader{
		schema: schema,
		dest:   dest,
		opts:   opts,
		logger: logger.With(zap.String("table", schema.Name)),
		mapper: mapping.NewMapper(schema, append([]mapping.MapperOption{mapping.WithRunStart(start.UTC())}, opts.Mapper...)...),
	}

	err := l.run(ctx, dump)
	if opts.Observer != nil {
		opts.Observer.ObserveRun(schema.Name, l.counters, time.Since(start))
	}
	return l.counters, err
}

type loader struct {
	schema   *mapping.Schema
	dest     Destination
	opts     Options
	logger   *zap.Logger
	mapper   *mapping.Mapper
	counters RunCounters
}

func (l *loader) run(ctx context.Context, dump string) error {
	table := l.schema.DestTable

	ext := sqldump.NewExtractor(dump, l.schema.SourceTable)
	stmt, ok := ext.Next()
	if !ok {
		l.logger.Warn("No INSERT statements found, destination table left untouched",
			zap.String("source_table", l.schema.SourceTable),
			zap.String("dest_table", table))
		return nil
	}

	if l.opts.DryRun {
		l.logger.Info("Dry run: destination table left untouched", zap.String("dest_table", table))
	} else {
		if err := l.dest.Clear(ctx, table); err != nil {
			return fmt.Errorf("failed to clear destination table %s: %w", table, err)
		}
		l.logger.Info("Cleared destination table", zap.String("dest_table", table))
	}

	for idx := 0; ok; idx++ {
		l.counters.Statements++
		if err := l.loadStatement(ctx, idx, stmt); err != nil {
			return err
		}
		stmt, ok = ext.Next()
	}

	l.logger.Info("Table migration completed",
		countersField(l.counters),
		zap.Bool("balanced", l.counters.Balanced()))
	return nil
}

func (l *loader) loadStatement(ctx context.Context, idx int, stmt sqldump.Statement) error {
	rows, err := sqldump.SplitRows(stmt.Payload)
	if err != nil {
		l.counters.StatementsSkipped++
		l.logger.Warn("Skipping corrupted statement",
			zap.Int("statement", idx),
			zap.Int("offset", stmt.Offset),
			zap.Int("line", stmt.Line),
			zap.Error(err))
		l.reject(Reject{
			Statement: idx, Offset: stmt.Offset, Line: stmt.Line, Row: -1,
			Reason: ReasonCorruptStatement, Err: err, Raw: stmt.Payload,
		})
		return nil
	}

	l.logger.Debug("Processing statement",
		zap.Int("statement", idx),
		zap.Int("line", stmt.Line),
		zap.Int("rows", len(rows)))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("migration of %s interrupted at statement %d row %d: %w", l.schema.Name, idx, i, err)
		}
		l.counters.Rows++

		rec, err := l.mapper.Map(sqldump.DecodeRow(row))
		if err != nil {
			l.counters.Skipped++
			l.counters.InsufficientColumns++
			l.rowRejected(Reject{
				Statement: idx, Offset: stmt.Offset, Line: stmt.Line, Row: i,
				Reason: ReasonInsufficientColumns, Err: err, Raw: row,
			})
			continue
		}

		if !l.opts.DryRun {
			if err := l.insert(ctx, rec); err != nil {
				l.counters.Skipped++
				l.counters.InsertErrors++
				l.rowRejected(Reject{
					Statement: idx, Offset: stmt.Offset, Line: stmt.Line, Row: i,
					Reason: ReasonInsertError, Err: err, Raw: row,
				})
				if ctxErr := ctx.Err(); ctxErr != nil {
					return fmt.Errorf("migration of %s interrupted at statement %d row %d: %w", l.schema.Name, idx, i, ctxErr)
				}
				continue
			}
		}

		l.counters.Imported++
		if l.counters.Imported%l.opts.ProgressEvery == 0 {
			l.progress()
		}
	}
	return nil
}

func (l *loader) insert(ctx context.Context, rec mapping.Record) error {
	if l.opts.InsertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.InsertTimeout)
		defer cancel()
	}
	return l.dest.Insert(ctx, l.schema.DestTable, rec)
}

func (l *loader) progress() {
	l.logger.Info("Migration progress",
		zap.Int("imported", l.counters.Imported),
		zap.Int("skipped", l.counters.Skipped))
	if l.opts.Progress != nil {
		fmt.Fprintf(l.opts.Progress, "Imported %d %s...\n",
			l.counters.Imported, strings.ToLower(l.schema.DisplayName()))
	}
}

func (l *loader) rowRejected(r Reject) {
	log := l.logger.Debug
	if l.opts.Verbose {
		log = l.logger.Warn
	}
	log("Skipping row",
		zap.Int("statement", r.Statement),
		zap.Int("row", r.Row),
		zap.String("reason", string(r.Reason)),
		zap.String("raw", Truncate(r.Raw, maxLoggedRaw)),
		zap.Error(r.Err))
	l.reject(r)
}

func (l *loader) reject(r Reject) {
	if l.opts.Rejects == nil {
		return
	}
	r.Table = l.schema.Name
	r.Raw = Truncate(r.Raw, maxLoggedRaw)
	if err := l.opts.Rejects.Reject(r); err != nil {
		l.logger.Warn("Failed to record rejected row", zap.Error(err))
	}
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
