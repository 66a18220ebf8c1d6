// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package migration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
)

// TableResult is the outcome of one schema within RunAll.
type TableResult struct {
	Schema   *mapping.Schema
	Counters RunCounters
	Duration time.Duration
	Err      error
}

// RunAll migrates each schema in order from the same dump into dest. Tables
// run one after another; the first fatal error stops the remaining tables and
// is returned together with the results collected so far.
func RunAll(ctx context.Context, dump string, schemas []*mapping.Schema, dest Destination, opts Options, logger *zap.Logger) ([]TableResult, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no tables selected for migration")
	}

	results := make([]TableResult, 0, len(schemas))
	for i, schema := range schemas {
		logger.Info("Processing table",
			zap.String("table", schema.Name),
			zap.String("source_table", schema.SourceTable),
			zap.String("dest_table", schema.DestTable),
			zap.Int("index", i+1),
			zap.Int("total_tables", len(schemas)))

		start := time.Now()
		counters, err := Run(ctx, dump, schema, dest, opts, logger)
		res := TableResult{Schema: schema, Counters: counters, Duration: time.Since(start), Err: err}
		results = append(results, res)

		if err != nil {
			logger.Error("Failed to migrate table",
				zap.String("table", schema.Name),
				countersField(counters),
				zap.Error(err))
			return results, fmt.Errorf("table %s: %w", schema.Name, err)
		}

		logger.Info("Table processed",
			zap.String("table", schema.Name),
			zap.Duration("elapsed", res.Duration),
			countersField(counters))
	}

	var total RunCounters
	for _, r := range results {
		total.Add(r.Counters)
	}
	logger.Info("All tables processed",
		zap.Int("total_tables", len(results)),
		countersField(total))

	return results, nil
}
