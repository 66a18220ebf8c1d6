// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
	"github.com/netSkope/dump-migration-tool/internal/store"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Print row counts and vocabulary distributions of the destination tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, e.cleanup()) }()

			if err := e.cfg.ValidateDestination(); err != nil {
				return err
			}
			schemas, err := e.cfg.SelectedSchemas()
			if err != nil {
				return err
			}

			db, err := connect(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, db.Close()) }()

			return verify(cmd.Context(), db, schemas, cmd.OutOrStdout(), e.logger)
		},
	}
}

// verify prints, per table, the row count and the value distribution of each
// vocabulary column.
func verify(ctx context.Context, db *store.SQLClient, schemas []*mapping.Schema, out io.Writer, logger *zap.Logger) error {
	for _, s := range schemas {
		n, err := db.Count(ctx, s.DestTable)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "=== %s ===\n", s.DestTable)
		fmt.Fprintf(out, "%s rows: %d\n", s.DisplayName(), n)

		for _, f := range s.Fields {
			if f.Rule != mapping.RuleEnum {
				continue
			}
			buckets, err := db.Distribution(ctx, s.DestTable, f.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s:\n", f.Name)
			for _, b := range buckets {
				value := b.Value
				if b.Null {
					value = "(unassigned)"
				}
				fmt.Fprintf(out, "  %-28s %d\n", value, b.Count)
			}
		}
		logger.Info("Verified table", zap.String("table", s.DestTable), zap.Int64("rows", n))
	}
	return nil
}
