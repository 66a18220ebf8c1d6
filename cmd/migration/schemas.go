// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netSkope/dump-migration-tool/internal/config"
	"github.com/netSkope/dump-migration-tool/internal/mapping"
)

func newSchemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the table mappings and vocabularies available to run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}
			printSchemas(cmd.OutOrStdout(), reg)
			return nil
		},
	}
}

func printSchemas(out io.Writer, reg *mapping.Registry) {
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		fmt.Fprintf(out, "%s: %s -> %s (min %d columns)\n", s.Name, s.SourceTable, s.DestTable, s.MinColumns)
		for _, f := range s.Fields {
			line := fmt.Sprintf("  %-20s <- [%d] %s", f.Name, f.Source, f.Rule)
			if f.Table != nil {
				line += fmt.Sprintf(" %s (default %s)", f.Table.Name(), displayMember(f.Table.Default()))
			}
			if f.MaxLen > 0 {
				line += fmt.Sprintf(" max %d", f.MaxLen)
			}
			if f.Required {
				line += " required"
			}
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintln(out, "vocabularies:")
	for _, name := range mapping.VocabularyNames() {
		t, _ := mapping.Vocabulary(name)
		members := t.Members()
		for i, m := range members {
			members[i] = displayMember(m)
		}
		fmt.Fprintf(out, "  %s: %s\n", name, strings.Join(members, ", "))
	}
}

func displayMember(m string) string {
	if m == mapping.Unassigned {
		return "(unassigned)"
	}
	return m
}
