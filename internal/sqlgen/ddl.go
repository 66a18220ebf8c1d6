// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqlgen

import (
	"fmt"
	"strings"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
)

// CreateTableSQL renders a CREATE TABLE IF NOT EXISTS for the destination
// table of schema. Columns whose mapping never yields NULL are NOT NULL.
func (d Dialect) CreateTableSQL(schema *mapping.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.QuoteIdent(schema.DestTable))
	fmt.Fprintf(&b, "  %s %s PRIMARY KEY", d.QuoteIdent(mapping.IDColumn), d.varchar(36))
	for _, f := range schema.Fields {
		fmt.Fprintf(&b, ",\n  %s %s", d.QuoteIdent(f.Name), d.columnType(f))
		if !nullable(f) {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

func (d Dialect) columnType(f mapping.Field) string {
	switch f.Rule {
	case mapping.RulePhone:
		return d.varchar(mapping.MaxPhoneLen)
	case mapping.RuleEnum:
		return d.varchar(64)
	case mapping.RuleDate:
		if d.name == MySQL.name {
			return "DATETIME"
		}
		return "TIMESTAMP"
	case mapping.RuleDecimal:
		if d.name == SQLite.name {
			return "REAL"
		}
		return "DECIMAL(10,2)"
	case mapping.RuleFlag:
		return "BOOLEAN"
	default:
		if f.MaxLen > 0 {
			return d.varchar(f.MaxLen)
		}
		return "TEXT"
	}
}

func (d Dialect) varchar(n int) string {
	if d.name == SQLite.name {
		return "TEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", n)
}

func nullable(f mapping.Field) bool {
	switch f.Rule {
	case mapping.RuleOptionalText:
		return true
	case mapping.RuleEnum:
		return f.Table.Contains(mapping.Unassigned)
	case mapping.RuleDate:
		return !f.Required
	default:
		return false
	}
}
