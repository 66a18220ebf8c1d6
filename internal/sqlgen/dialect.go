// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

const timestampLayout = "2006-01-02 15:04:05"

// Dialect renders identifiers, placeholders and literals for one database.
type Dialect struct {
	name      string
	quote     byte
	numbered  bool
	backslash bool
}

var (
	MySQL    = Dialect{name: "mysql", quote: '`', backslash: true}
	Postgres = Dialect{name: "postgres", quote: '"', numbered: true}
	SQLite   = Dialect{name: "sqlite", quote: '"'}
)

// DialectFor resolves a dialect from a dialect or database type name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb", "mp-mariadb", "aws-aurora":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported SQL dialect: %s", name)
	}
}

func (d Dialect) Name() string {
	return d.name
}

// QuoteIdent quotes a possibly schema-qualified identifier.
func (d Dialect) QuoteIdent(name string) string {
	q := string(d.quote)
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) InsertSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.QuoteIdent(c))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Placeholder(i + 1))
	}
	b.WriteString(")")
	return b.String()
}

func (d Dialect) ClearSQL(table string) string {
	return "DELETE FROM " + d.QuoteIdent(table)
}

func (d Dialect) CountSQL(table string) string {
	return "SELECT COUNT(*) FROM " + d.QuoteIdent(table)
}

// DistributionSQL counts rows per value of column, largest group first.
func (d Dialect) DistributionSQL(table, column string) string {
	col := d.QuoteIdent(column)
	return fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s ORDER BY COUNT(*) DESC, %s",
		col, d.QuoteIdent(table), col, col)
}

// Literal renders a record value inline. MySQL strings use backslash
// escapes; the other dialects double single quotes only.
func (d Dialect) Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		if d.backslash {
			return sqldump.Quote(x)
		}
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NULL"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		switch {
		case d.name == Postgres.name && x:
			return "TRUE"
		case d.name == Postgres.name:
			return "FALSE"
		case x:
			return "1"
		default:
			return "0"
		}
	case time.Time:
		return "'" + x.UTC().Format(timestampLayout) + "'"
	default:
		return d.Literal(fmt.Sprint(x))
	}
}
