// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

// IDColumn is the generated primary key every record starts with.
const IDColumn = "id"

// ErrInsufficientColumns is returned by Mapper.Map for rows shorter than the
// schema's minimum column count.
var ErrInsufficientColumns = errors.New("insufficient columns")

// Field maps one source column position to one destination column.
type Field struct {
	Name   string
	Source int
	Rule   Rule
	// Table is the vocabulary for RuleEnum.
	Table *Table
	// MaxLen truncates text results when positive.
	MaxLen int
	// Required makes an unparsable RuleDate fall back to the run start time.
	Required bool
}

// Schema describes how rows of one legacy table become destination records.
type Schema struct {
	Name        string
	Label       string
	SourceTable string
	DestTable   string
	MinColumns  int
	Fields      []Field
}

// Validate checks that every field reads a column guaranteed by MinColumns.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New("schema name is required")
	}
	if s.SourceTable == "" || s.DestTable == "" {
		return fmt.Errorf("schema %s: source and destination tables are required", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", s.Name)
	}
	seen := map[string]bool{IDColumn: true}
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field without a name", s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate column %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Source < 0 || f.Source >= s.MinColumns {
			return fmt.Errorf("schema %s: column %q reads position %d outside min_columns %d",
				s.Name, f.Name, f.Source, s.MinColumns)
		}
		if f.Rule == RuleEnum && f.Table == nil {
			return fmt.Errorf("schema %s: enum column %q has no vocabulary", s.Name, f.Name)
		}
		if _, ok := ruleNames[f.Rule]; !ok {
			return fmt.Errorf("schema %s: column %q has unknown rule %d", s.Name, f.Name, f.Rule)
		}
	}
	return nil
}

// Columns returns the destination column list, id first.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields)+1)
	cols = append(cols, IDColumn)
	for _, f := range s.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// DisplayName is used in summaries ("Leads imported: 3").
func (s *Schema) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// Mapper turns decoded rows into records for one schema.
type Mapper struct {
	schema  *Schema
	columns []string
	newID   func() string
	now     time.Time
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) MapperOption {
	return func(m *Mapper) {
		m.newID = fn
	}
}

// WithRunStart sets the time used for required dates that cannot be parsed.
func WithRunStart(t time.Time) MapperOption {
	return func(m *Mapper) {
		m.now = t
	}
}

func NewMapper(s *Schema, opts ...MapperOption) *Mapper {
	m := &Mapper{
		schema:  s,
		columns: s.Columns(),
		newID:   uuid.NewString,
		now:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mapper) Schema() *Schema {
	return m.schema
}

// Map builds a record from one decoded row. A row shorter than the schema's
// MinColumns yields ErrInsufficientColumns; otherwise mapping cannot fail.
func (m *Mapper) Map(row []sqldump.Value) (Record, error) {
	if len(row) < m.schema.MinColumns {
		return Record{}, fmt.Errorf("%w: got %d, need %d", ErrInsufficientColumns, len(row), m.schema.MinColumns)
	}

	values := make([]any, 0, len(m.columns))
	values = append(values, m.newID())
	for _, f := range m.schema.Fields {
		values = append(values, m.convert(f, row[f.Source]))
	}
	return Record{columns: m.columns, values: values}, nil
}

func (m *Mapper) convert(f Field, v sqldump.Value) any {
	switch f.Rule {
	case RuleOptionalText:
		return optionalTextValue(v, f.MaxLen)
	case RulePhone:
		return CleanPhone(v.Text())
	case RuleEnum:
		member := f.Table.Lookup(v)
		if member == Unassigned {
			return nil
		}
		return member
	case RuleDate:
		if t, ok := ParseDate(v); ok {
			return t
		}
		if f.Required {
			return m.now
		}
		return nil
	case RuleDecimal:
		return ParseDecimal(v)
	case RuleFlag:
		return ParseFlag(v)
	default:
		return textValue(v, f.MaxLen)
	}
}
