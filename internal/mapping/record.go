// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"slices"
)

// Record is one destination row: an ordered set of named column values.
// Values are nil (NULL), string, float64, bool or time.Time.
type Record struct {
	columns []string
	values  []any
}

// NewRecord pairs columns with values; extra values are dropped.
func NewRecord(columns []string, values []any) Record {
	n := min(len(columns), len(values))
	return Record{columns: columns[:n], values: slices.Clone(values[:n])}
}

func (r Record) Columns() []string {
	return slices.Clone(r.columns)
}

func (r Record) Values() []any {
	return slices.Clone(r.values)
}

func (r Record) Len() int {
	return len(r.values)
}

func (r Record) Get(column string) (any, bool) {
	i := slices.Index(r.columns, column)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// ID returns the generated primary key, or "" for a zero Record.
func (r Record) ID() string {
	v, _ := r.Get(IDColumn)
	id, _ := v.(string)
	return id
}
