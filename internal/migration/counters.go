// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package migration

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunCounters tallies one table's run. Every row the splitter yields ends up
// in exactly one of Imported or Skipped, so Imported+Skipped == Rows.
type RunCounters struct {
	Statements        int
	StatementsSkipped int
	Rows              int
	Imported          int
	Skipped           int

	InsufficientColumns int
	InsertErrors        int
}

// Balanced reports whether every observed row was accounted for.
func (c RunCounters) Balanced() bool {
	return c.Imported+c.Skipped == c.Rows
}

// Add accumulates o into c.
func (c *RunCounters) Add(o RunCounters) {
	c.Statements += o.Statements
	c.StatementsSkipped += o.StatementsSkipped
	c.Rows += o.Rows
	c.Imported += o.Imported
	c.Skipped += o.Skipped
	c.InsufficientColumns += o.InsufficientColumns
	c.InsertErrors += o.InsertErrors
}

// MarshalLogObject lets counters be logged with zap.Object.
func (c RunCounters) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("statements", c.Statements)
	enc.AddInt("statements_skipped", c.StatementsSkipped)
	enc.AddInt("rows", c.Rows)
	enc.AddInt("imported", c.Imported)
	enc.AddInt("skipped", c.Skipped)
	enc.AddInt("insufficient_columns", c.InsufficientColumns)
	enc.AddInt("insert_errors", c.InsertErrors)
	return nil
}

func countersField(c RunCounters) zap.Field {
	return zap.Object("counters", c)
}
