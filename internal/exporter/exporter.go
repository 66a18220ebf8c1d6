// Copyright (c) 2024 Netskope, Inc. All rights reserved.

// Package exporter writes rejected rows to a CSV report so they can be
// reviewed and replayed by hand.
package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/migration"
	"github.com/netSkope/dump-migration-tool/internal/s3"
)

// RejectExporter is a migration.RejectSink backed by a CSV file. When the
// target is an s3:// URI the report is staged in a temp file and uploaded on
// Close.
type RejectExporter struct {
	mu       sync.Mutex
	target   string
	path     string
	file     *os.File
	writer   *csv.Writer
	uploader FileUploader
	logger   *zap.Logger
	rows     int
	closed   bool
}

// NewRejectExporter opens target for writing and writes the header.
// uploader may be nil unless target is an s3:// URI.
func NewRejectExporter(target string, uploader FileUploader, logger *zap.Logger) (*RejectExporter, error) {
	var (
		f   *os.File
		err error
	)
	if s3.IsURI(target) {
		if _, err := s3.ParseURI(target); err != nil {
			return nil, err
		}
		if uploader == nil {
			return nil, fmt.Errorf("cannot write rejects to %s: S3 access is not configured", target)
		}
		f, err = os.CreateTemp("", "rejects-*.csv")
	} else {
		if dir := filepath.Dir(target); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create reject report directory: %w", err)
			}
		}
		f, err = os.Create(target)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reject report: %w", err)
	}

	e := &RejectExporter{
		target:   target,
		path:     f.Name(),
		file:     f,
		writer:   csv.NewWriter(f),
		uploader: uploader,
		logger:   logger,
	}
	if err := e.writer.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return e, nil
}

// Reject appends one report line.
func (e *RejectExporter) Reject(r migration.Reject) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("reject report %s is closed", e.target)
	}

	msg := ""
	if r.Err != nil {
		msg = r.Err.Error()
	}
	record := []string{
		r.Table,
		strconv.Itoa(r.Statement),
		strconv.Itoa(r.Offset),
		strconv.Itoa(r.Line),
		strconv.Itoa(r.Row),
		string(r.Reason),
		msg,
		r.Raw,
	}
	if err := e.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	e.rows++
	return nil
}

// Count returns the number of rejects written so far.
func (e *RejectExporter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rows
}

// Target is where the report ends up.
func (e *RejectExporter) Target() string {
	return e.target
}

// Close flushes the report and, for S3 targets, uploads and removes the
// staged file. Calling Close twice is a no-op.
func (e *RejectExporter) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.writer.Flush()
	err := e.writer.Error()
	if err != nil {
		err = fmt.Errorf("failed to flush CSV: %w", err)
	}
	err = multierr.Append(err, e.file.Close())
	if err != nil || !s3.IsURI(e.target) {
		if err == nil {
			e.logger.Info("Wrote reject report", zap.String("path", e.path), zap.Int("rejects", e.rows))
		}
		return err
	}

	defer os.Remove(e.path)
	if err := e.uploader.UploadFileWithRetry(ctx, e.path, e.target); err != nil {
		return fmt.Errorf("failed to upload reject report: %w", err)
	}
	e.logger.Info("Uploaded reject report", zap.String("uri", e.target), zap.Int("rejects", e.rows))
	return nil
}
