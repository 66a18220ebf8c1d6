// Copyright (c) 2024 Netskope, Inc. All rights reserved.

// Package source loads the legacy dump text from a local file or S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/s3"
)

// ErrDumpNotFound is returned when a local dump file does not exist.
var ErrDumpNotFound = errors.New("dump file not found")

// Downloader fetches an object by s3:// URI.
type Downloader interface {
	Download(ctx context.Context, uri string) ([]byte, error)
}

// Load returns the dump text at location. s3:// locations need a downloader.
// A UTF-8 byte order mark is dropped.
func Load(ctx context.Context, location string, down Downloader, logger *zap.Logger) (string, error) {
	var data []byte
	if s3.IsURI(location) {
		if down == nil {
			return "", fmt.Errorf("cannot read %s: S3 access is not configured", location)
		}
		b, err := down.Download(ctx, location)
		if err != nil {
			return "", err
		}
		data = b
	} else {
		b, err := os.ReadFile(location)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDumpNotFound, location)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read dump %s: %w", location, err)
		}
		data = b
	}

	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if !utf8.Valid(data) {
		logger.Warn("Dump is not valid UTF-8; invalid bytes are kept as-is", zap.String("location", location))
	}

	logger.Info("Loaded dump",
		zap.String("location", location),
		zap.Int("bytes", len(data)))
	return string(data), nil
}
