// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package exporter

import "context"

// Header is the first line of every reject report.
var Header = []string{"table", "statement", "offset", "line", "row", "reason", "error", "raw"}

// FileUploader ships a finished report to an s3:// URI.
type FileUploader interface {
	UploadFileWithRetry(ctx context.Context, localPath, uri string) error
}
