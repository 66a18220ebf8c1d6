// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package sqlgen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
)

// FileUploader uploads a local file to an object key.
type FileUploader interface {
	UploadFileWithRetry(ctx context.Context, path, key string) error
}

// ScriptWriter is a load destination that renders the clear and insert
// operations as a replayable SQL script instead of executing them.
type ScriptWriter struct {
	dialect Dialect

	mu         sync.Mutex
	statements []string
	inserts    map[string]int
}

func NewScriptWriter(d Dialect) *ScriptWriter {
	return &ScriptWriter{dialect: d, inserts: make(map[string]int)}
}

func (w *ScriptWriter) Dialect() Dialect {
	return w.dialect
}

// Clear appends a DELETE for table.
func (w *ScriptWriter) Clear(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statements = append(w.statements, w.dialect.ClearSQL(table)+";")
	w.inserts[table] = 0
	return nil
}

// Insert appends one INSERT with the record's values rendered inline.
func (w *ScriptWriter) Insert(ctx context.Context, table string, rec mapping.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Len() == 0 {
		return fmt.Errorf("empty record for %s", table)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statements = append(w.statements, RenderInsert(w.dialect, table, rec))
	w.inserts[table]++
	return nil
}

// Count reports the rows inserted into table since its last Clear.
func (w *ScriptWriter) Count(_ context.Context, table string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(w.inserts[table]), nil
}

// Statements returns the script so far, one terminated statement per entry.
func (w *ScriptWriter) Statements() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.statements...)
}

// RenderInsert renders rec as a terminated INSERT statement.
func RenderInsert(d Dialect, table string, rec mapping.Record) string {
	cols := rec.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	vals := rec.Values()
	lits := make([]string, len(vals))
	for i, v := range vals {
		lits[i] = d.Literal(v)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(lits, ", "))
}

// WriteSQLFile writes SQL statements to a file.
func WriteSQLFile(sqlStatements []string, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create SQL file directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create SQL file: %w", err)
	}
	defer file.Close()

	for _, sql := range sqlStatements {
		if _, err := file.WriteString(sql + "\n"); err != nil {
			return fmt.Errorf("failed to write SQL: %w", err)
		}
	}

	return file.Close()
}

// UploadSQL writes SQL statements to a temporary file and uploads it to key.
func UploadSQL(ctx context.Context, sqlStatements []string, key string, uploader FileUploader, logger *zap.Logger) error {
	var sqlContent bytes.Buffer
	for _, sql := range sqlStatements {
		sqlContent.WriteString(sql)
		sqlContent.WriteString("\n")
	}

	logger.Info("Uploading SQL file to S3",
		zap.String("s3_key", key),
		zap.Int("statements", len(sqlStatements)))

	tmpFile, err := os.CreateTemp("", "dump-migration-*.sql")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpFilePath := tmpFile.Name()
	defer os.Remove(tmpFilePath)

	if _, err := tmpFile.Write(sqlContent.Bytes()); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write SQL to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := uploader.UploadFileWithRetry(ctx, tmpFilePath, key); err != nil {
		return fmt.Errorf("failed to upload SQL file to S3: %w", err)
	}

	logger.Info("SQL file uploaded to S3", zap.String("s3_key", key))
	return nil
}
