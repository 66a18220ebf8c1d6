// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// Max retries for S3 operations
	maxS3Retries = 5
	// Initial retry delay
	initialRetryDelay = 1 * time.Second
	// Transfer manager part size and concurrency
	partSize    = 10 * 1024 * 1024
	concurrency = 3
)

const uriScheme = "s3://"

// URI is a parsed s3://bucket/key location.
type URI struct {
	Bucket string
	Key    string
}

// IsURI reports whether s uses the s3:// scheme.
func IsURI(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ParseURI splits s3://bucket/key. Both parts are required.
func ParseURI(s string) (URI, error) {
	if !IsURI(s) {
		return URI{}, fmt.Errorf("not an S3 URI: %q", s)
	}
	bucket, key, _ := strings.Cut(strings.TrimPrefix(s, uriScheme), "/")
	if bucket == "" || key == "" {
		return URI{}, fmt.Errorf("S3 URI %q must name a bucket and a key", s)
	}
	return URI{Bucket: bucket, Key: key}, nil
}

func (u URI) String() string {
	return uriScheme + u.Bucket + "/" + u.Key
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDownloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// Client moves dumps and run artifacts in and out of S3 through the
// transfer manager, which switches to multipart transfers for large objects.
type Client struct {
	uploader   objectUploader
	downloader objectDownloader
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewClient creates an S3 client. AWS_ENDPOINT_URL selects a custom endpoint
// with path-style addressing (LocalStack, MinIO).
func NewClient(cfg aws.Config, logger *zap.Logger) *Client {
	endpoint := os.Getenv("AWS_ENDPOINT_URL")
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	if endpoint != "" {
		logger.Info("Using custom S3 endpoint", zap.String("endpoint", endpoint))
	}

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = concurrency
	})
	downloader := manager.NewDownloader(s3Client, func(d *manager.Downloader) {
		d.PartSize = partSize
		d.Concurrency = concurrency
	})

	return newClient(uploader, downloader, logger)
}

func newClient(up objectUploader, down objectDownloader, logger *zap.Logger) *Client {
	return &Client{
		uploader:   up,
		downloader: down,
		logger:     logger,
		retryDelay: initialRetryDelay,
	}
}

// Download reads a whole object into memory.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	buf := manager.NewWriteAtBuffer(nil)
	n, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", uri, err)
	}

	c.logger.Info("Downloaded object from S3",
		zap.String("uri", uri),
		zap.Int64("size", n))
	return buf.Bytes(), nil
}

// UploadFile uploads a local file to uri.
func (c *Client) UploadFile(ctx context.Context, path, uri string) error {
	loc, err := ParseURI(uri)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	c.logger.Info("Uploading file to S3",
		zap.String("file", path),
		zap.String("uri", uri),
		zap.Int64("size", fileInfo.Size()))

	if _, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Body:   file,
	}); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	c.logger.Info("File uploaded successfully",
		zap.String("uri", uri),
		zap.Int64("size", fileInfo.Size()))
	return nil
}

// UploadFileWithRetry uploads a file with retry logic.
func (c *Client) UploadFileWithRetry(ctx context.Context, path, uri string) error {
	if _, err := ParseURI(uri); err != nil {
		return err
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 1; attempt <= maxS3Retries; attempt++ {
		err := c.UploadFile(ctx, path, uri)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < maxS3Retries {
			c.logger.Warn("Upload failed, retrying",
				zap.String("file", path),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxS3Retries),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return fmt.Errorf("upload of %s cancelled: %w", path, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("upload failed after %d attempts: %w", maxS3Retries, lastErr)
}
