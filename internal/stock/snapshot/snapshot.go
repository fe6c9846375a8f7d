// Package snapshot copies export workbooks into an S3 compatible bucket.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// ContentType is the media type of stored workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Client is the subset of the minio client the store uses.
type Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewClient connects to the configured endpoint. The minio client dials
// lazily, so errors here only cover malformed settings.
func NewClient(cfg config.SnapshotConfig) (Client, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// Store writes snapshots under a key prefix.
type Store struct {
	client Client
	bucket string
	prefix string
	region string
	logger *logger.Logger
}

// New creates a new snapshot store
func New(client Client, cfg config.SnapshotConfig, log *logger.Logger) *Store {
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: cfg.Region,
		logger: log.WithComponent("snapshot"),
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info().Str("bucket", s.bucket).Msg("snapshot bucket created")
	return nil
}

// Save encodes wb and stores it as name under the prefix. It returns the
// object key.
func (s *Store) Save(ctx context.Context, wb *sheet.Workbook, name string) (string, error) {
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(s.prefix, name)
	size := int64(buf.Len())
	if _, err := s.client.PutObject(ctx, s.bucket, key, &buf, size, minio.PutObjectOptions{
		ContentType: ContentType,
	}); err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}

	s.logger.Info().Str("bucket", s.bucket).Str("key", key).Int64("bytes", size).Msg("export snapshot stored")
	return key, nil
}
