// Package archive keeps a copy of every committed import file in
// S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JonMunkholm/enrollment/internal/config"
	"github.com/JonMunkholm/enrollment/internal/core"
)

// KeyPrefix is the object key prefix for archived import files.
const KeyPrefix = "imports"

// objectPutter is the subset of *minio.Client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOArchiver implements core.Archiver on a MinIO or S3 bucket.
type MinIOArchiver struct {
	client objectPutter
	bucket string
}

var _ core.Archiver = (*MinIOArchiver)(nil)

// NewMinIOArchiver connects to the configured endpoint and creates the
// bucket when it does not exist yet.
func NewMinIOArchiver(ctx context.Context, cfg config.ArchiveConfig) (*MinIOArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		slog.Info("archive bucket created", "bucket", cfg.Bucket)
	}

	return &MinIOArchiver{client: client, bucket: cfg.Bucket}, nil
}

// Archive uploads data under imports/{importID}/{fileName} and returns the
// object key.
func (a *MinIOArchiver) Archive(ctx context.Context, importID uuid.UUID, fileName string, data []byte) (string, error) {
	key := ObjectKey(importID, fileName)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(fileName),
		UserMetadata: map[string]string{
			"import-id": importID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("put %s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

// ObjectKey builds the archive key for a file. Directory parts and
// characters outside a conservative set are removed from the name.
func ObjectKey(importID uuid.UUID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	return path.Join(KeyPrefix, importID.String(), name)
}

func contentType(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}
