package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Cetc2211/AcTR-app/internal/config"
)

// minioAccessor implements Accessor against an S3-compatible backend (MinIO, AWS S3, etc.).
// It is safe for concurrent use by multiple goroutines.
type minioAccessor struct {
	client *minio.Client
}

// NewMinIO creates an S3-compatible accessor. Buckets come from each event, so
// unlike an upload client it does not pin or create a bucket.
func NewMinIO(cfg config.ObjectStoreConfig) (Accessor, error) {
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.MinIOAccessKey == "" || cfg.MinIOSecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}

	cli, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &minioAccessor{client: cli}, nil
}

func (m *minioAccessor) Exists(ctx context.Context, bucket, object string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat s3://%s/%s: %w", bucket, object, err)
	}
	return true, nil
}

func (m *minioAccessor) FetchBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, object, err)
	}
	defer obj.Close()

	// GetObject is lazy; errors such as NoSuchKey surface on the first read.
	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, object, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, object, err)
	}
	return b, nil
}

func (m *minioAccessor) FetchText(ctx context.Context, bucket, object string) (string, error) {
	b, err := m.FetchBytes(ctx, bucket, object)
	if err != nil {
		return "", err
	}
	return DecodeText(b), nil
}

func (m *minioAccessor) Locator(bucket, object string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, object)
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
