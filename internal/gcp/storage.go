package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	objstore "github.com/Cetc2211/AcTR-app/internal/storage"
)

// GCSAccessor reads uploaded documents from Cloud Storage.
type GCSAccessor struct {
	client *storage.Client
}

var _ objstore.Accessor = (*GCSAccessor)(nil)

// NewGCSAccessor creates a Cloud Storage client using application default credentials.
func NewGCSAccessor(ctx context.Context) (*GCSAccessor, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSAccessor{client: client}, nil
}

// Exists reports whether the object is present, using an attributes lookup.
func (a *GCSAccessor) Exists(ctx context.Context, bucket, object string) (bool, error) {
	_, err := a.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read attributes for gs://%s/%s: %w", bucket, object, err)
	}
	return true, nil
}

// FetchBytes streams the object into memory.
func (a *GCSAccessor) FetchBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	gcsReader, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, objstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()

	b, err := io.ReadAll(gcsReader)
	if err != nil {
		slog.Error("Failed to read GCS object", "gcsBucket", bucket, "gcsObject", object, "error", err)
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", bucket, object, err)
	}
	return b, nil
}

// FetchText returns the object decoded as UTF-8.
func (a *GCSAccessor) FetchText(ctx context.Context, bucket, object string) (string, error) {
	b, err := a.FetchBytes(ctx, bucket, object)
	if err != nil {
		return "", err
	}
	return objstore.DecodeText(b), nil
}

// Locator returns the gs:// URI of the object.
func (a *GCSAccessor) Locator(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

func (a *GCSAccessor) Close() error {
	return a.client.Close()
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
