// Package storage defines the object store accessor used by the ingestion
// pipeline and provides an S3-compatible implementation.
package storage

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrObjectNotFound is returned by accessors when the referenced object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Accessor reads blobs from an object store. Implementations must be safe for
// concurrent use by multiple goroutines.
type Accessor interface {
	// Exists reports whether bucket/object is present.
	Exists(ctx context.Context, bucket, object string) (bool, error)
	// FetchBytes returns the raw object content.
	FetchBytes(ctx context.Context, bucket, object string) ([]byte, error)
	// FetchText returns the object content decoded as UTF-8.
	FetchText(ctx context.Context, bucket, object string) (string, error)
	// Locator returns the fully qualified storage path, e.g. gs://bucket/object.
	Locator(bucket, object string) string
}

// DecodeText converts raw bytes to a string, replacing invalid UTF-8 sequences
// and dropping a leading byte order mark.
func DecodeText(b []byte) string {
	s := string(b)
	s = strings.TrimPrefix(s, "\uFEFF")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s
}
