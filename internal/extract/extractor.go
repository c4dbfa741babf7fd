// Package extract fetches an uploaded object and mines its text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Cetc2211/AcTR-app/internal/models"
	"github.com/Cetc2211/AcTR-app/internal/storage"
)

var (
	// ErrObjectFetch means the object could not be checked or read. It fails the request.
	ErrObjectFetch = errors.New("object fetch failed")
	// ErrExtraction means text mining of a known kind failed. It is recovered locally.
	ErrExtraction = errors.New("text extraction failed")
)

// Result is the outcome of extracting one object. Err is set, wrapping
// ErrExtraction, when the kind was recognized but its text could not be mined.
type Result struct {
	Text string
	Kind models.DocumentKind
	Err  error
}

// PDFParser turns raw PDF bytes into text.
type PDFParser func(data []byte) (string, error)

// Extractor returns the text and kind of an object.
type Extractor struct {
	accessor     storage.Accessor
	parsePDF     PDFParser
	fetchTimeout time.Duration
}

// NewExtractor wires an accessor with the default PDF parser.
func NewExtractor(accessor storage.Accessor, fetchTimeout time.Duration) *Extractor {
	return &Extractor{
		accessor:     accessor,
		parsePDF:     PDFText,
		fetchTimeout: fetchTimeout,
	}
}

// WithPDFParser replaces the PDF parser.
func (e *Extractor) WithPDFParser(p PDFParser) *Extractor {
	e.parsePDF = p
	return e
}

// KindOf maps an object name to its document kind by case-insensitive extension.
func KindOf(objectName string) models.DocumentKind {
	switch strings.ToLower(path.Ext(objectName)) {
	case ".pdf":
		return models.KindPDF
	case ".txt":
		return models.KindText
	default:
		return models.KindUnknown
	}
}

// Extract checks the object exists, then mines its text according to its kind.
// The returned error is non-nil only for fetch failures, which wrap ErrObjectFetch.
func (e *Extractor) Extract(ctx context.Context, ref models.ObjectRef) (Result, error) {
	logCtx := slog.With("gcsBucket", ref.Bucket, "gcsObject", ref.Name)
	kind := KindOf(ref.Name)

	fetchCtx := ctx
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	exists, err := e.accessor.Exists(fetchCtx, ref.Bucket, ref.Name)
	if err != nil {
		return Result{Kind: kind}, fmt.Errorf("%w: %w", ErrObjectFetch, err)
	}
	if !exists {
		return Result{Kind: kind}, fmt.Errorf("%w: %s/%s: %w", ErrObjectFetch, ref.Bucket, ref.Name, storage.ErrObjectNotFound)
	}

	switch kind {
	case models.KindText:
		text, err := e.accessor.FetchText(fetchCtx, ref.Bucket, ref.Name)
		if err != nil {
			return Result{Kind: kind}, fmt.Errorf("%w: %w", ErrObjectFetch, err)
		}
		return Result{Text: text, Kind: kind}, nil

	case models.KindPDF:
		data, err := e.accessor.FetchBytes(fetchCtx, ref.Bucket, ref.Name)
		if err != nil {
			return Result{Kind: kind}, fmt.Errorf("%w: %w", ErrObjectFetch, err)
		}
		text, err := e.parsePDF(data)
		if err != nil {
			logCtx.Warn("PDF text extraction failed. Continuing with empty text.", "error", err, "sizeBytes", len(data))
			return Result{Kind: kind, Err: fmt.Errorf("%w: %v", ErrExtraction, err)}, nil
		}
		return Result{Text: text, Kind: kind}, nil

	default:
		logCtx.Info("Unsupported document type. Recording existence only.", "extension", path.Ext(ref.Name))
		return Result{Kind: models.KindUnknown}, nil
	}
}
