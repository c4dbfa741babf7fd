package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Cetc2211/AcTR-app/internal/extract"
	"github.com/Cetc2211/AcTR-app/internal/metrics"
	"github.com/Cetc2211/AcTR-app/internal/models"
)

// ContentExtractor returns the text and kind of an uploaded object.
type ContentExtractor interface {
	Extract(ctx context.Context, ref models.ObjectRef) (extract.Result, error)
}

// DocumentRepository persists a document and its optional embedding atomically.
type DocumentRepository interface {
	SaveIngestion(ctx context.Context, doc models.Document, emb *models.Embedding) (models.Document, error)
}

// SchemaGuard fails fast when the schema could not be ensured.
type SchemaGuard interface {
	EnsureReady(ctx context.Context) error
}

// Locator builds the fully qualified storage path of an object.
type Locator interface {
	Locator(bucket, object string) string
}

// IngestorDeps are the collaborators of an Ingestor. All are required except Metrics.
type IngestorDeps struct {
	Extractor  ContentExtractor
	Embeddings *EmbeddingGenerator
	Summarizer *Summarizer
	Repository DocumentRepository
	Schema     SchemaGuard
	Locator    Locator
	Metrics    *metrics.Metrics
}

// Ingestor runs one ingestion request from a normalized object reference to a
// committed document row. It holds no per-request state and is safe for concurrent use.
type Ingestor struct {
	IngestorDeps
}

func NewIngestor(deps IngestorDeps) (*Ingestor, error) {
	switch {
	case deps.Extractor == nil:
		return nil, fmt.Errorf("NewIngestor: extractor is required")
	case deps.Embeddings == nil || deps.Summarizer == nil:
		return nil, fmt.Errorf("NewIngestor: embedding generator and summarizer are required")
	case deps.Repository == nil || deps.Schema == nil:
		return nil, fmt.Errorf("NewIngestor: repository and schema guard are required")
	case deps.Locator == nil:
		return nil, fmt.Errorf("NewIngestor: locator is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Ingestor{IngestorDeps: deps}, nil
}

// Ingest extracts, embeds, summarizes and persists one object.
//
// Extraction, embedding and summary failures degrade the result (status
// failed_partial) but still persist the document. Store and object fetch
// failures abort the request with nothing committed.
func (i *Ingestor) Ingest(ctx context.Context, ref models.ObjectRef) (*models.IngestResult, error) {
	start := time.Now()
	logCtx := slog.With("requestId", uuid.NewString(), "gcsBucket", ref.Bucket, "gcsObject", ref.Name)
	logCtx.Info("Processing new object.")

	if err := i.Schema.EnsureReady(ctx); err != nil {
		logCtx.Error("Store is not ready. Rejecting request.", "error", err)
		return nil, i.fail(start, "schema", models.KindUnknown, err)
	}

	extracted, err := i.Extractor.Extract(ctx, ref)
	if err != nil {
		logCtx.Error("Failed to fetch object", "error", err)
		return nil, i.fail(start, "fetch", extracted.Kind, err)
	}
	if extracted.Err != nil {
		i.Metrics.StepFailures.WithLabelValues("extract").Inc()
	}
	i.Metrics.ExtractedSize.Observe(float64(len(extracted.Text)))
	logCtx = logCtx.With("documentType", extracted.Kind)
	logCtx.Info("Content extracted.", "chars", len(extracted.Text))

	var (
		embedding EmbeddingResult
		summary   SummaryResult
	)
	// Both goroutines report through their result values, so Wait never fails.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedding = i.Embeddings.Generate(gctx, extracted.Text)
		return nil
	})
	g.Go(func() error {
		summary = i.Summarizer.Summarize(gctx, extracted.Text)
		return nil
	})
	_ = g.Wait()

	if embedding.Err != nil {
		i.Metrics.StepFailures.WithLabelValues("embed").Inc()
		logCtx.Warn("Embedding failed. Continuing without embedding.", "error", embedding.Err)
	}
	if summary.Err != nil {
		i.Metrics.StepFailures.WithLabelValues("summarize").Inc()
		logCtx.Warn("Summary failed. Continuing without summary.", "error", summary.Err)
	}

	status := models.StatusProcessed
	if extracted.Err != nil || embedding.Err != nil || summary.Err != nil {
		status = models.StatusFailedPartial
	}

	doc := models.Document{
		Filename:     path.Base(ref.Name),
		StoragePath:  i.Locator.Locator(ref.Bucket, ref.Name),
		DocumentType: extracted.Kind,
		Summary:      summary.Text,
		Status:       status,
	}
	var emb *models.Embedding
	if len(embedding.Vector) > 0 {
		emb = &models.Embedding{Vector: embedding.Vector, ModelName: embedding.Model}
	}

	saved, err := i.Repository.SaveIngestion(ctx, doc, emb)
	if err != nil {
		logCtx.Error("Failed to persist document. Unit of work rolled back.", "error", err)
		return nil, i.fail(start, "persist", extracted.Kind, err)
	}

	outcome := metrics.OutcomePersisted
	if status == models.StatusFailedPartial {
		outcome = metrics.OutcomePartial
	}
	i.Metrics.Ingestions.WithLabelValues(outcome, string(extracted.Kind)).Inc()
	i.Metrics.Duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	logCtx.Info("Document persisted.",
		"documentId", saved.ID,
		"status", status,
		"embeddingStored", emb != nil,
		"summaryGenerated", summary.Text != "",
		"durationMs", time.Since(start).Milliseconds(),
	)
	return &models.IngestResult{
		DocumentID:       saved.ID,
		Object:           ref,
		Kind:             extracted.Kind,
		Status:           status,
		EmbeddingStored:  emb != nil,
		SummaryGenerated: summary.Text != "",
	}, nil
}

// RecordRejected counts an envelope that could not be normalized.
func (i *Ingestor) RecordRejected() {
	i.Metrics.Ingestions.WithLabelValues(metrics.OutcomeRejected, "").Inc()
}

func (i *Ingestor) fail(start time.Time, step string, kind models.DocumentKind, err error) error {
	i.Metrics.StepFailures.WithLabelValues(step).Inc()
	i.Metrics.Ingestions.WithLabelValues(metrics.OutcomeFailed, string(kind)).Inc()
	i.Metrics.Duration.WithLabelValues(metrics.OutcomeFailed).Observe(time.Since(start).Seconds())
	return err
}
