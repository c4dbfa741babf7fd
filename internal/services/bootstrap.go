package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Cetc2211/AcTR-app/internal/config"
	"github.com/Cetc2211/AcTR-app/internal/database"
	"github.com/Cetc2211/AcTR-app/internal/extract"
	"github.com/Cetc2211/AcTR-app/internal/gcp"
	"github.com/Cetc2211/AcTR-app/internal/metrics"
	"github.com/Cetc2211/AcTR-app/internal/repository/postgres"
	"github.com/Cetc2211/AcTR-app/internal/storage"
)

// Runtime owns every long-lived client of the process. It is built once per
// instance and closed on shutdown.
type Runtime struct {
	Config  *config.AppConfig
	DB      *sql.DB
	Schema  *database.SchemaManager
	Metrics *metrics.Metrics

	Ingestor *Ingestor
	HTTP     *HTTPHandler
	Events   *EventHandler

	closers []io.Closer
}

// NewRuntime connects to the store, object storage and Vertex AI. A schema
// failure is logged and leaves the runtime degraded rather than failing start
// up; the ingestion path retries it per request.
func NewRuntime(ctx context.Context, cfg *config.AppConfig) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	rt := &Runtime{Config: cfg, Metrics: metrics.New()}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}
	rt.DB = db
	rt.closers = append(rt.closers, db)
	if err := database.Ping(ctx, db, cfg.Timeouts.Store); err != nil {
		slog.Warn("Database is not reachable yet.", "error", err)
	}

	accessor, err := newAccessor(ctx, cfg.ObjectStore)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if c, ok := accessor.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Region, cfg.Vertex.GenerativeModel)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, vertexClient)

	embeddingClient, err := gcp.NewEmbeddingClient(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Region, cfg.Vertex.EmbeddingModel, cfg.Vertex.EmbeddingDimension)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, embeddingClient)

	rt.Schema = database.NewSchemaManager(db, cfg.Vertex.EmbeddingDimension, cfg.Timeouts.Store)
	if err := rt.Schema.Ensure(ctx); err != nil {
		slog.Error("Schema could not be ensured at startup. Running degraded.", "error", err)
	}

	rt.Ingestor, err = NewIngestor(IngestorDeps{
		Extractor:  extract.NewExtractor(accessor, cfg.Timeouts.Fetch),
		Embeddings: NewEmbeddingGenerator(embeddingClient, cfg.Limits.EmbeddingMaxChars, cfg.Vertex.EmbeddingDimension, cfg.Timeouts.Embed),
		Summarizer: NewSummarizer(vertexClient, cfg.Limits.SummaryMaxChars, cfg.Timeouts.Summary),
		Repository: postgres.NewDocumentPostgres(db, cfg.Timeouts.Store),
		Schema:     rt.Schema,
		Locator:    accessor,
		Metrics:    rt.Metrics,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.HTTP = NewHTTPHandler(rt.Ingestor, cfg.Limits.MaxBodyBytes)
	rt.Events = NewEventHandler(rt.Ingestor)

	slog.Info("Runtime initialized.",
		"objectStore", cfg.ObjectStore.Backend,
		"generativeModel", cfg.Vertex.GenerativeModel,
		"embeddingModel", cfg.Vertex.EmbeddingModel,
		"schemaReady", rt.Schema.Ready(),
	)
	return rt, nil
}

func newAccessor(ctx context.Context, cfg config.ObjectStoreConfig) (storage.Accessor, error) {
	if cfg.Backend == "s3" {
		return storage.NewMinIO(cfg)
	}
	return gcp.NewGCSAccessor(ctx)
}

// Close releases clients in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
