package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type schemaStep struct {
	Name string
	SQL  string
}

func schemaSteps(dimension int) []schemaStep {
	return []schemaStep{
		{
			Name: "create_extension_vector",
			SQL:  `CREATE EXTENSION IF NOT EXISTS vector;`,
		},
		{
			Name: "create_table_students",
			SQL: `CREATE TABLE IF NOT EXISTS students (
  id         BIGSERIAL   PRIMARY KEY,
  full_name  TEXT        NOT NULL,
  email      TEXT        UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_table_courses",
			SQL: `CREATE TABLE IF NOT EXISTS courses (
  id         BIGSERIAL   PRIMARY KEY,
  name       TEXT        NOT NULL,
  code       TEXT        UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_table_documents",
			SQL: `CREATE TABLE IF NOT EXISTS documents (
  id            BIGSERIAL   PRIMARY KEY,
  student_id    BIGINT      REFERENCES students (id) ON DELETE SET NULL,
  course_id     BIGINT      REFERENCES courses (id) ON DELETE SET NULL,
  filename      TEXT        NOT NULL,
  storage_path  TEXT        NOT NULL,
  document_type TEXT        NOT NULL CHECK (document_type IN ('pdf', 'text', 'unknown')),
  summary       TEXT,
  status        TEXT        NOT NULL CHECK (status IN ('processed', 'failed_partial')),
  upload_date   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_table_document_embeddings",
			SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_embeddings (
  document_id BIGINT      PRIMARY KEY REFERENCES documents (id) ON DELETE CASCADE,
  embedding   vector(%d)  NOT NULL,
  model_name  TEXT        NOT NULL
);`, dimension),
		},
	}
}

// SchemaManager idempotently creates the extension and tables before any write.
type SchemaManager struct {
	db        *sql.DB
	dimension int
	timeout   time.Duration

	mu       sync.Mutex
	ready    atomic.Bool
	inflight singleflight.Group
}

// NewSchemaManager binds the manager to the shared pool. dimension is the
// embedding vector length; timeout bounds each Ensure call.
func NewSchemaManager(db *sql.DB, dimension int, timeout time.Duration) *SchemaManager {
	return &SchemaManager{db: db, dimension: dimension, timeout: timeout}
}

// Ready reports whether a previous Ensure succeeded.
func (m *SchemaManager) Ready() bool {
	return m.ready.Load()
}

// Ensure runs every step in order. Steps are safe to repeat.
func (m *SchemaManager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(ctx)
}

// EnsureReady is the request-path guard: it returns immediately once the schema
// is known to exist, otherwise joins the single attempt in flight or starts one.
// Concurrent callers share that attempt's result, so no caller waits longer than
// one attempt, and each caller stops waiting when its own ctx is done.
func (m *SchemaManager) EnsureReady(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}

	attemptCtx := ctx
	if m.timeout > 0 {
		attemptCtx = context.WithoutCancel(ctx)
	}
	ch := m.inflight.DoChan("ensure", func() (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ready.Load() {
			return nil, nil
		}
		return nil, m.ensureLocked(attemptCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for schema: %v", ErrStore, ctx.Err())
	}
}

func (m *SchemaManager) ensureLocked(ctx context.Context) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	logCtx := slog.With("component", "schema")
	start := time.Now()
	for _, step := range schemaSteps(m.dimension) {
		stepStart := time.Now()
		if _, err := m.db.ExecContext(ctx, step.SQL); err != nil {
			logCtx.Error("Schema step failed.", "step", step.Name, "error", err, "durationMs", time.Since(start).Milliseconds())
			return fmt.Errorf("%w: schema step %s failed: %v", ErrStore, step.Name, err)
		}
		logCtx.Debug("Schema step applied.", "step", step.Name, "stepDurationMs", time.Since(stepStart).Milliseconds())
	}

	m.ready.Store(true)
	logCtx.Info("Schema ensured.", "durationMs", time.Since(start).Milliseconds())
	return nil
}
