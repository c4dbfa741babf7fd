// Package postgres holds the PostgreSQL write path for ingested documents.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/Cetc2211/AcTR-app/internal/database"
	"github.com/Cetc2211/AcTR-app/internal/models"
)

// DocumentPostgres writes a document and its optional embedding as one unit of work.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db      *sql.DB
	timeout time.Duration
}

// NewDocumentPostgres creates the repository over the shared pool. timeout bounds
// the whole transaction; zero means only the caller's context applies.
func NewDocumentPostgres(db *sql.DB, timeout time.Duration) *DocumentPostgres {
	return &DocumentPostgres{db: db, timeout: timeout}
}

const insertDocument = `
	INSERT INTO documents (filename, storage_path, document_type, summary, status, upload_date)
	VALUES ($1, $2, $3, $4, $5, now())
	RETURNING id, upload_date
`

const insertEmbedding = `
	INSERT INTO document_embeddings (document_id, embedding, model_name)
	VALUES ($1, $2, $3)
`

// SaveIngestion inserts doc and, when emb carries a non-empty vector, its embedding
// keyed by the new document id (emb.DocumentID is set), then commits. Any failure
// rolls the whole unit back and wraps database.ErrStore.
func (r *DocumentPostgres) SaveIngestion(ctx context.Context, doc models.Document, emb *models.Embedding) (models.Document, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: begin transaction: %v", database.ErrStore, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	out := doc
	row := tx.QueryRowContext(ctx, insertDocument,
		doc.Filename,
		doc.StoragePath,
		string(doc.DocumentType),
		doc.Summary,
		string(doc.Status),
	)
	if err := row.Scan(&out.ID, &out.UploadDate); err != nil {
		return models.Document{}, fmt.Errorf("%w: insert document: %v", database.ErrStore, err)
	}

	if emb != nil && len(emb.Vector) > 0 {
		emb.DocumentID = out.ID
		if _, err := tx.ExecContext(ctx, insertEmbedding,
			emb.DocumentID,
			pgvector.NewVector(emb.Vector),
			emb.ModelName,
		); err != nil {
			return models.Document{}, fmt.Errorf("%w: insert embedding for document %d: %v", database.ErrStore, out.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Document{}, fmt.Errorf("%w: commit: %v", database.ErrStore, err)
	}
	committed = true
	return out, nil
}
