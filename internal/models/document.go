package models

import "time"

// DocumentKind is the document_type column value, derived from the object's extension.
type DocumentKind string

const (
	KindPDF     DocumentKind = "pdf"
	KindText    DocumentKind = "text"
	KindUnknown DocumentKind = "unknown"
)

// DocumentStatus is the status column value recorded for an ingested document.
type DocumentStatus string

const (
	StatusProcessed DocumentStatus = "processed"
	// StatusFailedPartial marks a row written despite a degraded extraction,
	// embedding or summary step.
	StatusFailedPartial DocumentStatus = "failed_partial"
)

// ObjectRef is the canonical {bucket, objectName} pair an envelope normalizes to.
type ObjectRef struct {
	Bucket string
	Name   string
}

// Document is one row of the documents table. ID is assigned by the store.
type Document struct {
	ID           int64
	Filename     string
	StoragePath  string
	DocumentType DocumentKind
	Summary      string
	Status       DocumentStatus
	UploadDate   time.Time
}

// Embedding is one row of document_embeddings, keyed by its parent document.
type Embedding struct {
	DocumentID int64
	Vector     []float32
	ModelName  string
}
