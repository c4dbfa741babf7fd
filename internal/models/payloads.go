package models

// These structs define the JSON payloads returned by the ingestion endpoint.

// IngestResponse is the success envelope.
type IngestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is returned for every rejected or failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestResult summarizes what one ingestion request persisted.
type IngestResult struct {
	DocumentID       int64
	Object           ObjectRef
	Kind             DocumentKind
	Status           DocumentStatus
	EmbeddingStored  bool
	SummaryGenerated bool
}
