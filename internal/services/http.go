package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Cetc2211/AcTR-app/internal/database"
	"github.com/Cetc2211/AcTR-app/internal/event"
	"github.com/Cetc2211/AcTR-app/internal/extract"
	"github.com/Cetc2211/AcTR-app/internal/models"
)

const invalidEventMessage = "Invalid event data"

// Pipeline is what the handlers need from the ingestor.
type Pipeline interface {
	Ingest(ctx context.Context, ref models.ObjectRef) (*models.IngestResult, error)
	RecordRejected()
}

// HTTPHandler serves the JSON ingestion endpoint.
type HTTPHandler struct {
	pipeline     Pipeline
	maxBodyBytes int64
}

func NewHTTPHandler(pipeline Pipeline, maxBodyBytes int64) *HTTPHandler {
	return &HTTPHandler{pipeline: pipeline, maxBodyBytes: maxBodyBytes}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed"})
		return
	}

	body := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		slog.Warn("Could not read request body.", "error", err)
		h.pipeline.RecordRejected()
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: invalidEventMessage})
		return
	}

	ref, err := event.NormalizeJSON(raw)
	if err != nil {
		slog.Warn("Rejected event envelope.", "error", err, "bodyBytes", len(raw))
		h.pipeline.RecordRejected()
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: invalidEventMessage})
		return
	}

	res, err := h.pipeline.Ingest(r.Context(), ref)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: publicMessage(err)})
		return
	}

	w.Header().Set("X-Document-Id", strconv.FormatInt(res.DocumentID, 10))
	w.Header().Set("X-Document-Status", string(res.Status))

	writeJSON(w, http.StatusOK, models.IngestResponse{
		Status:  "success",
		Message: "Processed " + ref.Name,
	})
}

// publicMessage keeps driver and SDK details out of the response body.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrStore):
		return "Failed to persist document"
	case errors.Is(err, extract.ErrObjectFetch):
		return "Failed to fetch object"
	default:
		return "Internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
