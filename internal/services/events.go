package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Cetc2211/AcTR-app/internal/event"
	"github.com/Cetc2211/AcTR-app/internal/storage"
)

// EventHandler ingests storage finalize events delivered as CloudEvents.
//
// Returning an error marks the invocation failed and the platform redelivers
// it, so only transient failures are returned. Malformed envelopes and objects
// that no longer exist are acknowledged.
type EventHandler struct {
	pipeline Pipeline
}

func NewEventHandler(pipeline Pipeline) *EventHandler {
	return &EventHandler{pipeline: pipeline}
}

func (h *EventHandler) Handle(ctx context.Context, e cloudevents.Event) error {
	logCtx := slog.With("eventId", e.ID(), "eventType", e.Type(), "eventSource", e.Source())

	ref, err := event.FromCloudEvent(e)
	if err != nil {
		logCtx.Warn("Dropping event with invalid data.", "error", err, "data", string(e.Data()))
		h.pipeline.RecordRejected()
		return nil
	}

	res, err := h.pipeline.Ingest(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logCtx.Warn("Object no longer exists. Acknowledging event.", "gcsBucket", ref.Bucket, "gcsObject", ref.Name)
			return nil
		}
		return fmt.Errorf("ingest %s/%s: %w", ref.Bucket, ref.Name, err)
	}
	logCtx.Info("Event ingested.", "documentId", res.DocumentID, "status", res.Status)
	return nil
}
