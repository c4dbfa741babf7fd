// Package event turns the envelopes delivered to the ingestion endpoint into
// a canonical object reference.
package event

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Cetc2211/AcTR-app/internal/models"
)

// ErrInvalidEvent is returned when no envelope shape yields both a bucket and an object name.
var ErrInvalidEvent = errors.New("invalid event data")

// strategy attempts one envelope shape. It must not mutate the envelope.
type strategy struct {
	name    string
	attempt func(envelope map[string]any) (models.ObjectRef, bool)
}

// strategies are tried in order; the first match wins.
var strategies = []strategy{
	{name: "direct", attempt: direct},
	{name: "pubsub", attempt: pubsubWrapped},
	{name: "fallback", attempt: fallback},
}

// Normalize returns the canonical reference for a decoded envelope.
func Normalize(envelope map[string]any) (models.ObjectRef, error) {
	ref, _, err := normalize(envelope)
	return ref, err
}

// NormalizeJSON decodes a raw request body and normalizes it.
func NormalizeJSON(body []byte) (models.ObjectRef, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.ObjectRef{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return Normalize(envelope)
}

// FromCloudEvent normalizes the data payload of a CloudEvent, as delivered by
// Eventarc for storage object finalization.
func FromCloudEvent(e cloudevents.Event) (models.ObjectRef, error) {
	return NormalizeJSON(e.Data())
}

// Shape reports which strategy matched, for logging.
func Shape(envelope map[string]any) string {
	_, name, _ := normalize(envelope)
	return name
}

func normalize(envelope map[string]any) (models.ObjectRef, string, error) {
	if envelope == nil {
		return models.ObjectRef{}, "", ErrInvalidEvent
	}
	for _, s := range strategies {
		if ref, ok := s.attempt(envelope); ok {
			return ref, s.name, nil
		}
	}
	return models.ObjectRef{}, "", ErrInvalidEvent
}

// direct matches a storage notification delivered as the body itself.
func direct(envelope map[string]any) (models.ObjectRef, bool) {
	bucket, ok1 := envelope["bucket"].(string)
	name, ok2 := envelope["name"].(string)
	bucket, name = strings.TrimSpace(bucket), strings.TrimSpace(name)
	if !ok1 || !ok2 || bucket == "" || name == "" {
		return models.ObjectRef{}, false
	}
	return models.ObjectRef{Bucket: bucket, Name: name}, true
}

// pubsubWrapped matches a Pub/Sub push envelope whose message.data is base64 JSON.
func pubsubWrapped(envelope map[string]any) (models.ObjectRef, bool) {
	message, ok := envelope["message"].(map[string]any)
	if !ok {
		return models.ObjectRef{}, false
	}
	data, ok := message["data"].(string)
	if !ok || data == "" {
		return models.ObjectRef{}, false
	}
	raw, ok := decodeBase64(data)
	if !ok {
		return models.ObjectRef{}, false
	}
	var inner map[string]any
	if err := json.Unmarshal(raw, &inner); err != nil {
		return models.ObjectRef{}, false
	}
	return direct(inner)
}

// fallback is a lenient top-level lookup that accepts scalars of any type.
func fallback(envelope map[string]any) (models.ObjectRef, bool) {
	bucket := scalar(envelope["bucket"])
	name := scalar(envelope["name"])
	if bucket == "" || name == "" {
		return models.ObjectRef{}, false
	}
	return models.ObjectRef{Bucket: bucket, Name: name}, true
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil, map[string]any, []any:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func decodeBase64(s string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, true
		}
	}
	return nil, false
}
