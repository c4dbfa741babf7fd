package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmbeddingFailed marks a failed or timed out embedding call. Ingestion continues without a vector.
var ErrEmbeddingFailed = errors.New("embedding generation failed")

// Embedder is the remote embedding model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// EmbeddingResult is either a full vector or an error wrapping ErrEmbeddingFailed.
// A zero-length Vector with nil Err means nothing was embedded because the text was empty.
type EmbeddingResult struct {
	Vector []float32
	Model  string
	Err    error
}

// EmbeddingGenerator truncates text to a character budget and calls the embedder under a timeout.
type EmbeddingGenerator struct {
	embedder  Embedder
	maxChars  int
	dimension int
	timeout   time.Duration
}

func NewEmbeddingGenerator(embedder Embedder, maxChars, dimension int, timeout time.Duration) *EmbeddingGenerator {
	return &EmbeddingGenerator{
		embedder:  embedder,
		maxChars:  maxChars,
		dimension: dimension,
		timeout:   timeout,
	}
}

// Generate never calls the model for empty text. A vector of the wrong
// dimension is reported as a failure so a partial vector is never stored.
func (g *EmbeddingGenerator) Generate(ctx context.Context, text string) EmbeddingResult {
	if text == "" {
		return EmbeddingResult{}
	}

	callCtx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	vector, err := g.embedder.Embed(callCtx, TruncateChars(text, g.maxChars))
	if err != nil {
		return EmbeddingResult{Err: fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)}
	}
	if len(vector) == 0 {
		return EmbeddingResult{Err: fmt.Errorf("%w: model returned an empty vector", ErrEmbeddingFailed)}
	}
	if g.dimension > 0 && len(vector) != g.dimension {
		return EmbeddingResult{Err: fmt.Errorf("%w: got %d dimensions, want %d", ErrEmbeddingFailed, len(vector), g.dimension)}
	}
	return EmbeddingResult{Vector: vector, Model: g.embedder.ModelName()}
}

// TruncateChars cuts s to at most n characters (runes), never splitting a
// multi-byte sequence. n <= 0 disables truncation.
func TruncateChars(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
