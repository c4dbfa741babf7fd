package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSummaryFailed marks a failed, timed out or refused summary call. Ingestion continues without a summary.
var ErrSummaryFailed = errors.New("summary generation failed")

// SummaryModel is the remote generative model, already configured with the summarize instruction.
type SummaryModel interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummaryResult is either summary text or an error wrapping ErrSummaryFailed.
type SummaryResult struct {
	Text string
	Err  error
}

type Summarizer struct {
	model    SummaryModel
	maxChars int
	timeout  time.Duration
}

func NewSummarizer(model SummaryModel, maxChars int, timeout time.Duration) *Summarizer {
	return &Summarizer{model: model, maxChars: maxChars, timeout: timeout}
}

// Summarize returns "" without a remote call for empty text.
func (s *Summarizer) Summarize(ctx context.Context, text string) SummaryResult {
	if text == "" {
		return SummaryResult{}
	}

	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.model.Summarize(callCtx, TruncateChars(text, s.maxChars))
	if err != nil {
		return SummaryResult{Err: fmt.Errorf("%w: %v", ErrSummaryFailed, err)}
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return SummaryResult{Err: fmt.Errorf("%w: model returned no text", ErrSummaryFailed)}
	}
	return SummaryResult{Text: summary}
}
