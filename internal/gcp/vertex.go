package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Summarizer Model Prompts ---
const SummarizerSystemPrompt = "You are a document analyst for an academic records system. You write short, faithful summaries of uploaded documents such as syllabi, reports, and student work."
const SummarizerUserPrompt = `Summarize the following document in one short narrative paragraph (at most five sentences).

Follow these rules:
1.  Describe what the document is and its main points.
2.  Do not invent facts that are not in the text.
3.  Write in the same language as the document.
4.  Return ONLY the summary paragraph, without headings, lists, or preambles like "Here is the summary".

Document:
`

// ErrModelRefusal is returned when the model answers with a refusal instead of content.
var ErrModelRefusal = errors.New("model response indicates refusal")

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// VertexClient holds the pre-configured generative model used for summaries.
type VertexClient struct {
	SummarizerModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding the summarizer model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	summarizerModel := baseClient.GenerativeModel(modelName)
	summarizerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarizerSystemPrompt)},
	}
	summarizerModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: genai.Ptr[int32](1024),
	}

	return &VertexClient{
		SummarizerModel: summarizerModel,
		baseClient:      baseClient,
	}, nil
}

// Summarize sends the fixed summarize instruction followed by text and returns the response text.
func (c *VertexClient) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := c.SummarizerModel.GenerateContent(ctx, genai.Text(SummarizerUserPrompt+text))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary from gemini: %w", err)
	}
	summary := ResponseText(resp)
	if IsRefusal(summary) {
		return "", ErrModelRefusal
	}
	return summary, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ResponseText concatenates the text parts of the first candidate and strips code fences.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var contentBuilder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			contentBuilder.WriteString(string(txt))
		}
	}

	contentStr := strings.TrimSpace(contentBuilder.String())
	contentStr = strings.TrimPrefix(contentStr, "```markdown")
	contentStr = strings.TrimPrefix(contentStr, "```")
	contentStr = strings.TrimSuffix(contentStr, "```")
	return strings.TrimSpace(contentStr)
}

// IsRefusal reports whether a model answer is a refusal rather than content.
func IsRefusal(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
