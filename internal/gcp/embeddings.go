package gcp

import (
	"context"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// errNoEmbedding is returned when the prediction response carries no vector.
var errNoEmbedding = errors.New("prediction response contained no embedding values")

// EmbeddingClient calls a Vertex AI text embedding publisher model.
type EmbeddingClient struct {
	client    *aiplatform.PredictionClient
	endpoint  string
	modelName string
	dimension int
}

// NewEmbeddingClient creates a prediction client bound to the regional endpoint.
func NewEmbeddingClient(ctx context.Context, projectID, region, modelName string, dimension int) (*EmbeddingClient, error) {
	if projectID == "" || region == "" || modelName == "" {
		return nil, fmt.Errorf("NewEmbeddingClient: projectID, region and modelName cannot be empty")
	}

	apiEndpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", region)
	client, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(apiEndpoint))
	if err != nil {
		return nil, fmt.Errorf("aiplatform.NewPredictionClient: %w", err)
	}

	return &EmbeddingClient{
		client:    client,
		endpoint:  fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", projectID, region, modelName),
		modelName: modelName,
		dimension: dimension,
	}, nil
}

// ModelName is the tag stored alongside every vector this client produces.
func (c *EmbeddingClient) ModelName() string {
	return c.modelName
}

// Embed returns the embedding of the first (and only) instance sent.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	instance, err := structpb.NewValue(map[string]any{
		"content":   text,
		"task_type": "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding instance: %w", err)
	}
	params, err := structpb.NewValue(map[string]any{
		"outputDimensionality": c.dimension,
		"autoTruncate":         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding parameters: %w", err)
	}

	resp, err := c.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   c.endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding prediction failed: %w", err)
	}
	return parseEmbedding(resp.GetPredictions())
}

func (c *EmbeddingClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// parseEmbedding reads predictions[0].embeddings.values.
func parseEmbedding(predictions []*structpb.Value) ([]float32, error) {
	if len(predictions) == 0 {
		return nil, errNoEmbedding
	}
	embeddings := predictions[0].GetStructValue().GetFields()["embeddings"]
	values := embeddings.GetStructValue().GetFields()["values"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, errNoEmbedding
	}

	vector := make([]float32, len(values))
	for i, v := range values {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("embedding value %d is not a number", i)
		}
		vector[i] = float32(n.NumberValue)
	}
	return vector, nil
}
