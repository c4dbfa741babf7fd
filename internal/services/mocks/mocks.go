package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Cetc2211/AcTR-app/internal/models"
)

type MockEmbedder struct {
	mock.Mock
	Model string
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) ModelName() string {
	if m.Model == "" {
		return "text-embedding-004"
	}
	return m.Model
}

type MockSummaryModel struct {
	mock.Mock
}

func (m *MockSummaryModel) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) SaveIngestion(ctx context.Context, doc models.Document, emb *models.Embedding) (models.Document, error) {
	args := m.Called(ctx, doc, emb)
	return args.Get(0).(models.Document), args.Error(1)
}

type MockSchemaGuard struct {
	mock.Mock
}

func (m *MockSchemaGuard) EnsureReady(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
