package services

import (
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Cetc2211/AcTR-app/internal/database"
	"github.com/Cetc2211/AcTR-app/internal/extract"
	"github.com/Cetc2211/AcTR-app/internal/metrics"
	"github.com/Cetc2211/AcTR-app/internal/repository/postgres"
	"github.com/Cetc2211/AcTR-app/internal/services/mocks"
	storagemocks "github.com/Cetc2211/AcTR-app/internal/storage/mocks"
)

// vectorOfLen matches a pgvector text literal with n elements.
type vectorOfLen int

func (n vectorOfLen) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return false
	}
	return len(strings.Split(strings.Trim(s, "[]"), ",")) == int(n)
}

type pipelineFixture struct {
	db       sqlmock.Sqlmock
	accessor *storagemocks.MockAccessor
	embedder *mocks.MockEmbedder
	model    *mocks.MockSummaryModel
	schema   *mocks.MockSchemaGuard
	handler  *HTTPHandler
}

// newPipelineFixture wires the real extractor, generators and Postgres
// repository over sqlmock, with only the remote services mocked.
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &pipelineFixture{
		db:       sqlMock,
		accessor: new(storagemocks.MockAccessor),
		embedder: new(mocks.MockEmbedder),
		model:    new(mocks.MockSummaryModel),
		schema:   new(mocks.MockSchemaGuard),
	}
	ing, err := NewIngestor(IngestorDeps{
		Extractor:  extract.NewExtractor(f.accessor, time.Second),
		Embeddings: NewEmbeddingGenerator(f.embedder, 8000, 768, time.Second),
		Summarizer: NewSummarizer(f.model, 10000, time.Second),
		Repository: postgres.NewDocumentPostgres(db, time.Second),
		Schema:     f.schema,
		Locator:    f.accessor,
		Metrics:    metrics.New(),
	})
	require.NoError(t, err)
	f.handler = NewHTTPHandler(ing, 1<<20)
	return f
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPHandler_TextDocumentEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.On("EnsureReady", mock.Anything).Return(nil)
	f.accessor.On("Exists", mock.Anything, "b1", "report.txt").Return(true, nil)
	f.accessor.On("FetchText", mock.Anything, "b1", "report.txt").Return("Hello world", nil)
	f.embedder.On("Embed", mock.Anything, "Hello world").Return(unitVector(768), nil)
	f.model.On("Summarize", mock.Anything, "Hello world").Return("A greeting.", nil)

	f.db.ExpectBegin()
	f.db.ExpectQuery("INSERT INTO documents").
		WithArgs("report.txt", "gs://b1/report.txt", "text", "A greeting.", "processed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "upload_date"}).AddRow(int64(1), time.Now()))
	f.db.ExpectExec("INSERT INTO document_embeddings").
		WithArgs(int64(1), vectorOfLen(768), "text-embedding-004").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.db.ExpectCommit()

	rec := post(f.handler, `{"bucket":"b1","name":"report.txt"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"success","message":"Processed report.txt"}`, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Document-Id"))
	assert.Equal(t, "processed", rec.Header().Get("X-Document-Status"))
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestHTTPHandler_PubSubEnvelope(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.On("EnsureReady", mock.Anything).Return(nil)
	f.accessor.On("Exists", mock.Anything, "b1", "archive/data.xyz").Return(true, nil)

	f.db.ExpectBegin()
	f.db.ExpectQuery("INSERT INTO documents").
		WithArgs("data.xyz", "gs://b1/archive/data.xyz", "unknown", "", "processed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "upload_date"}).AddRow(int64(2), time.Now()))
	f.db.ExpectCommit()

	data := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"b1","name":"archive/data.xyz"}`))
	rec := post(f.handler, `{"message":{"data":"`+data+`"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Processed archive/data.xyz"}`, rec.Body.String())
	f.embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestHTTPHandler_InvalidEnvelopes(t *testing.T) {
	for name, body := range map[string]string{
		"empty object":   `{}`,
		"bucket only":    `{"bucket":"b1"}`,
		"not json":       `bucket=b1&name=report.txt`,
		"json array":     `[{"bucket":"b1","name":"report.txt"}]`,
		"bad pubsub b64": `{"message":{"data":"%%%"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newPipelineFixture(t)

			rec := post(f.handler, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Invalid event data"}`, rec.Body.String())
			f.accessor.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything)
			f.schema.AssertNotCalled(t, "EnsureReady", mock.Anything)
			assert.NoError(t, f.db.ExpectationsWereMet())
		})
	}
}

func TestHTTPHandler_EmbeddingFailureKeepsDocument(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.On("EnsureReady", mock.Anything).Return(nil)
	f.accessor.On("Exists", mock.Anything, "b1", "report.txt").Return(true, nil)
	f.accessor.On("FetchText", mock.Anything, "b1", "report.txt").Return("Hello world", nil)
	f.embedder.On("Embed", mock.Anything, "Hello world").Return(nil, errors.New("deadline exceeded"))
	f.model.On("Summarize", mock.Anything, "Hello world").Return("A greeting.", nil)

	f.db.ExpectBegin()
	f.db.ExpectQuery("INSERT INTO documents").
		WithArgs("report.txt", "gs://b1/report.txt", "text", "A greeting.", "failed_partial").
		WillReturnRows(sqlmock.NewRows([]string{"id", "upload_date"}).AddRow(int64(3), time.Now()))
	f.db.ExpectCommit()

	rec := post(f.handler, `{"bucket":"b1","name":"report.txt"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Document-Id"))
	assert.Equal(t, "failed_partial", rec.Header().Get("X-Document-Status"))
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestHTTPHandler_TransactionFailureRollsBack(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.On("EnsureReady", mock.Anything).Return(nil)
	f.accessor.On("Exists", mock.Anything, "b1", "report.txt").Return(true, nil)
	f.accessor.On("FetchText", mock.Anything, "b1", "report.txt").Return("Hello world", nil)
	f.embedder.On("Embed", mock.Anything, "Hello world").Return(unitVector(768), nil)
	f.model.On("Summarize", mock.Anything, "Hello world").Return("A greeting.", nil)

	f.db.ExpectBegin()
	f.db.ExpectQuery("INSERT INTO documents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "upload_date"}).AddRow(int64(4), time.Now()))
	f.db.ExpectExec("INSERT INTO document_embeddings").
		WillReturnError(errors.New("pq: password authentication failed for user \"ingest\""))
	f.db.ExpectRollback()

	rec := post(f.handler, `{"bucket":"b1","name":"report.txt"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to persist document"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestHTTPHandler_SchemaNotReady(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.On("EnsureReady", mock.Anything).Return(database.ErrStore)

	rec := post(f.handler, `{"bucket":"b1","name":"report.txt"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestHTTPHandler_MissingObject(t *testing.T) {
	f := newPipelineFixture(t)
	f.schema.On("EnsureReady", mock.Anything).Return(nil)
	f.accessor.On("Exists", mock.Anything, "b1", "gone.txt").Return(false, nil)

	rec := post(f.handler, `{"bucket":"b1","name":"gone.txt"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch object"}`, rec.Body.String())
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestHTTPHandler_MethodNotAllowed(t *testing.T) {
	f := newPipelineFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHTTPHandler_BodyTooLarge(t *testing.T) {
	f := newPipelineFixture(t)
	f.handler.maxBodyBytes = 16

	rec := post(f.handler, `{"bucket":"b1","name":"a-very-long-object-name.txt"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid event data"}`, rec.Body.String())
}
