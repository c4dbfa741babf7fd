package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Cetc2211/AcTR-app/internal/models"
	"github.com/Cetc2211/AcTR-app/internal/storage"
	"github.com/Cetc2211/AcTR-app/internal/storage/mocks"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, models.KindPDF, KindOf("a/b/Report.PDF"))
	assert.Equal(t, models.KindText, KindOf("notes.txt"))
	assert.Equal(t, models.KindText, KindOf("NOTES.TXT"))
	assert.Equal(t, models.KindUnknown, KindOf("data.xyz"))
	assert.Equal(t, models.KindUnknown, KindOf("no-extension"))
	assert.Equal(t, models.KindUnknown, KindOf("archive.pdf.zip"))
}

func TestExtractor_Extract(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		object    string
		setup     func(m *mocks.MockAccessor)
		parser    PDFParser
		want      Result
		wantErr   error
		wantInner error
	}{
		{
			name:   "text",
			object: "report.txt",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "report.txt").Return(true, nil)
				m.On("FetchText", mock.Anything, "b1", "report.txt").Return("Hello world", nil)
			},
			want: Result{Text: "Hello world", Kind: models.KindText},
		},
		{
			name:   "empty text",
			object: "empty.txt",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "empty.txt").Return(true, nil)
				m.On("FetchText", mock.Anything, "b1", "empty.txt").Return("", nil)
			},
			want: Result{Text: "", Kind: models.KindText},
		},
		{
			name:   "pdf parsed",
			object: "scan.pdf",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "scan.pdf").Return(true, nil)
				m.On("FetchBytes", mock.Anything, "b1", "scan.pdf").Return([]byte("%PDF-1.4"), nil)
			},
			parser: func(data []byte) (string, error) { return "page one\npage two", nil },
			want:   Result{Text: "page one\npage two", Kind: models.KindPDF},
		},
		{
			name:   "pdf not extractable",
			object: "broken.pdf",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "broken.pdf").Return(true, nil)
				m.On("FetchBytes", mock.Anything, "b1", "broken.pdf").Return([]byte("this is not a pdf"), nil)
			},
			want:      Result{Text: "", Kind: models.KindPDF},
			wantInner: ErrExtraction,
		},
		{
			name:   "pdf with glyph ids and no ToUnicode map",
			object: "cid.pdf",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "cid.pdf").Return(true, nil)
				m.On("FetchBytes", mock.Anything, "b1", "cid.pdf").Return(trueTypePDF(false), nil)
			},
			want:      Result{Text: "", Kind: models.KindPDF},
			wantInner: ErrExtraction,
		},
		{
			name:   "unknown kind is not fetched",
			object: "blob.xyz",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "blob.xyz").Return(true, nil)
			},
			want: Result{Text: "", Kind: models.KindUnknown},
		},
		{
			name:   "missing object",
			object: "gone.txt",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "gone.txt").Return(false, nil)
			},
			wantErr: ErrObjectFetch,
		},
		{
			name:   "exists check fails",
			object: "report.txt",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "report.txt").Return(false, errors.New("permission denied"))
			},
			wantErr: ErrObjectFetch,
		},
		{
			name:   "pdf fetch fails",
			object: "scan.pdf",
			setup: func(m *mocks.MockAccessor) {
				m.On("Exists", mock.Anything, "b1", "scan.pdf").Return(true, nil)
				m.On("FetchBytes", mock.Anything, "b1", "scan.pdf").Return(nil, context.DeadlineExceeded)
			},
			wantErr: ErrObjectFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := new(mocks.MockAccessor)
			tt.setup(acc)
			ex := NewExtractor(acc, time.Second)
			if tt.parser != nil {
				ex.WithPDFParser(tt.parser)
			}

			got, err := ex.Extract(ctx, models.ObjectRef{Bucket: "b1", Name: tt.object})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				acc.AssertExpectations(t)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Text, got.Text)
			assert.Equal(t, tt.want.Kind, got.Kind)
			if tt.wantInner != nil {
				assert.ErrorIs(t, got.Err, tt.wantInner)
			} else {
				assert.NoError(t, got.Err)
			}
			acc.AssertExpectations(t)
		})
	}
}

func TestExtractor_MissingObjectKeepsNotFound(t *testing.T) {
	m := new(mocks.MockAccessor)
	m.On("Exists", mock.Anything, "b1", "gone.txt").Return(false, nil)

	_, err := NewExtractor(m, time.Second).Extract(context.Background(), models.ObjectRef{Bucket: "b1", Name: "gone.txt"})

	assert.ErrorIs(t, err, ErrObjectFetch)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	m.AssertNotCalled(t, "FetchText", mock.Anything, mock.Anything, mock.Anything)
}
