package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lexvault/internal/cache"
	"lexvault/internal/chunker"
	"lexvault/internal/docstore"
	"lexvault/internal/embeddings"
	"lexvault/internal/extract"
	"lexvault/internal/vecindex"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, path, mimeType string) (extract.Extraction, error) {
	args := m.Called(ctx, path, mimeType)
	return args.Get(0).(extract.Extraction), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testDim = 8

func testDoc() docstore.Document {
	return docstore.Document{
		ID:       42,
		Title:    "Settlement Agreement",
		FilePath: "/data/docs/42.pdf",
		MimeType: "application/pdf",
		OfficeID: 5,
	}
}

func newTestIndexer(store docstore.Store, ext TextExtractor, idx vecindex.Index, c cache.Cache) *Indexer {
	return New(store, ext, &embeddings.StubEmbedder{Dim: testDim}, idx, c,
		chunker.Options{ChunkSize: 50, OverlapWords: 3}, 2, discardLogger())
}

func TestIndexDocument(t *testing.T) {
	store := &docstore.MockStore{}
	ext := &mockExtractor{}
	idx := vecindex.NewMemory(testDim)
	answerCache := &cache.MockCache{}

	doc := testDoc()
	text := strings.Repeat("first paragraph body. ", 3) + "\n\n" + strings.Repeat("second paragraph body. ", 3)
	store.On("GetDocument", mock.Anything, int64(42)).Return(doc, nil)
	ext.On("Extract", mock.Anything, doc.FilePath, doc.MimeType).
		Return(extract.Extraction{Text: text}, nil)
	store.On("SetFlags", mock.Anything, int64(42), mock.MatchedBy(func(u docstore.FlagUpdate) bool {
		return u.Indexed != nil && *u.Indexed && u.Error != nil && *u.Error == ""
	})).Return(nil)
	answerCache.On("InvalidateDocument", mock.Anything, int64(42)).Return(nil)

	ix := newTestIndexer(store, ext, idx, answerCache)
	res, err := ix.IndexDocument(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, StageDone, res.Stage)
	assert.Empty(t, res.FailedAt)
	assert.Greater(t, res.Chunks, 1)
	assert.Equal(t, res.Chunks, idx.CountDocument(42))

	// Querying with the exact vector of the first chunk must return it.
	chunks := chunker.Split(text, chunker.Options{ChunkSize: 50, OverlapWords: 3})
	matches, err := idx.Query(context.Background(),
		(&embeddings.StubEmbedder{Dim: testDim}).Vector(chunks[0]), 1, vecindex.Filter{OfficeID: 5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "42_chunk_0", matches[0].ID)
	assert.Equal(t, "Settlement Agreement", matches[0].Meta.Title)
	assert.Equal(t, res.Chunks, matches[0].Meta.TotalChunks)

	store.AssertExpectations(t)
	answerCache.AssertExpectations(t)
}

func TestIndexDocumentReplacesStaleVectors(t *testing.T) {
	store := &docstore.MockStore{}
	ext := &mockExtractor{}
	idx := vecindex.NewMemory(testDim)

	// Previous run left three chunks behind.
	stub := &embeddings.StubEmbedder{Dim: testDim}
	for i := 0; i < 3; i++ {
		_ = idx.Upsert(context.Background(), []vecindex.Record{{
			ID:     vecindex.VectorID(42, i),
			Vector: stub.Vector("old"),
			Meta:   vecindex.Meta{DocumentID: 42, ChunkIndex: i, OfficeID: 5},
		}})
	}

	doc := testDoc()
	store.On("GetDocument", mock.Anything, int64(42)).Return(doc, nil)
	ext.On("Extract", mock.Anything, doc.FilePath, doc.MimeType).
		Return(extract.Extraction{Text: "short text now"}, nil)
	store.On("SetFlags", mock.Anything, int64(42), mock.Anything).Return(nil)

	ix := newTestIndexer(store, ext, idx, cache.NewNoOpCache())
	res, err := ix.IndexDocument(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, idx.CountDocument(42), "stale chunks must be gone after re-index")
}

func TestIndexDocumentEmptyText(t *testing.T) {
	store := &docstore.MockStore{}
	ext := &mockExtractor{}
	idx := vecindex.NewMemory(testDim)

	doc := testDoc()
	store.On("GetDocument", mock.Anything, int64(42)).Return(doc, nil)
	ext.On("Extract", mock.Anything, doc.FilePath, doc.MimeType).
		Return(extract.Extraction{Text: "   "}, nil)
	store.On("SetFlags", mock.Anything, int64(42), mock.MatchedBy(func(u docstore.FlagUpdate) bool {
		return u.Indexed != nil && *u.Indexed
	})).Return(nil)

	ix := newTestIndexer(store, ext, idx, cache.NewNoOpCache())
	res, err := ix.IndexDocument(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, StageDone, res.Stage)
	assert.Zero(t, res.Chunks)
	assert.Zero(t, idx.CountDocument(42))
}

func TestIndexDocumentRecordsOCRFlag(t *testing.T) {
	store := &docstore.MockStore{}
	ext := &mockExtractor{}
	idx := vecindex.NewMemory(testDim)

	doc := testDoc()
	store.On("GetDocument", mock.Anything, int64(42)).Return(doc, nil)
	ext.On("Extract", mock.Anything, doc.FilePath, doc.MimeType).
		Return(extract.Extraction{Text: "scanned text recovered by ocr", OCRUsed: true}, nil)
	store.On("SetFlags", mock.Anything, int64(42), mock.MatchedBy(func(u docstore.FlagUpdate) bool {
		return u.OCRProcessed != nil && *u.OCRProcessed && u.Indexed != nil && *u.Indexed
	})).Return(nil)

	ix := newTestIndexer(store, ext, idx, cache.NewNoOpCache())
	res, err := ix.IndexDocument(context.Background(), 42)

	require.NoError(t, err)
	assert.True(t, res.OCRUsed)
	store.AssertExpectations(t)
}

func TestIndexDocumentExtractionFailure(t *testing.T) {
	store := &docstore.MockStore{}
	ext := &mockExtractor{}
	idx := vecindex.NewMemory(testDim)

	doc := testDoc()
	cause := errors.New("file corrupted")
	store.On("GetDocument", mock.Anything, int64(42)).Return(doc, nil)
	ext.On("Extract", mock.Anything, doc.FilePath, doc.MimeType).
		Return(extract.Extraction{}, cause)
	store.On("SetFlags", mock.Anything, int64(42), mock.MatchedBy(func(u docstore.FlagUpdate) bool {
		return u.Indexed != nil && !*u.Indexed &&
			u.Error != nil && strings.Contains(*u.Error, "file corrupted")
	})).Return(nil)

	ix := newTestIndexer(store, ext, idx, cache.NewNoOpCache())
	res, err := ix.IndexDocument(context.Background(), 42)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StageFailed, res.Stage)
	assert.Equal(t, StageExtracting, res.FailedAt)
	assert.Zero(t, idx.CountDocument(42))
	store.AssertExpectations(t)
}

func TestIndexDocumentUnknownDocument(t *testing.T) {
	store := &docstore.MockStore{}
	store.On("GetDocument", mock.Anything, int64(99)).
		Return(docstore.Document{}, docstore.ErrDocumentNotFound)

	ix := newTestIndexer(store, &mockExtractor{}, vecindex.NewMemory(testDim), cache.NewNoOpCache())
	res, err := ix.IndexDocument(context.Background(), 99)

	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
	assert.Equal(t, StagePending, res.FailedAt)
}

func TestDeleteIndex(t *testing.T) {
	store := &docstore.MockStore{}
	idx := vecindex.NewMemory(testDim)
	answerCache := &cache.MockCache{}

	stub := &embeddings.StubEmbedder{Dim: testDim}
	_ = idx.Upsert(context.Background(), []vecindex.Record{{
		ID:     vecindex.VectorID(42, 0),
		Vector: stub.Vector("text"),
		Meta:   vecindex.Meta{DocumentID: 42, OfficeID: 5},
	}})
	store.On("SetFlags", mock.Anything, int64(42), mock.MatchedBy(func(u docstore.FlagUpdate) bool {
		return u.Indexed != nil && !*u.Indexed
	})).Return(nil)
	answerCache.On("InvalidateDocument", mock.Anything, int64(42)).Return(nil)

	ix := newTestIndexer(store, &mockExtractor{}, idx, answerCache)
	require.NoError(t, ix.DeleteIndex(context.Background(), 42))
	assert.Zero(t, idx.CountDocument(42))
	answerCache.AssertExpectations(t)
}

func TestDeleteIndexToleratesMissingIndex(t *testing.T) {
	store := &docstore.MockStore{}
	store.On("SetFlags", mock.Anything, int64(42), mock.Anything).Return(nil)

	ix := newTestIndexer(store, &mockExtractor{}, vecindex.NewMissingMemory(), cache.NewNoOpCache())
	assert.NoError(t, ix.DeleteIndex(context.Background(), 42))
}
