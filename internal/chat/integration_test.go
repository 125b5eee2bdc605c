package chat

import (
	"context"
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
	"lexvault/internal/llm"
	"lexvault/internal/pipeline"
	"lexvault/internal/retrieval"
	"lexvault/internal/vecindex"
)

// The flow from raw document to grounded answer, with a real chunker,
// deterministic embedder and in-memory index; only the model is mocked.

type fixedExtractor struct {
	texts map[string]string
}

func (f *fixedExtractor) Extract(_ context.Context, path, _ string) (extract.Extraction, error) {
	return extract.Extraction{Text: f.texts[path]}, nil
}

func indexFixture(t *testing.T, idx vecindex.Index, stub *embeddings.StubEmbedder, doc docstore.Document, text string) {
	t.Helper()
	store := &docstore.MockStore{}
	store.On("GetDocument", mock.Anything, doc.ID).Return(doc, nil)
	store.On("SetFlags", mock.Anything, doc.ID, mock.Anything).Return(nil)

	ix := pipeline.New(store, &fixedExtractor{texts: map[string]string{doc.FilePath: text}},
		stub, idx, cache.NewNoOpCache(), chunker.Options{ChunkSize: 200, OverlapWords: 5}, 100, discardLogger())
	_, err := ix.IndexDocument(context.Background(), doc.ID)
	require.NoError(t, err)
}

func TestIndexedDocumentAnswersQuestions(t *testing.T) {
	stub := &embeddings.StubEmbedder{Dim: 8}
	idx := vecindex.NewMemory(8)

	text := "The settlement hearing is scheduled for March 3, 2026 in courtroom 4B." +
		"\n\n" + "Payment of the agreed amount is due within thirty days of the hearing."
	indexFixture(t, idx, stub, docstore.Document{
		ID: 42, Title: "Settlement Agreement", FilePath: "/docs/42.pdf",
		MimeType: "application/pdf", OfficeID: 5,
	}, text)

	chunks := chunker.Split(text, chunker.Options{ChunkSize: 200, OverlapWords: 5})
	question := chunks[0] // exact-vector match against the first chunk

	client := &llm.MockClient{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		last := msgs[len(msgs)-1]
		return strings.Contains(last.Content, "[Document: Settlement Agreement]") &&
			strings.Contains(last.Content, "March 3, 2026")
	})).Return("The hearing is on March 3, 2026.", nil)

	svc := New(retrieval.New(stub, idx, discardLogger()), client, cache.NewNoOpCache(), Options{}, discardLogger())
	resp, err := svc.Ask(context.Background(), Request{Message: question, Scope: retrieval.Scope{OfficeID: 5}})

	require.NoError(t, err)
	assert.Equal(t, "The hearing is on March 3, 2026.", resp.Answer)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, int64(42), resp.Sources[0].DocumentID)
	client.AssertExpectations(t)
}

func TestDeletedDocumentLeavesNoContext(t *testing.T) {
	stub := &embeddings.StubEmbedder{Dim: 8}
	idx := vecindex.NewMemory(8)

	doc := docstore.Document{ID: 42, Title: "Old Memo", FilePath: "/docs/42.txt", MimeType: "text/plain", OfficeID: 5}
	indexFixture(t, idx, stub, doc, "confidential memo body")

	store := &docstore.MockStore{}
	store.On("SetFlags", mock.Anything, doc.ID, mock.Anything).Return(nil)
	ix := pipeline.New(store, &fixedExtractor{}, stub, idx, cache.NewNoOpCache(),
		chunker.Options{}, 100, discardLogger())
	require.NoError(t, ix.DeleteIndex(context.Background(), doc.ID))

	client := &llm.MockClient{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		// With nothing retrievable, the question passes through unwrapped.
		return msgs[len(msgs)-1].Content == "confidential memo body"
	})).Return("I have no documents about that.", nil)

	svc := New(retrieval.New(stub, idx, discardLogger()), client, cache.NewNoOpCache(), Options{}, discardLogger())
	resp, err := svc.Ask(context.Background(), Request{Message: "confidential memo body", Scope: retrieval.Scope{OfficeID: 5}})

	require.NoError(t, err)
	assert.Empty(t, resp.Sources)
	client.AssertExpectations(t)
}

func TestOfficeScopeIsolation(t *testing.T) {
	stub := &embeddings.StubEmbedder{Dim: 8}
	idx := vecindex.NewMemory(8)

	indexFixture(t, idx, stub, docstore.Document{
		ID: 1, Title: "Office 5 Doc", FilePath: "/docs/1.txt", MimeType: "text/plain", OfficeID: 5,
	}, "shared wording about the retainer")
	indexFixture(t, idx, stub, docstore.Document{
		ID: 2, Title: "Office 7 Doc", FilePath: "/docs/2.txt", MimeType: "text/plain", OfficeID: 7,
	}, "shared wording about the retainer")

	retr := retrieval.New(stub, idx, discardLogger())
	res, err := retr.Retrieve(context.Background(), "shared wording about the retainer", retrieval.Scope{OfficeID: 7}, 10)

	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	for _, c := range res.Chunks {
		assert.Equal(t, int64(2), c.DocumentID, "office 7 must only see its own documents")
	}
}
