// Package retrieval finds the document chunks most relevant to a query and
// assembles them into a bounded context block for completion prompts.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lexvault/internal/embeddings"
	"lexvault/internal/vecindex"
)

// Scope restricts retrieval to what the caller may see. The gateway resolves
// authorization; by the time a Scope reaches this package it is trusted.
type Scope struct {
	OfficeID    int64
	CaseID      *int64
	DocumentIDs []int64
}

// Chunk is one retrieved piece of a document.
type Chunk struct {
	ID         string
	DocumentID int64
	ChunkIndex int
	Title      string
	Content    string
	Score      float64
}

// Result is the retrieval output: ranked chunks plus the ids of the distinct
// documents they came from, in rank order.
type Result struct {
	Chunks      []Chunk
	DocumentIDs []int64
}

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder embeddings.Embedder
	index    vecindex.Index
	logger   *slog.Logger
}

func New(embedder embeddings.Embedder, index vecindex.Index, logger *slog.Logger) *Retriever {
	return &Retriever{embedder: embedder, index: index, logger: logger}
}

// Retrieve embeds the query and returns the topK best-scoring chunks inside
// scope. A vector index that does not exist yet behaves like an empty one:
// no documents have been indexed, so nothing is relevant.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope Scope, topK int) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, nil
	}
	if topK <= 0 {
		topK = 5
	}

	vecs, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return Result{}, fmt.Errorf("expected 1 query vector, got %d", len(vecs))
	}

	filter := vecindex.Filter{
		OfficeID:    scope.OfficeID,
		CaseID:      scope.CaseID,
		DocumentIDs: scope.DocumentIDs,
	}
	matches, err := r.index.Query(ctx, vecs[0], topK, filter)
	if err != nil {
		if errors.Is(err, vecindex.ErrIndexNotFound) {
			r.logger.Warn("vector index does not exist yet, returning empty context", "office_id", scope.OfficeID)
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("vector query failed: %w", err)
	}

	res := Result{Chunks: make([]Chunk, 0, len(matches))}
	seen := map[int64]bool{}
	for _, m := range matches {
		res.Chunks = append(res.Chunks, Chunk{
			ID:         m.ID,
			DocumentID: m.Meta.DocumentID,
			ChunkIndex: m.Meta.ChunkIndex,
			Title:      m.Meta.Title,
			Content:    m.Meta.Content,
			Score:      float64(m.Score),
		})
		if !seen[m.Meta.DocumentID] {
			seen[m.Meta.DocumentID] = true
			res.DocumentIDs = append(res.DocumentIDs, m.Meta.DocumentID)
		}
	}
	return res, nil
}
