package vecindex

import (
	"context"
	"errors"
	"fmt"

	"lexvault/internal/embeddings"
)

// ErrIndexNotFound reports that the underlying index/collection does not
// exist. Callers must be able to tell this configuration failure apart from
// an empty result set.
var ErrIndexNotFound = errors.New("vector index not found")

// ErrDimensionMismatch reports a record whose vector does not match the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Meta is the metadata carried with every vector record. Content is stored
// alongside the vector because the index is the only durable store of chunk
// text in some deployments.
type Meta struct {
	DocumentID  int64  `json:"document_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	OfficeID    int64  `json:"office_id"`
	CaseID      *int64 `json:"case_id,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
}

// Record is an (id, vector, metadata) triple. Re-upserting an id replaces
// the prior vector and metadata.
type Record struct {
	ID     string
	Vector embeddings.Vector
	Meta   Meta
}

// Match is a query result ordered by descending cosine similarity.
type Match struct {
	ID    string
	Score float32
	Meta  Meta
}

// Filter is a conjunctive metadata filter. OfficeID is always applied;
// CaseID when non-nil; DocumentIDs, when non-empty, is an allow-list
// restricting results to already-authorized documents.
type Filter struct {
	OfficeID    int64
	CaseID      *int64
	DocumentIDs []int64
}

// Matches reports whether meta satisfies every condition of the filter.
func (f Filter) Matches(m Meta) bool {
	if m.OfficeID != f.OfficeID {
		return false
	}
	if f.CaseID != nil && (m.CaseID == nil || *m.CaseID != *f.CaseID) {
		return false
	}
	if len(f.DocumentIDs) > 0 {
		for _, id := range f.DocumentIDs {
			if m.DocumentID == id {
				return true
			}
		}
		return false
	}
	return true
}

// Index is the similarity store boundary. Upsert and delete calls for
// different document ids are safe to run concurrently; calls for the same
// document id must be serialized by the caller.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector embeddings.Vector, topK int, filter Filter) ([]Match, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// VectorID returns the deterministic key for a document chunk, so that
// re-indexing overwrites prior records instead of duplicating them.
func VectorID(documentID int64, chunkIndex int) string {
	return fmt.Sprintf("%d_chunk_%d", documentID, chunkIndex)
}
