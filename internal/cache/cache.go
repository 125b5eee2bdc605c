// Package cache stores assembled answers so repeated questions over an
// unchanged corpus skip retrieval and completion.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Source identifies a chunk that contributed to a cached answer.
type Source struct {
	DocumentID int64   `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Title      string  `json:"title"`
}

// Answer is a cached completion with the chunks it was grounded on.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Cache provides answer caching. Implementations must treat a miss as
// (nil, nil), not an error.
type Cache interface {
	// GetAnswer retrieves a cached answer by key. Returns nil on miss.
	GetAnswer(ctx context.Context, key string) (*Answer, error)

	// SetAnswer stores an answer with TTL. documentIDs are the documents
	// the answer was grounded on; indexing any of them later invalidates
	// the entry.
	SetAnswer(ctx context.Context, key string, answer *Answer, documentIDs []int64, ttl time.Duration) error

	// InvalidateDocument removes every cached answer grounded on the
	// document.
	InvalidateDocument(ctx context.Context, documentID int64) error

	// Close closes the cache connection.
	Close() error
}

// Key derives a stable cache key from the query and its scope. Parts are
// hashed so arbitrary user text never appears in key space.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
