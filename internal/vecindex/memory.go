package vecindex

import (
	"context"
	"sort"
	"sync"

	"lexvault/internal/embeddings"
)

// MemoryIndex is an in-process Index used in tests and single-node dev
// deployments. Cosine scoring is exact (no approximate search).
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	records map[string]Record
	missing bool
}

// NewMemory returns an empty in-memory index with the given vector dimension.
func NewMemory(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim, records: make(map[string]Record)}
}

// NewMissingMemory returns a memory index that reports ErrIndexNotFound for
// every operation, for exercising the missing-collection failure mode.
func NewMissingMemory() *MemoryIndex {
	return &MemoryIndex{missing: true}
}

func (m *MemoryIndex) Upsert(_ context.Context, records []Record) error {
	if m.missing {
		return ErrIndexNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if m.dim > 0 && len(r.Vector) != m.dim {
			return ErrDimensionMismatch
		}
		m.records[r.ID] = r
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, vector embeddings.Vector, topK int, filter Filter) ([]Match, error) {
	if m.missing {
		return nil, ErrIndexNotFound
	}
	if topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, r := range m.records {
		if !filter.Matches(r.Meta) {
			continue
		}
		matches = append(matches, Match{
			ID:    r.ID,
			Score: embeddings.CosineSimilarity(vector, r.Vector),
			Meta:  r.Meta,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) DeleteByIDs(_ context.Context, ids []string) error {
	if m.missing {
		return ErrIndexNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MemoryIndex) DeleteByDocument(_ context.Context, documentID int64) error {
	if m.missing {
		return ErrIndexNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.Meta.DocumentID == documentID {
			delete(m.records, id)
		}
	}
	return nil
}

// Len reports the number of stored records.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// CountDocument reports the number of records for one document.
func (m *MemoryIndex) CountDocument(documentID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.records {
		if r.Meta.DocumentID == documentID {
			n++
		}
	}
	return n
}
