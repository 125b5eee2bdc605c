package embeddings

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmbedder is a mock implementation of Embedder using testify/mock.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Vector), args.Error(1)
}

// StubEmbedder returns a deterministic vector per text, for end-to-end tests
// that need real (non-mock) embedder behavior without a network call.
type StubEmbedder struct {
	// Dim is the vector dimension; defaults to 8.
	Dim int
	// Calls counts remote-call-equivalent invocations.
	Calls int
}

func (s *StubEmbedder) EmbedBatch(_ context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return []Vector{}, nil
	}
	s.Calls++
	dim := s.Dim
	if dim == 0 {
		dim = 8
	}
	out := make([]Vector, len(texts))
	for i, text := range texts {
		out[i] = stubVector(text, dim)
	}
	return out, nil
}

// Vector returns the vector EmbedBatch would produce for text, without
// counting as a call. Useful for asserting on query results.
func (s *StubEmbedder) Vector(text string) Vector {
	dim := s.Dim
	if dim == 0 {
		dim = 8
	}
	return stubVector(text, dim)
}

func stubVector(text string, dim int) Vector {
	vec := make(Vector, dim)
	// Cheap, stable hash spread across the vector.
	var h uint32 = 2166136261
	for _, c := range []byte(text) {
		h = (h ^ uint32(c)) * 16777619
	}
	for j := range vec {
		h = h*1664525 + 1013904223
		vec[j] = float32(h%1000)/1000 - 0.5
	}
	return vec
}
