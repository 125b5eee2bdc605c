package embeddings

import (
	"context"
	"math"
)

// Vector is a fixed-dimension embedding.
type Vector []float32

// Embedder turns a batch of texts into vectors of equal length and order.
// An empty input returns an empty output without a remote call.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// Dimension returns the vector dimension for a known embedding model.
// The dimension is a property of the model, nothing else; callers that size
// an index must use this as the single source of truth.
func Dimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Mismatched or empty vectors score 0.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
