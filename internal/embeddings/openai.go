package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lexvault/internal/retry"
)

// maxBatchInputs bounds a single embeddings request; larger caller batches
// are split transparently.
const maxBatchInputs = 100

// OpenAIEmbedder calls OpenAI's embeddings API.
type OpenAIEmbedder struct {
	model  openai.EmbeddingModel
	client *openai.Client
	policy retry.Policy
}

// NewOpenAIEmbedder creates a new OpenAI embedder. Transient provider errors
// (rate limits, connection failures, 5xx) are retried per the policy; auth
// and malformed-request errors propagate immediately.
func NewOpenAIEmbedder(apiKey, model string, policy retry.Policy) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if policy.Retryable == nil {
		policy.Retryable = IsTransient
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmbedder{
		model:  openai.EmbeddingModel(model),
		client: &cli,
		policy: policy,
	}, nil
}

// EmbedBatch returns one vector per input text, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return []Vector{}, nil
	}

	out := make([]Vector, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchInputs {
		end := start + maxBatchInputs
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedOnce(ctx context.Context, texts []string) ([]Vector, error) {
	var resp *openai.CreateEmbeddingResponse
	err := e.policy.Do(ctx, func() error {
		var callErr error
		resp, callErr = e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: e.model,
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response length mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vecs := make([]Vector, len(resp.Data))
	for _, item := range resp.Data {
		vec := make(Vector, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vecs[int(item.Index)] = vec
	}
	return vecs, nil
}

// IsTransient reports whether an OpenAI API error is worth retrying:
// rate limits, server errors, and connection failures. Auth and validation
// errors are terminal.
func IsTransient(err error) bool {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return true
		case http.StatusUnauthorized, http.StatusForbidden,
			http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
			return false
		}
		return apierr.StatusCode >= 500
	}
	// Connection-level errors arrive without an API status.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
