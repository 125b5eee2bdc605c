// Package chat answers questions over a firm's documents: retrieve relevant
// chunks, assemble a bounded context, and complete with the chat model.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"lexvault/internal/cache"
	"lexvault/internal/llm"
	"lexvault/internal/retrieval"
)

const defaultSystemPrompt = `You are a legal office assistant for law firms.
You help with document management, case organization, and answering legal questions based on the firm's documents.
Always be professional, accurate, and helpful. If you're unsure about something, acknowledge your limitations.
When answering questions, cite specific documents or sources when possible.`

// maxHistoryMessages bounds how much prior conversation goes into the prompt.
const maxHistoryMessages = 10

// Retriever is the retrieval dependency of the chat service.
type Retriever interface {
	Retrieve(ctx context.Context, query string, scope retrieval.Scope, topK int) (retrieval.Result, error)
}

// Request is one question with its conversation so far.
type Request struct {
	Message string
	History []llm.Message
	Scope   retrieval.Scope
	// SystemPrompt overrides the default assistant prompt when non-empty.
	SystemPrompt string
}

// Source identifies a chunk the answer drew on.
type Source struct {
	DocumentID int64   `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// Response is the assistant's answer with its supporting chunks.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Cached  bool     `json:"cached"`
}

// Options tunes a chat service.
type Options struct {
	// TopK is how many chunks retrieval returns.
	TopK int
	// MaxContextChunks bounds how many of them enter the prompt.
	MaxContextChunks int
	// CacheTTL is how long answers stay cached.
	CacheTTL time.Duration
}

// Service wires retrieval, completion and the answer cache.
type Service struct {
	retriever   Retriever
	client      llm.Client
	answerCache cache.Cache
	opts        Options
	logger      *slog.Logger
}

func New(retriever Retriever, client llm.Client, answerCache cache.Cache, opts Options, logger *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxContextChunks <= 0 {
		opts.MaxContextChunks = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Service{retriever: retriever, client: client, answerCache: answerCache, opts: opts, logger: logger}
}

// Ask answers one question. Fresh conversations (no history) are served from
// the answer cache when an identical question was asked in the same scope.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	key := s.cacheKey(req)
	if key != "" {
		cached, err := s.answerCache.GetAnswer(ctx, key)
		if err != nil {
			s.logger.Warn("answer cache lookup failed", "err", err)
		} else if cached != nil {
			return fromCached(cached), nil
		}
	}

	res, messages, sources, err := s.prepare(ctx, req)
	if err != nil {
		return Response{}, err
	}

	answer, err := s.client.Complete(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("completion failed: %w", err)
	}

	if key != "" {
		s.storeAnswer(ctx, key, answer, sources, res.DocumentIDs)
	}
	return Response{Answer: answer, Sources: sources}, nil
}

// AskStream answers one question, emitting deltas through onDelta as they
// arrive. The returned Response carries the complete answer. Streamed answers
// are not cached.
func (s *Service) AskStream(ctx context.Context, req Request, onDelta func(string) error) (Response, error) {
	_, messages, sources, err := s.prepare(ctx, req)
	if err != nil {
		return Response{}, err
	}

	answer, err := s.client.Stream(ctx, messages, onDelta)
	if err != nil {
		return Response{}, fmt.Errorf("completion failed: %w", err)
	}
	return Response{Answer: answer, Sources: sources}, nil
}

// prepare runs retrieval and builds the prompt.
func (s *Service) prepare(ctx context.Context, req Request) (retrieval.Result, []llm.Message, []Source, error) {
	res, err := s.retriever.Retrieve(ctx, req.Message, req.Scope, s.opts.TopK)
	if err != nil {
		return retrieval.Result{}, nil, nil, fmt.Errorf("retrieval failed: %w", err)
	}

	contextText := retrieval.BuildContext(res.Chunks, s.opts.MaxContextChunks)

	prompt := req.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	messages := []llm.Message{llm.System(prompt)}
	messages = append(messages, trimHistory(req.History)...)
	messages = append(messages, llm.User(retrieval.WrapQuestion(contextText, req.Message)))

	sources := make([]Source, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		sources = append(sources, Source{DocumentID: c.DocumentID, ChunkID: c.ID, Title: c.Title, Score: c.Score})
	}
	return res, messages, sources, nil
}

// trimHistory keeps the most recent maxHistoryMessages messages.
func trimHistory(history []llm.Message) []llm.Message {
	if len(history) > maxHistoryMessages {
		return history[len(history)-maxHistoryMessages:]
	}
	return history
}

// cacheKey returns the cache key for a request, or "" when the request is
// not cacheable (it has conversation history or a custom prompt).
func (s *Service) cacheKey(req Request) string {
	if len(req.History) > 0 || req.SystemPrompt != "" {
		return ""
	}
	caseLabel := ""
	if req.Scope.CaseID != nil {
		caseLabel = strconv.FormatInt(*req.Scope.CaseID, 10)
	}
	return cache.Key(strconv.FormatInt(req.Scope.OfficeID, 10), caseLabel, req.Message)
}

func (s *Service) storeAnswer(ctx context.Context, key, answer string, sources []Source, documentIDs []int64) {
	entry := &cache.Answer{Text: answer, Sources: make([]cache.Source, 0, len(sources))}
	for _, src := range sources {
		entry.Sources = append(entry.Sources, cache.Source{
			DocumentID: src.DocumentID, ChunkID: src.ChunkID, Score: src.Score, Title: src.Title,
		})
	}
	if err := s.answerCache.SetAnswer(ctx, key, entry, documentIDs, s.opts.CacheTTL); err != nil {
		s.logger.Warn("failed to cache answer", "err", err)
	}
}

func fromCached(cached *cache.Answer) Response {
	resp := Response{Answer: cached.Text, Cached: true, Sources: make([]Source, 0, len(cached.Sources))}
	for _, src := range cached.Sources {
		resp.Sources = append(resp.Sources, Source{
			DocumentID: src.DocumentID, ChunkID: src.ChunkID, Score: src.Score, Title: src.Title,
		})
	}
	return resp
}
