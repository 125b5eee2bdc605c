// Package pipeline drives a document through extraction, chunking, embedding
// and vector upsert, recording progress flags on the document as it goes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lexvault/internal/cache"
	"lexvault/internal/chunker"
	"lexvault/internal/docstore"
	"lexvault/internal/embeddings"
	"lexvault/internal/extract"
	"lexvault/internal/vecindex"
)

// Stage is where a document is in the indexing pipeline. On failure the
// Result carries the stage that broke.
type Stage string

const (
	StagePending    Stage = "pending"
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageUpserting  Stage = "upserting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Result summarizes one indexing run.
type Result struct {
	DocumentID int64
	Stage      Stage
	// FailedAt is the stage that was running when the pipeline failed,
	// empty on success.
	FailedAt Stage
	Chunks   int
	OCRUsed  bool
	Elapsed  time.Duration
}

// TextExtractor is the extraction dependency of the pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType string) (extract.Extraction, error)
}

// Indexer owns the document indexing flow.
type Indexer struct {
	store     docstore.Store
	extractor TextExtractor
	embedder  embeddings.Embedder
	index     vecindex.Index
	cache     cache.Cache
	chunkOpts chunker.Options
	batchSize int
	logger    *slog.Logger

	// StageTimeout bounds each external-call stage (extraction, embedding,
	// upsert) individually. Zero means no per-stage bound.
	StageTimeout time.Duration
}

// New wires an Indexer. batchSize bounds how many records go into a single
// index upsert call.
func New(
	store docstore.Store,
	extractor TextExtractor,
	embedder embeddings.Embedder,
	index vecindex.Index,
	answerCache cache.Cache,
	chunkOpts chunker.Options,
	batchSize int,
	logger *slog.Logger,
) *Indexer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Indexer{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		cache:     answerCache,
		chunkOpts: chunkOpts,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexDocument runs the full pipeline for one document. Old vectors are
// removed before the new ones go in, so a re-index that produces fewer
// chunks leaves no stale tail behind. On failure the document keeps its
// error message and indexed stays false; the document row itself is never
// deleted.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID int64) (Result, error) {
	start := time.Now()
	res := Result{DocumentID: documentID, Stage: StagePending}

	doc, err := ix.store.GetDocument(ctx, documentID)
	if err != nil {
		res.Stage, res.FailedAt = StageFailed, StagePending
		return res, err
	}

	res.Stage = StageExtracting
	extraction, err := ix.extract(ctx, doc)
	if err != nil {
		return ix.fail(ctx, res, StageExtracting, fmt.Errorf("extraction failed: %w", err))
	}
	res.OCRUsed = extraction.OCRUsed

	res.Stage = StageChunking
	chunks := chunker.Split(extraction.Text, ix.chunkOpts)
	res.Chunks = len(chunks)

	res.Stage = StageEmbedding
	vectors, err := ix.embed(ctx, chunks)
	if err != nil {
		return ix.fail(ctx, res, StageEmbedding, fmt.Errorf("embedding failed: %w", err))
	}
	if len(vectors) != len(chunks) {
		return ix.fail(ctx, res, StageEmbedding,
			fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	res.Stage = StageUpserting
	upsertCtx, cancel := ix.stageCtx(ctx)
	err = ix.replaceVectors(upsertCtx, doc, chunks, vectors)
	cancel()
	if err != nil {
		return ix.fail(ctx, res, StageUpserting, err)
	}

	update := docstore.FlagUpdate{
		Indexed: docstore.Bool(true),
		Error:   docstore.String(""),
	}
	if extraction.OCRUsed {
		update.OCRProcessed = docstore.Bool(true)
	}
	if err := ix.store.SetFlags(ctx, documentID, update); err != nil {
		return ix.fail(ctx, res, StageUpserting, fmt.Errorf("failed to record indexed flag: %w", err))
	}

	if err := ix.cache.InvalidateDocument(ctx, documentID); err != nil {
		// Stale answers expire via TTL anyway; don't fail the run.
		ix.logger.Warn("failed to invalidate answer cache", "document_id", documentID, "err", err)
	}

	res.Stage = StageDone
	res.Elapsed = time.Since(start)
	ix.logger.Info("document indexed",
		"document_id", documentID, "chunks", res.Chunks, "ocr_used", res.OCRUsed, "elapsed", res.Elapsed)
	return res, nil
}

// stageCtx derives a per-stage timeout context when one is configured.
func (ix *Indexer) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ix.StageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, ix.StageTimeout)
}

func (ix *Indexer) extract(ctx context.Context, doc docstore.Document) (extract.Extraction, error) {
	ctx, cancel := ix.stageCtx(ctx)
	defer cancel()
	return ix.extractor.Extract(ctx, doc.FilePath, doc.MimeType)
}

func (ix *Indexer) embed(ctx context.Context, chunks []string) ([]embeddings.Vector, error) {
	ctx, cancel := ix.stageCtx(ctx)
	defer cancel()
	return ix.embedder.EmbedBatch(ctx, chunks)
}

// replaceVectors deletes a document's existing vectors and writes the new
// set in bounded batches.
func (ix *Indexer) replaceVectors(ctx context.Context, doc docstore.Document, chunks []string, vectors []embeddings.Vector) error {
	if err := ix.index.DeleteByDocument(ctx, doc.ID); err != nil && !errors.Is(err, vecindex.ErrIndexNotFound) {
		return fmt.Errorf("failed to delete previous vectors: %w", err)
	}

	records := make([]vecindex.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vecindex.Record{
			ID:     vecindex.VectorID(doc.ID, i),
			Vector: vectors[i],
			Meta: vecindex.Meta{
				DocumentID:  doc.ID,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
				OfficeID:    doc.OfficeID,
				CaseID:      doc.CaseID,
				MimeType:    doc.MimeType,
				Title:       doc.Title,
				Content:     chunk,
			},
		}
	}
	for lo := 0; lo < len(records); lo += ix.batchSize {
		hi := lo + ix.batchSize
		if hi > len(records) {
			hi = len(records)
		}
		if err := ix.index.Upsert(ctx, records[lo:hi]); err != nil {
			return fmt.Errorf("failed to upsert vectors %d..%d: %w", lo, hi, err)
		}
	}
	return nil
}

// DeleteIndex removes a document's vectors and clears its indexed flag. Used
// when a document is deleted or moved out of scope.
func (ix *Indexer) DeleteIndex(ctx context.Context, documentID int64) error {
	if err := ix.index.DeleteByDocument(ctx, documentID); err != nil && !errors.Is(err, vecindex.ErrIndexNotFound) {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := ix.cache.InvalidateDocument(ctx, documentID); err != nil {
		ix.logger.Warn("failed to invalidate answer cache", "document_id", documentID, "err", err)
	}
	err := ix.store.SetFlags(ctx, documentID, docstore.FlagUpdate{Indexed: docstore.Bool(false)})
	if err != nil && !errors.Is(err, docstore.ErrDocumentNotFound) {
		return err
	}
	return nil
}

// fail records the failure on the document and returns the terminal result.
// The write is best-effort: the original error wins even if the flag update
// also fails.
func (ix *Indexer) fail(ctx context.Context, res Result, at Stage, cause error) (Result, error) {
	res.Stage, res.FailedAt = StageFailed, at
	ix.logger.Error("indexing failed",
		"document_id", res.DocumentID, "stage", string(at), "err", cause)

	update := docstore.FlagUpdate{
		Indexed: docstore.Bool(false),
		Error:   docstore.String(cause.Error()),
	}
	if err := ix.store.SetFlags(ctx, res.DocumentID, update); err != nil {
		ix.logger.Error("failed to record indexing error", "document_id", res.DocumentID, "err", err)
	}
	return res, cause
}
