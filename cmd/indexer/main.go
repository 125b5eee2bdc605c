package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lexvault/internal/app"
	"lexvault/internal/chunker"
	"lexvault/internal/httputil"
	"lexvault/internal/pipeline"
	"lexvault/internal/queue"
)

func main() {
	deps, err := app.Build("indexer")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("indexer worker starting")

	indexer := pipeline.New(
		deps.Docs,
		deps.Extractor,
		deps.Embedder,
		deps.Index,
		deps.Cache,
		chunker.Options{ChunkSize: deps.Config.ChunkSize, OverlapWords: deps.Config.ChunkOverlap},
		deps.Config.UpsertBatchSize,
		deps.Log,
	)
	indexer.StageTimeout = time.Duration(deps.Config.CallTimeoutSec) * time.Second
	w := &worker{deps: deps, indexer: indexer}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeIndex, w.handleIndex)
	})
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeDeleteIndex, w.handleDeleteIndex)
	})
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "indexer")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("indexer service stopped", "err", err)
	}
}

type worker struct {
	deps    app.Deps
	indexer *pipeline.Indexer

	// locks serializes tasks per document: concurrent re-index requests for
	// the same document would otherwise interleave delete and upsert.
	locks sync.Map
}

func (w *worker) lockDocument(documentID int64) func() {
	v, _ := w.locks.LoadOrStore(documentID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (w *worker) handleIndex(ctx context.Context, task queue.Task) (err error) {
	documentID, err := task.DocumentID()
	if err != nil {
		w.deps.Log.Error("index task with bad payload dropped", "task_id", task.ID, "err", err)
		return nil
	}
	defer w.recoverTask(task, &err)
	defer w.lockDocument(documentID)()

	_, err = w.indexer.IndexDocument(ctx, documentID)
	return err
}

func (w *worker) handleDeleteIndex(ctx context.Context, task queue.Task) (err error) {
	documentID, err := task.DocumentID()
	if err != nil {
		w.deps.Log.Error("delete_index task with bad payload dropped", "task_id", task.ID, "err", err)
		return nil
	}
	defer w.recoverTask(task, &err)
	defer w.lockDocument(documentID)()

	return w.indexer.DeleteIndex(ctx, documentID)
}

// recoverTask converts a handler panic into a task error so the queue's
// retry path runs instead of the worker dying.
func (w *worker) recoverTask(task queue.Task, err *error) {
	if rec := recover(); rec != nil {
		w.deps.Log.Error("panic in task handler", "task_id", task.ID, "type", task.Type, "panic", rec)
		*err = fmt.Errorf("task handler panicked: %v", rec)
	}
}
