package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"lexvault/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	// TaskTypeIndex (re)builds a document's chunks in the vector index.
	TaskTypeIndex TaskType = "index"
	// TaskTypeDeleteIndex removes a document's chunks from the vector index.
	TaskTypeDeleteIndex TaskType = "delete_index"
)

// IndexPayload is the payload for both index and delete_index tasks.
type IndexPayload struct {
	DocumentID int64 `json:"document_id"`
}

// Task represents a unit of work handed from the gateway to the indexer.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// NewIndexTask builds an index task for one document.
func NewIndexTask(documentID int64) Task {
	return newDocTask(TaskTypeIndex, documentID)
}

// NewDeleteIndexTask builds a delete_index task for one document.
func NewDeleteIndexTask(documentID int64) Task {
	return newDocTask(TaskTypeDeleteIndex, documentID)
}

func newDocTask(t TaskType, documentID int64) Task {
	payload, _ := json.Marshal(IndexPayload{DocumentID: documentID})
	return Task{ID: uuid.New(), Type: t, Payload: payload}
}

// DocumentID decodes the task payload shared by document tasks.
func (t Task) DocumentID() (int64, error) {
	var p IndexPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return 0, err
	}
	return p.DocumentID, nil
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
