package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing. Used as a fallback
// when Redis is unavailable - all operations succeed but every lookup is a
// miss.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetAnswer always returns nil (cache miss)
func (c *NoOpCache) GetAnswer(ctx context.Context, key string) (*Answer, error) {
	return nil, nil
}

// SetAnswer does nothing and always succeeds
func (c *NoOpCache) SetAnswer(ctx context.Context, key string, answer *Answer, documentIDs []int64, ttl time.Duration) error {
	return nil
}

// InvalidateDocument does nothing and always succeeds
func (c *NoOpCache) InvalidateDocument(ctx context.Context, documentID int64) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
