package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Key prefix for cached answers
	answerKeyPrefix = "answer:"

	// Key prefix for document -> answer-key tracking sets
	docKeyPrefix = "doc:"
)

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{
		client: client,
	}, nil
}

// GetAnswer retrieves a cached answer by key
func (c *RedisCache) GetAnswer(ctx context.Context, key string) (*Answer, error) {
	data, err := c.client.Get(ctx, answerKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}

	var answer Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// SetAnswer stores an answer with TTL and records which documents it was
// grounded on, so re-indexing a document can evict exactly the answers that
// used it.
func (c *RedisCache) SetAnswer(ctx context.Context, key string, answer *Answer, documentIDs []int64, ttl time.Duration) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, answerKeyPrefix+key, data, ttl)
	for _, id := range documentIDs {
		docKey := docKeyPrefix + strconv.FormatInt(id, 10)
		pipe.SAdd(ctx, docKey, key)
		// Tracking sets outlive their answers slightly so eviction stays
		// correct up to the answer TTL.
		pipe.Expire(ctx, docKey, ttl+time.Minute)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateDocument removes every cached answer grounded on the document
func (c *RedisCache) InvalidateDocument(ctx context.Context, documentID int64) error {
	docKey := docKeyPrefix + strconv.FormatInt(documentID, 10)
	keys, err := c.client.SMembers(ctx, docKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, answerKeyPrefix+key)
	}
	pipe.Del(ctx, docKey)
	_, err = pipe.Exec(ctx)
	return err
}

// Close closes the cache connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
