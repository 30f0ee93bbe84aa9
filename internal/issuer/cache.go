package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"badgekeeper/internal/did"
	platformredis "badgekeeper/internal/platform/redis"
	"badgekeeper/pkg/platform/sentinel"
)

// DocumentCache stores resolved DID documents for the configured TTL. A cache
// failure is never fatal to resolution; callers treat errors as misses.
type DocumentCache interface {
	Get(ctx context.Context, id string) (*did.Document, error)
	Put(ctx context.Context, id string, doc *did.Document) error
}

// MemoryCache is the in-process DocumentCache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	doc       *did.Document
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(_ context.Context, id string) (*did.Document, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return nil, sentinel.ErrNotFound
	}
	return entry.doc, nil
}

func (c *MemoryCache) Put(_ context.Context, id string, doc *did.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryEntry{doc: doc, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// RedisCache is the shared DocumentCache for multi-instance deployments.
type RedisCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an established Redis client.
func NewRedisCache(client *platformredis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return "badgekeeper:did:" + id
}

func (c *RedisCache) Get(ctx context.Context, id string) (*did.Document, error) {
	raw, err := c.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	var doc did.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode cached document: %w", err)
	}
	return &doc, nil
}

func (c *RedisCache) Put(ctx context.Context, id string, doc *did.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return c.client.Set(ctx, redisKey(id), raw, c.ttl).Err()
}
