package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache: key not found")

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// LocalCache is the in-process store used when Redis is disabled or unreachable
type LocalCache struct {
	data      map[string]cacheEntry
	mu        sync.RWMutex
	log       *zap.Logger
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewLocalCache creates a new in-memory cache with periodic cleanup
func NewLocalCache(cleanupInterval time.Duration, log *zap.Logger) *LocalCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &LocalCache{
		data:   make(map[string]cacheEntry),
		log:    log,
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop(cleanupInterval)

	log.Info("Local in-memory cache initialized",
		zap.Duration("cleanup_interval", cleanupInterval),
	)
	return c
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || entry.expired(time.Now()) {
		return "", fmt.Errorf("%w: %s", ErrMiss, key)
	}
	return entry.value, nil
}

func (c *LocalCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	str, err := encode(value)
	if err != nil {
		return err
	}

	entry := cacheEntry{value: str}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}

	c.mu.Lock()
	c.data[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *LocalCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

// Len returns the number of stored entries, expired ones included until the next sweep
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *LocalCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup(time.Now())
		case <-c.stopCh:
			return
		}
	}
}

func (c *LocalCache) cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for key, entry := range c.data {
		if entry.expired(now) {
			delete(c.data, key)
			expired++
		}
	}

	if expired > 0 {
		c.log.Debug("Cache cleanup completed", zap.Int("expired_entries", expired))
	}
}

func encode(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value: %w", err)
		}
		return string(data), nil
	}
}
