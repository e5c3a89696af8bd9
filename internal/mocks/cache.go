package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by MockCache.Get for unknown keys
var ErrCacheMiss = errors.New("mock cache: key not found")

// MockCache is a mock implementation of Cache interface
type MockCache struct {
	mu         sync.Mutex
	data       map[string]string
	ttl        map[string]time.Duration
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
	PingFunc   func(ctx context.Context) error
	CloseFunc  func() error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]string),
		ttl:  make(map[string]time.Duration),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return "", ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		str = string(data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = str
	m.ttl[key] = expiration
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.ttl, key)
	return nil
}

func (m *MockCache) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockCache) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// TTL returns the expiration the key was last stored with
func (m *MockCache) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl[key]
}

// Has reports whether the key is stored
func (m *MockCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}
