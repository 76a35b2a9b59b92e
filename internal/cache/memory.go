package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
type memoryClient struct {
	prefix string
	c      *gocache.Cache
	// go-cache no tiene incr-or-create atómico; serializamos Incr.
	mu sync.Mutex
}

// NewMemory crea un cliente de cache en memoria.
func NewMemory(prefix string, defaultTTL time.Duration) *memoryClient {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &memoryClient{
		prefix: prefix,
		c:      gocache.New(defaultTTL, time.Minute),
	}
}

func (m *memoryClient) key(k string) string { return prefixed(m.prefix, k) }

// ttl 0 en go-cache significa "default"; acá significa "sin expiración".
func goTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (m *memoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", ErrNotFound
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case int64:
		return formatInt(t), nil
	}
	return "", ErrNotFound
}

func (m *memoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(m.key(key), value, goTTL(ttl))
	return nil
}

func (m *memoryClient) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	// Add falla si la key existe y no expiró.
	if err := m.c.Add(m.key(key), value, goTTL(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memoryClient) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	if err := m.c.Add(k, int64(1), goTTL(ttl)); err == nil {
		return 1, nil
	}
	return m.c.IncrementInt64(k, 1)
}

func (m *memoryClient) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(m.key(k))
	}
	return nil
}

func (m *memoryClient) Ping(context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}

func formatInt(n int64) string { return strconv.FormatInt(n, 10) }
