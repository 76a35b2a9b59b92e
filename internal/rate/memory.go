package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter cuenta en el proceso. Sirve con una sola réplica o sin redis.
type MemoryLimiter struct {
	max    int64
	window time.Duration

	mu  sync.Mutex
	c   *gocache.Cache
	now func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:    int64(max),
		window: window,
		c:      gocache.New(window, 2*window),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	start, resetIn := window(l.now(), l.window)
	k := windowKey("", key, start)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Add falla si la clave ya existe en esta ventana: entonces se incrementa.
	if err := l.c.Add(k, int64(1), resetIn); err == nil {
		return decide(1, l.max, resetIn), nil
	}
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		return Result{}, err
	}
	return decide(hits, l.max, resetIn), nil
}
