// Package rate implementa rate limiting de ventana fija por clave.
package rate

import (
	"context"
	"strconv"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result describe el estado de la ventana tras contar un hit.
type Result struct {
	Allowed   bool
	Remaining int64
	// ResetIn es lo que falta para que abra la próxima ventana.
	ResetIn time.Duration
	// RetryAfter solo se completa cuando Allowed es false (mínimo 1s).
	RetryAfter time.Duration
}

// Limiter cuenta un hit para key y decide si pasa.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter comparte los contadores entre réplicas: INCR + EXPIRE NX en
// una transacción, una clave por ventana.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	start, resetIn := window(l.now(), l.window)
	k := windowKey(l.prefix, key, start)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	return decide(incr.Val(), l.max, resetIn), nil
}

// window devuelve el inicio de la ventana que contiene now y cuánto le queda.
func window(now time.Time, size time.Duration) (time.Time, time.Duration) {
	now = now.UTC()
	start := now.Truncate(size)
	return start, start.Add(size).Sub(now)
}

func windowKey(prefix, key string, start time.Time) string {
	return prefix + ":" + strings.ReplaceAll(key, " ", "_") + ":" + strconv.FormatInt(start.Unix(), 10)
}

func decide(hits, max int64, resetIn time.Duration) Result {
	res := Result{Allowed: hits <= max, ResetIn: resetIn}
	if hits < max {
		res.Remaining = max - hits
	}
	if !res.Allowed {
		res.RetryAfter = max64(resetIn.Round(time.Second), time.Second)
	}
	return res
}

func max64(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
