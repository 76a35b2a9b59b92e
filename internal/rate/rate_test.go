package rate

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BlocksAfterMax(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
		assert.Equal(t, int64(2-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.GreaterOrEqual(t, res.RetryAfter, time.Second)

	// Otra clave tiene su propio contador.
	res, err = l.Allow(ctx, "login:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_NewWindowResets(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	now := base
	l := NewMemoryLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	res, _ := l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "k")
	assert.False(t, res.Allowed)

	now = base.Add(61 * time.Second)
	res, _ = l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
}

func TestDecide(t *testing.T) {
	res := decide(5, 5, 1500*time.Millisecond)
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	res = decide(6, 5, 200*time.Millisecond)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)
	assert.Equal(t, 200*time.Millisecond, res.ResetIn)
}

func TestWindowKey(t *testing.T) {
	start, resetIn := window(time.Date(2026, 1, 1, 10, 0, 45, 0, time.UTC), time.Minute)
	assert.Equal(t, 15*time.Second, resetIn)
	assert.Equal(t, "rl:login:1.2.3.4:"+strconv.FormatInt(start.Unix(), 10), windowKey("rl", "login:1.2.3.4", start))
	assert.Equal(t, "rl:a_b:"+strconv.FormatInt(start.Unix(), 10), windowKey("rl", "a b", start))
}
