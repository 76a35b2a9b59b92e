package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("t", time.Minute)

	_, err := c.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k", "other"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_TTLExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", time.Minute)

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", time.Minute)

	ok, err := c.SetNX(ctx, "k", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := c.Get(ctx, "k")
	assert.Equal(t, "a", v)
}

func TestMemory_IncrConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Incr(ctx, "n", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := c.Incr(ctx, "n", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), n)

	v, err := c.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "51", v)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := New(context.Background(), Config{Kind: "", Prefix: "p"})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
