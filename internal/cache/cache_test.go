package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string `json:"name"`
}

func TestClient_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.SetJSON(ctx, "user:1", entry{Name: "alice001"}, time.Minute))

	var got entry
	assert.True(t, c.GetJSON(ctx, "user:1", &got))
	assert.Equal(t, "alice001", got.Name)

	require.NoError(t, c.Delete(ctx, "user:1"))
	assert.False(t, c.GetJSON(ctx, "user:1", &got))
}

func TestClient_FailsSafe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	mr.Close()
	ctx := context.Background()

	assert.Error(t, c.Ping(ctx))

	v, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestClient_Nil(t *testing.T) {
	var c *Client
	ctx := context.Background()

	v, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "k", nil, time.Second))
	assert.False(t, c.GetJSON(ctx, "k", &entry{}))
	assert.Error(t, c.Ping(ctx))
}
