package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	var got []snapshot
	found, err := c.Get(ctx, "areas:co-1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := []snapshot{{ID: "a-1", Name: "Operaciones"}}
	require.NoError(t, c.Set(ctx, "areas:co-1", want, time.Minute))

	found, err = c.Get(ctx, "areas:co-1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, "areas:co-1"))
	found, err = c.Get(ctx, "areas:co-1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory(t *testing.T) {
	exerciseCache(t, NewMemory())
}

func TestMemory_Expires(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))

	var v string
	found, _ := m.Get(ctx, "k", &v)
	assert.True(t, found)

	now = now.Add(time.Minute)
	found, _ = m.Get(ctx, "k", &v)
	assert.False(t, found)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewRedisCache(context.Background(), addr, "", 0, "test:memorandum:")
	require.NoError(t, err)
	defer c.Close()

	exerciseCache(t, c)
}
