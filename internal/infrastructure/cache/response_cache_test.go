package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPage struct {
	Names []string `json:"names"`
	Total int64    `json:"total"`
}

func responseCaches(t *testing.T) map[string]ResponseCache {
	_, client := newMiniredisClient(t)
	return map[string]ResponseCache{
		"redis":    NewRedisResponseCache(client, nil),
		"inmemory": NewInMemoryResponseCache(),
	}
}

func TestResponseCache_GetSetDelete(t *testing.T) {
	for name, c := range responseCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var got cachedPage

			hit, err := c.Get(ctx, "products:list:abc", &got)
			require.NoError(t, err)
			assert.False(t, hit)

			want := cachedPage{Names: []string{"Walnut Bowl", "Linen Scarf"}, Total: 2}
			require.NoError(t, c.Set(ctx, "products:list:abc", want, 5*time.Minute))

			hit, err = c.Get(ctx, "products:list:abc", &got)
			require.NoError(t, err)
			assert.True(t, hit)
			assert.Equal(t, want, got)

			require.NoError(t, c.Delete(ctx, "products:list:abc"))
			hit, _ = c.Get(ctx, "products:list:abc", &got)
			assert.False(t, hit)
		})
	}
}

func TestResponseCache_DeletePrefix(t *testing.T) {
	for name, c := range responseCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 250; i++ {
				require.NoError(t, c.Set(ctx, fmt.Sprintf("products:list:%03d", i), i, time.Minute))
			}
			require.NoError(t, c.Set(ctx, "products:categories", []string{"pottery"}, time.Hour))

			require.NoError(t, c.DeletePrefix(ctx, "products:list:"))

			var n int
			hit, _ := c.Get(ctx, "products:list:007", &n)
			assert.False(t, hit)

			var cats []string
			hit, _ = c.Get(ctx, "products:categories", &cats)
			assert.True(t, hit)
		})
	}
}

func TestRedisResponseCache_TTLAndCorruption(t *testing.T) {
	mr, client := newMiniredisClient(t)
	c := NewRedisResponseCache(client, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "products:featured:8", []int{1, 2}, 600*time.Second))
	assert.Equal(t, 600*time.Second, mr.TTL("products:featured:8"))

	mr.FastForward(601 * time.Second)
	var ids []int
	hit, err := c.Get(ctx, "products:featured:8", &ids)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, mr.Set("products:featured:4", "{not json"))
	hit, err = c.Get(ctx, "products:featured:4", &ids)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("products:featured:4"), "corrupted entry is dropped")
}

func TestInMemoryResponseCache_Expiry(t *testing.T) {
	c := NewInMemoryResponseCache()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	now = now.Add(61 * time.Second)

	var v string
	hit, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, c.Len())
}
