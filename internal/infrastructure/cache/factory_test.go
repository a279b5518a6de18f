package cache

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/artisanmarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisConfigFor(t *testing.T, mr *miniredis.Miniredis) config.RedisConfig {
	host, port, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: p}
}

func TestNewStores_UsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	stores, err := NewStores(context.Background(), redisConfigFor(t, mr))
	require.NoError(t, err)
	defer stores.Close()

	assert.NotNil(t, stores.Client)
	assert.IsType(t, &RedisResponseCache{}, stores.Responses)
	assert.IsType(t, &RedisIdempotencyStore{}, stores.Idempotency)
}

func TestNewStores_FallsBackWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfigFor(t, mr)
	mr.Close()

	stores, err := NewStores(context.Background(), cfg)
	require.NoError(t, err)
	defer stores.Close()

	assert.Nil(t, stores.Client)
	assert.IsType(t, &InMemoryResponseCache{}, stores.Responses)

	_, err = NewStores(context.Background(), cfg, WithInMemoryFallback(false))
	assert.Error(t, err)
}
