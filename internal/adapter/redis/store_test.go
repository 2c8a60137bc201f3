package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	"github.com/pscheid92/foodcart/internal/domain"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *goredis.Client, *metrics.StoreMetrics) {
	t.Helper()

	mr := miniredis.RunT(t)
	m := metrics.NewStoreMetrics(prometheus.NewRegistry(), "redis")

	client, err := NewClient(context.Background(), "redis://"+mr.Addr(), m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client, m
}

func TestNewClient_InvalidURL(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry(), "redis")

	_, err := NewClient(context.Background(), "not a url", m)

	assert.Error(t, err)
}

func TestStore_GetMissing(t *testing.T) {
	_, client, _ := setupMiniredis(t)
	store := NewStore(client, "")

	value, ok, err := store.Get(context.Background(), domain.CartKey)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	_, client, _ := setupMiniredis(t)
	store := NewStore(client, "")

	require.NoError(t, store.Set(ctx, domain.TokenKey, "abc"))
	value, ok, err := store.Get(ctx, domain.TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	require.NoError(t, store.Delete(ctx, domain.TokenKey))
	_, ok, err = store.Get(ctx, domain.TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	_, client, _ := setupMiniredis(t)

	assert.NoError(t, NewStore(client, "").Delete(context.Background(), "missing"))
}

func TestStore_Namespace(t *testing.T) {
	ctx := context.Background()
	mr, client, _ := setupMiniredis(t)
	a := NewStore(client, "device-a")
	b := NewStore(client, "device-b")

	require.NoError(t, a.Set(ctx, domain.CartKey, "[]"))

	assert.True(t, mr.Exists("device-a:@cart_items"))
	_, ok, err := b.Get(ctx, domain.CartKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ValuesDoNotExpire(t *testing.T) {
	ctx := context.Background()
	mr, client, _ := setupMiniredis(t)
	store := NewStore(client, "")

	require.NoError(t, store.Set(ctx, domain.TokenKey, "abc"))

	assert.Zero(t, mr.TTL(domain.TokenKey))
}

func TestStore_Ping(t *testing.T) {
	_, client, _ := setupMiniredis(t)

	assert.NoError(t, NewStore(client, "").Ping(context.Background()))
}

func TestStore_ReadErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	mr, client, _ := setupMiniredis(t)
	store := NewStore(client, "")
	mr.SetError("ERR storage failure")

	_, _, err := store.Get(ctx, domain.CartKey)

	assert.Error(t, err)
}

func TestMetricsHook_CountsCommands(t *testing.T) {
	ctx := context.Background()
	_, client, m := setupMiniredis(t)
	store := NewStore(client, "")

	require.NoError(t, store.Set(ctx, "k", "v"))
	_, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	_, _, err = store.Get(ctx, "missing")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("set", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("get", "success")))
	assert.Zero(t, testutil.ToFloat64(m.OpsTotal.WithLabelValues("get", "error")))
}
