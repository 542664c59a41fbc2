package checkpoint_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-kgbuild/internal/checkpoint"
)

func newRedisStore(t *testing.T, name string) (*checkpoint.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return checkpoint.NewRedisStore(client, name, checkpoint.WithPrefix("kgbuild:checkpoint:")), mr
}

func TestRedisStore_EmptyWhenAbsent(t *testing.T) {
	store, _ := newRedisStore(t, "describe")

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, "describe")
	assert.Equal(t, "kgbuild:checkpoint:describe", store.Key())

	doc := checkpoint.NewDocument()
	require.NoError(t, doc.Put("C", map[string]any{"Name": "C"}))
	require.NoError(t, doc.Put("A", map[string]any{}))
	require.NoError(t, store.Save(ctx, doc))

	raw, err := mr.Get("kgbuild:checkpoint:describe")
	require.NoError(t, err)
	assert.Equal(t, `{"C":{"Name":"C"},"A":{}}`, raw)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, loaded.Keys())

	require.NoError(t, store.Save(ctx, loaded))
	again, _ := mr.Get("kgbuild:checkpoint:describe")
	assert.Equal(t, raw, again)
}

func TestRedisStore_SaveSurvivesCancelledContext(t *testing.T) {
	store, _ := newRedisStore(t, "extract")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := checkpoint.NewDocument()
	require.NoError(t, doc.Put("A", []any{}))
	require.NoError(t, store.Save(ctx, doc))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.Has("A"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, "describe")
	require.NoError(t, mr.Set("kgbuild:checkpoint:describe", "not json"))

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}
