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

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetGetJSON(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "k1", cachedThing{Name: "alice", Count: 3}, time.Minute))

	var got cachedThing
	found, err := GetJSON(ctx, "k1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestGetJSON_Miss(t *testing.T) {
	setupMiniredis(t)

	var got cachedThing
	found, err := GetJSON(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAside_FetchOnMissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			*dest = cachedThing{Name: "bob", Count: 1}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "k1", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "bob", first.Name)

	// Second read is served from the cache.
	var second cachedThing
	require.NoError(t, Aside(ctx, "k1", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "bob", second.Name)
}

func TestAside_WithoutRedisClientStillFetches(t *testing.T) {
	SetClient(nil)

	fetched := false
	var dest cachedThing
	err := Aside(context.Background(), "k1", &dest, time.Minute, func() error {
		fetched = true
		dest.Name = "carol"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, "carol", dest.Name)
}

func TestInvalidateUser_DropsBothKeys(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey("u1"), cachedThing{Name: "alice"}, time.Minute))
	require.NoError(t, SetJSON(ctx, ProfileKey("u1"), cachedThing{Name: "alice"}, time.Minute))

	InvalidateUser(ctx, "u1")

	assert.False(t, mr.Exists(UserKey("u1")))
	assert.False(t, mr.Exists(ProfileKey("u1")))
}

func TestSetJSON_AppliesTTL(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "k1", cachedThing{}, time.Minute))

	mr.FastForward(2 * time.Minute)

	var got cachedThing
	found, err := GetJSON(ctx, "k1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
