// internal/students/cache_test.go
package students

import (
	"context"
	"testing"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/recommendation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func createTestRecommendation(t *testing.T, id string) *StudentRecommendation {
	t.Helper()
	student := createTestStudent(id)
	result, err := recommendation.NewEngine(nil).Recommend(student.Scores)
	require.NoError(t, err)
	return &StudentRecommendation{
		StudentID:   id,
		Scores:      student.Scores,
		Result:      result,
		GeneratedAt: fixedTime,
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client, 5*time.Minute)
	ctx := context.Background()

	rec := createTestRecommendation(t, "EST001")
	require.NoError(t, cache.Set(ctx, rec))

	assert.True(t, mr.Exists("student:recommendation:EST001"))
	assert.Equal(t, 5*time.Minute, mr.TTL("student:recommendation:EST001"))

	got, ok, err := cache.Get(ctx, "EST001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestRedisCache_Miss(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewRedisCache(client, time.Minute)

	got, ok, err := cache.Get(context.Background(), "EST404")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedisCache_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, createTestRecommendation(t, "EST001")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "EST001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client, time.Minute)

	require.NoError(t, mr.Set("student:recommendation:EST001", "{not json"))

	_, ok, err := cache.Get(context.Background(), "EST001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_IncompleteEntryIsMiss(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{name: "no result", entry: `{"estudiante_id":"EST001"}`},
		{name: "null result", entry: `{"estudiante_id":"EST001","puntuaciones":{"Ingles":75},"resultado":null}`},
		{name: "one top area", entry: `{"estudiante_id":"EST001","puntuaciones":{"Ingles":75},"resultado":{"top_areas":[{"area":"Ingles","puntuacion":75,"categoria":"Humanidades"}]}}`},
		{name: "no scores", entry: `{"estudiante_id":"EST001","resultado":{"top_areas":[{"area":"Ingles"},{"area":"Matematicas"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := setupTestRedis(t)
			cache := NewRedisCache(client, time.Minute)
			require.NoError(t, mr.Set("student:recommendation:EST001", tt.entry))

			got, ok, err := cache.Get(context.Background(), "EST001")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestRedisCache_Invalidate(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, createTestRecommendation(t, "EST001")))
	require.NoError(t, cache.Invalidate(ctx, "EST001"))
	assert.False(t, mr.Exists("student:recommendation:EST001"))

	// Invalidating an absent key is fine.
	assert.NoError(t, cache.Invalidate(ctx, "EST404"))
}

func TestRedisCache_ConnectionError(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client, time.Minute)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "EST001")
	assertCode(t, err, apperrors.ErrCodeCacheOperationFailed)
}
