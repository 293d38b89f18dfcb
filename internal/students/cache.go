// internal/students/cache.go
package students

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/recommendation"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "student:recommendation:"

// StudentRecommendation is a generated recommendation together with the
// scores it was computed from.
type StudentRecommendation struct {
	StudentID   string                     `json:"estudiante_id"`
	Scores      recommendation.ScoreRecord `json:"puntuaciones"`
	Result      *recommendation.Result     `json:"resultado"`
	GeneratedAt time.Time                  `json:"generado"`
}

// Cache holds generated recommendations keyed by student id.
type Cache interface {
	Get(ctx context.Context, id string) (*StudentRecommendation, bool, error)
	Set(ctx context.Context, rec *StudentRecommendation) error
	Invalidate(ctx context.Context, id string) error
}

// RedisCache stores recommendations as JSON with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(id string) string {
	return cacheKeyPrefix + id
}

func (c *RedisCache) Get(ctx context.Context, id string) (*StudentRecommendation, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewCacheOperationFailedError("get", err)
	}

	// Entries that do not decode to a complete result are misses.
	var rec StudentRecommendation
	if err := json.Unmarshal(raw, &rec); err != nil || !rec.complete() {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (r *StudentRecommendation) complete() bool {
	return r.Result != nil && len(r.Result.TopAreas) == 2 && len(r.Scores) > 0
}

func (c *RedisCache) Set(ctx context.Context, rec *StudentRecommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.NewCacheOperationFailedError("encode", err)
	}
	if err := c.client.Set(ctx, cacheKey(rec.StudentID), data, c.ttl).Err(); err != nil {
		return apperrors.NewCacheOperationFailedError("set", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return apperrors.NewCacheOperationFailedError("invalidate", err)
	}
	return nil
}
