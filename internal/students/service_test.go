// internal/students/service_test.go
package students

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

type memoryStore struct {
	mu       sync.Mutex
	students map[string]*Student
	gets     int
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{students: map[string]*Student{}}
}

func (m *memoryStore) Save(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = fixedTime
	}
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.students[id]
	if !ok {
		return nil, apperrors.NewStudentNotFoundError(id)
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) List(context.Context) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Summary{}
	for id, s := range m.students {
		out = append(out, Summary{ID: id, SavedAt: s.SavedAt})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return apperrors.NewStudentNotFoundError(id)
	}
	delete(m.students, id)
	return nil
}

func (m *memoryStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	return len(m.students), nil
}

type recordingIndex struct {
	mu      sync.Mutex
	puts    []string
	removes []string
	counts  map[string]int64
	err     error
}

func (r *recordingIndex) Put(_ context.Context, rec *StudentRecommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts = append(r.puts, rec.StudentID)
	return r.err
}

func (r *recordingIndex) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removes = append(r.removes, id)
	return r.err
}

func (r *recordingIndex) CategoryCounts(context.Context) (map[string]int64, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.counts, nil
}

func newTestService(t *testing.T, index Index) (*Service, *memoryStore, *RedisCache) {
	t.Helper()
	_, client := setupTestRedis(t)
	store := newMemoryStore()
	cache := NewRedisCache(client, time.Minute)
	return NewService(store, cache, index, nil, logger.NewTestLogger(t)), store, cache
}

// ==========================
// Tests
// ==========================

func TestService_Recommend_ReadThrough(t *testing.T) {
	index := &recordingIndex{}
	svc, store, _ := newTestService(t, index)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))

	first, cached, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, recommendation.AreaLecturaCritica, first.Result.TopAreas[0].Area)

	second, cached, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.Result, second.Result)

	assert.Equal(t, 1, store.gets)
	assert.Equal(t, []string{"EST001"}, index.puts)
}

func TestService_Recommend_RegeneratesIncompleteCacheEntry(t *testing.T) {
	svc, _, cache := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))
	require.NoError(t, cache.client.Set(ctx, cacheKey("EST001"), `{"estudiante_id":"EST001"}`, time.Minute).Err())

	rec, cached, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)
	assert.False(t, cached)
	require.NotNil(t, rec.Result)
	assert.Len(t, rec.Result.TopAreas, 2)

	// The regenerated entry replaced the incomplete one.
	again, cached, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, rec.Result, again.Result)
}

func TestService_Save_InvalidatesCache(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))
	_, _, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)

	updated := createTestStudent("EST001")
	updated.Scores[recommendation.AreaIngles] = 99
	require.NoError(t, svc.Save(ctx, updated))

	rec, cached, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, recommendation.AreaIngles, rec.Result.TopAreas[0].Area)
	assert.Equal(t, 99.0, rec.Result.TopAreas[0].Score)
}

func TestService_Recommend_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, _, err := svc.Recommend(context.Background(), "EST404")
	assertCode(t, err, apperrors.ErrCodeStudentNotFound)
}

func TestService_Recommend_IndexFailureIsNotFatal(t *testing.T) {
	index := &recordingIndex{err: apperrors.NewSearchIndexFailedError("index", errors.New("down"))}
	svc, _, _ := newTestService(t, index)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))

	rec, _, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)
	assert.NotNil(t, rec.Result)
}

func TestService_Recommend_WithoutCache(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, nil, nil, logger.NewNoOpLogger())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))
	for i := 0; i < 2; i++ {
		_, cached, err := svc.Recommend(ctx, "EST001")
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, 2, store.gets)
}

func TestService_Delete(t *testing.T) {
	index := &recordingIndex{}
	svc, _, cache := newTestService(t, index)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))
	_, _, err := svc.Recommend(ctx, "EST001")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "EST001"))

	_, ok, err := cache.Get(ctx, "EST001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"EST001"}, index.removes)

	err = svc.Delete(ctx, "EST001")
	assertCode(t, err, apperrors.ErrCodeStudentNotFound)

	_, _, err = svc.Recommend(ctx, "EST001")
	assertCode(t, err, apperrors.ErrCodeStudentNotFound)
}

func TestService_Stats(t *testing.T) {
	t.Run("with index", func(t *testing.T) {
		index := &recordingIndex{counts: map[string]int64{"STEM": 2}}
		svc, _, _ := newTestService(t, index)
		ctx := context.Background()
		require.NoError(t, svc.Save(ctx, createTestStudent("EST001")))
		require.NoError(t, svc.Save(ctx, createTestStudent("EST002")))

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, map[string]int64{"STEM": 2}, stats.Categories)
	})

	t.Run("aggregation failure keeps total", func(t *testing.T) {
		index := &recordingIndex{err: errors.New("down")}
		svc, _, _ := newTestService(t, index)

		stats, err := svc.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)
		assert.Nil(t, stats.Categories)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil)
		store.failWith = apperrors.NewQueryExecutionFailedError("count", errors.New("down"))

		_, err := svc.Stats(context.Background())
		assertCode(t, err, apperrors.ErrCodeQueryExecutionFailed)
	})
}
