// internal/students/service.go
package students

import (
	"context"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/common/metrics"
	"icfes-recommender/internal/recommendation"
)

// Stats summarizes the saved cohort.
type Stats struct {
	Total      int              `json:"total_estudiantes"`
	Categories map[string]int64 `json:"categorias,omitempty"`
}

// Service ties the score store to the engine. Recommendations are read
// through the cache and published to the search index when one is set.
// Cache and index failures are logged and never fail a request.
type Service struct {
	store  Store
	cache  Cache
	index  Index
	engine *recommendation.Engine
	logger logger.Logger
	now    func() time.Time
}

// NewService builds a Service. cache and index may be nil.
func NewService(store Store, cache Cache, index Index, engine *recommendation.Engine, log logger.Logger) *Service {
	if engine == nil {
		engine = recommendation.NewEngine(nil)
	}
	return &Service{
		store:  store,
		cache:  cache,
		index:  index,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"component": "student-service"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Engine() *recommendation.Engine {
	return s.engine
}

// Save stores the record and drops any cached recommendation for it.
func (s *Service) Save(ctx context.Context, student *Student) error {
	if err := s.store.Save(ctx, student); err != nil {
		return err
	}
	s.invalidate(ctx, student.ID)

	s.logger.Info("student scores saved", map[string]interface{}{
		"studentId": student.ID,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.store.List(ctx)
}

// Delete removes the record, its cached recommendation and its index
// document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			s.logger.Warn("failed to remove index document", map[string]interface{}{
				"studentId": id,
				"error":     err.Error(),
			})
		}
	}

	s.logger.Info("student deleted", map[string]interface{}{"studentId": id})
	return nil
}

// Recommend returns the recommendation for a saved student. The bool
// reports whether it was served from cache.
func (s *Service) Recommend(ctx context.Context, id string) (*StudentRecommendation, bool, error) {
	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			metrics.RecommendationCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("recommendation cache read failed", map[string]interface{}{
				"studentId": id,
				"error":     err.Error(),
			})
		case ok:
			metrics.RecommendationCacheLookups.WithLabelValues("hit").Inc()
			return rec, true, nil
		default:
			metrics.RecommendationCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	student, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	result, err := s.engine.Recommend(student.Scores)
	if err != nil {
		stdErr := apperrors.FromError(err)
		metrics.RecommendationFailures.WithLabelValues("service", string(stdErr.Code)).Inc()
		return nil, false, stdErr
	}
	metrics.RecommendationsGenerated.WithLabelValues(string(result.Branch())).Inc()

	rec := &StudentRecommendation{
		StudentID:   id,
		Scores:      student.Scores,
		Result:      result,
		GeneratedAt: s.now(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rec); err != nil {
			s.logger.Warn("recommendation cache write failed", map[string]interface{}{
				"studentId": id,
				"error":     err.Error(),
			})
		}
	}
	if s.index != nil {
		if err := s.index.Put(ctx, rec); err != nil {
			s.logger.Warn("recommendation indexing failed", map[string]interface{}{
				"studentId": id,
				"error":     err.Error(),
			})
		}
	}

	return rec, false, nil
}

// Stats counts saved students and, with an index, the primary category
// distribution.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: total}
	if s.index != nil {
		counts, err := s.index.CategoryCounts(ctx)
		if err != nil {
			s.logger.Warn("category aggregation failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			stats.Categories = counts
		}
	}
	return stats, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("recommendation cache invalidation failed", map[string]interface{}{
			"studentId": id,
			"error":     err.Error(),
		})
	}
}
