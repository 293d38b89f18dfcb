// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/recommendation"
	"icfes-recommender/internal/students"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "API de Recomendación ICFES"

// StudentService is the stored-student surface the handlers call.
// *students.Service implements it.
type StudentService interface {
	Save(ctx context.Context, student *students.Student) error
	Get(ctx context.Context, id string) (*students.Student, error)
	List(ctx context.Context) ([]students.Summary, error)
	Delete(ctx context.Context, id string) error
	Recommend(ctx context.Context, id string) (*students.StudentRecommendation, bool, error)
	Stats(ctx context.Context) (*students.Stats, error)
}

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// RecommendationRecorder counts served recommendations.
type RecommendationRecorder interface {
	RecordRecommendation(ctx context.Context, surface string, cached bool)
}

type Options struct {
	Service          StudentService
	Engine           *recommendation.Engine
	BatchConcurrency int
	Checks           map[string]Check
	Recorder         RecommendationRecorder
	AllowOrigins     []string
	RateLimit        int // requests per minute per client IP, 0 disables
	Version          string
	Logger           logger.Logger
}

type Server struct {
	service  StudentService
	engine   *recommendation.Engine
	batch    *recommendation.BatchRunner
	checks   map[string]Check
	recorder RecommendationRecorder
	origins  []string
	limit    int
	version  string
	logger   logger.Logger
	now      func() time.Time
}

func NewServer(opts Options) *Server {
	engine := opts.Engine
	if engine == nil {
		engine = recommendation.NewEngine(nil)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "api"})

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	version := opts.Version
	if version == "" {
		version = "1.0.0"
	}

	return &Server{
		service:  opts.Service,
		engine:   engine,
		batch:    recommendation.NewBatchRunner(engine, opts.BatchConcurrency, log),
		checks:   opts.Checks,
		recorder: opts.Recorder,
		origins:  origins,
		limit:    opts.RateLimit,
		version:  version,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Cache"},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.limit > 0 {
			r.Use(httprate.LimitByIP(s.limit, time.Minute))
		}

		r.Post("/predict", s.handlePredict)
		r.Get("/recommendation/{id}", s.handleRecommendation)
		r.Post("/recommendations", s.handleRecommendScores)
		r.Post("/recommendations/batch", s.handleRecommendBatch)

		r.Get("/students", s.handleListStudents)
		r.Get("/student/{id}", s.handleGetStudent)
		r.Delete("/student/{id}", s.handleDeleteStudent)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) record(ctx context.Context, surface string, cached bool) {
	if s.recorder != nil {
		s.recorder.RecordRecommendation(ctx, surface, cached)
	}
}
