// internal/api/handlers.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/metrics"
	"icfes-recommender/internal/common/validation"
	"icfes-recommender/internal/recommendation"
	"icfes-recommender/internal/students"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ==========================
// Request / response bodies
// ==========================

type predictRequest struct {
	StudentID              string  `json:"estudiante_id"`
	PuntIngles             float64 `json:"punt_ingles"`
	PuntMatematicas        float64 `json:"punt_matematicas"`
	PuntSocialesCiudadanas float64 `json:"punt_sociales_ciudadanas"`
	PuntCNaturales         float64 `json:"punt_c_naturales"`
	PuntLecturaCritica     float64 `json:"punt_lectura_critica"`
}

func (p predictRequest) scores() recommendation.ScoreRecord {
	return recommendation.ScoreRecord{
		recommendation.AreaIngles:             p.PuntIngles,
		recommendation.AreaMatematicas:        p.PuntMatematicas,
		recommendation.AreaSocialesCiudadanas: p.PuntSocialesCiudadanas,
		recommendation.AreaCienciasNaturales:  p.PuntCNaturales,
		recommendation.AreaLecturaCritica:     p.PuntLecturaCritica,
	}
}

type predictResponse struct {
	Message   string    `json:"mensaje"`
	StudentID string    `json:"estudiante_id"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"estado"`
}

type recommendationResponse struct {
	StudentID       string                          `json:"estudiante_id"`
	Timestamp       time.Time                       `json:"timestamp"`
	Scores          map[string]float64              `json:"puntuaciones"`
	TopAreas        []recommendation.TopArea        `json:"top_areas"`
	Recommendations []recommendation.Recommendation `json:"recomendaciones"`
	Message         string                          `json:"mensaje"`
}

type scoresResponse struct {
	TopAreas        []recommendation.TopArea        `json:"top_areas"`
	Recommendations []recommendation.Recommendation `json:"recomendaciones"`
	Message         string                          `json:"mensaje"`
}

type batchRequest struct {
	Students []struct {
		StudentID string             `json:"estudiante_id"`
		Scores    map[string]float64 `json:"puntuaciones"`
	} `json:"students"`
}

type batchResult struct {
	Index           int                             `json:"indice"`
	StudentID       string                          `json:"estudiante_id,omitempty"`
	Scores          map[string]float64              `json:"puntuaciones"`
	TopAreas        []recommendation.TopArea        `json:"top_areas"`
	Recommendations []recommendation.Recommendation `json:"recomendaciones"`
}

type batchResponse struct {
	BatchID   string                      `json:"batch_id"`
	Total     int                         `json:"total"`
	Processed int                         `json:"procesados"`
	Failed    []recommendation.RowFailure `json:"fallidos"`
	Results   []batchResult               `json:"resultados"`
}

type studentResponse struct {
	StudentID string             `json:"estudiante_id"`
	Scores    map[string]float64 `json:"puntuaciones"`
	SavedAt   time.Time          `json:"timestamp_guardado"`
}

type studentListResponse struct {
	Total    int                `json:"total_estudiantes"`
	Students []students.Summary `json:"estudiantes"`
}

type deleteResponse struct {
	Message   string    `json:"mensaje"`
	Timestamp time.Time `json:"timestamp"`
}

type statsResponse struct {
	Timestamp  time.Time        `json:"timestamp"`
	Total      int              `json:"total_estudiantes"`
	Categories map[string]int64 `json:"categorias,omitempty"`
}

// ==========================
// Service endpoints
// ==========================

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"nombre":      serviceName,
		"version":     s.version,
		"descripcion": "Sistema de recomendación de áreas de estudio",
		"flujo": map[string]string{
			"paso_1": "POST /predict - Guardar puntuaciones del estudiante",
			"paso_2": "GET /recommendation/{estudiante_id} - Obtener recomendación",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"servicio": serviceName,
		"version":  s.version,
	})
}

// handleReady runs every dependency check; any failure answers 503.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(s.checks))
	status := http.StatusOK
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	s.respondJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   s.now().Format(time.RFC3339),
	})
}

// ==========================
// Recommendation endpoints
// ==========================

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readValidated(w, r, validation.Predict)
	if !ok {
		return
	}
	var req predictRequest
	if !s.decode(w, r, raw, &req) {
		return
	}

	id := strings.TrimSpace(req.StudentID)
	if id == "" {
		s.respondError(w, r, apperrors.NewInvalidRequestError("estudiante_id is required"))
		return
	}

	if err := s.service.Save(r.Context(), &students.Student{ID: id, Scores: req.scores()}); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, predictResponse{
		Message:   fmt.Sprintf("Datos del estudiante %s guardados exitosamente", id),
		StudentID: id,
		Timestamp: s.now(),
		State:     "guardado",
	})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, cached, err := s.service.Recommend(r.Context(), id)
	if err != nil {
		if apperrors.FromError(err).Code == apperrors.ErrCodeStudentNotFound {
			err = withMessage(err, fmt.Sprintf("No se encontraron datos para el estudiante %s", id))
		}
		s.respondError(w, r, err)
		return
	}
	s.record(r.Context(), "api", cached)

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	s.respondJSON(w, http.StatusOK, recommendationResponse{
		StudentID:       rec.StudentID,
		Timestamp:       s.now(),
		Scores:          rec.Scores.ByColumn(),
		TopAreas:        rec.Result.TopAreas,
		Recommendations: rec.Result.Recommendations,
		Message:         "Recomendación generada exitosamente",
	})
}

// handleRecommendScores recommends for a score map without storing it.
// Only numeric values are enforced up front so that a missing area is
// reported by the engine as MISSING_AREA.
func (s *Server) handleRecommendScores(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readValidated(w, r, validation.Scores)
	if !ok {
		return
	}
	var fields map[string]float64
	if !s.decode(w, r, raw, &fields) {
		return
	}

	result, err := s.engine.Recommend(recommendation.ScoresFromFields(fields))
	if err != nil {
		stdErr := apperrors.FromError(err)
		metrics.RecommendationFailures.WithLabelValues("api", string(stdErr.Code)).Inc()
		s.respondError(w, r, stdErr)
		return
	}
	metrics.RecommendationsGenerated.WithLabelValues(string(result.Branch())).Inc()
	s.record(r.Context(), "api", false)

	s.respondJSON(w, http.StatusOK, scoresResponse{
		TopAreas:        result.TopAreas,
		Recommendations: result.Recommendations,
		Message:         "Recomendación generada exitosamente",
	})
}

func (s *Server) handleRecommendBatch(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readValidated(w, r, validation.Batch)
	if !ok {
		return
	}
	var req batchRequest
	if !s.decode(w, r, raw, &req) {
		return
	}

	rows := make([]recommendation.Row, len(req.Students))
	for i, st := range req.Students {
		rows[i] = recommendation.Row{
			Index:     i,
			StudentID: st.StudentID,
			Scores:    recommendation.ScoresFromFields(st.Scores),
		}
	}

	outcome, err := s.batch.Run(r.Context(), rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := batchResponse{
		BatchID:   uuid.NewString(),
		Total:     len(rows),
		Processed: len(outcome.Results),
		Failed:    outcome.Failures,
		Results:   make([]batchResult, 0, len(outcome.Results)),
	}
	for _, res := range outcome.Results {
		resp.Results = append(resp.Results, batchResult{
			Index:           res.Index,
			StudentID:       res.StudentID,
			Scores:          res.Scores.ByColumn(),
			TopAreas:        res.TopAreas,
			Recommendations: res.Recommendations,
		})
		s.record(r.Context(), "batch", false)
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// ==========================
// Student endpoints
// ==========================

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, studentListResponse{
		Total:    len(list),
		Students: list,
	})
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	student, err := s.service.Get(r.Context(), id)
	if err != nil {
		if apperrors.FromError(err).Code == apperrors.ErrCodeStudentNotFound {
			err = withMessage(err, fmt.Sprintf("No se encontraron datos para %s", id))
		}
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, studentResponse{
		StudentID: student.ID,
		Scores:    student.Scores.ByColumn(),
		SavedAt:   student.SavedAt,
	})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.service.Delete(r.Context(), id); err != nil {
		if apperrors.FromError(err).Code == apperrors.ErrCodeStudentNotFound {
			err = withMessage(err, fmt.Sprintf("Estudiante %s no encontrado", id))
		}
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, deleteResponse{
		Message:   fmt.Sprintf("Datos del estudiante %s eliminados", id),
		Timestamp: s.now(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, statsResponse{
		Timestamp:  s.now(),
		Total:      stats.Total,
		Categories: stats.Categories,
	})
}
