// internal/workers/recommendation/fetch-student-recommendation/handler.go
package fetchstudentrecommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/common/metrics"
	"icfes-recommender/internal/students"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "fetch-student-recommendation"
)

// Recommender is the part of students.Service the worker needs.
type Recommender interface {
	Recommend(ctx context.Context, studentID string) (*students.StudentRecommendation, bool, error)
}

type Handler struct {
	config       *Config
	service      Recommender
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service Recommender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		// Storage errors are retried by the handler; an unknown student is
		// thrown as STUDENT_NOT_FOUND.
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	id := strings.TrimSpace(input.StudentID)
	if id == "" {
		return nil, apperrors.NewInvalidRequestError("studentId is required")
	}

	rec, cached, err := h.service.Recommend(ctx, id)
	if err != nil {
		return nil, err
	}

	h.logger.Info("student recommendation fetched", map[string]interface{}{
		"studentId": id,
		"cached":    cached,
		"topArea":   rec.Result.TopAreas[0].Area,
	})

	return &Output{
		StudentID:       rec.StudentID,
		Scores:          rec.Scores.ByField(),
		TopAreas:        rec.Result.TopAreas,
		Recommendations: rec.Result.Recommendations,
		PrimaryCategory: rec.Result.TopAreas[0].Category,
		Cached:          cached,
		GeneratedAt:     rec.GeneratedAt,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
