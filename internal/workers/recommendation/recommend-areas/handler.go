// internal/workers/recommendation/recommend-areas/handler.go
package recommendareas

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/common/metrics"
	"icfes-recommender/internal/recommendation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "recommend-areas"
)

type Handler struct {
	config       *Config
	engine       *recommendation.Engine
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, engine *recommendation.Engine, log logger.Logger) *Handler {
	if engine == nil {
		engine = recommendation.NewEngine(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
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
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Scores == nil {
		return nil, apperrors.NewInvalidRequestError("scores is required")
	}

	result, err := h.engine.Recommend(input.Scores)
	if err != nil {
		stdErr := apperrors.FromError(err)
		metrics.RecommendationFailures.WithLabelValues("worker", string(stdErr.Code)).Inc()
		return nil, stdErr
	}
	metrics.RecommendationsGenerated.WithLabelValues(string(result.Branch())).Inc()

	h.logger.Info("areas recommended", map[string]interface{}{
		"studentId": input.StudentID,
		"topArea":   result.TopAreas[0].Area,
		"branch":    result.Branch(),
		"programs":  len(result.Recommendations),
	})

	return &Output{
		StudentID:       input.StudentID,
		TopAreas:        result.TopAreas,
		Recommendations: result.Recommendations,
		PrimaryCategory: result.TopAreas[0].Category,
		Branch:          result.Branch(),
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
