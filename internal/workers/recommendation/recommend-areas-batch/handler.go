// internal/workers/recommendation/recommend-areas-batch/handler.go
package recommendareasbatch

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
	"github.com/google/uuid"
)

const (
	TaskType = "recommend-areas-batch"
)

type Handler struct {
	config       *Config
	runner       *recommendation.BatchRunner
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	newID        func() string
}

func NewHandler(config *Config, engine *recommendation.Engine, log logger.Logger) *Handler {
	if engine == nil {
		engine = recommendation.NewEngine(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		runner:       recommendation.NewBatchRunner(engine, config.Concurrency, log),
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
		newID:        uuid.NewString,
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
	if h.config.MaxStudents > 0 && len(input.Students) > h.config.MaxStudents {
		return nil, apperrors.NewInvalidRequestError(
			fmt.Sprintf("batch of %d students exceeds the limit of %d", len(input.Students), h.config.MaxStudents))
	}

	rows := make([]recommendation.Row, len(input.Students))
	for i, s := range input.Students {
		rows[i] = recommendation.Row{Index: i, StudentID: s.StudentID, Scores: s.Scores}
	}

	outcome, err := h.runner.Run(ctx, rows)
	if err != nil {
		return nil, err
	}

	output := &Output{
		BatchID:   h.newID(),
		Processed: len(outcome.Results),
		Failed:    len(outcome.Failures),
		Results:   make([]StudentResult, 0, len(outcome.Results)),
		Failures:  make([]FailedStudent, 0, len(outcome.Failures)),
	}
	for _, r := range outcome.Results {
		output.Results = append(output.Results, StudentResult{
			Index:           r.Index,
			StudentID:       r.StudentID,
			TopAreas:        r.TopAreas,
			Recommendations: r.Recommendations,
		})
	}
	for _, f := range outcome.Failures {
		metrics.RecommendationFailures.WithLabelValues("worker", string(apperrors.ErrCodeMissingArea)).Inc()
		output.Failures = append(output.Failures, FailedStudent{
			Index:     f.Index,
			StudentID: f.StudentID,
			Error:     f.Error,
		})
	}

	h.logger.Info("batch recommended", map[string]interface{}{
		"batchId":   output.BatchID,
		"processed": output.Processed,
		"failed":    output.Failed,
	})

	return output, nil
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
