package camunda

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"icfes-recommender/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

// nopJobClient hands out nil commands; handlers under test only need to
// pick one.
type nopJobClient struct {
	worker.JobClient
}

func (nopJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (nopJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (nopJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

type handlerFunc func(worker.JobClient, entities.Job)

func (f handlerFunc) Handle(c worker.JobClient, j entities.Job) { f(c, j) }

type recordedJob struct {
	taskType string
	status   string
}

type fakeRecorder struct {
	mu        sync.Mutex
	processed []recordedJob
	durations int
}

func (r *fakeRecorder) RecordJobProcessed(_ context.Context, taskType, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, recordedJob{taskType, status})
}

func (r *fakeRecorder) RecordJobDuration(context.Context, string, time.Duration, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

func testJob() entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "recommend-areas", Retries: 3}}
}

// ==========================
// Instrument
// ==========================

func TestInstrument_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name   string
		handle func(worker.JobClient)
		want   string
	}{
		{name: "completed", handle: func(c worker.JobClient) { c.NewCompleteJobCommand() }, want: StatusCompleted},
		{name: "failed", handle: func(c worker.JobClient) { c.NewFailJobCommand() }, want: StatusFailed},
		{name: "bpmn error", handle: func(c worker.JobClient) { c.NewThrowErrorCommand() }, want: StatusThrown},
		{name: "no answer", handle: func(worker.JobClient) {}, want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			h := Instrument("recommend-areas", handlerFunc(func(c worker.JobClient, _ entities.Job) {
				tt.handle(c)
			}), rec)

			h(nopJobClient{}, testJob())

			require.Len(t, rec.processed, 1)
			assert.Equal(t, recordedJob{"recommend-areas", tt.want}, rec.processed[0])
			assert.Equal(t, 1, rec.durations)
		})
	}
}

func TestInstrument_NilRecorder(t *testing.T) {
	called := false
	h := Instrument("recommend-areas", handlerFunc(func(worker.JobClient, entities.Job) {
		called = true
	}), nil)

	assert.NotPanics(t, func() { h(nopJobClient{}, testJob()) })
	assert.True(t, called)
}

// ==========================
// Retry and error mapping
// ==========================

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	attempts := 0
	err := executeWithRetry(context.Background(), fastRetry, "topology", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	attempts := 0
	err := executeWithRetry(context.Background(), fastRetry, "topology", func(context.Context) error {
		attempts++
		return stderrors.New("connection reset by peer")
	})

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeWorkflowEngineFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "after 2 retries")
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_PermanentErrorIsNotRetried(t *testing.T) {
	attempts := 0
	err := executeWithRetry(context.Background(), fastRetry, "publish", func(context.Context) error {
		attempts++
		return stderrors.New("permission denied")
	})

	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, 1, attempts)
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code errors.ErrorCode
	}{
		{"context deadline exceeded", errors.ErrCodeQueryTimeout},
		{"request timeout", errors.ErrCodeQueryTimeout},
		{"connection refused", errors.ErrCodeWorkflowEngineFailed},
		{"job not found", errors.ErrCodeWorkflowEngineFailed},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got := mapZeebeError(stderrors.New(tt.msg), "complete", 0)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}
