// internal/recommendation/batch.go
package recommendation

import (
	"context"
	"sync"
	"time"

	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/common/metrics"
)

// Row is one student of a batch.
type Row struct {
	Index     int         `json:"index"`
	StudentID string      `json:"studentId,omitempty"`
	Scores    ScoreRecord `json:"scores"`
}

// StudentResult pairs a batch row with its recommendation.
type StudentResult struct {
	Index     int         `json:"indice"`
	StudentID string      `json:"estudiante_id,omitempty"`
	Scores    ScoreRecord `json:"puntuaciones"`
	*Result
}

// RowFailure records a row excluded from the batch output.
type RowFailure struct {
	Index     int    `json:"indice"`
	StudentID string `json:"estudiante_id,omitempty"`
	Error     string `json:"error"`
}

// BatchOutcome holds the successful results in input order plus the rows
// that were skipped.
type BatchOutcome struct {
	Results  []StudentResult `json:"resultados"`
	Failures []RowFailure    `json:"fallidos"`
}

// BatchRunner applies the engine to every row independently. A failing
// row is logged and skipped; it never aborts the batch.
type BatchRunner struct {
	engine      *Engine
	logger      logger.Logger
	concurrency int
}

func NewBatchRunner(engine *Engine, concurrency int, log logger.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRunner{
		engine:      engine,
		logger:      log.WithFields(map[string]interface{}{"component": "batch-runner"}),
		concurrency: concurrency,
	}
}

type rowOutcome struct {
	result *StudentResult
	err    error
	done   bool
}

// Run processes rows. The only error returned is the context's, in which
// case rows not yet started are left out of the outcome.
func (b *BatchRunner) Run(ctx context.Context, rows []Row) (*BatchOutcome, error) {
	start := time.Now()
	outcomes := make([]rowOutcome, len(rows))

	if b.concurrency == 1 {
		for i := range rows {
			if ctx.Err() != nil {
				break
			}
			outcomes[i] = b.process(rows[i])
		}
	} else {
		sem := make(chan struct{}, b.concurrency)
		var wg sync.WaitGroup
	loop:
		for i := range rows {
			select {
			case <-ctx.Done():
				break loop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[i] = b.process(rows[i])
			}(i)
		}
		wg.Wait()
	}

	out := &BatchOutcome{
		Results:  make([]StudentResult, 0, len(rows)),
		Failures: []RowFailure{},
	}
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err != nil {
			b.logger.Warn("skipping batch row", map[string]interface{}{
				"row":       rows[i].Index,
				"studentId": rows[i].StudentID,
				"error":     o.err.Error(),
			})
			metrics.BatchRowsProcessed.WithLabelValues("failed").Inc()
			out.Failures = append(out.Failures, RowFailure{
				Index:     rows[i].Index,
				StudentID: rows[i].StudentID,
				Error:     o.err.Error(),
			})
			continue
		}
		metrics.BatchRowsProcessed.WithLabelValues("ok").Inc()
		out.Results = append(out.Results, *o.result)
	}

	b.logger.Info("batch processed", map[string]interface{}{
		"rows":       len(rows),
		"succeeded":  len(out.Results),
		"failed":     len(out.Failures),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return out, ctx.Err()
}

func (b *BatchRunner) process(row Row) rowOutcome {
	res, err := b.engine.Recommend(row.Scores)
	if err != nil {
		return rowOutcome{err: err, done: true}
	}
	metrics.RecommendationsGenerated.WithLabelValues(string(res.Branch())).Inc()
	return rowOutcome{
		result: &StudentResult{
			Index:     row.Index,
			StudentID: row.StudentID,
			Scores:    row.Scores,
			Result:    res,
		},
		done: true,
	}
}
