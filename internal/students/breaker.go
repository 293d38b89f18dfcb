// internal/students/breaker.go
package students

import (
	"context"
	"errors"
	"time"

	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/common/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes BreakerIndex. Zero fields take the defaults of
// NewBreakerIndex.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the circuit.
	Failures uint32
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
}

// BreakerIndex guards an Index with a circuit breaker so that a downed
// search cluster is skipped instead of timing out every request.
type BreakerIndex struct {
	next Index
	cb   *gobreaker.CircuitBreaker[map[string]int64]
	name string
}

func NewBreakerIndex(next Index, name string, settings BreakerSettings, log logger.Logger) *BreakerIndex {
	if settings.Failures == 0 {
		settings.Failures = 5
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"breaker": name})

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[map[string]int64](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerIndex{next: next, cb: cb, name: name}
}

func (b *BreakerIndex) Put(ctx context.Context, rec *StudentRecommendation) error {
	_, err := b.execute(func() (map[string]int64, error) {
		return nil, b.next.Put(ctx, rec)
	})
	return err
}

func (b *BreakerIndex) Remove(ctx context.Context, id string) error {
	_, err := b.execute(func() (map[string]int64, error) {
		return nil, b.next.Remove(ctx, id)
	})
	return err
}

func (b *BreakerIndex) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	return b.execute(func() (map[string]int64, error) {
		return b.next.CategoryCounts(ctx)
	})
}

// State reports the breaker state.
func (b *BreakerIndex) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerIndex) execute(fn func() (map[string]int64, error)) (map[string]int64, error) {
	out, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	}
	return out, err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
