package ai

import (
	"errors"
	"fmt"
	"time"

	"vlmax-platform/internal/logger"
	"vlmax-platform/internal/telemetry"
	"vlmax-platform/models"

	"github.com/sony/gobreaker"
)

func newBreaker(name string, metrics *telemetry.Metrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})
}

// run executes fn through the breaker and records the call. Every failure
// comes back wrapped in models.ErrModelError.
func run[T any](cb *gobreaker.CircuitBreaker, metrics *telemetry.Metrics, capability string, fn func() (T, error)) (T, error) {
	var zero T
	start := time.Now()

	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	metrics.RecordModelCall(capability, err == nil, time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s unavailable: %v", models.ErrModelError, capability, err)
		}
		if errors.Is(err, models.ErrModelError) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %s: %v", models.ErrModelError, capability, err)
	}
	return result.(T), nil
}
