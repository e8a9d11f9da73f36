package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/pscheid92/menupulse/internal/domain"
)

// BreakerConfig tunes the store circuit breaker: it opens once FailureThreshold of the
// last Capacity calls failed with a storage error, and probes again after Delay.
type BreakerConfig struct {
	FailureThreshold uint
	Capacity         uint
	Delay            time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Capacity: 10, Delay: 30 * time.Second}
}

// BreakerRepo guards a DishRepository with a circuit breaker so a dead database
// fails requests fast instead of stacking them up behind the transaction timeout.
// Only storage errors count as failures; ErrDishNotFound is a healthy answer.
type BreakerRepo struct {
	next    domain.DishRepository
	cb      circuitbreaker.CircuitBreaker[any]
	metrics *metrics.StoreMetrics
}

var _ domain.DishRepository = (*BreakerRepo)(nil)

func NewBreakerRepo(next domain.DishRepository, cfg BreakerConfig, m *metrics.StoreMetrics) *BreakerRepo {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(cfg.FailureThreshold, cfg.Capacity).
		WithDelay(cfg.Delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "dish_store",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			m.BreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
			m.BreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &BreakerRepo{next: next, cb: cb, metrics: m}
}

func (r *BreakerRepo) ListAll(ctx context.Context) ([]domain.Dish, error) {
	return guard(r, func() ([]domain.Dish, error) { return r.next.ListAll(ctx) })
}

func (r *BreakerRepo) Toggle(ctx context.Context, id int64) (domain.Dish, error) {
	return guard(r, func() (domain.Dish, error) { return r.next.Toggle(ctx, id) })
}

func (r *BreakerRepo) BulkSet(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
	return guard(r, func() ([]domain.Dish, error) { return r.next.BulkSet(ctx, updates) })
}

func (r *BreakerRepo) State() circuitbreaker.State {
	return r.cb.State()
}

func guard[T any](r *BreakerRepo, op func() (T, error)) (T, error) {
	if !r.cb.TryAcquirePermit() {
		r.metrics.BreakerRejections.Inc()
		var zero T
		return zero, fmt.Errorf("dish store circuit breaker open: %w: %w", domain.ErrStorageUnavailable, circuitbreaker.ErrOpen)
	}

	val, err := op()
	if isStoreFailure(err) {
		r.cb.RecordError(err)
	} else {
		r.cb.RecordSuccess()
	}
	return val, err
}

// isStoreFailure ignores caller cancellations, which say nothing about database health.
func isStoreFailure(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable) && !errors.Is(err, context.Canceled)
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}
