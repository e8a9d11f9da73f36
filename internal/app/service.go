package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/pscheid92/menupulse/internal/domain"
)

const (
	opToggle = "toggle"
	opBulk   = "bulk"

	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

// Service orchestrates publish-state changes: commit through the repository, then broadcast the committed result.
type Service struct {
	dishes      domain.DishRepository
	broadcaster domain.Broadcaster
	clock       clockwork.Clock
	metrics     *metrics.SyncMetrics
	locks       *keyLock
}

func NewService(dishes domain.DishRepository, broadcaster domain.Broadcaster, clock clockwork.Clock, m *metrics.SyncMetrics) *Service {
	return &Service{
		dishes:      dishes,
		broadcaster: broadcaster,
		clock:       clock,
		metrics:     m,
		locks:       newKeyLock(),
	}
}

// ListDishes returns the full catalog ordered by id.
func (s *Service) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	return s.dishes.ListAll(ctx)
}

// TogglePublish flips one dish and pushes the committed record to every live channel.
// Nothing is broadcast when the dish does not exist or the store fails.
func (s *Service) TogglePublish(ctx context.Context, id int64) (domain.Dish, error) {
	start := s.clock.Now()
	defer func() { s.metrics.MutationDuration.WithLabelValues(opToggle).Observe(s.clock.Since(start).Seconds()) }()

	unlock := s.locks.lock(id)
	defer unlock()

	dish, err := s.dishes.Toggle(ctx, id)
	if err != nil {
		s.recordFailure(ctx, opToggle, err)
		return domain.Dish{}, err
	}

	s.broadcaster.Broadcast(context.WithoutCancel(ctx), domain.NewDishUpdated(dish))
	s.metrics.Mutations.WithLabelValues(opToggle, resultOK).Inc()
	s.metrics.DishesChanged.Inc()

	slog.InfoContext(ctx, "Dish publish state toggled", "dish_id", dish.ID, "published", dish.Published)
	return dish, nil
}

// BulkUpdate sets each dish to the requested value in one transaction.
// Unknown ids are skipped; an empty result is returned without broadcasting.
func (s *Service) BulkUpdate(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
	start := s.clock.Now()
	defer func() { s.metrics.MutationDuration.WithLabelValues(opBulk).Observe(s.clock.Since(start).Seconds()) }()

	ids := make([]int64, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	unlock := s.locks.lock(ids...)
	defer unlock()

	dishes, err := s.dishes.BulkSet(ctx, updates)
	if err != nil {
		s.recordFailure(ctx, opBulk, err)
		return nil, err
	}

	s.metrics.Mutations.WithLabelValues(opBulk, resultOK).Inc()
	if len(dishes) == 0 {
		slog.InfoContext(ctx, "Bulk update matched no dishes", "requested", len(updates))
		return dishes, nil
	}

	s.broadcaster.Broadcast(context.WithoutCancel(ctx), domain.NewAllDishes(dishes))
	s.metrics.DishesChanged.Add(float64(len(dishes)))

	slog.InfoContext(ctx, "Bulk publish update committed", "requested", len(updates), "updated", len(dishes))
	return dishes, nil
}

func (s *Service) recordFailure(ctx context.Context, op string, err error) {
	if errors.Is(err, domain.ErrDishNotFound) {
		s.metrics.Mutations.WithLabelValues(op, resultNotFound).Inc()
		return
	}
	s.metrics.Mutations.WithLabelValues(op, resultError).Inc()
	slog.ErrorContext(ctx, "Publish update failed", "operation", op, "error", err)
}
