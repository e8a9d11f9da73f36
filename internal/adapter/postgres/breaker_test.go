package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/pscheid92/menupulse/internal/domain"
	"github.com/pscheid92/menupulse/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	calls int
	err   error
}

func (s *stubRepo) ListAll(context.Context) ([]domain.Dish, error) {
	s.calls++
	return []domain.Dish{}, s.err
}

func (s *stubRepo) Toggle(_ context.Context, id int64) (domain.Dish, error) {
	s.calls++
	if s.err != nil {
		return domain.Dish{}, s.err
	}
	return domain.Dish{ID: id, Published: true}, nil
}

func (s *stubRepo) BulkSet(context.Context, []domain.PublishUpdate) ([]domain.Dish, error) {
	s.calls++
	return nil, s.err
}

func newTestBreaker(next domain.DishRepository) (*BreakerRepo, *metrics.StoreMetrics) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	cfg := BreakerConfig{FailureThreshold: 3, Capacity: 3, Delay: time.Minute}
	return NewBreakerRepo(next, cfg, m), m
}

func TestBreakerRepo_PassesThrough(t *testing.T) {
	stub := &stubRepo{}
	repo, _ := newTestBreaker(stub)

	dish, err := repo.Toggle(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), dish.ID)
	assert.Equal(t, circuitbreaker.ClosedState, repo.State())
}

func TestBreakerRepo_NotFoundDoesNotTrip(t *testing.T) {
	stub := &stubRepo{err: domain.ErrDishNotFound}
	repo, _ := newTestBreaker(stub)

	for range 10 {
		_, err := repo.Toggle(context.Background(), 999)
		assert.ErrorIs(t, err, domain.ErrDishNotFound)
	}
	assert.Equal(t, circuitbreaker.ClosedState, repo.State())
	assert.Equal(t, 10, stub.calls)
}

func TestBreakerRepo_CancellationDoesNotTrip(t *testing.T) {
	stub := &stubRepo{err: fmt.Errorf("failed to list dishes: %w: %w", domain.ErrStorageUnavailable, context.Canceled)}
	repo, _ := newTestBreaker(stub)

	for range 5 {
		_, _ = repo.ListAll(context.Background())
	}
	assert.Equal(t, circuitbreaker.ClosedState, repo.State())
}

func TestBreakerRepo_OpensOnStorageFailures(t *testing.T) {
	stub := &stubRepo{err: fmt.Errorf("failed to begin transaction: %w: %w", domain.ErrStorageUnavailable, errors.New("connection refused"))}
	repo, m := newTestBreaker(stub)

	for range 3 {
		_, err := repo.BulkSet(context.Background(), []domain.PublishUpdate{{ID: 1, Published: true}})
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	}
	require.Equal(t, circuitbreaker.OpenState, repo.State())

	_, err := repo.Toggle(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 3, stub.calls, "open breaker must not reach the store")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerRejections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState))
}

func TestQueryName(t *testing.T) {
	assert.Equal(t, "SELECT", queryName("select id from dishes"))
	assert.Equal(t, "UPDATE", queryName("\n\tUPDATE dishes SET published = $2"))
	assert.Equal(t, "unknown", queryName("   "))
}

func TestCollapseUpdates(t *testing.T) {
	order, values := collapseUpdates([]domain.PublishUpdate{
		{ID: 3, Published: true},
		{ID: 1, Published: true},
		{ID: 3, Published: false},
	})

	assert.Equal(t, []int64{3, 1}, order)
	assert.Equal(t, map[int64]bool{3: false, 1: true}, values)
}

func TestClassifyConnectError(t *testing.T) {
	assert.Equal(t, retry.Retry, classifyConnectError(errors.New("dial tcp: connection refused")))
	assert.Equal(t, retry.Stop, classifyConnectError(fmt.Errorf("ping: %w", context.Canceled)))
	assert.Equal(t, retry.Stop, classifyConnectError(&pgconn.PgError{Code: "28P01"}))
}

func TestExtractSSLMode(t *testing.T) {
	assert.Equal(t, "disable", extractSSLMode("postgres://u:p@localhost/db?sslmode=DISABLE"))
	assert.Equal(t, "prefer (default)", extractSSLMode("postgres://u:p@localhost/db"))
}
