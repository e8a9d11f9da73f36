package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/menupulse/internal/broadcast"
	"github.com/pscheid92/menupulse/internal/domain"
	"github.com/pscheid92/menupulse/internal/platform/config"
)

const testRemoteAddr = "192.0.2.10:4321"

// --- Mock implementations ---

type mockDishService struct {
	listDishesFn    func(ctx context.Context) ([]domain.Dish, error)
	togglePublishFn func(ctx context.Context, id int64) (domain.Dish, error)
	bulkUpdateFn    func(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error)
}

func (m *mockDishService) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	if m.listDishesFn != nil {
		return m.listDishesFn(ctx)
	}
	return []domain.Dish{}, nil
}

func (m *mockDishService) TogglePublish(ctx context.Context, id int64) (domain.Dish, error) {
	if m.togglePublishFn != nil {
		return m.togglePublishFn(ctx, id)
	}
	return domain.Dish{}, errors.New("not implemented")
}

func (m *mockDishService) BulkUpdate(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
	if m.bulkUpdateFn != nil {
		return m.bulkUpdateFn(ctx, updates)
	}
	return nil, errors.New("not implemented")
}

type mockHub struct {
	mu           sync.Mutex
	registerErr  error
	registered   []broadcast.Conn
	unregistered []uuid.UUID
}

func (m *mockHub) Register(conn broadcast.Conn) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return uuid.Nil, m.registerErr
	}
	m.registered = append(m.registered, conn)
	return uuid.New(), nil
}

func (m *mockHub) Unregister(channelID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, channelID)
}

func (m *mockHub) counts() (registered, unregistered int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registered), len(m.unregistered)
}

// --- Test helpers ---

type serverOptions struct {
	cfg    *config.Config
	hub    liveHub
	checks []HealthCheck
	clock  clockwork.Clock
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                       "development",
		Port:                         "0",
		StoreDriver:                  config.StoreDriverMemory,
		CORSOrigins:                  "*",
		MutationRateLimit:            1000,
		MutationRateBurst:            1000,
		MaxWebSocketConnections:      100,
		MaxWebSocketConnectionsPerIP: 10,
		WebSocketConnectRate:         100,
		WebSocketConnectBurst:        100,
	}
}

func newTestServer(t *testing.T, app dishService, opts ...func(*serverOptions)) *Server {
	t.Helper()

	o := &serverOptions{
		cfg:   testConfig(),
		hub:   &mockHub{},
		clock: clockwork.NewFakeClock(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return NewServer(o.cfg, app, o.hub, prometheus.NewRegistry(), o.checks, o.clock)
}

func withConfig(fn func(*config.Config)) func(*serverOptions) {
	return func(o *serverOptions) {
		fn(o.cfg)
	}
}

func withHub(hub liveHub) func(*serverOptions) {
	return func(o *serverOptions) {
		o.hub = hub
	}
}

func withHealthChecks(checks ...HealthCheck) func(*serverOptions) {
	return func(o *serverOptions) {
		o.checks = checks
	}
}

func withClock(clock clockwork.Clock) func(*serverOptions) {
	return func(o *serverOptions) {
		o.clock = clock
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

// doRequest runs a request through the full router and middleware stack.
func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = testRemoteAddr

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
