package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/pscheid92/menupulse/internal/broadcast"
	"github.com/pscheid92/menupulse/internal/domain"
	"github.com/pscheid92/menupulse/internal/platform/config"
)

type dishService interface {
	ListDishes(ctx context.Context) ([]domain.Dish, error)
	TogglePublish(ctx context.Context, id int64) (domain.Dish, error)
	BulkUpdate(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error)
}

type liveHub interface {
	Register(conn broadcast.Conn) (uuid.UUID, error)
	Unregister(channelID uuid.UUID)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	app dishService
	hub liveHub

	upgrader       websocket.Upgrader
	limits         *ConnectionLimits
	httpMetrics    *metrics.HTTPMetrics
	connMetrics    *metrics.ConnectionMetrics
	metricsHandler http.Handler

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app dishService, hub liveHub, registry *prometheus.Registry, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		clock:  clock,
		app:    app,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     newCheckOrigin(cfg.AppURL, cfg.AllowedOrigins(), cfg.IsDevelopment()),
		},
		limits: NewConnectionLimits(
			clock,
			int64(cfg.MaxWebSocketConnections),
			cfg.MaxWebSocketConnectionsPerIP,
			cfg.WebSocketConnectRate,
			cfg.WebSocketConnectBurst,
		),
		httpMetrics:    metrics.NewHTTPMetrics(registry),
		connMetrics:    metrics.NewConnectionMetrics(registry),
		metricsHandler: metrics.Handler(registry),
		healthChecks:   healthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}
