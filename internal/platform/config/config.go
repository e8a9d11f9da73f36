package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"3001"`
	StoreDriver string `env:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
	AppURL      string `env:"APP_URL"`
	CORSOrigins string `env:"CORS_ORIGINS" default:"*"`

	StoreTxTimeout    time.Duration `env:"STORE_TX_TIMEOUT" default:"5s"`
	SeedCatalog       bool          `env:"SEED_CATALOG" default:"true"`
	DBConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" default:"5"`

	MutationRateLimit float64 `env:"MUTATION_RATE_LIMIT" default:"20"`
	MutationRateBurst int     `env:"MUTATION_RATE_BURST" default:"40"`

	MaxWebSocketConnections      int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxWebSocketConnectionsPerIP int     `env:"MAX_WEBSOCKET_CONNECTIONS_PER_IP" default:"50"`
	WebSocketConnectRate         float64 `env:"WEBSOCKET_CONNECT_RATE" default:"10"`
	WebSocketConnectBurst        int     `env:"WEBSOCKET_CONNECT_BURST" default:"20"`
}

// IsDevelopment reports whether the relaxed development defaults apply.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

// AllowedOrigins splits CORS_ORIGINS into its entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, cfg.StoreDriver)
	}
	if cfg.StoreTxTimeout <= 0 {
		return errors.New("STORE_TX_TIMEOUT must be positive")
	}
	if cfg.DBConnectAttempts < 1 {
		return errors.New("DB_CONNECT_ATTEMPTS must be at least 1")
	}
	if cfg.MaxWebSocketConnections < 1 || cfg.MaxWebSocketConnectionsPerIP < 1 {
		return errors.New("websocket connection limits must be at least 1")
	}
	if cfg.MutationRateLimit <= 0 || cfg.MutationRateBurst < 1 {
		return errors.New("MUTATION_RATE_LIMIT and MUTATION_RATE_BURST must be positive")
	}
	if cfg.WebSocketConnectRate <= 0 || cfg.WebSocketConnectBurst < 1 {
		return errors.New("WEBSOCKET_CONNECT_RATE and WEBSOCKET_CONNECT_BURST must be positive")
	}
	return nil
}

// ViewerConfig configures the headless replica client.
type ViewerConfig struct {
	ServerURL      string        `env:"VIEWER_SERVER_URL" default:"http://localhost:3001"`
	ReconnectDelay time.Duration `env:"VIEWER_RECONNECT_DELAY" default:"5s"`
	LogLevel       string        `env:"LOG_LEVEL" default:"info"`
	LogFormat      string        `env:"LOG_FORMAT" default:"text"`
}

func LoadViewer() (*ViewerConfig, error) {
	loadDotEnv()

	var cfg ViewerConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("VIEWER_SERVER_URL is required")
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, errors.New("VIEWER_RECONNECT_DELAY must be positive")
	}

	return &cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}
}
