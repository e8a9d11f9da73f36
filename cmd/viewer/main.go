package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pscheid92/menupulse/internal/platform/config"
	"github.com/pscheid92/menupulse/internal/platform/logging"
	"github.com/pscheid92/menupulse/internal/viewer"
)

func main() {
	cfg, err := config.LoadViewer()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	client := viewer.NewClient(cfg.ServerURL, nil)
	wsURL, err := client.WebSocketURL()
	if err != nil {
		slog.Error("Invalid server URL", "server_url", cfg.ServerURL, "error", err)
		os.Exit(1)
	}

	session := viewer.NewSession(client, wsURL, viewer.WithReconnectDelay(cfg.ReconnectDelay))
	session.Subscribe(viewer.EventStatus, func(e viewer.Event) {
		slog.Info("Live channel", "state", e.State.String())
	})
	session.Subscribe(viewer.EventDishes, func(viewer.Event) {
		published, total := session.Counts()
		slog.Info("Menu updated", "published", published, "total", total)
	})
	session.Subscribe(viewer.EventError, func(e viewer.Event) {
		slog.Warn("Viewer error", "state", e.State.String(), "error", e.Err)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Viewer starting", "server_url", cfg.ServerURL, "ws_url", wsURL)
	if err := session.Start(ctx); err != nil {
		// The live channel keeps running and fills the replica once it connects.
		slog.Warn("Initial menu load failed", "error", err)
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, closing live channel...")
	session.Close()
}
