package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/menupulse/internal/platform/errors"
)

// Clients never need to send more than a control frame.
const maxClientFrameSize = 4096

// handleWebSocket admits a live channel. The channel is push-only: client frames are
// read and discarded so control frames (pong, close) keep being processed.
func (s *Server) handleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()

	if ok, reason := s.limits.Acquire(ip); !ok {
		s.connMetrics.Rejections.WithLabelValues(string(reason)).Inc()
		if reason == LimitReasonRate {
			return apperrors.RateLimitedError("Too many connection attempts").WithField("remote_ip", ip)
		}
		return apperrors.UnavailableError("Connection limit reached").
			WithField("remote_ip", ip).
			WithField("reason", string(reason))
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		s.connMetrics.Rejections.WithLabelValues("upgrade_failed").Inc()
		slog.DebugContext(ctx, "WebSocket upgrade failed", "remote_ip", ip, "error", err)
		return nil
	}

	channelID, err := s.hub.Register(conn)
	if err != nil {
		slog.WarnContext(ctx, "Failed to register live channel", "remote_ip", ip, "error", err)
		_ = conn.Close()
		return nil
	}
	s.connMetrics.Admitted.Inc()
	slog.InfoContext(ctx, "Live channel connected", "channel_id", channelID.String(), "remote_ip", ip)

	conn.SetReadLimit(maxClientFrameSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(channelID)
	slog.InfoContext(ctx, "Live channel disconnected", "channel_id", channelID.String())

	return nil
}
