package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/pscheid92/menupulse/internal/domain"
)

const (
	commandTimeout      = 5 * time.Second
	stopTimeout         = 10 * time.Second
	commandQueueSize    = 256
	depthWarnThreshold  = 200
	depthSampleInterval = time.Second
)

const (
	evictSlow       = "slow"
	evictWriteError = "write_error"
	evictClosed     = "closed"
)

var ErrHubStopped = errors.New("hub stopped")

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	channelID  uuid.UUID
	connection Conn
	reply      chan error
}

type unregisterCmd struct {
	baseHubCmd
	channelID uuid.UUID
	reason    string
}

type broadcastCmd struct {
	baseHubCmd
	msgType domain.MessageType
	payload []byte
}

type clientCountCmd struct {
	baseHubCmd
	reply chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub fans messages out to every registered live channel.
type Hub struct {
	cmdCh          chan hubCmd
	clock          clockwork.Clock
	channels       map[uuid.UUID]*clientWriter
	metrics        *metrics.HubMetrics
	done           chan struct{}
	commandTimeout time.Duration
	stopTimeout    time.Duration
}

var _ domain.Broadcaster = (*Hub)(nil)

func NewHub(clock clockwork.Clock, m *metrics.HubMetrics) *Hub {
	h := &Hub{
		cmdCh:          make(chan hubCmd, commandQueueSize),
		clock:          clock,
		channels:       make(map[uuid.UUID]*clientWriter),
		metrics:        m,
		done:           make(chan struct{}),
		commandTimeout: commandTimeout,
		stopTimeout:    stopTimeout,
	}
	go h.run()
	return h
}

// Register adds conn to the live set and returns the id used to unregister it.
func (h *Hub) Register(conn Conn) (uuid.UUID, error) {
	channelID := uuid.New()
	reply := make(chan error, 1)
	if err := h.send(registerCmd{channelID: channelID, connection: conn, reply: reply}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register channel: %w", err)
	}

	timer := h.clock.NewTimer(h.commandTimeout)
	defer timer.Stop()

	select {
	case err := <-reply:
		return channelID, err
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("register command timed out after %v", h.commandTimeout)
	}
}

// Unregister drops a channel and closes its connection. Unknown ids are ignored.
func (h *Hub) Unregister(channelID uuid.UUID) {
	if err := h.send(unregisterCmd{channelID: channelID, reason: evictClosed}); err != nil && !errors.Is(err, ErrHubStopped) {
		slog.Warn("Failed to unregister channel", "channel_id", channelID.String(), "error", err)
	}
}

// Broadcast serializes msg once and queues it for every live channel.
// It never reports delivery failures; a hub that cannot accept the message in time drops it.
func (h *Hub) Broadcast(ctx context.Context, msg domain.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal broadcast message", "type", msg.Type, "error", err)
		return
	}

	if err := h.sendContext(ctx, broadcastCmd{msgType: msg.Type, payload: payload}); err != nil {
		slog.WarnContext(ctx, "Broadcast dropped", "type", msg.Type, "error", err)
		h.metrics.BroadcastDropped.Inc()
	}
}

// ClientCount returns the number of live channels, or -1 if the hub does not answer in time.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	if err := h.send(clientCountCmd{reply: reply}); err != nil {
		return -1
	}

	timer := h.clock.NewTimer(h.commandTimeout)
	defer timer.Stop()

	select {
	case count := <-reply:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", h.commandTimeout)
		return -1
	}
}

// Stop closes every channel with a close frame and waits for the hub goroutine to exit.
func (h *Hub) Stop() {
	if err := h.send(stopCmd{}); err != nil {
		return
	}

	timer := h.clock.NewTimer(h.stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", h.stopTimeout)
		h.metrics.StopTimeouts.Inc()
	}
}

func (h *Hub) send(cmd hubCmd) error {
	return h.sendContext(context.Background(), cmd)
}

func (h *Hub) sendContext(ctx context.Context, cmd hubCmd) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	timer := h.clock.NewTimer(h.commandTimeout)
	defer timer.Stop()

	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return fmt.Errorf("hub command abandoned: %w", ctx.Err())
	case <-timer.Chan():
		return fmt.Errorf("hub command queue full for %v", h.commandTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.metrics.Panics.Inc()
			h.closeAll("hub failure")
		}
	}()

	depthTicker := h.clock.NewTicker(depthSampleInterval)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			h.metrics.CommandChannelDepth.Set(float64(depth))
			if depth > depthWarnThreshold {
				slog.Warn("Hub command queue near capacity", "depth", depth, "capacity", cap(h.cmdCh))
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c.channelID, c.reason)
			case broadcastCmd:
				h.handleBroadcast(c)
			case clientCountCmd:
				c.reply <- len(h.channels)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	channelID := c.channelID
	onWriteError := func() {
		_ = h.send(unregisterCmd{channelID: channelID, reason: evictWriteError})
	}

	h.channels[channelID] = newClientWriter(c.connection, h.clock, h.metrics, onWriteError)
	h.metrics.ConnectedChannels.Set(float64(len(h.channels)))

	slog.Debug("Channel registered", "channel_id", channelID.String(), "total_channels", len(h.channels))
	c.reply <- nil
}

func (h *Hub) handleUnregister(channelID uuid.UUID, reason string) {
	cw, exists := h.channels[channelID]
	if !exists {
		return
	}

	cw.stop()
	delete(h.channels, channelID)
	h.metrics.ConnectedChannels.Set(float64(len(h.channels)))
	if reason != evictClosed {
		h.metrics.Evictions.WithLabelValues(reason).Inc()
	}

	slog.Debug("Channel unregistered", "channel_id", channelID.String(), "reason", reason, "remaining_channels", len(h.channels))
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	var slow []uuid.UUID
	for channelID, writer := range h.channels {
		select {
		case writer.sendChannel <- c.payload:
		default:
			slow = append(slow, channelID)
		}
	}

	for _, channelID := range slow {
		slog.Warn("Dropping slow channel", "channel_id", channelID.String())
		h.handleUnregister(channelID, evictSlow)
	}

	h.metrics.MessagesBroadcast.WithLabelValues(string(c.msgType)).Inc()
}

func (h *Hub) handleStop() {
	total := len(h.channels)
	slog.Info("Hub shutting down", "total_channels", total)
	h.closeAll("Server shutting down")
	slog.Info("Hub shutdown complete", "disconnected_channels", total)
}

func (h *Hub) closeAll(reason string) {
	for channelID, cw := range h.channels {
		cw.stopGraceful(reason)
		delete(h.channels, channelID)
	}
	h.metrics.ConnectedChannels.Set(0)
}
