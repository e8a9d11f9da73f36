package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/menupulse/internal/domain"
)

const (
	defaultReconnectDelay = 5 * time.Second
	closeWriteTimeout     = time.Second
	messageQueueSize      = 64
)

var (
	ErrSessionStarted = errors.New("session already started")
	ErrSessionClosed  = errors.New("session closed")
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateLive
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type dishAPI interface {
	ListDishes(ctx context.Context) ([]domain.Dish, error)
	Toggle(ctx context.Context, id int64) (domain.Dish, error)
}

// Session owns one live channel and the replica it feeds. The caller creates it,
// subscribes to its events and tears it down with Close.
type Session struct {
	api            dishAPI
	wsURL          string
	dialer         *websocket.Dialer
	clock          clockwork.Clock
	reconnectDelay time.Duration
	replica        *Replica
	events         *eventBus

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type SessionOption func(*Session)

func WithClock(clock clockwork.Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

func WithReconnectDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.reconnectDelay = d }
}

func WithDialer(d *websocket.Dialer) SessionOption {
	return func(s *Session) { s.dialer = d }
}

func NewSession(api dishAPI, wsURL string, opts ...SessionOption) *Session {
	s := &Session{
		api:            api,
		wsURL:          wsURL,
		dialer:         websocket.DefaultDialer,
		clock:          clockwork.NewRealClock(),
		reconnectDelay: defaultReconnectDelay,
		replica:        NewReplica(),
		events:         newEventBus(),
		state:          StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for events of type t. Call the returned func to stop receiving them.
// Listeners run on the session's goroutines, possibly concurrently with each other, and must not block.
func (s *Session) Subscribe(t EventType, fn Listener) (unsubscribe func()) {
	return s.events.subscribe(t, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Dishes() []domain.Dish {
	return s.replica.Snapshot()
}

// Counts returns the number of published dishes and the total held by the replica.
func (s *Session) Counts() (published, total int) {
	return s.replica.Counts()
}

// Start seeds the replica with one pull and starts the live channel in the background.
// A failed pull is returned and emitted as an EventError; the channel is started regardless
// and its first reconcile fills the replica.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrSessionStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	err := s.seed()

	s.wg.Add(1)
	go s.run()

	return err
}

// Toggle flips a dish through the API and applies the committed record right away,
// unless a push or reseed touched the dish while the call was in flight: that value
// may be newer than the response. The broadcast copy of this commit follows either way.
func (s *Session) Toggle(ctx context.Context, id int64) (domain.Dish, error) {
	before := s.replica.markOf(id)

	dish, err := s.api.Toggle(ctx, id)
	if err != nil {
		return domain.Dish{}, err
	}

	if s.replica.applyIfUnmarked(dish, before) {
		s.emitDishes()
	}
	return dish, nil
}

// Close stops reconnecting, closes the live channel and waits for every session goroutine to exit.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.cancel != nil {
			s.cancel()
		}
		conn := s.conn
		s.mu.Unlock()

		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
			_ = conn.Close()
		}
	})
	s.wg.Wait()
}

func (s *Session) seed() error {
	dishes, err := s.api.ListDishes(s.ctx)
	if err != nil {
		err = fmt.Errorf("failed to load dishes: %w", err)
		s.emitError(err)
		return err
	}

	s.replica.Seed(dishes)
	s.emitDishes()
	return nil
}

func (s *Session) run() {
	defer s.wg.Done()
	defer s.setState(StateDisconnected)

	for {
		s.setState(StateConnecting)

		conn, resp, err := s.dialer.DialContext(s.ctx, s.wsURL, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		switch {
		case err != nil && s.ctx.Err() != nil:
			return
		case err != nil:
			s.emitError(fmt.Errorf("failed to connect live channel: %w", err))
		case !s.attach(conn):
			_ = conn.Close()
			return
		default:
			s.setState(StateLive)
			s.serve(conn)
			s.detach(conn)
		}

		s.setState(StateDisconnected)

		if !s.waitReconnect() {
			return
		}
	}
}

func (s *Session) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}
	s.conn = conn
	return true
}

func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()

	_ = conn.Close()
}

// serve applies pushes until the channel drops. Every channel starts with a reconcile:
// pushes committed before it was registered were never delivered, on the first channel
// as much as after an outage.
func (s *Session) serve(conn *websocket.Conn) {
	msgs := make(chan domain.Message, messageQueueSize)

	s.wg.Add(1)
	go s.readPump(conn, msgs)

	if !s.reconcile(msgs) {
		return
	}

	for msg := range msgs {
		if s.replica.Apply(msg) {
			s.emitDishes()
		}
	}
}

type pullResult struct {
	dishes []domain.Dish
	err    error
}

// reconcile pulls the catalog, buffering pushes that arrive during the pull and replaying
// them on top of it. It reports false when the channel dropped while the pull was running.
func (s *Session) reconcile(msgs <-chan domain.Message) bool {
	pulled := make(chan pullResult, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dishes, err := s.api.ListDishes(s.ctx)
		pulled <- pullResult{dishes: dishes, err: err}
	}()

	var buffered []domain.Message
	open := true
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				open = false
				msgs = nil
				continue
			}
			buffered = append(buffered, msg)

		case res := <-pulled:
			switch {
			case res.err == nil:
				s.replica.Seed(res.dishes)
			case s.ctx.Err() == nil:
				s.emitError(fmt.Errorf("failed to reconcile dishes: %w", res.err))
			}
			for _, msg := range buffered {
				s.replica.Apply(msg)
			}
			s.emitDishes()

			slog.Debug("Replica reconciled", "replayed", len(buffered), "pull_failed", res.err != nil)
			return open
		}
	}
}

func (s *Session) readPump(conn *websocket.Conn, msgs chan<- domain.Message) {
	defer s.wg.Done()
	defer close(msgs)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && s.ctx.Err() == nil {
				slog.Debug("Live channel read ended", "error", err)
			}
			return
		}

		msg, err := domain.DecodeMessage(raw)
		if err != nil {
			slog.Warn("Ignoring undecodable push", "error", err)
			continue
		}
		msgs <- msg
	}
}

func (s *Session) waitReconnect() bool {
	timer := s.clock.NewTimer(s.reconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	slog.Debug("Live channel state changed", "state", state.String())
	s.events.emit(Event{Type: EventStatus, State: state})
}

func (s *Session) emitDishes() {
	s.events.emit(Event{Type: EventDishes, Dishes: s.replica.Snapshot()})
}

func (s *Session) emitError(err error) {
	s.events.emit(Event{Type: EventError, Err: err, State: s.State()})
}
