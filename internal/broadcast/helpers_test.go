package broadcast

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/menupulse/internal/adapter/metrics"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("use of closed network connection")

// fakeConn records frames in memory. With block set, text writes wait until
// block is closed or the connection is closed.
type fakeConn struct {
	mu            sync.Mutex
	texts         [][]byte
	pings         int
	closeFrames   []string
	closed        bool
	closedCh      chan struct{}
	block         chan struct{}
	failWrites    bool
	pongHandler   func(string) error
	readDeadline  time.Time
	writeDeadline time.Time
}

func newFakeConn() *fakeConn {
	return &fakeConn{closedCh: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.block != nil && messageType == websocket.TextMessage {
		select {
		case <-c.block:
		case <-c.closedCh:
			return errConnClosed
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if c.failWrites {
		return errors.New("broken pipe")
	}

	switch messageType {
	case websocket.TextMessage:
		c.texts = append(c.texts, append([]byte(nil), data...))
	case websocket.PingMessage:
		c.pings++
	case websocket.CloseMessage:
		c.closeFrames = append(c.closeFrames, string(data[2:]))
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeDeadline = t
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readDeadline = t
	return nil
}

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pongHandler = h
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
	return nil
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.texts))
	for i, t := range c.texts {
		out[i] = string(t)
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func newTestMetrics() *metrics.HubMetrics {
	return metrics.NewHubMetrics(prometheus.NewRegistry())
}

// newTestConnPair returns both ends of a real websocket connection.
func newTestConnPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}
