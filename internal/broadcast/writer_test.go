package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientWriter_WritesQueuedMessagesInOrder(t *testing.T) {
	conn := newFakeConn()
	cw := newClientWriter(conn, clockwork.NewFakeClock(), newTestMetrics(), nil)
	t.Cleanup(cw.stop)

	for _, msg := range []string{"one", "two", "three"} {
		cw.sendChannel <- []byte(msg)
	}

	require.Eventually(t, func() bool { return len(conn.messages()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, conn.messages())
}

func TestClientWriter_PingsOnInterval(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	conn := newFakeConn()
	cw := newClientWriter(conn, fakeClock, newTestMetrics(), nil)
	t.Cleanup(cw.stop)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))

	fakeClock.Advance(pingInterval)

	require.Eventually(t, func() bool { return conn.pingCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestClientWriter_PongExtendsReadDeadline(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	conn := newFakeConn()
	cw := newClientWriter(conn, fakeClock, newTestMetrics(), nil)
	t.Cleanup(cw.stop)

	fakeClock.Advance(45 * time.Second)
	require.NoError(t, conn.pongHandler(""))

	conn.mu.Lock()
	deadline := conn.readDeadline
	conn.mu.Unlock()
	assert.Equal(t, fakeClock.Now().Add(pongDeadline), deadline)
}

func TestClientWriter_WriteErrorReportsOnce(t *testing.T) {
	conn := newFakeConn()
	conn.failWrites = true

	reported := make(chan struct{}, 2)
	cw := newClientWriter(conn, clockwork.NewFakeClock(), newTestMetrics(), func() { reported <- struct{}{} })
	t.Cleanup(cw.stop)

	cw.sendChannel <- []byte("x")

	select {
	case <-reported:
	case <-time.After(time.Second):
		t.Fatal("write error was not reported")
	}
	assert.Empty(t, reported)
}

func TestClientWriter_StopDoesNotReport(t *testing.T) {
	conn := newFakeConn()
	conn.block = make(chan struct{})

	reported := make(chan struct{}, 1)
	cw := newClientWriter(conn, clockwork.NewFakeClock(), newTestMetrics(), func() { reported <- struct{}{} })
	cw.sendChannel <- []byte("stuck")

	time.Sleep(10 * time.Millisecond)
	cw.stop()

	assert.True(t, conn.isClosed())
	select {
	case <-reported:
		t.Fatal("stop must not be reported as a write error")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientWriter_ConcurrentStop(t *testing.T) {
	conn := newFakeConn()
	cw := newClientWriter(conn, clockwork.NewFakeClock(), newTestMetrics(), nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cw.stop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent stop calls deadlocked")
	}
	assert.True(t, conn.isClosed())
}

func TestClientWriter_StopGracefulSendsCloseFrame(t *testing.T) {
	conn := newFakeConn()
	cw := newClientWriter(conn, clockwork.NewFakeClock(), newTestMetrics(), nil)

	cw.stopGraceful("Server shutting down")
	cw.stopGraceful("again")
	cw.stop()

	conn.mu.Lock()
	frames := conn.closeFrames
	conn.mu.Unlock()
	assert.Equal(t, []string{"Server shutting down"}, frames)
	assert.True(t, conn.isClosed())
}
