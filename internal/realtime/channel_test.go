package realtime

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"piston_control/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fakeTimer struct {
	d       time.Duration
	f       func()
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fire runs the retry as the timer would, after which it no longer counts as pending.
func (t *fakeTimer) fire() {
	t.Stop()
	t.f()
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeClock records scheduled retries without firing them.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) schedule(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

func newTestChannel(url, token string) (*Channel, *fakeClock) {
	return newTestChannelWith(Options{URL: url, HandshakeTimeout: 2 * time.Second}, token)
}

func newTestChannelWith(opts Options, token string) (*Channel, *fakeClock) {
	ch := New(opts, staticToken(token), nil)
	clock := &fakeClock{}
	ch.schedule = clock.schedule
	return ch, clock
}

func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "ws://" + addr + "/api/ws"
}

// pushServer upgrades, records the auth header, writes frames, then
// holds the socket open until the client leaves or release is closed.
func pushServer(t *testing.T, frames []string, release chan struct{}) (*httptest.Server, func() string) {
	t.Helper()
	var auth string
	var mu sync.Mutex
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		select {
		case <-done:
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() string {
		mu.Lock()
		defer mu.Unlock()
		return auth
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
}

func TestChannel_DispatchesKnownFramesOnly(t *testing.T) {
	frames := []string{
		`{"type":"bogus","x":1}`,
		`{"type":"piston_update",`,
		`not json`,
		`{"type":"piston_update","device_id":"D1","piston_number":3,"state":"active","timestamp":"2024-05-01T10:00:00Z"}`,
		`{"type":"device_status","device_id":"D1","status":"offline","timestamp":"2024-05-01T10:00:01Z"}`,
	}
	release := make(chan struct{})
	defer close(release)
	srv, auth := pushServer(t, frames, release)
	ch, clock := newTestChannel(wsURL(srv), "tok-9")

	pistons := make(chan models.PistonUpdate, 4)
	statuses := make(chan models.DeviceStatus, 4)
	conns := make(chan bool, 4)
	ch.OnPistonUpdate(func(u models.PistonUpdate) { pistons <- u })
	ch.OnDeviceStatus(func(s models.DeviceStatus) { statuses <- s })
	ch.OnConnectionChange(func(c bool) { conns <- c })
	// a panicking subscriber must not stop delivery
	ch.OnPistonUpdate(func(models.PistonUpdate) { panic("bad listener") })

	ch.Connect()
	ch.Connect() // no-op while connecting/connected

	select {
	case c := <-conns:
		require.True(t, c)
	case <-time.After(3 * time.Second):
		t.Fatal("never connected")
	}

	select {
	case u := <-pistons:
		assert.Equal(t, "D1", u.DeviceID)
		assert.Equal(t, 3, u.PistonNumber)
		assert.Equal(t, models.PistonActive, u.State)
	case <-time.After(3 * time.Second):
		t.Fatal("no piston update")
	}
	select {
	case s := <-statuses:
		assert.Equal(t, models.DeviceOffline, s.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("no device status")
	}
	assert.Empty(t, pistons)
	assert.True(t, ch.IsConnected())
	assert.Equal(t, "Bearer tok-9", auth())

	ch.Disconnect()
	ch.Disconnect()
	assert.Equal(t, Disconnected, ch.State())
	assert.False(t, ch.PendingRetry())
	assert.Zero(t, clock.scheduled())

	select {
	case c := <-conns:
		assert.False(t, c)
	case <-time.After(time.Second):
		t.Fatal("no disconnect notification")
	}
	assert.Empty(t, conns, "second Disconnect must not notify again")
}

func TestChannel_NoTokenDoesNotDial(t *testing.T) {
	ch, clock := newTestChannel(closedAddr(t), "")
	ch.Connect()
	assert.Equal(t, Disconnected, ch.State())
	assert.False(t, ch.PendingRetry())
	assert.Zero(t, clock.scheduled())
}

func TestChannel_FailureSchedulesSingleRetry(t *testing.T) {
	ch, clock := newTestChannel(closedAddr(t), "tok")
	conns := make(chan bool, 4)
	ch.OnConnectionChange(func(c bool) { conns <- c })

	ch.Connect()
	require.Eventually(t, ch.PendingRetry, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, DefaultReconnectDelay, clock.last().d)
	assert.False(t, <-conns)

	// a second failure inside the delay window replaces the pending retry
	ch.Connect()
	require.Eventually(t, func() bool { return clock.scheduled() == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, clock.active())
	assert.True(t, ch.PendingRetry())

	ch.Disconnect()
	assert.Zero(t, clock.active())
	assert.False(t, ch.PendingRetry())
}

func TestChannel_RetryFiresReconnect(t *testing.T) {
	ch, clock := newTestChannel(closedAddr(t), "tok")
	ch.Connect()
	require.Eventually(t, func() bool { return clock.scheduled() == 1 }, 3*time.Second, 10*time.Millisecond)

	clock.last().fire()
	require.Eventually(t, func() bool { return clock.scheduled() == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, clock.active())
	ch.Disconnect()
}

func TestChannel_RetryAfterDisconnectIsIgnored(t *testing.T) {
	ch, clock := newTestChannel(closedAddr(t), "tok")
	ch.Connect()
	require.Eventually(t, ch.PendingRetry, 3*time.Second, 10*time.Millisecond)
	pending := clock.last()

	ch.Disconnect()
	pending.f() // timer raced with Stop
	assert.Equal(t, Disconnected, ch.State())
	assert.Equal(t, 1, clock.scheduled())
}

func TestChannel_PeerCloseSchedulesRetry(t *testing.T) {
	release := make(chan struct{})
	srv, _ := pushServer(t, nil, release)
	ch, clock := newTestChannel(wsURL(srv), "tok")
	conns := make(chan bool, 4)
	ch.OnConnectionChange(func(c bool) { conns <- c })

	ch.Connect()
	require.True(t, <-conns)
	close(release)

	select {
	case c := <-conns:
		assert.False(t, c)
	case <-time.After(3 * time.Second):
		t.Fatal("close not observed")
	}
	require.Eventually(t, ch.PendingRetry, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, clock.active())
	ch.Disconnect()
}

// silentServer upgrades and then never reads, so pings go unanswered.
func silentServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestChannel_SilentPeerTimesOut(t *testing.T) {
	srv := silentServer(t)
	ch, clock := newTestChannelWith(Options{URL: wsURL(srv), HandshakeTimeout: 2 * time.Second, PongWait: 300 * time.Millisecond}, "tok")
	conns := make(chan bool, 4)
	ch.OnConnectionChange(func(c bool) { conns <- c })

	ch.Connect()
	require.True(t, <-conns)
	select {
	case c := <-conns:
		assert.False(t, c)
	case <-time.After(3 * time.Second):
		t.Fatal("dead socket not detected")
	}
	require.Eventually(t, ch.PendingRetry, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, clock.active())
	ch.Disconnect()
}

func TestChannel_PongsKeepSocketOpen(t *testing.T) {
	release := make(chan struct{})
	srv, _ := pushServer(t, nil, release)
	defer close(release)
	ch, clock := newTestChannelWith(Options{URL: wsURL(srv), HandshakeTimeout: 2 * time.Second, PongWait: 300 * time.Millisecond}, "tok")
	conns := make(chan bool, 4)
	ch.OnConnectionChange(func(c bool) { conns <- c })

	ch.Connect()
	require.True(t, <-conns)
	time.Sleep(time.Second)
	assert.True(t, ch.IsConnected())
	assert.Equal(t, 0, clock.scheduled())
	ch.Disconnect()
}

func TestListeners_Remove(t *testing.T) {
	ch, _ := newTestChannel("ws://unused", "tok")
	var hits int
	remove := ch.OnPistonUpdate(func(models.PistonUpdate) { hits++ })
	ch.Dispatch(Frame{Type: models.MessagePistonUpdate, Piston: &models.PistonUpdate{}})
	remove()
	remove()
	ch.Dispatch(Frame{Type: models.MessagePistonUpdate, Piston: &models.PistonUpdate{}})
	assert.Equal(t, 1, hits)
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"device_status","device_id":"D2","status":"online"}`))
	require.NoError(t, err)
	require.NotNil(t, f.Status)
	assert.Nil(t, f.Piston)
	assert.Equal(t, "D2", f.Status.DeviceID)

	_, err = DecodeFrame([]byte(`{"type":"ping"}`))
	assert.ErrorIs(t, err, ErrUnknownFrame)

	_, err = DecodeFrame([]byte(`{"type":"piston_update","piston_number":"three"}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownFrame)
}
