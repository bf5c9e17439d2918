// Package realtime keeps a best-effort WebSocket connection to the backend
// and fans pushed piston and device updates out to listeners.
package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"piston_control/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	DefaultReconnectDelay   = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	writeWait               = 5 * time.Second
	defaultPongWait         = 60 * time.Second
	maxFrameBytes           = 1 << 16 // 64 KB
)

// State of the channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// TokenSource yields the bearer token, "" when signed out.
type TokenSource interface {
	Token() string
}

type Options struct {
	URL              string // ws(s)://host/api/ws
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	// PongWait is how long the socket may stay silent before it is
	// considered dead. Pings go out every half of it.
	PongWait time.Duration
}

// stopper is the part of *time.Timer the channel needs.
type stopper interface {
	Stop() bool
}

type scheduleFunc func(d time.Duration, f func()) stopper

func afterFunc(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }

// Channel is the reconnecting push client. Failures and peer closes
// schedule exactly one retry after a fixed delay; only Disconnect stops
// retrying. The retry count is unbounded.
type Channel struct {
	*Listeners

	url      string
	tokens   TokenSource
	log      *logger.Logger
	dialer   *websocket.Dialer
	delay    backoff.BackOff
	schedule scheduleFunc
	pongWait time.Duration

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	stopped  bool
	gen      uint64 // bumped per attempt and on Disconnect; stale callbacks compare against it
	retry    stopper
	retrySeq uint64
}

func New(opts Options, tokens TokenSource, log *logger.Logger) *Channel {
	log = logger.OrNop(log).Named("realtime")
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	handshake := opts.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}
	pongWait := opts.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return &Channel{
		Listeners: NewListeners(log),
		url:       opts.URL,
		tokens:    tokens,
		log:       log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshake,
		},
		delay:    backoff.NewConstantBackOff(delay),
		schedule: afterFunc,
		pongWait: pongWait,
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the socket is open.
func (c *Channel) IsConnected() bool { return c.State() == Connected }

// PendingRetry reports whether a reconnect attempt is scheduled.
func (c *Channel) PendingRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retry != nil
}

// Connect opens the socket in the background. It is a no-op while
// connecting or connected, and logs and returns when there is no token.
// Calling Connect after Disconnect re-enables automatic retries.
func (c *Channel) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = false
	c.startLocked()
}

func (c *Channel) startLocked() {
	if c.state != Disconnected {
		return
	}
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		c.log.Warnw("realtime_no_token")
		return
	}
	c.cancelRetryLocked()
	c.gen++
	c.state = Connecting
	go c.run(c.gen, token)
}

// Disconnect stops retries, closes the socket and reports false to
// connection listeners if it was connected. Safe to call repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.cancelRetryLocked()
	c.gen++
	conn := c.conn
	wasConnected := c.state == Connected
	c.conn = nil
	c.state = Disconnected
	c.delay.Reset()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}
	if wasConnected {
		c.log.Infow("realtime_disconnected")
		c.NotifyConnection(false)
	}
}

func (c *Channel) run(gen uint64, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.dialer.HandshakeTimeout)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, http.Header{"Authorization": {"Bearer " + token}})
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.log.Warnw("realtime_dial_failed", "url", c.url, "status", status, "err", err)
		c.closed(gen, nil)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	c.log.Infow("realtime_connected", "url", c.url)
	c.NotifyConnection(true)
	c.readLoop(gen, conn)
}

func (c *Channel) readLoop(gen uint64, conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameBytes)
	extend := func() error { return conn.SetReadDeadline(time.Now().Add(c.pongWait)) }
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })
	conn.SetPingHandler(func(data string) error {
		_ = extend()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	stop := make(chan struct{})
	defer close(stop)
	go c.keepAlive(conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.log.Infow("realtime_closed_by_peer", "code", ce.Code, "reason", ce.Text)
			} else {
				c.log.Warnw("realtime_read_failed", "err", err)
			}
			c.closed(gen, conn)
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			if errors.Is(err, ErrUnknownFrame) {
				c.log.Debugw("realtime_frame_dropped", "type", frame.Type)
			} else {
				c.log.Warnw("realtime_frame_malformed", "err", err)
			}
			continue
		}
		c.Dispatch(frame)
	}
}

// keepAlive pings the backend until stop is closed or a ping fails.
func (c *Channel) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ping := time.NewTicker(c.pongWait / 2)
	defer ping.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.Debugw("realtime_ping_failed", "err", err)
				return
			}
		}
	}
}

// closed handles a failed dial or a dropped socket from attempt gen.
func (c *Channel) closed(gen uint64, conn *websocket.Conn) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = Disconnected
	if !c.stopped {
		c.scheduleRetryLocked()
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.NotifyConnection(false)
}

func (c *Channel) scheduleRetryLocked() {
	c.cancelRetryLocked()
	seq := c.retrySeq
	d := c.delay.NextBackOff()
	c.log.Infow("realtime_retry_scheduled", "in", d.String())
	c.retry = c.schedule(d, func() { c.fireRetry(seq) })
}

func (c *Channel) fireRetry(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.retrySeq || c.stopped {
		return
	}
	c.retry = nil
	c.startLocked()
}

func (c *Channel) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.retrySeq++
}
