package realtime

import (
	"sync"

	"piston_control/internal/logger"
	"piston_control/internal/models"
)

// Listeners fans decoded frames and connection changes out to subscribers.
// Delivery happens on the caller's goroutine; subscribers that need
// another context must redispatch. No order is guaranteed among them.
type Listeners struct {
	log *logger.Logger

	mu     sync.Mutex
	nextID int
	piston map[int]func(models.PistonUpdate)
	status map[int]func(models.DeviceStatus)
	conn   map[int]func(bool)
}

// NewListeners returns an empty fan-out.
func NewListeners(log *logger.Logger) *Listeners {
	return &Listeners{
		log:    logger.OrNop(log),
		piston: map[int]func(models.PistonUpdate){},
		status: map[int]func(models.DeviceStatus){},
		conn:   map[int]func(bool){},
	}
}

// OnPistonUpdate registers fn and returns a func that removes it.
func (l *Listeners) OnPistonUpdate(fn func(models.PistonUpdate)) (remove func()) {
	return add(l, l.piston, fn)
}

func (l *Listeners) OnDeviceStatus(fn func(models.DeviceStatus)) (remove func()) {
	return add(l, l.status, fn)
}

func (l *Listeners) OnConnectionChange(fn func(connected bool)) (remove func()) {
	return add(l, l.conn, fn)
}

func add[F any](l *Listeners, m map[int]F, fn F) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	m[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(m, id)
			l.mu.Unlock()
		})
	}
}

func snapshot[F any](l *Listeners, m map[int]F) []F {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]F, 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

// Dispatch delivers one decoded frame.
func (l *Listeners) Dispatch(f Frame) {
	switch {
	case f.Piston != nil:
		for _, fn := range snapshot(l, l.piston) {
			l.safely(f.Type, func() { fn(*f.Piston) })
		}
	case f.Status != nil:
		for _, fn := range snapshot(l, l.status) {
			l.safely(f.Type, func() { fn(*f.Status) })
		}
	}
}

// NotifyConnection reports a connection change to subscribers.
func (l *Listeners) NotifyConnection(connected bool) {
	for _, fn := range snapshot(l, l.conn) {
		l.safely("connection", func() { fn(connected) })
	}
}

// safely keeps a panicking subscriber from taking the read loop down.
func (l *Listeners) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorw("realtime_listener_panic", "kind", kind, "panic", r)
		}
	}()
	fn()
}
