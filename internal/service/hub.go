package service

import (
	"encoding/json"
	"sync"

	"piston_control/internal/logger"
)

// subscriberBuffer is how many frames a slow connection may lag behind
// before new frames are dropped for it.
const subscriberBuffer = 32

// Hub fans realtime frames out to every connection a user has open.
type Hub struct {
	log *logger.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{log: logger.OrNop(log), subs: map[string]map[int]chan []byte{}}
}

var _ Notifier = (*Hub)(nil)

// Subscribe registers a connection for userID. The returned cancel func
// unregisters it and closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = map[int]chan []byte{}
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish encodes frame once and queues it for each of the user's connections.
func (h *Hub) Publish(userID string, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Errorw("hub_encode_failed", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs[userID] {
		select {
		case ch <- data:
		default:
			h.log.Warnw("hub_frame_dropped", "user_id", userID, "subscriber", id)
		}
	}
}

// Subscribers returns the number of open connections for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
