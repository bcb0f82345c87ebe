package render

import "sync"

// Frame is one published JPEG.
type Frame struct {
	Seq  uint64
	JPEG []byte
}

// Hub fans the latest rendered frame out to stream clients. Subscribers that
// fall behind skip straight to the newest frame.
type Hub struct {
	mu     sync.RWMutex
	latest Frame
	subs   map[chan Frame]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Frame]struct{})}
}

// Publish stores jpeg as the latest frame and notifies subscribers. The hub
// keeps a reference to jpeg; callers must not modify it afterwards.
func (h *Hub) Publish(jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = Frame{Seq: h.latest.Seq + 1, JPEG: jpeg}
	for ch := range h.subs {
		select {
		case ch <- h.latest:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- h.latest:
			default:
			}
		}
	}
}

// Latest returns the most recent frame; Seq is 0 before the first publish.
func (h *Hub) Latest() Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe returns a channel receiving every new frame, starting with the
// current one if any. Call the returned function to unsubscribe.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.latest.Seq > 0 {
		ch <- h.latest
	}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

// Clients returns the number of active subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
