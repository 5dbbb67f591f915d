package relay

import "sync"

type subscriber struct {
	ch      chan []byte
	channel string
}

// Hub is an in-process fan-out of raw frames, keyed by channel name.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	closed      bool
	size        int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]*subscriber),
		size:        64,
	}
}

// Subscribe returns a subscription id, a channel receiving frames published
// by others and an unsubscribe function.
func (h *Hub) Subscribe(channel string) (uint64, <-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []byte, h.size)
	id := h.nextID
	h.nextID++

	if h.closed {
		close(ch)
		return id, ch, func() {}
	}
	h.subscribers[id] = &subscriber{ch: ch, channel: channel}

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(ch)
		}
	}
	return id, ch, unsub
}

// Publish sends data to every subscriber of channel except from. Slow
// subscribers miss the frame.
func (h *Hub) Publish(channel string, from uint64, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for id, sub := range h.subscribers {
		if id == from || sub.channel != channel {
			continue
		}
		select {
		case sub.ch <- data:
			n++
		default:
		}
	}
	return n
}

// Len returns the number of subscribers of channel.
func (h *Hub) Len(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, sub := range h.subscribers {
		if sub.channel == channel {
			n++
		}
	}
	return n
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.ch)
	}
}
