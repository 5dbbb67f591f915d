package audio

import (
	"sync"
	"sync/atomic"
)

// FrameQueue hands capture frames to a single consumer. It holds at most one
// frame; when the consumer falls behind, the stale frame is replaced by the
// newest one.
type FrameQueue struct {
	ch      chan []int16
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{ch: make(chan []int16, 1)}
}

// Push offers frame to the consumer without blocking.
func (q *FrameQueue) Push(frame []int16) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	select {
	case q.ch <- frame:
		return
	default:
	}

	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}

	select {
	case q.ch <- frame:
	default:
		q.dropped.Add(1)
	}
}

func (q *FrameQueue) Frames() <-chan []int16 {
	return q.ch
}

// Dropped returns the number of frames discarded because the consumer was slow.
func (q *FrameQueue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *FrameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// framer cuts an arbitrary sample stream into fixed size frames.
type framer struct {
	size    int
	pending []int16
}

func (f *framer) push(samples []int16, emit func([]int16)) {
	f.pending = append(f.pending, samples...)
	for len(f.pending) >= f.size {
		frame := make([]int16, f.size)
		copy(frame, f.pending[:f.size])
		f.pending = f.pending[f.size:]
		emit(frame)
	}
	if len(f.pending) == 0 {
		f.pending = nil
	}
}
