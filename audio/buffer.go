package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/smallnest/ringbuffer"
)

var ErrBufferFull = errors.New("audio: playback buffer full")

type segment struct {
	start, end int64
}

// PlaybackBuffer is the device-facing queue of an output graph. The device
// pulls bytes through Read at its own pace; every pulled sample advances the
// output clock, and missing data is played as silence.
type PlaybackBuffer struct {
	b        *ringbuffer.RingBuffer
	format   Format
	mu       sync.Mutex
	played   int64
	segments []segment
	closed   bool
}

// Clock returns the number of samples the device has consumed.
func (buf *PlaybackBuffer) Clock() int64 {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.played
}

// queuedEnd is the timeline position right after the last queued sample.
func (buf *PlaybackBuffer) queuedEnd() int64 {
	return buf.played + int64(buf.b.Length()/2)
}

// Write queues samples to start at position at. A gap between the end of the
// queue and at is filled with silence; a start before the end of the queue is
// appended to it rather than mixed.
func (buf *PlaybackBuffer) Write(samples []int16, at int64) (int64, error) {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if buf.closed {
		return 0, io.ErrClosedPipe
	}

	end := buf.queuedEnd()
	var gap int64
	if at > end {
		gap = at - end
	}

	if int64(buf.b.Free()) < (gap+int64(len(samples)))*2 {
		return 0, ErrBufferFull
	}

	if gap > 0 {
		if _, err := buf.b.Write(make([]byte, gap*2)); err != nil {
			return 0, err
		}
	}
	if _, err := buf.b.Write(EncodePCM16(samples)); err != nil {
		return 0, err
	}

	start := end + gap
	buf.segments = append(buf.segments, segment{start: start, end: start + int64(len(samples))})
	return start, nil
}

// Read hands queued audio to the device and pads the rest of p with silence.
func (buf *PlaybackBuffer) Read(p []byte) (int, error) {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if buf.closed {
		return 0, io.EOF
	}

	n := len(p) &^ 1
	if n == 0 {
		return 0, nil
	}

	got := 0
	if buf.b.Length() > 0 {
		got, _ = buf.b.Read(p[:n])
	}
	clear(p[got:n])

	buf.played += int64(n / 2)
	buf.prune()
	return n, nil
}

func (buf *PlaybackBuffer) prune() {
	i := 0
	for i < len(buf.segments) && buf.segments[i].end <= buf.played {
		i++
	}
	buf.segments = buf.segments[i:]
}

// Pending returns the number of queued buffers that have not finished playing.
func (buf *PlaybackBuffer) Pending() int {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return len(buf.segments)
}

// Clear drops every queued sample and returns the number of buffers dropped.
func (buf *PlaybackBuffer) Clear() int {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	n := len(buf.segments)
	buf.b.Reset()
	buf.segments = nil
	return n
}

func (buf *PlaybackBuffer) Close() error {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.closed = true
	buf.b.Reset()
	buf.segments = nil
	return nil
}

// NewPlaybackBuffer creates a buffer able to hold capacity worth of audio.
func NewPlaybackBuffer(format Format, capacity time.Duration) *PlaybackBuffer {
	return &PlaybackBuffer{
		b:      ringbuffer.New(format.Samples(capacity) * 2),
		format: format,
	}
}
