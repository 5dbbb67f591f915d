package audio

import (
	"io"
	"sync"
	"sync/atomic"
)

// Input is the device independent part of an input graph. A device driver
// writes captured PCM16 into it; consumers read fixed frames from Frames.
type Input struct {
	format    Format
	gain      float64
	meter     *Meter
	mu        sync.Mutex
	framer    framer
	queue     *FrameQueue
	closed    atomic.Bool
	closeOnce sync.Once
	release   func() error
	closeErr  error
}

func (in *Input) Format() Format {
	return in.format
}

func (in *Input) Frames() <-chan []int16 {
	return in.queue.Frames()
}

func (in *Input) Level() float64 {
	return in.meter.Level()
}

// Dropped returns the number of frames skipped because the consumer was slow.
func (in *Input) Dropped() int64 {
	return in.queue.Dropped()
}

// Write accepts little-endian PCM16 bytes from a capture callback.
func (in *Input) Write(p []byte) (int, error) {
	samples, err := DecodePCM16(p)
	if err != nil {
		return 0, err
	}
	if err := in.WriteSamples(samples); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteSamples accepts captured samples.
func (in *Input) WriteSamples(samples []int16) error {
	if in.closed.Load() {
		return io.ErrClosedPipe
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	buf := make([]int16, len(samples))
	copy(buf, samples)
	applyGain(buf, in.gain)
	in.framer.push(buf, func(frame []int16) {
		in.meter.Observe(frame)
		in.queue.Push(frame)
	})
	return nil
}

// Close stops capture. Frames written after Close are rejected and Frames is
// closed. Close is idempotent.
func (in *Input) Close() error {
	in.closeOnce.Do(func() {
		in.closed.Store(true)
		if in.release != nil {
			in.closeErr = in.release()
		}
		in.mu.Lock()
		in.queue.Close()
		in.mu.Unlock()
	})
	return in.closeErr
}

// NewInput creates an input graph at InputSampleRate mono.
func NewInput(opts ...GraphOption) *Input {
	o := newGraphOptions(opts)
	return &Input{
		format:  Format{SampleRate: InputSampleRate, Channels: 1},
		gain:    o.gain,
		meter:   NewMeter(o.smoothing),
		framer:  framer{size: FrameSamples},
		queue:   NewFrameQueue(),
		release: o.release,
	}
}

var _ InputGraph = &Input{}
var _ io.Writer = &Input{}
