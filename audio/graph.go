package audio

import "time"

// InputGraph is a capture-only signal graph fixed at InputSampleRate mono.
type InputGraph interface {
	Format() Format
	// Frames yields FrameSamples sized frames until the graph is closed.
	Frames() <-chan []int16
	// Level is the smoothed capture level in [0,100].
	Level() float64
	Close() error
}

// OutputGraph is a playback-only signal graph at the device rate.
type OutputGraph interface {
	Format() Format
	// Clock returns the output clock in samples played so far.
	Clock() int64
	// Schedule queues samples to start at position at on the output clock.
	Schedule(samples []int16, at int64) error
	// Clear discards every queued buffer and returns how many were dropped.
	Clear() int
	// Pending returns the number of queued buffers that have not finished playing.
	Pending() int
	Level() float64
	Close() error
}

type graphOptions struct {
	gain      float64
	smoothing float64
	capacity  time.Duration
	release   func() error
}

type GraphOption func(opts *graphOptions)

func withGraphDefaults() GraphOption {
	return func(opts *graphOptions) {
		opts.gain = 1
		opts.smoothing = defaultMeterSmoothing
		opts.capacity = 2 * time.Minute
	}
}

// WithGain sets the linear gain applied to every sample passing the graph.
func WithGain(gain float64) GraphOption {
	return func(opts *graphOptions) {
		opts.gain = gain
	}
}

// WithSmoothing sets the meter smoothing factor.
func WithSmoothing(smoothing float64) GraphOption {
	return func(opts *graphOptions) {
		opts.smoothing = smoothing
	}
}

// WithCapacity sets how much audio an output graph can hold.
func WithCapacity(d time.Duration) GraphOption {
	return func(opts *graphOptions) {
		opts.capacity = d
	}
}

// WithRelease registers the function releasing the device behind a graph.
// It runs once, on the first Close.
func WithRelease(fn func() error) GraphOption {
	return func(opts *graphOptions) {
		opts.release = fn
	}
}

func newGraphOptions(opts []GraphOption) *graphOptions {
	o := &graphOptions{}
	withGraphDefaults()(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}
