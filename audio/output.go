package audio

import (
	"io"
	"sync"
	"time"
)

// Output is the device independent part of an output graph. A device driver
// pulls from it through Read; the session schedules decoded audio into it.
type Output struct {
	format    Format
	gain      float64
	meter     *Meter
	window    int
	buf       *PlaybackBuffer
	closeOnce sync.Once
	release   func() error
	closeErr  error
}

func (o *Output) Format() Format {
	return o.format
}

func (o *Output) Clock() int64 {
	return o.buf.Clock()
}

// ClockTime returns the output clock as play time.
func (o *Output) ClockTime() time.Duration {
	return o.format.Duration(int(o.buf.Clock()))
}

func (o *Output) Schedule(samples []int16, at int64) error {
	buf := make([]int16, len(samples))
	copy(buf, samples)
	applyGain(buf, o.gain)
	_, err := o.buf.Write(buf, at)
	return err
}

func (o *Output) Clear() int {
	n := o.buf.Clear()
	o.meter.Reset()
	return n
}

func (o *Output) Pending() int {
	return o.buf.Pending()
}

func (o *Output) Level() float64 {
	return o.meter.Level()
}

// Read implements io.Reader for the playback device. The meter follows what
// the device is handed, silence padding included.
func (o *Output) Read(p []byte) (int, error) {
	n, err := o.buf.Read(p)
	if n > 0 {
		o.observe(p[:n])
	}
	return n, err
}

func (o *Output) observe(p []byte) {
	samples, err := DecodePCM16(p)
	if err != nil {
		return
	}
	for len(samples) > 0 {
		w := min(o.window, len(samples))
		o.meter.Observe(samples[:w])
		samples = samples[w:]
	}
}

func (o *Output) Close() error {
	o.closeOnce.Do(func() {
		if o.release != nil {
			o.closeErr = o.release()
		}
		_ = o.buf.Close()
	})
	return o.closeErr
}

// NewOutput creates an output graph with the given device format.
func NewOutput(format Format, opts ...GraphOption) *Output {
	o := newGraphOptions(opts)
	if format.Channels == 0 {
		format.Channels = 1
	}
	return &Output{
		format:  format,
		gain:    o.gain,
		meter:   NewMeter(o.smoothing),
		window:  max(1, format.Samples(meterWindow)*format.Channels),
		buf:     NewPlaybackBuffer(format, o.capacity),
		release: o.release,
	}
}

var _ OutputGraph = &Output{}
var _ io.Reader = &Output{}
