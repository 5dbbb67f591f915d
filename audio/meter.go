package audio

import (
	"math"
	"sync"
	"time"
)

const (
	defaultMeterSmoothing = 0.8
	meterScale            = 400.0

	// output levels are observed per window of played audio
	meterWindow = 20 * time.Millisecond
)

// Meter computes an exponentially smoothed mean magnitude in [0,100]. The
// value is a UI heuristic for "is this side producing audio".
type Meter struct {
	mu        sync.Mutex
	smoothing float64
	level     float64
}

func NewMeter(smoothing float64) *Meter {
	if smoothing < 0 || smoothing >= 1 {
		smoothing = defaultMeterSmoothing
	}
	return &Meter{smoothing: smoothing}
}

// Observe feeds one analysis window into the meter and returns the new level.
func (m *Meter) Observe(samples []int16) float64 {
	var raw float64
	if len(samples) > 0 {
		var sum float64
		for _, s := range samples {
			sum += math.Abs(float64(s))
		}
		raw = math.Min(100, sum/float64(len(samples))/32768*meterScale)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = m.smoothing*m.level + (1-m.smoothing)*raw
	return m.level
}

func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = 0
}
