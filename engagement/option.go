package engagement

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
)

type clockOptions struct {
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
	rand          func() float64
	interval      time.Duration
	intensity     Intensity
	score         float64
	decay         float64
	penalty       float64
	penaltyDelay  time.Duration
	penaltyReason string
	onTrigger     func(Trigger)
}

type Option func(opts *clockOptions)

func withDefaults() Option {
	return withOptions(
		WithLogger(slog.Default()),
		WithClock(time.Now),
		WithRand(rand.Float64),
		WithInterval(time.Second),
		WithIntensity(IntensityMedium),
		WithScore(DefaultScore),
		WithDecay(DefaultDecay),
		WithAbruptPenalty(DefaultPenalty, 2*time.Minute),
	)
}

func withOptions(os ...Option) Option {
	return func(opts *clockOptions) {
		for _, o := range os {
			o(opts)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *clockOptions) {
		opts.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *clockOptions) {
		opts.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *clockOptions) {
		opts.now = now
	}
}

// WithRand sets the source of the per-tick probability rolls, in [0,1).
func WithRand(fn func() float64) Option {
	return func(opts *clockOptions) {
		opts.rand = fn
	}
}

// WithInterval sets the tick period used by Run.
func WithInterval(d time.Duration) Option {
	return func(opts *clockOptions) {
		opts.interval = d
	}
}

func WithIntensity(i Intensity) Option {
	return func(opts *clockOptions) {
		opts.intensity = i
	}
}

// WithScore sets the initial relationship score.
func WithScore(score float64) Option {
	return func(opts *clockOptions) {
		opts.score = score
	}
}

// WithDecay sets how much the score loses per tick.
func WithDecay(step float64) Option {
	return func(opts *clockOptions) {
		opts.decay = step
	}
}

// WithAbruptPenalty sets the score penalty of an abrupt hangup and how long
// after it the partner calls back.
func WithAbruptPenalty(points float64, delay time.Duration) Option {
	return func(opts *clockOptions) {
		opts.penalty = points
		opts.penaltyDelay = delay
		opts.penaltyReason = PenaltyReason
	}
}

// WithOnTrigger is called from Run whenever a tick fires an incoming call.
func WithOnTrigger(fn func(Trigger)) Option {
	return func(opts *clockOptions) {
		opts.onTrigger = fn
	}
}
