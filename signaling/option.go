package signaling

import (
	"log/slog"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
)

type callOptions struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	observer    Observer
	endTimeout  time.Duration
	debug       bool
	eventBuffer int
}

type Option func(opts *callOptions)

func withDefaults() Option {
	return withOptions(
		WithLogger(slog.Default()),
		WithEndTimeout(2*time.Second),
		func(opts *callOptions) {
			opts.eventBuffer = 32
		},
	)
}

func withOptions(os ...Option) Option {
	return func(opts *callOptions) {
		for _, o := range os {
			o(opts)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *callOptions) {
		opts.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *callOptions) {
		opts.metrics = m
	}
}

func WithObserver(o Observer) Option {
	return func(opts *callOptions) {
		opts.observer = o
	}
}

// WithEndTimeout bounds how long sending the end message may take on hangup.
func WithEndTimeout(d time.Duration) Option {
	return func(opts *callOptions) {
		opts.endTimeout = d
	}
}

// WithDebug dumps every envelope to stdout.
func WithDebug(debug bool) Option {
	return func(opts *callOptions) {
		opts.debug = debug
	}
}
