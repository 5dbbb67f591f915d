package lovecall

import (
	"log/slog"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
)

type sessionOptions struct {
	id               string
	userID           string
	logger           *slog.Logger
	dialer           Dialer
	devices          Devices
	camera           Camera
	snapshotInterval time.Duration
	levelInterval    time.Duration
	outbox           *tools.Outbox
	metrics          *metrics.Metrics
	observer         Observer
	toolOptions      []tools.Option
	now              func() time.Time
	debug            bool
}

type Option func(opts *sessionOptions)

func withDefaults() Option {
	return withOptions(
		WithLogger(slog.Default()),
		WithID(proto.CallID()),
		WithSnapshotInterval(time.Second),
		WithLevelInterval(100*time.Millisecond),
		WithClock(time.Now),
	)
}

func withOptions(os ...Option) Option {
	return func(opts *sessionOptions) {
		for _, o := range os {
			o(opts)
		}
	}
}

func WithID(id string) Option {
	return func(opts *sessionOptions) {
		opts.id = id
	}
}

// WithUserID sets the user the call belongs to. Without it no records are
// persisted.
func WithUserID(id string) Option {
	return func(opts *sessionOptions) {
		opts.userID = id
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *sessionOptions) {
		opts.logger = logger
	}
}

func WithDialer(d Dialer) Option {
	return func(opts *sessionOptions) {
		opts.dialer = d
	}
}

func WithDevices(d Devices) Option {
	return func(opts *sessionOptions) {
		opts.devices = d
	}
}

// WithCamera enables sending still frames while the call is connected.
func WithCamera(c Camera) Option {
	return func(opts *sessionOptions) {
		opts.camera = c
	}
}

func WithSnapshotInterval(d time.Duration) Option {
	return func(opts *sessionOptions) {
		opts.snapshotInterval = d
	}
}

// WithLevelInterval sets how often Observer.OnLevels is called.
func WithLevelInterval(d time.Duration) Option {
	return func(opts *sessionOptions) {
		opts.levelInterval = d
	}
}

func WithOutbox(o *tools.Outbox) Option {
	return func(opts *sessionOptions) {
		opts.outbox = o
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *sessionOptions) {
		opts.metrics = m
	}
}

func WithObserver(o Observer) Option {
	return func(opts *sessionOptions) {
		opts.observer = o
	}
}

// WithToolOptions passes extra options to the session's tool dispatcher.
func WithToolOptions(o ...tools.Option) Option {
	return func(opts *sessionOptions) {
		opts.toolOptions = append(opts.toolOptions, o...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *sessionOptions) {
		opts.now = now
	}
}

// WithDebug dumps every model event to stdout.
func WithDebug(debug bool) Option {
	return func(opts *sessionOptions) {
		opts.debug = debug
	}
}
