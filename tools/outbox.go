package tools

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

// Outbox is a one-way persistence queue. Enqueue never blocks the caller;
// a single worker applies records to the store and only logs failures.
type Outbox struct {
	store   store.Store
	ch      chan store.Record
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type OutboxConfig struct {
	Size    int
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (c *OutboxConfig) Defaults() {
	if c.Size == 0 {
		c.Size = 256
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func NewOutbox(s store.Store, config OutboxConfig) *Outbox {
	config.Defaults()

	o := &Outbox{
		store:   s,
		ch:      make(chan store.Record, config.Size),
		done:    make(chan struct{}),
		timeout: config.Timeout,
		logger:  config.Logger.With(slog.String("component", "outbox")),
		metrics: config.Metrics,
	}

	go o.run()

	return o
}

// Enqueue queues r. It returns false when the outbox is full or closed; the
// record is then dropped.
func (o *Outbox) Enqueue(r store.Record) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return false
	}

	select {
	case o.ch <- r:
		return true
	default:
		o.logger.Warn("outbox full, dropping record", slog.String("kind", r.Kind()))
		o.metrics.RecordOutbox(r.Kind(), "dropped")
		return false
	}
}

func (o *Outbox) run() {
	defer close(o.done)
	for r := range o.ch {
		o.apply(r)
	}
}

func (o *Outbox) apply(r store.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if err := r.Apply(ctx, o.store); err != nil {
		o.logger.Warn("persisting record failed", slog.String("kind", r.Kind()), slog.Any("err", err))
		o.metrics.RecordOutbox(r.Kind(), "error")
		return
	}
	o.metrics.RecordOutbox(r.Kind(), "ok")
}

// Close stops accepting records and waits until queued ones are applied.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
	o.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return nil
	}
}
