// Package tools maps tool calls issued by the speech model to local side
// effects and produces exactly one result per call.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

type dispatcherOptions struct {
	userID     string
	now        func() time.Time
	logger     *slog.Logger
	outbox     *Outbox
	metrics    *metrics.Metrics
	gestureTTL time.Duration
	onGesture  func(Gesture)
	handlers   []Handler
	debug      bool
}

type Option func(opts *dispatcherOptions)

func withDefaults() Option {
	return withOptions(
		WithLogger(slog.Default()),
		WithClock(time.Now),
		WithGestureTTL(3*time.Second),
		WithHandlers(DefaultHandlers()...),
	)
}

func withOptions(os ...Option) Option {
	return func(opts *dispatcherOptions) {
		for _, o := range os {
			o(opts)
		}
	}
}

// WithUserID sets the user whose records tool calls persist. Without it
// nothing is persisted.
func WithUserID(id string) Option {
	return func(opts *dispatcherOptions) {
		opts.userID = id
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *dispatcherOptions) {
		opts.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *dispatcherOptions) {
		opts.logger = logger
	}
}

func WithOutbox(o *Outbox) Option {
	return func(opts *dispatcherOptions) {
		opts.outbox = o
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *dispatcherOptions) {
		opts.metrics = m
	}
}

func WithGestureTTL(ttl time.Duration) Option {
	return func(opts *dispatcherOptions) {
		opts.gestureTTL = ttl
	}
}

// WithGestureObserver is notified when a gesture cue is shown or cleared.
func WithGestureObserver(fn func(Gesture)) Option {
	return func(opts *dispatcherOptions) {
		opts.onGesture = fn
	}
}

// WithHandlers replaces the registered handlers.
func WithHandlers(handlers ...Handler) Option {
	return func(opts *dispatcherOptions) {
		opts.handlers = handlers
	}
}

// WithDebug logs every call before it is handled.
func WithDebug(debug bool) Option {
	return func(opts *dispatcherOptions) {
		opts.debug = debug
	}
}

// Dispatcher serves the tool calls of one call session.
type Dispatcher struct {
	handlers  map[string]Handler
	userID    string
	now       func() time.Time
	logger    *slog.Logger
	outbox    *Outbox
	metrics   *metrics.Metrics
	gestures  *GestureCue
	mu        sync.Mutex
	scheduled *proto.ScheduledCall
}

func NewDispatcher(opts ...Option) *Dispatcher {
	o := &dispatcherOptions{}
	withOptions(withDefaults(), withOptions(opts...))(o)

	d := &Dispatcher{
		handlers: make(map[string]Handler, len(o.handlers)),
		userID:   o.userID,
		now:      o.now,
		logger:   o.logger.With(slog.String("component", "tools")),
		outbox:   o.outbox,
		metrics:  o.metrics,
		gestures: NewGestureCue(o.gestureTTL, o.onGesture),
	}

	for _, h := range o.handlers {
		if o.debug {
			h = Middleware(LogCall, h)
		}
		d.handlers[h.ToolName()] = h
	}

	return d
}

// Dispatch serves call and always returns a result carrying its ID.
func (d *Dispatcher) Dispatch(ctx context.Context, call proto.ToolCall) (res *proto.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			res = d.fail(&call, fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := call.Validate(); err != nil {
		return d.fail(&call, err)
	}

	h, ok := d.handlers[call.Name]
	if !ok {
		return d.fail(&call, fmt.Errorf("unknown tool: %s", call.Name))
	}

	out, err := h.Handle(ctx, &handlerCtx{d: d}, &call)
	if err != nil {
		return d.fail(&call, err)
	}

	d.metrics.RecordToolCall(call.Name, "ok")
	return call.Ok(out)
}

func (d *Dispatcher) fail(call *proto.ToolCall, err error) *proto.ToolResult {
	tde := proto.ToToolDispatchError(call.Name, err)
	d.logger.Warn("tool call failed",
		slog.String("call_id", call.ID),
		slog.String("tool", call.Name),
		slog.Any("err", tde),
	)
	d.metrics.RecordToolCall(call.Name, "error")
	return call.NotOk(tde)
}

// DispatchAll serves every call concurrently and returns once all of them are
// done. The result order is unspecified.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []proto.ToolCall) []*proto.ToolResult {
	results := make([]*proto.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.Dispatch(ctx, call)
		}()
	}
	wg.Wait()

	return results
}

// ScheduledCall returns the last callback the model asked for, if any.
func (d *Dispatcher) ScheduledCall() *proto.ScheduledCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scheduled == nil {
		return nil
	}
	sc := *d.scheduled
	return &sc
}

// Gesture returns the gesture cue currently shown.
func (d *Dispatcher) Gesture() Gesture {
	return d.gestures.Current()
}

// Persist hands r to the outbox. Without an outbox or a user, r is dropped.
func (d *Dispatcher) Persist(r store.Record) {
	if d.outbox == nil {
		d.logger.Debug("no outbox, dropping record", slog.String("kind", r.Kind()))
		return
	}
	d.outbox.Enqueue(r)
}

// Close cancels the gesture auto-clear timer.
func (d *Dispatcher) Close() {
	d.gestures.Close()
}

type handlerCtx struct {
	d *Dispatcher
}

func (h *handlerCtx) UserID() string {
	return h.d.userID
}

func (h *handlerCtx) Now() time.Time {
	return h.d.now()
}

func (h *handlerCtx) Log() *slog.Logger {
	return h.d.logger
}

func (h *handlerCtx) Persist(r store.Record) {
	h.d.Persist(r)
}

func (h *handlerCtx) SetScheduledCall(sc proto.ScheduledCall) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	h.d.scheduled = &sc
}

func (h *handlerCtx) ShowGesture(g Gesture) {
	h.d.gestures.Show(g)
}

var _ HandlerCtx = &handlerCtx{}
