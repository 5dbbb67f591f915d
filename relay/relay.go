// Package relay carries signaling envelopes between the participants of a
// named channel. A participant never receives its own messages.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

var (
	ErrClosed        = errors.New("relay: closed")
	ErrNotSubscribed = errors.New("relay: not subscribed")
)

// Inbound is one message received from the channel. Err is set, and Envelope
// nil, when the message could not be decoded.
type Inbound struct {
	Envelope *proto.Envelope
	Err      error
}

type Relay interface {
	// ID identifies this participant. Published envelopes carry it as sender.
	ID() string
	// Subscribe joins channel and returns once the subscription is active.
	Subscribe(ctx context.Context, channel string) error
	// Publish sends env to every other participant of the channel.
	Publish(ctx context.Context, env *proto.Envelope) error
	// Messages is closed by Close.
	Messages() <-chan Inbound
	Close() error
}

type Config struct {
	ID      string
	Buffer  int
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (c *Config) Defaults() {
	if c.ID == "" {
		c.ID = proto.ID()
	}
	if c.Buffer == 0 {
		c.Buffer = 32
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Encode stamps env with sender and marshals it.
func Encode(env *proto.Envelope, sender string) ([]byte, error) {
	env.Sender = sender
	return json.Marshal(env)
}

// Endpoint is the receiving side shared by relay implementations.
type Endpoint struct {
	id      string
	ch      chan Inbound
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEndpoint(config Config) *Endpoint {
	config.Defaults()
	return &Endpoint{
		id:      config.ID,
		ch:      make(chan Inbound, config.Buffer),
		done:    make(chan struct{}),
		logger:  config.Logger,
		metrics: config.Metrics,
	}
}

func (e *Endpoint) ID() string {
	return e.id
}

func (e *Endpoint) Messages() <-chan Inbound {
	return e.ch
}

// Done is closed when the endpoint is closed.
func (e *Endpoint) Done() <-chan struct{} {
	return e.done
}

// Deliver decodes raw and queues it unless it was sent by this endpoint. It
// blocks while the queue is full and returns false once closed.
func (e *Endpoint) Deliver(raw []byte) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	select {
	case <-e.done:
		return false
	default:
	}

	in := Inbound{}
	env, err := proto.ParseEnvelope(raw)
	if err != nil {
		in.Err = err
	} else if env.Sender == e.id {
		return true
	} else {
		in.Envelope = env
	}

	select {
	case e.ch <- in:
		e.metrics.RecordRelayMessage("in")
		return true
	case <-e.done:
		return false
	}
}

// Sent records an outbound message.
func (e *Endpoint) Sent() {
	e.metrics.RecordRelayMessage("out")
}

func (e *Endpoint) Close() {
	e.once.Do(func() {
		close(e.done)
		e.mu.Lock()
		close(e.ch)
		e.mu.Unlock()
	})
}
