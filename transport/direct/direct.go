// Package direct connects a session to an in-process model. It is used by
// tests and by the offline demo mode.
package direct

import (
	"context"
	"errors"
	"sync"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

var ErrClosed = errors.New("direct: connection closed")

// Model is the remote end of a direct connection.
type Model struct {
	events  chan lovecall.Event
	audio   chan []int16
	images  chan []byte
	results chan []*proto.ToolResult
	closed  chan struct{}
	once    sync.Once
	mu      sync.Mutex
	config  lovecall.CallConfig
	frames  int
}

// Emit delivers evt to the session. It returns false once the connection is
// closed.
func (m *Model) Emit(evt lovecall.Event) bool {
	select {
	case <-m.closed:
		return false
	default:
	}
	select {
	case m.events <- evt:
		return true
	case <-m.closed:
		return false
	}
}

// Hangup ends the stream from the model side with the given error.
func (m *Model) Hangup(err error) {
	m.Emit(lovecall.Event{Type: lovecall.EventClosed, Err: err})
}

// Audio yields the frames sent by the session.
func (m *Model) Audio() <-chan []int16 {
	return m.audio
}

func (m *Model) Images() <-chan []byte {
	return m.images
}

// ToolResults yields one slice per SendToolResults call.
func (m *Model) ToolResults() <-chan []*proto.ToolResult {
	return m.results
}

// Closed is closed when the session closed the connection.
func (m *Model) Closed() <-chan struct{} {
	return m.closed
}

// Config returns the configuration the session dialed with.
func (m *Model) Config() lovecall.CallConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// FramesSent counts every audio frame received, including the ones that did
// not fit into the Audio channel.
func (m *Model) FramesSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

type conn struct {
	m *Model
}

func (c *conn) isClosed() bool {
	select {
	case <-c.m.closed:
		return true
	default:
		return false
	}
}

func (c *conn) SendAudio(ctx context.Context, samples []int16) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.m.mu.Lock()
	c.m.frames++
	c.m.mu.Unlock()

	select {
	case <-c.m.closed:
		return ErrClosed
	case c.m.audio <- samples:
	default:
	}
	return nil
}

func (c *conn) SendImage(ctx context.Context, jpeg []byte) error {
	if c.isClosed() {
		return ErrClosed
	}

	select {
	case <-c.m.closed:
		return ErrClosed
	case c.m.images <- jpeg:
	default:
	}
	return nil
}

func (c *conn) SendToolResults(ctx context.Context, results []*proto.ToolResult) error {
	if c.isClosed() {
		return ErrClosed
	}

	select {
	case <-c.m.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.m.results <- results:
		return nil
	}
}

func (c *conn) Events() <-chan lovecall.Event {
	return c.m.events
}

func (c *conn) Close() error {
	c.m.once.Do(func() {
		close(c.m.closed)
	})
	return nil
}

var _ lovecall.Conn = &conn{}

// New returns a dialer whose single connection is driven through the
// returned Model. EventOpen is queued on dial.
func New() (lovecall.Dialer, *Model) {
	m := &Model{
		events:  make(chan lovecall.Event, 64),
		audio:   make(chan []int16, 64),
		images:  make(chan []byte, 8),
		results: make(chan []*proto.ToolResult, 8),
		closed:  make(chan struct{}),
	}

	d := lovecall.DialerFunc(func(ctx context.Context, config lovecall.CallConfig) (lovecall.Conn, error) {
		m.mu.Lock()
		m.config = config
		m.mu.Unlock()
		m.events <- lovecall.Event{Type: lovecall.EventOpen}
		return &conn{m: m}, nil
	})

	return d, m
}
