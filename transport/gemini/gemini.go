// Package gemini connects call sessions to the Gemini Live API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

var ErrNoAPIKey = errors.New("gemini: api key is required")

type Dialer struct {
	config Config
	client *genai.Client
}

// NewDialer creates the API client. No connection is made until Dial.
func NewDialer(ctx context.Context, config Config) (*Dialer, error) {
	config.Defaults()
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: config.HTTPOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Dialer{config: config, client: client}, nil
}

func (d *Dialer) Dial(ctx context.Context, config lovecall.CallConfig) (lovecall.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeout)
	defer cancel()

	logger := d.config.Logger.With(
		slog.String("transport", "gemini"),
		slog.String("model", d.config.Model),
	)

	session, err := d.client.Live.Connect(dialCtx, d.config.Model, connectConfig(config))
	if err != nil {
		return nil, fmt.Errorf("gemini: connect: %w", err)
	}

	logger.Info("connected", slog.String("voice", config.Voice))

	c := &conn{
		session: session,
		events:  make(chan lovecall.Event, d.config.EventBuffer),
		closed:  make(chan struct{}),
		logger:  logger,
	}
	go c.readLoop()

	return c, nil
}

var _ lovecall.Dialer = &Dialer{}

type conn struct {
	session   *genai.Session
	events    chan lovecall.Event
	closed    chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
	logger    *slog.Logger
}

func (c *conn) write(fn func() error) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return fn()
}

func (c *conn) SendAudio(_ context.Context, samples []int16) error {
	return c.write(func() error {
		return c.session.SendRealtimeInput(audioInput(samples))
	})
}

func (c *conn) SendImage(_ context.Context, jpeg []byte) error {
	return c.write(func() error {
		return c.session.SendRealtimeInput(imageInput(jpeg))
	})
}

func (c *conn) SendToolResults(_ context.Context, results []*proto.ToolResult) error {
	return c.write(func() error {
		return c.session.SendToolResponse(toolResponse(results))
	})
}

func (c *conn) Events() <-chan lovecall.Event {
	return c.events
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.session.Close()
	})
	return err
}

func (c *conn) emit(evt lovecall.Event) bool {
	select {
	case c.events <- evt:
		return true
	case <-c.closed:
		return false
	}
}

func (c *conn) readLoop() {
	defer close(c.events)

	for {
		msg, err := c.session.Receive()
		if err != nil {
			select {
			case <-c.closed:
				return
			default:
			}
			c.logger.Debug("receive failed", slog.Any("err", err))
			c.emit(lovecall.Event{Type: lovecall.EventClosed, Err: closeError(err)})
			return
		}

		if msg.GoAway != nil {
			c.logger.Warn("server going away", slog.Any("time_left", msg.GoAway.TimeLeft))
		}

		for _, evt := range toEvents(msg) {
			if !c.emit(evt) {
				return
			}
		}
	}
}

// closeError maps a normal websocket close to a clean end of stream.
func closeError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && (ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway) {
		return nil
	}
	return err
}

var _ lovecall.Conn = &conn{}
