// Package wsrelay runs signaling channels through a websocket hub server.
package wsrelay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
)

type ClientConfig struct {
	URL            string
	Headers        http.Header
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	Relay          relay.Config
}

func (c *ClientConfig) Defaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 10 * time.Second
	}
	c.Relay.Defaults()
}

type Client struct {
	*relay.Endpoint
	ws      *wsConn
	acks    chan string
	mu      sync.Mutex
	channel string
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// Dial connects to the hub server at config.URL.
func Dial(ctx context.Context, config ClientConfig) (*Client, error) {
	config.Defaults()

	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, err
	}

	logger := config.Relay.Logger.With(
		slog.String("component", "relay"),
		slog.String("relay", "websocket"),
		slog.String("id", config.Relay.ID),
		slog.String("endpoint", config.URL),
	)

	dialCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), config.Headers)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	logger.Debug("websocket connection established")

	c := &Client{
		Endpoint: relay.NewEndpoint(config.Relay),
		ws:       newWSConn(conn, logger),
		acks:     make(chan string, 1),
		logger:   logger,
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.ws.readLoop(c.handleFrame)
		// the hub is gone, so is the channel
		c.Endpoint.Close()
	}()
	go func() {
		defer c.wg.Done()
		c.ws.writeLoop(config.PingInterval)
	}()

	return c, nil
}

func (c *Client) handleFrame(f frame) {
	switch f.Type {
	case frameSubscribed:
		select {
		case c.acks <- f.Channel:
		default:
		}
	case frameMessage:
		c.Deliver(f.Data)
	case frameError:
		c.logger.Warn("relay error", slog.String("error", f.Error))
	default:
		c.logger.Warn("unknown frame", slog.String("type", f.Type))
	}
}

func (c *Client) Subscribe(ctx context.Context, channel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.writeFrame(frame{Type: frameSubscribe, Channel: channel}); err != nil {
		return relay.ErrClosed
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ws.done:
			return relay.ErrClosed
		case got := <-c.acks:
			if got != channel {
				continue
			}
			c.channel = channel
			c.logger.Debug("subscribed", slog.String("channel", channel))
			return nil
		}
	}
}

func (c *Client) Publish(ctx context.Context, env *proto.Envelope) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()

	if channel == "" {
		return relay.ErrNotSubscribed
	}

	data, err := relay.Encode(env, c.ID())
	if err != nil {
		return err
	}
	if err := c.ws.writeFrame(frame{Type: frameMessage, Channel: channel, Data: data}); err != nil {
		return relay.ErrClosed
	}
	c.Sent()
	return nil
}

func (c *Client) Close() error {
	c.Endpoint.Close()
	c.ws.close()
	c.wg.Wait()
	return nil
}

var _ relay.Relay = &Client{}
