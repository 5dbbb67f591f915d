// Package redisrelay runs signaling channels over Redis pub/sub.
package redisrelay

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
)

const DefaultPrefix = "lovecall:signal"

type Params struct {
	// Client is used when set; the relay then does not close it.
	Client redis.UniversalClient
	// URL creates a dedicated client when Client is nil,
	// e.g. redis://localhost:6379/0.
	URL    string
	Prefix string
	Relay  relay.Config
}

type Relay struct {
	*relay.Endpoint
	client     redis.UniversalClient
	ownsClient bool
	prefix     string
	logger     *slog.Logger
	mu         sync.Mutex
	pubsub     *redis.PubSub
	channel    string
	wg         sync.WaitGroup
}

func New(ctx context.Context, params Params) (*Relay, error) {
	client := params.Client
	ownsClient := false
	if client == nil {
		if params.URL == "" {
			return nil, fmt.Errorf("redis client or url is required")
		}
		opts, err := redis.ParseURL(params.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opts)
		ownsClient = true
	}

	if err := client.Ping(ctx).Err(); err != nil {
		if ownsClient {
			_ = client.Close()
		}
		return nil, fmt.Errorf("redis is not reachable: %w", err)
	}

	params.Relay.Defaults()
	r := &Relay{
		Endpoint:   relay.NewEndpoint(params.Relay),
		client:     client,
		ownsClient: ownsClient,
		prefix:     cmp.Or(params.Prefix, DefaultPrefix),
		logger: params.Relay.Logger.With(
			slog.String("component", "relay"),
			slog.String("relay", "redis"),
			slog.String("id", params.Relay.ID),
		),
	}
	return r, nil
}

func (r *Relay) key(channel string) string {
	return fmt.Sprintf("%s:%s", r.prefix, channel)
}

// Subscribe waits for the subscription confirmation from the server.
func (r *Relay) Subscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.Done():
		return relay.ErrClosed
	default:
	}

	if r.pubsub != nil {
		_ = r.pubsub.Close()
		r.wg.Wait()
	}

	ps := r.client.Subscribe(ctx, r.key(channel))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	r.pubsub, r.channel = ps, channel

	r.logger.Debug("subscribed", slog.String("channel", channel))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range ps.Channel() {
			if !r.Deliver([]byte(msg.Payload)) {
				return
			}
		}
	}()

	return nil
}

func (r *Relay) Publish(ctx context.Context, env *proto.Envelope) error {
	r.mu.Lock()
	channel := r.channel
	r.mu.Unlock()

	if channel == "" {
		return relay.ErrNotSubscribed
	}

	data, err := relay.Encode(env, r.ID())
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.key(channel), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", env.Event, err)
	}
	r.Sent()
	return nil
}

func (r *Relay) Close() error {
	r.mu.Lock()
	ps := r.pubsub
	r.mu.Unlock()

	var err error
	if ps != nil {
		err = ps.Close()
	}
	r.Endpoint.Close()
	r.wg.Wait()

	if r.ownsClient {
		if cerr := r.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var _ relay.Relay = &Relay{}
