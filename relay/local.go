package relay

import (
	"context"
	"sync"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

// Local is a participant of a channel on an in-process Hub.
type Local struct {
	*Endpoint
	hub     *Hub
	mu      sync.Mutex
	channel string
	subID   uint64
	unsub   func()
	wg      sync.WaitGroup
}

func NewLocal(hub *Hub, config Config) *Local {
	return &Local{
		Endpoint: NewEndpoint(config),
		hub:      hub,
	}
}

func (l *Local) Subscribe(ctx context.Context, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.Done():
		return ErrClosed
	default:
	}

	if l.unsub != nil {
		l.unsub()
	}

	id, ch, unsub := l.hub.Subscribe(channel)
	l.channel, l.subID, l.unsub = channel, id, unsub

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for data := range ch {
			if !l.Deliver(data) {
				return
			}
		}

		// the hub dropped the subscription, unless it was replaced
		l.mu.Lock()
		lost := l.subID == id && l.unsub != nil
		l.mu.Unlock()
		if lost {
			l.Endpoint.Close()
		}
	}()

	return nil
}

func (l *Local) Publish(ctx context.Context, env *proto.Envelope) error {
	l.mu.Lock()
	channel, id, subscribed := l.channel, l.subID, l.unsub != nil
	l.mu.Unlock()

	if !subscribed {
		return ErrNotSubscribed
	}

	data, err := Encode(env, l.ID())
	if err != nil {
		return err
	}
	l.hub.Publish(channel, id, data)
	l.Sent()
	return nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	if l.unsub != nil {
		l.unsub()
	}
	l.mu.Unlock()

	l.Endpoint.Close()
	l.wg.Wait()
	return nil
}

var _ Relay = &Local{}
