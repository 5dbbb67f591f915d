package redisrelay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
)

func newRelay(t *testing.T, client redis.UniversalClient, id string) *Relay {
	t.Helper()
	r, err := New(context.Background(), Params{Client: client, Relay: relay.Config{ID: id}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRelay_PubSub(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	caller := newRelay(t, client, "caller")
	callee := newRelay(t, client, "callee")

	require.NoError(t, caller.Subscribe(ctx, "call-1"))
	require.NoError(t, callee.Subscribe(ctx, "call-1"))

	env, err := proto.NewEnvelope(proto.EventOffer, "", &proto.OfferPayload{SDP: "v=0"})
	require.NoError(t, err)
	require.NoError(t, caller.Publish(ctx, env))

	select {
	case in := <-callee.Messages():
		require.NoError(t, in.Err)
		require.Equal(t, proto.EventOffer, in.Envelope.Event)
		require.Equal(t, "caller", in.Envelope.Sender)
	case <-time.After(2 * time.Second):
		t.Fatal("callee received nothing")
	}

	select {
	case in := <-caller.Messages():
		t.Fatalf("caller received its own message: %+v", in)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelay_MalformedMessage(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r := newRelay(t, client, "a")
	require.NoError(t, r.Subscribe(ctx, "call-1"))

	require.NoError(t, client.Publish(ctx, DefaultPrefix+":call-1", "garbage").Err())

	select {
	case in := <-r.Messages():
		var pv *proto.ProtocolViolation
		require.ErrorAs(t, in.Err, &pv)
	case <-time.After(2 * time.Second):
		t.Fatal("nothing received")
	}
}

func TestRelay_PublishBeforeSubscribe(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	r := newRelay(t, client, "a")
	env, err := proto.NewEnvelope(proto.EventEnd, "", &proto.EndPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, r.Publish(context.Background(), env), relay.ErrNotSubscribed)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, Params{URL: "redis://127.0.0.1:1/0"})
	require.Error(t, err)

	_, err = New(ctx, Params{})
	require.Error(t, err)
}
