package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

func recv(t *testing.T, r Relay) Inbound {
	t.Helper()
	select {
	case in, ok := <-r.Messages():
		require.True(t, ok)
		return in
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Inbound{}
}

func noMessage(t *testing.T, r Relay) {
	t.Helper()
	select {
	case in := <-r.Messages():
		t.Fatalf("unexpected message: %+v", in)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLocal_DeliversToOthersOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := NewHub()
	defer hub.Close()

	a := NewLocal(hub, Config{ID: "a"})
	b := NewLocal(hub, Config{ID: "b"})
	c := NewLocal(hub, Config{ID: "c"})
	defer a.Close()
	defer b.Close()
	defer c.Close()

	require.NoError(t, a.Subscribe(ctx, "call-1"))
	require.NoError(t, b.Subscribe(ctx, "call-1"))
	require.NoError(t, c.Subscribe(ctx, "call-2"))
	require.Equal(t, 2, hub.Len("call-1"))

	env, err := proto.NewEnvelope(proto.EventOffer, "", &proto.OfferPayload{SDP: "v=0"})
	require.NoError(t, err)
	require.NoError(t, a.Publish(ctx, env))

	in := recv(t, b)
	require.NoError(t, in.Err)
	require.Equal(t, proto.EventOffer, in.Envelope.Event)
	require.Equal(t, "a", in.Envelope.Sender)

	noMessage(t, a)
	noMessage(t, c)
}

func TestLocal_PublishBeforeSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	defer hub.Close()

	a := NewLocal(hub, Config{})
	defer a.Close()

	env, err := proto.NewEnvelope(proto.EventEnd, "", &proto.EndPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, a.Publish(context.Background(), env), ErrNotSubscribed)
}

func TestLocal_CloseClosesMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	defer hub.Close()

	a := NewLocal(hub, Config{})
	require.NoError(t, a.Subscribe(context.Background(), "x"))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, ok := <-a.Messages()
	require.False(t, ok)
	require.ErrorIs(t, a.Subscribe(context.Background(), "x"), ErrClosed)
}

func TestEndpoint_Deliver(t *testing.T) {
	e := NewEndpoint(Config{ID: "me", Buffer: 4})
	defer e.Close()

	own, err := proto.NewEnvelope(proto.EventEnd, "me", &proto.EndPayload{})
	require.NoError(t, err)
	data, err := Encode(own, "me")
	require.NoError(t, err)

	require.True(t, e.Deliver(data))
	require.True(t, e.Deliver([]byte(`{"event":"dance"}`)))
	require.True(t, e.Deliver([]byte(`not json`)))

	in := <-e.Messages()
	require.Nil(t, in.Envelope)
	require.Error(t, in.Err)

	in = <-e.Messages()
	require.Error(t, in.Err)

	select {
	case in := <-e.Messages():
		t.Fatalf("unexpected message: %+v", in)
	default:
	}
}

func TestEndpoint_DeliverAfterClose(t *testing.T) {
	e := NewEndpoint(Config{Buffer: 1})
	e.Close()

	env, err := proto.NewEnvelope(proto.EventEnd, "other", &proto.EndPayload{})
	require.NoError(t, err)
	data, err := Encode(env, "other")
	require.NoError(t, err)

	require.False(t, e.Deliver(data))
}

func TestHub_SlowSubscriberMissesFrames(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, _, unsub := hub.Subscribe("x")
	defer unsub()

	for range 64 {
		require.Equal(t, 1, hub.Publish("x", 999, []byte("{}")))
	}
	require.Equal(t, 0, hub.Publish("x", 999, []byte("{}")))
}
