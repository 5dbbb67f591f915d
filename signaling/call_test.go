package signaling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
)

// fakePeer connects once it has a remote description and at least one
// remote candidate, like a real ICE agent would.
type fakePeer struct {
	name       string
	events     PeerEvents
	mu         sync.Mutex
	remote     SDPType
	candidates []proto.ICECandidate
	track      bool
	closed     bool
}

func (p *fakePeer) CreateOffer() (string, error) {
	go p.events.OnICECandidate(proto.ICECandidate{Candidate: "candidate:" + p.name})
	return "offer:" + p.name, nil
}

func (p *fakePeer) CreateAnswer() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote != SDPOffer {
		return "", errors.New("no remote offer")
	}
	go p.events.OnICECandidate(proto.ICECandidate{Candidate: "candidate:" + p.name})
	return "answer:" + p.name, nil
}

func (p *fakePeer) SetRemoteDescription(typ SDPType, sdp string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = typ
	p.maybeConnect()
	return nil
}

func (p *fakePeer) AddICECandidate(c proto.ICECandidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == "" {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, c)
	p.maybeConnect()
	return nil
}

// maybeConnect must be called with p.mu held.
func (p *fakePeer) maybeConnect() {
	if p.track || p.remote == "" || len(p.candidates) == 0 {
		return
	}
	p.track = true
	go p.events.OnTrack()
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) Candidates() []proto.ICECandidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]proto.ICECandidate(nil), p.candidates...)
}

func (p *fakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type peerBox struct {
	mu   sync.Mutex
	peer *fakePeer
}

func (b *peerBox) factory(name string) PeerFactory {
	return func(ctx context.Context, events PeerEvents) (PeerConn, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.peer = &fakePeer{name: name, events: events}
		return b.peer, nil
	}
}

func (b *peerBox) get() *fakePeer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peer
}

func waitState(t *testing.T, c *Call, state State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == state
	}, 2*time.Second, 5*time.Millisecond)
}

func recvEvent(t *testing.T, r relay.Relay, event string) *proto.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case in := <-r.Messages():
			require.NoError(t, in.Err)
			if in.Envelope.Event == event {
				return in.Envelope
			}
		case <-deadline:
			t.Fatalf("no %s received", event)
			return nil
		}
	}
}

func publish(t *testing.T, r relay.Relay, event string, payload any) {
	t.Helper()
	env, err := proto.NewEnvelope(event, r.ID(), payload)
	require.NoError(t, err)
	require.NoError(t, r.Publish(context.Background(), env))
}

func TestCall_Negotiation(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	var callerPeer, calleePeer peerBox
	callee := NewCall("call-1", RoleCallee, relay.NewLocal(hub, relay.Config{ID: "callee"}), calleePeer.factory("b"))
	caller := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{ID: "caller"}), callerPeer.factory("a"))

	require.NoError(t, callee.Start(ctx))
	require.Equal(t, StateNegotiating, callee.State())
	require.NoError(t, caller.Start(ctx))

	waitState(t, caller, StateConnected)
	waitState(t, callee, StateConnected)

	require.Equal(t, EndLocal, caller.Hangup())
	<-callee.Done()
	require.Equal(t, EndRemote, callee.Reason())
	require.True(t, callerPeer.get().Closed())
	require.True(t, calleePeer.get().Closed())
}

func TestCall_CandidateBeforeAnswerIsBuffered(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	remote := relay.NewLocal(hub, relay.Config{ID: "remote"})
	defer remote.Close()
	require.NoError(t, remote.Subscribe(ctx, "call-1"))

	var peer peerBox
	caller := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{ID: "caller"}), peer.factory("a"))
	require.NoError(t, caller.Start(ctx))
	defer caller.Hangup()

	offer, err := proto.DecodePayload[proto.OfferPayload](recvEvent(t, remote, proto.EventOffer))
	require.NoError(t, err)
	require.Equal(t, "offer:a", offer.SDP)

	// candidates race ahead of the answer
	publish(t, remote, proto.EventICE, &proto.ICEPayload{Candidate: proto.ICECandidate{Candidate: "candidate:1"}})
	publish(t, remote, proto.EventICE, &proto.ICEPayload{Candidate: proto.ICECandidate{Candidate: "candidate:2"}})
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, peer.get().Candidates())
	require.Equal(t, StateNegotiating, caller.State())

	publish(t, remote, proto.EventAnswer, &proto.AnswerPayload{SDP: "answer:remote"})

	waitState(t, caller, StateConnected)
	require.Equal(t, []proto.ICECandidate{{Candidate: "candidate:1"}, {Candidate: "candidate:2"}}, peer.get().Candidates())
}

func TestCall_LocalCandidatesAreSent(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	remote := relay.NewLocal(hub, relay.Config{ID: "remote"})
	defer remote.Close()
	require.NoError(t, remote.Subscribe(ctx, "call-1"))

	var peer peerBox
	caller := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{ID: "caller"}), peer.factory("a"))
	require.NoError(t, caller.Start(ctx))
	defer caller.Hangup()

	ice, err := proto.DecodePayload[proto.ICEPayload](recvEvent(t, remote, proto.EventICE))
	require.NoError(t, err)
	require.Equal(t, "candidate:a", ice.Candidate.Candidate)
}

func TestCall_CancelBeforeAnswerSendsEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	remote := relay.NewLocal(hub, relay.Config{ID: "remote"})
	defer remote.Close()
	require.NoError(t, remote.Subscribe(ctx, "call-1"))

	var peer peerBox
	caller := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{ID: "caller"}), peer.factory("a"))
	require.NoError(t, caller.Start(ctx))
	recvEvent(t, remote, proto.EventOffer)

	require.Equal(t, EndLocal, caller.Hangup())
	require.Equal(t, EndLocal, caller.Hangup())
	recvEvent(t, remote, proto.EventEnd)

	require.ErrorIs(t, caller.Start(ctx), ErrEnded)
}

func TestCall_RemoteEndIsNotEchoed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	remote := relay.NewLocal(hub, relay.Config{ID: "remote"})
	defer remote.Close()
	require.NoError(t, remote.Subscribe(ctx, "call-1"))

	var peer peerBox
	callee := NewCall("call-1", RoleCallee, relay.NewLocal(hub, relay.Config{ID: "callee"}), peer.factory("b"))
	require.NoError(t, callee.Start(ctx))

	publish(t, remote, proto.EventEnd, &proto.EndPayload{})
	<-callee.Done()
	require.Equal(t, EndRemote, callee.Reason())

	select {
	case in := <-remote.Messages():
		t.Fatalf("unexpected message: %+v", in.Envelope)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCall_MicrophoneFailureAbortsBeforeSubscribing(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := relay.NewHub()
	defer hub.Close()

	var ended []EndReason
	call := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{}),
		func(ctx context.Context, events PeerEvents) (PeerConn, error) {
			return nil, proto.NewDeviceError("microphone", errors.New("permission denied"))
		},
		WithObserver(Observer{OnEnded: func(r EndReason) { ended = append(ended, r) }}),
	)

	err := call.Start(context.Background())
	require.True(t, proto.IsDeviceError(err))
	require.Zero(t, hub.Len("call-1"))
	require.Equal(t, StateEnded, call.State())
	require.Equal(t, []EndReason{EndSetup}, ended)
}

func TestCall_ProtocolViolationsAreIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	remote := relay.NewLocal(hub, relay.Config{ID: "remote"})
	defer remote.Close()
	require.NoError(t, remote.Subscribe(ctx, "call-1"))

	m := metrics.New("test")
	var peer peerBox
	caller := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{ID: "caller"}), peer.factory("a"),
		WithMetrics(m),
	)
	require.NoError(t, caller.Start(ctx))
	defer caller.Hangup()

	recvEvent(t, remote, proto.EventOffer)

	// a caller never accepts an offer
	publish(t, remote, proto.EventOffer, &proto.OfferPayload{SDP: "offer:remote"})
	// malformed answer
	publish(t, remote, proto.EventAnswer, &proto.AnswerPayload{})
	// valid answer, then a duplicate
	publish(t, remote, proto.EventAnswer, &proto.AnswerPayload{SDP: "answer:1"})
	publish(t, remote, proto.EventAnswer, &proto.AnswerPayload{SDP: "answer:2"})
	publish(t, remote, proto.EventICE, &proto.ICEPayload{Candidate: proto.ICECandidate{Candidate: "candidate:1"}})

	waitState(t, caller, StateConnected)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.SignalingViolationsTotal.WithLabelValues(proto.EventAnswer)) == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.SignalingViolationsTotal.WithLabelValues(proto.EventOffer)))
}

func TestCall_TransportFailureEndsCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := relay.NewHub()
	defer hub.Close()

	remote := relay.NewLocal(hub, relay.Config{ID: "remote"})
	defer remote.Close()
	require.NoError(t, remote.Subscribe(ctx, "call-1"))

	var peer peerBox
	callee := NewCall("call-1", RoleCallee, relay.NewLocal(hub, relay.Config{ID: "callee"}), peer.factory("b"))
	require.NoError(t, callee.Start(ctx))

	peer.get().events.OnStateChange(PeerFailed)
	<-callee.Done()
	require.Equal(t, EndTransport, callee.Reason())
}

func TestCall_RelayLossEndsCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := relay.NewHub()

	var peer peerBox
	callee := NewCall("call-1", RoleCallee, relay.NewLocal(hub, relay.Config{ID: "callee"}), peer.factory("b"))
	require.NoError(t, callee.Start(context.Background()))

	// closing the hub ends every subscription
	hub.Close()
	<-callee.Done()
	require.Equal(t, EndTransport, callee.Reason())
}

func TestCall_HangupBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := relay.NewHub()
	defer hub.Close()

	var peer peerBox
	call := NewCall("call-1", RoleCaller, relay.NewLocal(hub, relay.Config{}), peer.factory("a"))
	require.Equal(t, EndLocal, call.Hangup())
	require.Nil(t, peer.get())
	require.ErrorIs(t, call.Start(context.Background()), ErrEnded)
}
