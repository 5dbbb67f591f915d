// Package signaling negotiates a peer-to-peer audio call over a relay
// channel shared by exactly two participants, a caller and a callee.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
)

var (
	ErrAlreadyStarted = errors.New("signaling: already started")
	ErrEnded          = errors.New("signaling: call ended")
)

type Role string

const (
	RoleCaller Role = "caller"
	RoleCallee Role = "callee"
)

type State string

const (
	StateIdle        State = "idle"
	StateNegotiating State = "negotiating"
	StateConnected   State = "connected"
	StateEnded       State = "ended"
)

type EndReason string

const (
	// EndLocal is a local hangup, including a cancel before the answer.
	EndLocal EndReason = "local_hangup"
	// EndRemote is an end message from the other side.
	EndRemote EndReason = "remote_hangup"
	// EndTransport is a failed peer connection or a lost relay.
	EndTransport EndReason = "transport_failed"
	// EndSetup is a failure before negotiation started.
	EndSetup EndReason = "setup_failed"
)

type Observer struct {
	OnStateChange func(state State)
	OnEnded       func(reason EndReason)
}

type peerEventKind int

const (
	peerCandidate peerEventKind = iota
	peerTrack
	peerState
)

type peerEvent struct {
	kind      peerEventKind
	candidate proto.ICECandidate
	state     PeerState
}

// Call is one peer call. All negotiation state is owned by its event loop.
type Call struct {
	id       string
	role     Role
	relay    relay.Relay
	newPeer  PeerFactory
	logger   *slog.Logger
	metrics  *metrics.Metrics
	observer Observer
	opts     *callOptions
	events   chan peerEvent
	close    chan struct{}
	done     chan struct{}
	endOnce  sync.Once
	tearOnce sync.Once

	mu      sync.Mutex
	state   State
	reason  EndReason
	sendEnd bool
	started bool
	running bool
	peer    PeerConn

	// loop only
	remoteSet bool
	offerSent bool
	pending   []proto.ICECandidate
}

// NewCall prepares a call on the channel named callID. The relay is released
// when the call ends.
func NewCall(callID string, role Role, r relay.Relay, newPeer PeerFactory, opts ...Option) *Call {
	o := &callOptions{}
	withOptions(withDefaults(), withOptions(opts...))(o)

	return &Call{
		id:      callID,
		role:    role,
		relay:   r,
		newPeer: newPeer,
		logger: o.logger.With(
			slog.String("component", "signaling"),
			slog.String("call_id", callID),
			slog.String("role", string(role)),
		),
		metrics:  o.metrics,
		observer: o.observer,
		opts:     o,
		events:   make(chan peerEvent, o.eventBuffer),
		close:    make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateIdle,
	}
}

func (c *Call) ID() string {
	return c.id
}

func (c *Call) Role() Role {
	return c.role
}

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason returns why the call ended, or "" while it is running.
func (c *Call) Reason() EndReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Done is closed once the call is torn down.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Start creates the peer connection and joins the channel. The caller sends
// its offer once the subscription is active. A microphone failure aborts
// before joining.
func (c *Call) Start(ctx context.Context) error {
	c.mu.Lock()
	if state := c.state; state != StateIdle {
		c.mu.Unlock()
		if state == StateEnded {
			return ErrEnded
		}
		return ErrAlreadyStarted
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	peer, err := c.newPeer(ctx, PeerEvents{
		OnICECandidate: func(cand proto.ICECandidate) {
			c.post(peerEvent{kind: peerCandidate, candidate: cand})
		},
		OnTrack: func() {
			c.post(peerEvent{kind: peerTrack})
		},
		OnStateChange: func(s PeerState) {
			c.post(peerEvent{kind: peerState, state: s})
		},
	})
	if err != nil {
		c.terminate(EndSetup, false)
		return err
	}
	if !c.attach(func() { c.peer = peer }) {
		_ = peer.Close()
		return ErrEnded
	}

	if err := c.relay.Subscribe(ctx, c.id); err != nil {
		c.terminate(EndSetup, false)
		return proto.NewTransportError("subscribe", err)
	}

	if c.role == RoleCaller {
		sdp, err := peer.CreateOffer()
		if err != nil {
			c.terminate(EndSetup, false)
			return fmt.Errorf("create offer: %w", err)
		}
		if err := c.publish(ctx, proto.EventOffer, &proto.OfferPayload{SDP: sdp}); err != nil {
			c.terminate(EndSetup, false)
			return proto.NewTransportError("send offer", err)
		}
		c.offerSent = true
	}

	if !c.attach(func() {
		c.running = true
		c.setState(StateNegotiating)
	}) {
		return ErrEnded
	}
	c.notifyState(StateNegotiating)

	go c.run()

	return nil
}

func (c *Call) attach(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateEnded {
		return false
	}
	fn()
	return true
}

// Hangup ends the call and tells the other side. It is idempotent and
// returns once the call is torn down.
func (c *Call) Hangup() EndReason {
	c.terminate(EndLocal, true)
	<-c.done
	return c.Reason()
}

func (c *Call) post(evt peerEvent) {
	select {
	case c.events <- evt:
	case <-c.close:
	}
}

// setState must be called with c.mu held.
func (c *Call) setState(state State) {
	c.state = state
	c.logger.Debug("Call.setState", slog.Any("state", state))
}

func (c *Call) notifyState(state State) {
	if c.observer.OnStateChange != nil {
		c.observer.OnStateChange(state)
	}
}

func (c *Call) terminate(reason EndReason, sendEnd bool) {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.setState(StateEnded)
		c.reason = reason
		c.sendEnd = sendEnd
		running := c.running
		c.mu.Unlock()

		c.logger.Info("ending call", slog.String("reason", string(reason)))
		close(c.close)

		if !running {
			c.teardown()
		}
	})
}

func (c *Call) teardown() {
	c.tearOnce.Do(func() {
		c.mu.Lock()
		peer, reason, sendEnd, negotiated := c.peer, c.reason, c.sendEnd, c.running
		c.mu.Unlock()

		if sendEnd && negotiated {
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.endTimeout)
			if err := c.publish(ctx, proto.EventEnd, &proto.EndPayload{}); err != nil {
				c.logger.Warn("failed to send end", slog.Any("err", err))
			}
			cancel()
		}

		if peer != nil {
			if err := peer.Close(); err != nil {
				c.logger.Warn("failed to close peer connection", slog.Any("err", err))
			}
		}
		if err := c.relay.Close(); err != nil {
			c.logger.Warn("failed to release relay", slog.Any("err", err))
		}

		c.metrics.RecordPeerCall(string(c.role), string(reason))
		c.notifyState(StateEnded)
		if c.observer.OnEnded != nil {
			c.observer.OnEnded(reason)
		}
		close(c.done)
	})
}

func (c *Call) publish(ctx context.Context, event string, payload any) error {
	env, err := proto.NewEnvelope(event, c.relay.ID(), payload)
	if err != nil {
		return err
	}
	if c.opts.debug {
		debugEnvelope(c.id, env, "out")
	}
	return c.relay.Publish(ctx, env)
}

func (c *Call) run() {
	defer c.teardown()

	messages := c.relay.Messages()
	for {
		select {
		case <-c.close:
			return

		case in, ok := <-messages:
			if !ok {
				c.logger.Warn("relay closed")
				c.terminate(EndTransport, false)
				return
			}
			if in.Err != nil {
				c.violation("", in.Err)
				continue
			}
			if c.opts.debug {
				debugEnvelope(c.id, in.Envelope, "in")
			}
			if !c.handleEnvelope(in.Envelope) {
				return
			}

		case evt := <-c.events:
			if !c.handlePeerEvent(evt) {
				return
			}
		}
	}
}

func (c *Call) violation(event string, err error) {
	c.logger.Warn("ignoring signaling message", slog.String("event", event), slog.Any("err", err))
	c.metrics.RecordSignalingViolation(event)
}

// handleEnvelope returns false once the call must stop.
func (c *Call) handleEnvelope(env *proto.Envelope) bool {
	switch env.Event {
	case proto.EventOffer:
		c.handleOffer(env)
	case proto.EventAnswer:
		c.handleAnswer(env)
	case proto.EventICE:
		c.handleICE(env)
	case proto.EventEnd:
		c.terminate(EndRemote, false)
		return false
	}
	return true
}

func (c *Call) handleOffer(env *proto.Envelope) {
	if c.role != RoleCallee {
		c.violation(env.Event, proto.NewProtocolViolation(env.Event, "offer received by %s", c.role))
		return
	}
	if c.remoteSet {
		c.violation(env.Event, proto.NewProtocolViolation(env.Event, "duplicate offer"))
		return
	}

	offer, err := proto.DecodePayload[proto.OfferPayload](env)
	if err != nil {
		c.violation(env.Event, err)
		return
	}

	if err := c.peer.SetRemoteDescription(SDPOffer, offer.SDP); err != nil {
		c.violation(env.Event, proto.NewProtocolViolation(env.Event, "set remote description: %v", err))
		return
	}
	c.remoteSet = true
	c.flushCandidates()

	sdp, err := c.peer.CreateAnswer()
	if err != nil {
		c.logger.Error("create answer failed", slog.Any("err", err))
		c.terminate(EndTransport, true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.endTimeout)
	defer cancel()
	if err := c.publish(ctx, proto.EventAnswer, &proto.AnswerPayload{SDP: sdp}); err != nil {
		c.logger.Error("send answer failed", slog.Any("err", err))
		c.terminate(EndTransport, false)
		return
	}
}

func (c *Call) handleAnswer(env *proto.Envelope) {
	if c.role != RoleCaller || !c.offerSent {
		c.violation(env.Event, proto.NewProtocolViolation(env.Event, "answer received by %s", c.role))
		return
	}
	if c.remoteSet {
		c.violation(env.Event, proto.NewProtocolViolation(env.Event, "remote description already set"))
		return
	}

	answer, err := proto.DecodePayload[proto.AnswerPayload](env)
	if err != nil {
		c.violation(env.Event, err)
		return
	}

	if err := c.peer.SetRemoteDescription(SDPAnswer, answer.SDP); err != nil {
		c.violation(env.Event, proto.NewProtocolViolation(env.Event, "set remote description: %v", err))
		return
	}
	c.remoteSet = true
	c.flushCandidates()
}

func (c *Call) handleICE(env *proto.Envelope) {
	ice, err := proto.DecodePayload[proto.ICEPayload](env)
	if err != nil {
		c.violation(env.Event, err)
		return
	}

	if !c.remoteSet {
		c.pending = append(c.pending, ice.Candidate)
		c.logger.Debug("buffering candidate", slog.Int("pending", len(c.pending)))
		return
	}
	c.addCandidate(ice.Candidate)
}

func (c *Call) flushCandidates() {
	for _, cand := range c.pending {
		c.addCandidate(cand)
	}
	c.pending = nil
}

func (c *Call) addCandidate(cand proto.ICECandidate) {
	if err := c.peer.AddICECandidate(cand); err != nil {
		c.violation(proto.EventICE, proto.NewProtocolViolation(proto.EventICE, "add candidate: %v", err))
	}
}

func (c *Call) handlePeerEvent(evt peerEvent) bool {
	switch evt.kind {
	case peerCandidate:
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.endTimeout)
		defer cancel()
		if err := c.publish(ctx, proto.EventICE, &proto.ICEPayload{Candidate: evt.candidate}); err != nil {
			c.logger.Warn("send candidate failed", slog.Any("err", err))
		}

	case peerTrack:
		connected := false
		c.attach(func() {
			if c.state == StateNegotiating {
				c.setState(StateConnected)
				connected = true
			}
		})
		if connected {
			c.logger.Info("connected")
			c.notifyState(StateConnected)
		}

	case peerState:
		c.logger.Debug("peer state", slog.String("state", string(evt.state)))
		if evt.state.Terminal() {
			c.terminate(EndTransport, false)
			return false
		}
	}
	return true
}
