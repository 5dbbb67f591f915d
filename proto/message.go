package proto

import (
	"encoding/json"
	"fmt"
)

// Signaling events exchanged on a call channel.
const (
	EventOffer  = "offer"
	EventAnswer = "answer"
	EventICE    = "ice"
	EventEnd    = "end"
)

// Envelope is the unit carried by a relay. Sender lets subscribers drop their
// own messages when a relay echoes them back.
type Envelope struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type OfferPayload struct {
	SDP string `json:"sdp"`
}

func (p *OfferPayload) Validate() error {
	if p.SDP == "" {
		return fmt.Errorf("sdp is required")
	}
	return nil
}

type AnswerPayload struct {
	SDP string `json:"sdp"`
}

func (p *AnswerPayload) Validate() error {
	if p.SDP == "" {
		return fmt.Errorf("sdp is required")
	}
	return nil
}

// ICECandidate mirrors the browser RTCIceCandidateInit shape.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

type ICEPayload struct {
	Candidate ICECandidate `json:"candidate"`
}

func (p *ICEPayload) Validate() error {
	if p.Candidate.Candidate == "" {
		return fmt.Errorf("candidate is required")
	}
	return nil
}

type EndPayload struct{}

func NewEnvelope(event, sender string, payload any) (*Envelope, error) {
	env := &Envelope{
		ID:     ID(),
		Event:  event,
		Sender: sender,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload [event=%s]: %w", event, err)
		}
		env.Payload = raw
	}
	return env, nil
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, NewProtocolViolation("", "malformed envelope: %v", err)
	}

	switch env.Event {
	case EventOffer, EventAnswer, EventICE, EventEnd:
		return &env, nil
	}

	return nil, NewProtocolViolation(env.Event, "unknown event type")
}

// DecodePayload decodes and validates the envelope payload into T.
func DecodePayload[T any](env *Envelope) (*T, error) {
	var out T
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &out); err != nil {
			return nil, NewProtocolViolation(env.Event, "malformed payload: %s", err)
		}
	}
	if err := ValidateArgs(&out); err != nil {
		return nil, NewProtocolViolation(env.Event, "invalid payload: %s", err)
	}
	return &out, nil
}
