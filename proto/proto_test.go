package proto

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToolDispatchError(t *testing.T) {
	cause := NewToolDispatchError("update_topic", fmt.Errorf("title is required"))
	require.Error(t, cause)

	wrapped := fmt.Errorf("dispatch: %w", cause)
	tde := ToToolDispatchError("update_topic", wrapped)
	require.Equal(t, cause, tde, "must be the same cause")

	res := NewToolCall("update_topic", nil).NotOk(tde)
	require.False(t, res.Ok())
	require.Equal(t, "error: title is required", res.Output)
	require.Equal(t, map[string]any{"error": "error: title is required"}, res.Payload())

	plain := ToToolDispatchError("x", fmt.Errorf("boom"))
	require.Equal(t, "x", plain.Tool)
}

func TestErrorTaxonomy(t *testing.T) {
	require.True(t, IsDeviceError(fmt.Errorf("open: %w", NewDeviceError("microphone", fmt.Errorf("denied")))))
	require.False(t, IsDeviceError(fmt.Errorf("plain")))
	require.True(t, IsTransportError(NewTransportError("receive", fmt.Errorf("eof"))))
	require.Contains(t, NewProtocolViolation(EventAnswer, "duplicate from %s", "a").Error(), "duplicate from a")
}

func TestEnvelope(t *testing.T) {
	mid := "0"
	env, err := NewEnvelope(EventICE, "me", &ICEPayload{Candidate: ICECandidate{Candidate: "candidate:1", SDPMid: &mid}})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	parsed, err := ParseEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, "me", parsed.Sender)

	ice, err := DecodePayload[ICEPayload](parsed)
	require.NoError(t, err)
	require.Equal(t, "candidate:1", ice.Candidate.Candidate)
	require.Equal(t, "0", *ice.Candidate.SDPMid)
}

func TestEnvelopeInvalid(t *testing.T) {
	type tc struct {
		name string
		raw  string
	}

	for _, c := range []tc{
		{name: "not json", raw: "{"},
		{name: "unknown event", raw: `{"event":"hello"}`},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(c.raw))
			var pv *ProtocolViolation
			require.ErrorAs(t, err, &pv)
		})
	}

	env := &Envelope{Event: EventAnswer, Payload: json.RawMessage(`{"sdp":""}`)}
	_, err := DecodePayload[AnswerPayload](env)
	var pv *ProtocolViolation
	require.ErrorAs(t, err, &pv)
}

func TestScheduledCallDue(t *testing.T) {
	now := time.Now()
	var none *ScheduledCall
	require.False(t, none.Due(now))
	require.True(t, (&ScheduledCall{TriggerAt: now}).Due(now))
	require.False(t, (&ScheduledCall{TriggerAt: now.Add(time.Second)}).Due(now))
}
