package pionpeer

import (
	"context"
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/signaling"
)

type fakeDevices struct {
	inErr error
}

func (d *fakeDevices) OpenInput(context.Context) (audio.InputGraph, error) {
	if d.inErr != nil {
		return nil, d.inErr
	}
	return audio.NewInput(), nil
}

func (d *fakeDevices) OpenOutput(context.Context) audio.OutputGraph {
	return audio.NewNullOutput(audio.Format{SampleRate: OpusSampleRate, Channels: 1})
}

func TestPeerState(t *testing.T) {
	for in, want := range map[webrtc.PeerConnectionState]signaling.PeerState{
		webrtc.PeerConnectionStateNew:          signaling.PeerNew,
		webrtc.PeerConnectionStateConnecting:   signaling.PeerConnecting,
		webrtc.PeerConnectionStateConnected:    signaling.PeerConnected,
		webrtc.PeerConnectionStateDisconnected: signaling.PeerDisconnected,
		webrtc.PeerConnectionStateFailed:       signaling.PeerFailed,
		webrtc.PeerConnectionStateClosed:       signaling.PeerClosed,
		webrtc.PeerConnectionStateUnknown:      signaling.PeerNew,
	} {
		require.Equal(t, want, PeerState(in), in.String())
	}
}

func TestICECandidateConversion(t *testing.T) {
	mid := "0"
	idx := uint16(0)
	c := proto.ICECandidate{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 5000 typ host", SDPMid: &mid, SDPMLineIndex: &idx}

	init := ToICECandidateInit(c)
	require.Equal(t, c.Candidate, init.Candidate)
	require.Equal(t, "0", *init.SDPMid)
	require.Equal(t, uint16(0), *init.SDPMLineIndex)
	require.Nil(t, init.UsernameFragment)
	require.Equal(t, c, FromICECandidateInit(init))
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.Defaults()
	require.Len(t, cfg.ICEServers, 1)
	require.NotNil(t, cfg.Logger)

	cfg = Config{ICEServers: []signaling.ICEServer{{URLs: []string{"turn:turn.example.com"}, Username: "u", Credential: "p"}}, RelayOnly: true}
	pc := configuration(cfg)
	require.Equal(t, webrtc.ICETransportPolicyRelay, pc.ICETransportPolicy)
	require.Equal(t, "u", pc.ICEServers[0].Username)
}

func TestMicrophoneFailure(t *testing.T) {
	factory := NewFactory(Config{}, &fakeDevices{inErr: errors.New("denied")})
	_, err := factory(context.Background(), signaling.PeerEvents{})
	require.Error(t, err)
	require.True(t, proto.IsDeviceError(err))
}

func TestOfferAnswer(t *testing.T) {
	if testing.Short() {
		t.Skip("opens local network sockets")
	}

	factory := NewFactory(Config{ICEServers: []signaling.ICEServer{{}}}, &fakeDevices{})
	caller, err := factory(context.Background(), signaling.PeerEvents{})
	require.NoError(t, err)
	defer caller.Close()
	callee, err := factory(context.Background(), signaling.PeerEvents{})
	require.NoError(t, err)
	defer callee.Close()

	offer, err := caller.CreateOffer()
	require.NoError(t, err)
	require.Contains(t, offer, "opus/48000/2")

	require.NoError(t, callee.SetRemoteDescription(signaling.SDPOffer, offer))
	answer, err := callee.CreateAnswer()
	require.NoError(t, err)
	require.NoError(t, caller.SetRemoteDescription(signaling.SDPAnswer, answer))

	require.Error(t, caller.SetRemoteDescription("pranswer-ish", answer))
	require.NoError(t, caller.Close())
	require.NoError(t, caller.Close())
}
