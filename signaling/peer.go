package signaling

import (
	"context"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

type SDPType string

const (
	SDPOffer  SDPType = "offer"
	SDPAnswer SDPType = "answer"
)

type PeerState string

const (
	PeerNew          PeerState = "new"
	PeerConnecting   PeerState = "connecting"
	PeerConnected    PeerState = "connected"
	PeerDisconnected PeerState = "disconnected"
	PeerFailed       PeerState = "failed"
	PeerClosed       PeerState = "closed"
)

// Terminal reports whether the peer connection is gone for good.
func (s PeerState) Terminal() bool {
	return s == PeerDisconnected || s == PeerFailed || s == PeerClosed
}

// PeerConn is the peer-to-peer media connection negotiated by a Call.
type PeerConn interface {
	// CreateOffer creates an offer and sets it as local description.
	CreateOffer() (string, error)
	// CreateAnswer creates an answer and sets it as local description.
	CreateAnswer() (string, error)
	SetRemoteDescription(typ SDPType, sdp string) error
	AddICECandidate(c proto.ICECandidate) error
	Close() error
}

// PeerEvents are raised by a PeerConn from its own goroutines.
type PeerEvents struct {
	OnICECandidate func(c proto.ICECandidate)
	// OnTrack is called when remote media starts arriving.
	OnTrack        func()
	OnStateChange  func(s PeerState)
}

// ICEServer is a STUN or TURN server offered to the peer connection.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

// PeerFactory creates the peer connection of a call, including its local
// microphone track. A missing microphone is reported as *proto.DeviceError.
type PeerFactory func(ctx context.Context, events PeerEvents) (PeerConn, error)
