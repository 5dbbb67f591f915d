// Package pionpeer implements signaling peer connections with pion/webrtc.
// The local microphone is sent as an Opus track and the remote track is
// decoded into an output graph.
package pionpeer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hraban/opus"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/signaling"
)

const (
	OpusSampleRate  = 48_000
	OpusChannels    = 1
	OpusPayloadType = 111
	opusFmtpLine    = "minptime=10;useinbandfec=1"
	// Opus is always advertised as two channels in SDP.
	sdpChannels = 2
	// a single 20ms frame never exceeds this
	opusMaxPacket = 1500
	// 120ms, the longest Opus frame
	opusMaxFrame = OpusSampleRate * 120 / 1000
)

// Devices opens the local audio graphs of a peer call.
type Devices interface {
	OpenInput(ctx context.Context) (audio.InputGraph, error)
	OpenOutput(ctx context.Context) audio.OutputGraph
}

type Config struct {
	ICEServers []signaling.ICEServer
	// RelayOnly forces TURN relayed candidates.
	RelayOnly bool
	Logger    *slog.Logger
}

func (c *Config) Defaults() {
	if len(c.ICEServers) == 0 {
		c.ICEServers = []signaling.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Logger = c.Logger.With(slog.String("component", "pionpeer"))
}

// NewFactory returns a PeerFactory creating pion peer connections that carry
// the microphone of devices.
func NewFactory(cfg Config, devices Devices) signaling.PeerFactory {
	cfg.Defaults()
	return func(ctx context.Context, events signaling.PeerEvents) (signaling.PeerConn, error) {
		return newPeer(ctx, cfg, devices, events)
	}
}

type peer struct {
	pc     *webrtc.PeerConnection
	track  *webrtc.TrackLocalStaticSample
	in     audio.InputGraph
	out    audio.OutputGraph
	events signaling.PeerEvents
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

var _ signaling.PeerConn = &peer{}

func newPeer(ctx context.Context, cfg Config, devices Devices, events signaling.PeerEvents) (*peer, error) {
	in, err := devices.OpenInput(ctx)
	if err != nil {
		if !proto.IsDeviceError(err) {
			err = proto.NewDeviceError("microphone", err)
		}
		return nil, err
	}

	api, err := newAPI()
	if err != nil {
		_ = in.Close()
		return nil, err
	}

	pc, err := api.NewPeerConnection(configuration(cfg))
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: OpusSampleRate,
		Channels:  sdpChannels,
	}, "audio", "lovecall")
	if err != nil {
		_ = pc.Close()
		_ = in.Close()
		return nil, fmt.Errorf("failed to create local audio track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		_ = pc.Close()
		_ = in.Close()
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	p := &peer{
		pc:     pc,
		track:  track,
		in:     in,
		out:    devices.OpenOutput(ctx),
		events: events,
		logger: cfg.Logger,
	}
	// the peer outlives the setup context
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.setupHandlers()

	p.wg.Add(1)
	go p.sendMicrophone()
	return p, nil
}

func newAPI() (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   OpusSampleRate,
			Channels:    sdpChannels,
			SDPFmtpLine: opusFmtpLine,
		},
		PayloadType: OpusPayloadType,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("failed to register Opus codec: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("failed to register interceptors: %w", err)
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
	), nil
}

func configuration(cfg Config) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, len(cfg.ICEServers))
	for i, srv := range cfg.ICEServers {
		servers[i] = webrtc.ICEServer{
			URLs:       srv.URLs,
			Username:   srv.Username,
			Credential: srv.Credential,
		}
	}
	c := webrtc.Configuration{ICEServers: servers}
	if cfg.RelayOnly {
		c.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}
	return c
}

func (p *peer) setupHandlers() {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if c == nil || p.events.OnICECandidate == nil {
			return
		}
		p.events.OnICECandidate(FromICECandidateInit(c.ToJSON()))
	})

	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Info("peer connection state changed", slog.String("state", state.String()))
		if p.events.OnStateChange != nil {
			p.events.OnStateChange(PeerState(state))
		}
	})

	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		p.logger.Info("remote audio track received", slog.String("codec", track.Codec().MimeType))
		if p.ctx.Err() != nil {
			return
		}
		if p.events.OnTrack != nil {
			p.events.OnTrack()
		}
		p.wg.Add(1)
		go p.playRemote(track)
	})
}

// sendMicrophone encodes capture frames as Opus and writes them to the local
// track until the input graph or the peer is closed.
func (p *peer) sendMicrophone() {
	defer p.wg.Done()

	encoder, err := opus.NewEncoder(OpusSampleRate, OpusChannels, opus.AppVoIP)
	if err != nil {
		p.logger.Error("failed to create opus encoder", slog.Any("err", err))
		return
	}

	packet := make([]byte, opusMaxPacket)
	err = audio.Forward(p.ctx, p.in, func(frame []int16) error {
		pcm := audio.Resample(frame, p.in.Format().SampleRate, OpusSampleRate)
		n, err := encoder.Encode(pcm, packet)
		if err != nil {
			p.logger.Debug("opus encode failed", slog.Any("err", err))
			return nil
		}
		data := make([]byte, n)
		copy(data, packet[:n])
		if err := p.track.WriteSample(media.Sample{Data: data, Duration: audio.FrameDuration}); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				return err
			}
			p.logger.Debug("failed to write sample to track", slog.Any("err", err))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.ErrClosedPipe) {
		p.logger.Warn("microphone forwarding stopped", slog.Any("err", err))
	}
}

// playRemote decodes the remote Opus track and schedules it gaplessly on the
// output graph.
func (p *peer) playRemote(track *webrtc.TrackRemote) {
	defer p.wg.Done()

	if mime := track.Codec().MimeType; mime != webrtc.MimeTypeOpus {
		p.logger.Error("unsupported remote codec", slog.String("codec", mime))
		return
	}

	decoder, err := opus.NewDecoder(OpusSampleRate, OpusChannels)
	if err != nil {
		p.logger.Error("failed to create opus decoder", slog.Any("err", err))
		return
	}

	var playhead audio.Playhead
	pcm := make([]int16, opusMaxFrame)
	rate := p.out.Format().SampleRate
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) && p.ctx.Err() == nil {
				p.logger.Debug("remote track read failed", slog.Any("err", err))
			}
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		n, err := decoder.Decode(pkt.Payload, pcm)
		if err != nil {
			p.logger.Debug("opus decode failed", slog.Any("err", err))
			continue
		}
		samples := audio.Resample(pcm[:n], OpusSampleRate, rate)
		at := playhead.Schedule(p.out.Clock(), len(samples))
		if err := p.out.Schedule(samples, at); err != nil {
			return
		}
	}
}

func (p *peer) CreateOffer() (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	return offer.SDP, nil
}

func (p *peer) CreateAnswer() (string, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	return answer.SDP, nil
}

func (p *peer) SetRemoteDescription(typ signaling.SDPType, sdp string) error {
	desc := webrtc.SessionDescription{Type: webrtc.NewSDPType(string(typ)), SDP: sdp}
	if desc.Type == webrtc.SDPTypeUnknown {
		return fmt.Errorf("unknown sdp type %q", typ)
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

func (p *peer) AddICECandidate(c proto.ICECandidate) error {
	if err := p.pc.AddICECandidate(ToICECandidateInit(c)); err != nil {
		return fmt.Errorf("failed to add ice candidate: %w", err)
	}
	return nil
}

func (p *peer) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.closeErr = p.pc.Close()
		_ = p.in.Close()
		p.wg.Wait()
		_ = p.out.Close()
	})
	return p.closeErr
}

// PeerState maps a pion connection state to the signaling one.
func PeerState(s webrtc.PeerConnectionState) signaling.PeerState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return signaling.PeerConnecting
	case webrtc.PeerConnectionStateConnected:
		return signaling.PeerConnected
	case webrtc.PeerConnectionStateDisconnected:
		return signaling.PeerDisconnected
	case webrtc.PeerConnectionStateFailed:
		return signaling.PeerFailed
	case webrtc.PeerConnectionStateClosed:
		return signaling.PeerClosed
	}
	return signaling.PeerNew
}

func ToICECandidateInit(c proto.ICECandidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func FromICECandidateInit(c webrtc.ICECandidateInit) proto.ICECandidate {
	return proto.ICECandidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
