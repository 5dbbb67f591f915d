package lovecall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
)

var (
	ErrAlreadyStarted = errors.New("session: already started")
	ErrEnded          = errors.New("session: ended")
	ErrNoDialer       = errors.New("session: no dialer configured")
	ErrNoDevices      = errors.New("session: no audio devices configured")

	errStopForwarding = errors.New("stop forwarding")
)

// speakingLevel is the output level above which the remote side is
// considered to be speaking.
const speakingLevel = 5.0

// Devices opens the local audio graphs of a call.
type Devices interface {
	OpenInput(ctx context.Context) (audio.InputGraph, error)
	OpenOutput(ctx context.Context) audio.OutputGraph
}

// Session is one live voice call with the speech model.
type Session struct {
	id        string
	userID    string
	logger    *slog.Logger
	dialer    Dialer
	devices   Devices
	camera    Camera
	metrics   *metrics.Metrics
	outbox    *tools.Outbox
	observer  Observer
	opts      *sessionOptions
	now       func() time.Time
	tools     *tools.Dispatcher
	ctx       context.Context
	cancel    context.CancelFunc
	endOnce   sync.Once
	tearOnce  sync.Once
	close     chan struct{} // closed by the first End
	done      chan struct{} // closed once every resource is released
	wg        sync.WaitGroup
	sendMu    sync.RWMutex
	ended     atomic.Bool
	startOnce sync.Once

	// loop only
	playhead audio.Playhead

	mu      sync.Mutex
	state   State
	running bool
	in      audio.InputGraph
	out     audio.OutputGraph
	conn    Conn
	report  TerminationReport
}

func NewSession(opts ...Option) *Session {
	o := &sessionOptions{}
	withOptions(withDefaults(), withOptions(opts...))(o)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:     o.id,
		userID: o.userID,
		logger: o.logger.With(
			slog.String("component", "session"),
			slog.String("id", o.id),
		),
		dialer:   o.dialer,
		devices:  o.devices,
		camera:   o.camera,
		metrics:  o.metrics,
		outbox:   o.outbox,
		observer: o.observer,
		opts:     o,
		now:      o.now,
		ctx:      ctx,
		cancel:   cancel,
		close:    make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateInit,
	}
	s.report.SessionID = o.id

	s.tools = tools.NewDispatcher(append([]tools.Option{
		tools.WithUserID(o.userID),
		tools.WithLogger(o.logger),
		tools.WithClock(o.now),
		tools.WithOutbox(o.outbox),
		tools.WithMetrics(o.metrics),
		tools.WithGestureObserver(o.observer.OnGesture),
		tools.WithDebug(o.debug),
	}, o.toolOptions...)...)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Start opens the devices and connects to the model. ctx bounds the setup
// only; the call runs until End is called or the model connection ends.
func (s *Session) Start(ctx context.Context, config CallConfig) error {
	s.mu.Lock()
	if state := s.state; state != StateInit {
		s.mu.Unlock()
		if state == StateEnded {
			return ErrEnded
		}
		return ErrAlreadyStarted
	}
	if s.dialer == nil || s.devices == nil {
		s.mu.Unlock()
		if s.dialer == nil {
			return ErrNoDialer
		}
		return ErrNoDevices
	}
	s.state = StateConnecting
	s.report.StartedAt = s.now()
	s.mu.Unlock()

	s.notifyState(StateConnecting)
	s.metrics.RecordSessionStart()

	config.Defaults()
	s.logger.Info("starting call", slog.String("voice", config.Voice), slog.Int("tools", len(config.Tools)))

	in, err := s.devices.OpenInput(ctx)
	if err != nil {
		s.terminate(ReasonDeviceError, err)
		return err
	}
	if !s.attach(func() { s.in = in }) {
		_ = in.Close()
		return ErrEnded
	}

	out := s.devices.OpenOutput(ctx)
	if !s.attach(func() { s.out = out }) {
		_ = out.Close()
		return ErrEnded
	}

	conn, err := s.dialer.Dial(ctx, config)
	if err != nil {
		err = proto.NewTransportError("dial", err)
		s.terminate(ReasonTransportError, err)
		return err
	}
	if !s.attach(func() {
		s.conn = conn
		s.running = true
	}) {
		_ = conn.Close()
		return ErrEnded
	}

	go s.run(conn, in, out)

	return nil
}

// attach runs fn under the session lock unless the session already ended.
func (s *Session) attach(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return false
	}
	fn()
	return true
}

// End terminates the call. Only the first call decides the reason; every call
// blocks until the session is torn down and returns the same report. Capture
// stops before End returns so no frame is sent afterwards.
func (s *Session) End(reason EndReason) TerminationReport {
	s.terminate(reason, nil)
	<-s.done
	return s.Report()
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Report returns the termination report. It is only complete after Done.
func (s *Session) Report() TerminationReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *Session) terminate(reason EndReason, cause error) {
	s.endOnce.Do(func() {
		s.cancel()

		// wait for in-flight sends, none start afterwards
		s.sendMu.Lock()
		s.ended.Store(true)
		s.sendMu.Unlock()

		s.mu.Lock()
		s.state = StateEnded
		s.report.Reason = reason
		s.report.Err = cause
		s.report.EndedAt = s.now()
		in := s.in
		running := s.running
		s.mu.Unlock()

		if in != nil {
			_ = in.Close()
		}

		s.logger.Info("ending call", slog.String("reason", string(reason)), slog.Any("err", cause))
		close(s.close)

		if !running {
			s.teardown()
		}
	})
}

func (s *Session) teardown() {
	s.tearOnce.Do(func() {
		s.mu.Lock()
		conn, in, out := s.conn, s.in, s.out
		s.mu.Unlock()

		if conn != nil {
			if err := conn.Close(); err != nil {
				s.logger.Warn("failed to close model connection", slog.Any("err", err))
			}
		}

		s.wg.Wait()

		if in != nil {
			_ = in.Close()
		}
		if out != nil {
			_ = out.Close()
		}
		s.tools.Close()

		s.mu.Lock()
		s.report.ScheduledCall = s.tools.ScheduledCall()
		report := s.report
		s.mu.Unlock()

		s.metrics.RecordSessionEnd(string(report.Reason), report.Duration())
		s.persistCallLog(report)

		s.notifyState(StateEnded)
		if s.observer.OnEnded != nil {
			s.observer.OnEnded(report)
		}

		s.logger.Info("call ended", slog.String("reason", string(report.Reason)), slog.Duration("duration", report.Duration()))
		close(s.done)
	})
}

func (s *Session) persistCallLog(report TerminationReport) {
	if s.outbox == nil || s.userID == "" || report.StartedAt.IsZero() {
		return
	}
	s.outbox.Enqueue(store.CallLog{
		ID:        report.SessionID,
		UserID:    s.userID,
		Reason:    string(report.Reason),
		StartedAt: report.StartedAt,
		EndedAt:   report.EndedAt,
	})
}

// Levels returns the smoothed input and output levels in [0,100].
func (s *Session) Levels() (input, output float64) {
	s.mu.Lock()
	in, out := s.in, s.out
	s.mu.Unlock()
	if in != nil {
		input = in.Level()
	}
	if out != nil {
		output = out.Level()
	}
	return input, output
}

// RemoteSpeaking reports whether model audio is currently audible.
func (s *Session) RemoteSpeaking() bool {
	_, out := s.Levels()
	return out > speakingLevel
}

// Gesture returns the gesture cue currently shown.
func (s *Session) Gesture() tools.Gesture {
	return s.tools.Gesture()
}

// ScheduledCall returns the callback the model asked for so far.
func (s *Session) ScheduledCall() *proto.ScheduledCall {
	return s.tools.ScheduledCall()
}

func (s *Session) run(conn Conn, in audio.InputGraph, out audio.OutputGraph) {
	defer s.teardown()

	events := conn.Events()
	for {
		select {
		case <-s.close:
			return
		case evt, ok := <-events:
			if !ok {
				s.terminate(ReasonRemoteClosed, nil)
				return
			}
			if s.opts.debug {
				debugEvent(s.id, evt, "in")
			}
			if !s.handleEvent(conn, in, out, evt) {
				return
			}
		}
	}
}

// handleEvent returns false once the session must stop.
func (s *Session) handleEvent(conn Conn, in audio.InputGraph, out audio.OutputGraph, evt Event) bool {
	switch evt.Type {
	case EventOpen:
		if s.transition(StateConnected, StateConnecting) {
			s.startOnce.Do(func() { s.startForwarding(conn, in, out) })
		}
	case EventAudio:
		s.playAudio(out, evt.Audio)
	case EventInterrupted:
		s.interrupt(out)
	case EventToolCalls:
		s.dispatchTools(conn, evt.ToolCalls)
	case EventClosed:
		if evt.Err != nil {
			s.terminate(ReasonTransportError, proto.NewTransportError("receive", evt.Err))
		} else {
			s.terminate(ReasonRemoteClosed, nil)
		}
		return false
	default:
		s.logger.Warn("unknown model event", slog.Int("type", int(evt.Type)))
	}
	return true
}

func (s *Session) playAudio(out audio.OutputGraph, chunk string) {
	samples, err := audio.DecodeBase64(chunk)
	if err != nil {
		s.logger.Warn("dropping malformed audio chunk", slog.Any("err", err))
		return
	}

	// the call may have ended while decoding
	switch s.State() {
	case StateEnded:
		return
	case StateInterrupted:
		s.transition(StateConnected, StateInterrupted)
	}

	s.metrics.RecordAudio("in", len(chunk))

	samples = audio.Resample(samples, audio.ModelOutputSampleRate, out.Format().SampleRate)
	at := s.playhead.Schedule(out.Clock(), len(samples))
	if err := out.Schedule(samples, at); err != nil {
		// the chunk is dropped, the next one takes its place
		s.playhead.Reset(at)
		s.logger.Warn("failed to schedule audio", slog.Any("err", err))
		return
	}

	if s.observer.OnAudioScheduled != nil {
		s.observer.OnAudioScheduled(at, len(samples))
	}
}

func (s *Session) interrupt(out audio.OutputGraph) {
	dropped := out.Clear()
	s.playhead.Reset(out.Clock())
	s.transition(StateInterrupted, StateConnected)
	s.metrics.RecordInterruption()
	s.logger.Debug("interrupted", slog.Int("dropped", dropped))

	if s.observer.OnInterrupted != nil {
		s.observer.OnInterrupted(dropped)
	}
}

func (s *Session) dispatchTools(conn Conn, calls []proto.ToolCall) {
	if len(calls) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		results := s.tools.DispatchAll(s.ctx, calls)
		if s.opts.debug {
			debugEvent(s.id, results, "out")
		}

		if err := s.send(func() error { return conn.SendToolResults(s.ctx, results) }); err != nil {
			if !errors.Is(err, errStopForwarding) {
				s.logger.Warn("failed to send tool results", slog.Any("err", err))
			}
			return
		}

		if s.observer.OnToolResults != nil {
			s.observer.OnToolResults(results)
		}
	}()
}

// send runs fn unless the call has ended.
func (s *Session) send(fn func() error) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.ended.Load() {
		return errStopForwarding
	}
	return fn()
}

func (s *Session) startForwarding(conn Conn, in audio.InputGraph, out audio.OutputGraph) {
	s.wg.Add(1)
	go s.forwardAudio(conn, in)

	if s.camera != nil && s.opts.snapshotInterval > 0 {
		s.wg.Add(1)
		go s.forwardVideo(conn)
	}

	if s.observer.OnLevels != nil && s.opts.levelInterval > 0 {
		s.wg.Add(1)
		go s.reportLevels(in, out)
	}
}

func (s *Session) forwardAudio(conn Conn, in audio.InputGraph) {
	defer s.wg.Done()

	err := audio.Forward(s.ctx, in, func(frame []int16) error {
		return s.send(func() error {
			if err := conn.SendAudio(s.ctx, frame); err != nil {
				return err
			}
			s.metrics.RecordAudio("out", len(frame)*2)
			return nil
		})
	})
	if err != nil && !errors.Is(err, errStopForwarding) {
		s.terminate(ReasonTransportError, proto.NewTransportError("send audio", err))
	}
}

func (s *Session) forwardVideo(conn Conn) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.close:
			return
		case <-ticker.C:
			if err := s.sendSnapshot(conn); err != nil {
				if errors.Is(err, errStopForwarding) {
					return
				}
				s.logger.Debug("snapshot skipped", slog.Any("err", err))
			}
		}
	}
}

func (s *Session) sendSnapshot(conn Conn) error {
	img, err := s.camera.Snapshot(s.ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	data, err := EncodeSnapshot(img, SnapshotMaxWidth, SnapshotQuality)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.send(func() error { return conn.SendImage(s.ctx, data) })
}

func (s *Session) reportLevels(in audio.InputGraph, out audio.OutputGraph) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.levelInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.close:
			return
		case <-ticker.C:
			s.observer.OnLevels(in.Level(), out.Level())
		}
	}
}
