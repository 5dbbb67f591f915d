// Package engagement runs the ambient relationship clock. The score decays over
// time and the partner places calls unprompted, when a scheduled callback is
// due or at random.
package engagement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

const (
	DefaultScore   = 50
	DefaultDecay   = 0.5
	DefaultPenalty = 5

	PenaltyReason   = "you hung up on me"
	RandomReason    = "missed you"
	CuriosityReason = "wondering what you are up to"

	// curiosity rolls at a quarter of the random chance
	curiosityFactor = 0.25
)

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Chance is the per-tick probability of a spontaneous call.
func (i Intensity) Chance() float64 {
	switch i {
	case IntensityLow:
		return 0.002
	case IntensityHigh:
		return 0.02
	}
	return 0.005
}

func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerRandom    TriggerKind = "random"
	TriggerCuriosity TriggerKind = "curiosity"
)

// Trigger is an incoming call fired by the clock.
type Trigger struct {
	Kind   TriggerKind
	Reason string
	At     time.Time
}

// Clock holds the relationship score and the pending ScheduledCall. While a
// call is ringing or in progress it decays but never fires.
type Clock struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	rand    func() float64

	interval     time.Duration
	decay        float64
	penalty      float64
	penaltyDelay time.Duration
	penaltyMsg   string
	onTrigger    func(Trigger)

	mu        sync.Mutex
	intensity Intensity
	score     float64
	scheduled *proto.ScheduledCall
	busy      bool
}

func NewClock(opts ...Option) *Clock {
	o := &clockOptions{}
	withOptions(withDefaults(), withOptions(opts...))(o)

	return &Clock{
		logger:       o.logger.With(slog.String("component", "engagement")),
		metrics:      o.metrics,
		now:          o.now,
		rand:         o.rand,
		interval:     o.interval,
		decay:        o.decay,
		penalty:      o.penalty,
		penaltyDelay: o.penaltyDelay,
		penaltyMsg:   o.penaltyReason,
		onTrigger:    o.onTrigger,
		intensity:    o.intensity,
		score:        store.Clamp(o.score),
	}
}

func (c *Clock) Score() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Adjust moves the score by delta, clamped to [0,100].
func (c *Clock) Adjust(delta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.score = store.Clamp(c.score + delta)
	return c.score
}

// Scheduled returns a copy of the pending ScheduledCall, or nil.
func (c *Clock) Scheduled() *proto.ScheduledCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduled == nil {
		return nil
	}
	sc := *c.scheduled
	return &sc
}

// Schedule arms sc, replacing any pending ScheduledCall.
func (c *Clock) Schedule(sc proto.ScheduledCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduled = &sc
	c.logger.Info("callback scheduled", slog.Time("trigger_at", sc.TriggerAt), slog.String("reason", sc.Reason))
}

func (c *Clock) SetIntensity(i Intensity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intensity = i
}

// CallStarted stops the clock from firing until CallEnded or Dismiss.
func (c *Clock) CallStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = true
}

// Dismiss is called when a fired call was declined.
func (c *Clock) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

// CallEnded resumes the clock after a partner call. A callback the model asked
// for is armed. Otherwise an abrupt hangup costs score and arms a callback
// after the penalty delay.
func (c *Clock) CallEnded(report lovecall.TerminationReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	switch {
	case report.ScheduledCall != nil:
		sc := *report.ScheduledCall
		c.scheduled = &sc
		c.logger.Info("callback scheduled", slog.Time("trigger_at", sc.TriggerAt), slog.String("reason", sc.Reason))
	case report.Reason == lovecall.ReasonHangupAbrupt:
		c.score = store.Clamp(c.score - c.penalty)
		c.scheduled = &proto.ScheduledCall{TriggerAt: c.now().Add(c.penaltyDelay), Reason: c.penaltyMsg}
		c.logger.Info("abrupt hangup penalty", slog.Float64("score", c.score), slog.Time("trigger_at", c.scheduled.TriggerAt))
	}
}

// Tick runs one step of the clock and reports the call it fired, if any. At
// most one trigger fires per tick: a due ScheduledCall first, then a random
// call, then a curiosity call. Firing clears the pending ScheduledCall.
func (c *Clock) Tick() (Trigger, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.score = store.Clamp(c.score - c.decay)
	if c.busy {
		return Trigger{}, false
	}

	now := c.now()
	chance := c.intensity.Chance()

	var t Trigger
	switch {
	case c.scheduled.Due(now):
		t = Trigger{Kind: TriggerScheduled, Reason: c.scheduled.Reason, At: now}
	case c.rand() < chance:
		t = Trigger{Kind: TriggerRandom, Reason: RandomReason, At: now}
	case c.rand() < chance*curiosityFactor:
		t = Trigger{Kind: TriggerCuriosity, Reason: CuriosityReason, At: now}
	default:
		return Trigger{}, false
	}

	c.scheduled = nil
	c.busy = true
	c.metrics.RecordEngagementTrigger(string(t.Kind))
	c.logger.Info("incoming call", slog.String("kind", string(t.Kind)), slog.String("reason", t.Reason))
	return t, true
}

// Run ticks until ctx is done, handing fired calls to the WithOnTrigger
// callback.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t, ok := c.Tick()
			if ok && c.onTrigger != nil {
				c.onTrigger(t)
			}
		}
	}
}
