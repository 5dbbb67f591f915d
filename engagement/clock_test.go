package engagement_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/engagement"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

var t0 = time.Date(2025, 2, 14, 20, 0, 0, 0, time.UTC)

func fixed(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// roll returns the given values in turn, then never fires.
func roll(values ...float64) func() float64 {
	return func() float64 {
		if len(values) == 0 {
			return 1
		}
		v := values[0]
		values = values[1:]
		return v
	}
}

func TestDecay(t *testing.T) {
	c := engagement.NewClock(engagement.WithScore(70), engagement.WithRand(roll()), engagement.WithClock(fixed(t0)))
	for range 10 {
		c.Tick()
	}
	require.Equal(t, 65.0, c.Score())

	c = engagement.NewClock(engagement.WithScore(1), engagement.WithRand(roll()))
	for range 10 {
		c.Tick()
	}
	require.Equal(t, 0.0, c.Score())

	require.Equal(t, 100.0, engagement.NewClock(engagement.WithScore(150)).Score())
	require.Equal(t, 100.0, c.Adjust(120))
}

func TestScheduledBeatsRandom(t *testing.T) {
	c := engagement.NewClock(
		engagement.WithIntensity(engagement.IntensityHigh),
		engagement.WithClock(fixed(t0)),
		engagement.WithRand(roll(0, 0)),
	)
	c.Schedule(proto.ScheduledCall{TriggerAt: t0.Add(-time.Second), Reason: "good morning"})

	trig, ok := c.Tick()
	require.True(t, ok)
	require.Equal(t, engagement.TriggerScheduled, trig.Kind)
	require.Equal(t, "good morning", trig.Reason)
	require.Nil(t, c.Scheduled())
}

func TestScheduledNotDue(t *testing.T) {
	c := engagement.NewClock(engagement.WithClock(fixed(t0)), engagement.WithRand(roll()))
	c.Schedule(proto.ScheduledCall{TriggerAt: t0.Add(time.Minute), Reason: "later"})

	_, ok := c.Tick()
	require.False(t, ok)
	require.NotNil(t, c.Scheduled())
}

func TestRandomTrigger(t *testing.T) {
	for _, tc := range []struct {
		intensity engagement.Intensity
		rolls     []float64
		want      engagement.TriggerKind
		fired     bool
	}{
		{engagement.IntensityHigh, []float64{0.019}, engagement.TriggerRandom, true},
		{engagement.IntensityLow, []float64{0.019, 1}, "", false},
		{engagement.IntensityMedium, []float64{0.004}, engagement.TriggerRandom, true},
		{engagement.IntensityMedium, []float64{0.5, 0.001}, engagement.TriggerCuriosity, true},
		{engagement.IntensityMedium, []float64{0.5, 0.002}, "", false},
	} {
		t.Run(string(tc.intensity), func(t *testing.T) {
			c := engagement.NewClock(engagement.WithIntensity(tc.intensity), engagement.WithRand(roll(tc.rolls...)))
			trig, ok := c.Tick()
			require.Equal(t, tc.fired, ok)
			require.Equal(t, tc.want, trig.Kind)
		})
	}
}

func TestRandomTriggerClearsScheduled(t *testing.T) {
	c := engagement.NewClock(engagement.WithClock(fixed(t0)), engagement.WithRand(roll(0)))
	c.Schedule(proto.ScheduledCall{TriggerAt: t0.Add(time.Hour), Reason: "later"})

	trig, ok := c.Tick()
	require.True(t, ok)
	require.Equal(t, engagement.TriggerRandom, trig.Kind)
	require.Nil(t, c.Scheduled())
}

func TestBusyClockNeverFires(t *testing.T) {
	m := metrics.New("test")
	c := engagement.NewClock(engagement.WithClock(fixed(t0)), engagement.WithRand(func() float64 { return 0 }), engagement.WithMetrics(m))

	_, ok := c.Tick()
	require.True(t, ok)

	// ringing
	_, ok = c.Tick()
	require.False(t, ok)

	c.Dismiss()
	c.CallStarted()
	_, ok = c.Tick()
	require.False(t, ok)

	c.CallEnded(lovecall.TerminationReport{Reason: lovecall.ReasonHangupNormal})
	_, ok = c.Tick()
	require.True(t, ok)

	require.Equal(t, 2.0, testutil.ToFloat64(m.EngagementTriggersTotal.WithLabelValues("random")))
}

func TestCallEnded(t *testing.T) {
	t.Run("abrupt hangup", func(t *testing.T) {
		c := engagement.NewClock(engagement.WithScore(60), engagement.WithClock(fixed(t0)), engagement.WithAbruptPenalty(10, 2*time.Minute))
		c.CallEnded(lovecall.TerminationReport{Reason: lovecall.ReasonHangupAbrupt})
		require.Equal(t, 50.0, c.Score())
		require.Equal(t, &proto.ScheduledCall{TriggerAt: t0.Add(2 * time.Minute), Reason: engagement.PenaltyReason}, c.Scheduled())
	})

	t.Run("model callback wins", func(t *testing.T) {
		sc := &proto.ScheduledCall{TriggerAt: t0.Add(5 * time.Minute), Reason: "wake up"}
		c := engagement.NewClock(engagement.WithScore(60), engagement.WithClock(fixed(t0)))
		c.CallEnded(lovecall.TerminationReport{Reason: lovecall.ReasonHangupAbrupt, ScheduledCall: sc})
		require.Equal(t, 60.0, c.Score())
		require.Equal(t, sc, c.Scheduled())

		// the clock keeps its own copy
		sc.Reason = "changed"
		require.Equal(t, "wake up", c.Scheduled().Reason)
	})

	t.Run("normal hangup", func(t *testing.T) {
		c := engagement.NewClock(engagement.WithScore(60))
		c.CallEnded(lovecall.TerminationReport{Reason: lovecall.ReasonHangupNormal})
		require.Equal(t, 60.0, c.Score())
		require.Nil(t, c.Scheduled())
	})
}

func TestScheduleOverwrites(t *testing.T) {
	c := engagement.NewClock()
	c.Schedule(proto.ScheduledCall{TriggerAt: t0, Reason: "first"})
	c.Schedule(proto.ScheduledCall{TriggerAt: t0.Add(time.Hour), Reason: "second"})
	require.Equal(t, "second", c.Scheduled().Reason)
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	fired := make(chan engagement.Trigger, 1)
	c := engagement.NewClock(
		engagement.WithInterval(time.Millisecond),
		engagement.WithClock(fixed(t0)),
		engagement.WithRand(roll()),
		engagement.WithOnTrigger(func(trig engagement.Trigger) { fired <- trig }),
	)
	c.Schedule(proto.ScheduledCall{TriggerAt: t0, Reason: "now"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	select {
	case trig := <-fired:
		require.Equal(t, "now", trig.Reason)
	case <-time.After(time.Second):
		t.Fatal("no trigger")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestIntensity(t *testing.T) {
	require.Less(t, engagement.IntensityLow.Chance(), engagement.IntensityMedium.Chance())
	require.Less(t, engagement.IntensityMedium.Chance(), engagement.IntensityHigh.Chance())
	require.True(t, engagement.IntensityHigh.Valid())
	require.False(t, engagement.Intensity("extreme").Valid())
}
