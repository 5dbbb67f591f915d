package audio

import (
	"context"
	"io"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func tone(n int, v int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = v
		} else {
			s[i] = -v
		}
	}
	return s
}

func advance(o *Output, samples int) {
	_, _ = o.Read(make([]byte, samples*2))
}

func TestCodec(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out, err := DecodeBase64(EncodeBase64(in))
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = DecodePCM16([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrOddLength)

	_, err = DecodeBase64("not base64!")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	f := Format{SampleRate: ModelOutputSampleRate, Channels: 1}
	require.Equal(t, time.Second, f.Duration(24_000))
	require.Equal(t, 480, f.Samples(20*time.Millisecond))
	require.Equal(t, 320, FrameSamples)
}

func TestResample(t *testing.T) {
	src := tone(1000, 1000)
	require.Len(t, Resample(src, 24_000, 48_000), 2000)
	require.Len(t, Resample(src, 24_000, 16_000), 666)
	require.Equal(t, src, Resample(src, 16_000, 16_000))
	require.Empty(t, Resample(nil, 24_000, 48_000))
}

func TestPlayheadNeverOverlaps(t *testing.T) {
	var (
		p       Playhead
		now     int64
		prevEnd int64
		rnd     = rand.New(rand.NewPCG(1, 2))
	)

	for i := 0; i < 500; i++ {
		now += int64(rnd.IntN(3000))
		n := 1 + rnd.IntN(2000)

		before := p.Next()
		start := p.Schedule(now, n)

		require.GreaterOrEqual(t, start, now, "never scheduled in the past")
		require.GreaterOrEqual(t, start, prevEnd, "no overlap with previous buffer")
		require.GreaterOrEqual(t, p.Next(), before, "cursor is non-decreasing")
		if prevEnd > now {
			require.Equal(t, prevEnd, start, "back to back when the clock is behind")
		}
		prevEnd = start + int64(n)
	}
}

func TestLateChunkAppendsAfterPrevious(t *testing.T) {
	out := NewOutput(Format{SampleRate: 24_000, Channels: 1})
	defer out.Close()

	var p Playhead

	first := p.Schedule(out.Clock(), 1000)
	require.NoError(t, out.Schedule(tone(1000, 100), first))
	require.Equal(t, int64(0), first)

	// 5ms later, the first chunk is still playing (it lasts ~41.6ms)
	advance(out, out.Format().Samples(5*time.Millisecond))

	second := p.Schedule(out.Clock(), 1000)
	require.NoError(t, out.Schedule(tone(1000, 100), second))
	require.Equal(t, int64(1000), second, "starts right after the first chunk")
	require.Equal(t, 2, out.Pending())
}

func TestPlaybackBufferGapIsSilence(t *testing.T) {
	buf := NewPlaybackBuffer(Format{SampleRate: 8_000, Channels: 1}, time.Second)

	start, err := buf.Write([]int16{7, 7}, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), start)

	p := make([]byte, 12)
	n, err := buf.Read(p)
	require.NoError(t, err)
	require.Equal(t, 12, n)

	samples, err := DecodePCM16(p)
	require.NoError(t, err)
	require.Equal(t, []int16{0, 0, 0, 7, 7, 0}, samples)
	require.Equal(t, int64(6), buf.Clock())
	require.Equal(t, 0, buf.Pending())

	require.NoError(t, buf.Close())
	_, err = buf.Read(p)
	require.Equal(t, io.EOF, err)
	_, err = buf.Write([]int16{1}, 0)
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestPlaybackBufferFull(t *testing.T) {
	buf := NewPlaybackBuffer(Format{SampleRate: 1_000, Channels: 1}, 10*time.Millisecond)
	_, err := buf.Write(make([]int16, 11), 0)
	require.ErrorIs(t, err, ErrBufferFull)
}

func TestClearEmptiesPendingBuffers(t *testing.T) {
	type tc struct {
		name    string
		buffers int
	}

	for _, c := range []tc{
		{name: "none", buffers: 0},
		{name: "one", buffers: 1},
		{name: "many", buffers: 25},
	} {
		t.Run(c.name, func(t *testing.T) {
			out := NewOutput(Format{SampleRate: 48_000, Channels: 1})
			defer out.Close()

			var p Playhead
			advance(out, 100)
			for i := 0; i < c.buffers; i++ {
				require.NoError(t, out.Schedule(tone(480, 500), p.Schedule(out.Clock(), 480)))
			}
			require.Equal(t, c.buffers, out.Pending())

			require.Equal(t, c.buffers, out.Clear())
			p.Reset(out.Clock())

			require.Equal(t, 0, out.Pending())
			require.Equal(t, out.Clock(), p.Next())

			// the next buffer starts immediately
			require.Equal(t, out.Clock(), p.Schedule(out.Clock(), 480))
		})
	}
}

func TestMeter(t *testing.T) {
	m := NewMeter(0.5)
	require.Zero(t, m.Level())

	for i := 0; i < 50; i++ {
		lvl := m.Observe(tone(320, 32767))
		require.GreaterOrEqual(t, lvl, 0.0)
		require.LessOrEqual(t, lvl, 100.0)
	}
	require.InDelta(t, 100, m.Level(), 0.01)

	for i := 0; i < 50; i++ {
		m.Observe(make([]int16, 320))
	}
	require.InDelta(t, 0, m.Level(), 0.01)

	m.Reset()
	require.Zero(t, m.Level())
}

func TestFrameQueueLatestWins(t *testing.T) {
	q := NewFrameQueue()
	q.Push([]int16{1})
	q.Push([]int16{2})
	q.Push([]int16{3})

	require.Equal(t, []int16{3}, <-q.Frames())
	require.Equal(t, int64(2), q.Dropped())

	q.Close()
	q.Close()
	q.Push([]int16{4})
	_, ok := <-q.Frames()
	require.False(t, ok)
}

func TestInputFraming(t *testing.T) {
	released := 0
	in := NewInput(WithRelease(func() error {
		released++
		return nil
	}))

	// 1.5 frames produce exactly one frame
	require.NoError(t, in.WriteSamples(tone(FrameSamples+FrameSamples/2, 1000)))
	frame := <-in.Frames()
	require.Len(t, frame, FrameSamples)
	require.Greater(t, in.Level(), 0.0)

	// the remainder is completed by the next write
	n, err := in.Write(EncodePCM16(tone(FrameSamples/2, 1000)))
	require.NoError(t, err)
	require.Equal(t, FrameSamples, n)
	require.Len(t, <-in.Frames(), FrameSamples)

	require.NoError(t, in.Close())
	require.NoError(t, in.Close())
	require.Equal(t, 1, released)

	require.ErrorIs(t, in.WriteSamples(tone(10, 1)), io.ErrClosedPipe)
	_, ok := <-in.Frames()
	require.False(t, ok)
}

func TestForward(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := NewInput()
	got := make(chan []int16, 4)
	done := make(chan error, 1)
	go func() {
		done <- Forward(context.Background(), in, func(frame []int16) error {
			got <- frame
			return nil
		})
	}()

	require.NoError(t, in.WriteSamples(tone(FrameSamples, 10)))
	require.Len(t, <-got, FrameSamples)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestNullOutputClockMoves(t *testing.T) {
	defer goleak.VerifyNone(t)

	out := NewNullOutput(Format{SampleRate: 16_000, Channels: 1})
	require.Eventually(t, func() bool {
		return out.Clock() > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
}

func TestOutputGain(t *testing.T) {
	out := NewOutput(Format{SampleRate: 8_000, Channels: 1}, WithGain(2))
	defer out.Close()

	require.NoError(t, out.Schedule([]int16{100, 20000}, 0))
	p := make([]byte, 4)
	_, err := out.Read(p)
	require.NoError(t, err)
	samples, err := DecodePCM16(p)
	require.NoError(t, err)
	require.Equal(t, []int16{200, 32767}, samples)
}

func TestOutputLevelFollowsPlayback(t *testing.T) {
	format := Format{SampleRate: 24_000, Channels: 1}
	out := NewOutput(format)
	defer out.Close()

	require.NoError(t, out.Schedule(tone(format.Samples(100*time.Millisecond), 1000), 0))
	require.Zero(t, out.Level(), "queued audio is not audible yet")

	_, err := out.Read(make([]byte, format.Samples(100*time.Millisecond)*2))
	require.NoError(t, err)
	require.Greater(t, out.Level(), 5.0)

	// the device keeps pulling silence once the queue is drained
	_, err = out.Read(make([]byte, format.Samples(time.Second)*2))
	require.NoError(t, err)
	require.Zero(t, out.Pending())
	require.Less(t, out.Level(), 0.01)

	require.NoError(t, out.Schedule(tone(format.Samples(time.Second), 1000), out.Clock()))
	_, err = out.Read(make([]byte, format.Samples(100*time.Millisecond)*2))
	require.NoError(t, err)
	require.Greater(t, out.Level(), 5.0)

	require.Equal(t, 1, out.Clear())
	require.Zero(t, out.Level())
}
