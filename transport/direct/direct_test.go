package direct

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

func next(t *testing.T, c lovecall.Conn) lovecall.Event {
	t.Helper()
	select {
	case evt := <-c.Events():
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return lovecall.Event{}
}

func TestDial(t *testing.T) {
	dialer, m := New()
	c, err := dialer.Dial(context.Background(), lovecall.CallConfig{Persona: "p", Voice: "Kore"})
	require.NoError(t, err)
	require.Equal(t, "Kore", m.Config().Voice)
	require.Equal(t, lovecall.EventOpen, next(t, c).Type)

	require.NoError(t, c.SendAudio(context.Background(), make([]int16, audio.FrameSamples)))
	require.Equal(t, 1, m.FramesSent())

	require.True(t, m.Emit(lovecall.Event{Type: lovecall.EventInterrupted}))
	require.Equal(t, lovecall.EventInterrupted, next(t, c).Type)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, m.Emit(lovecall.Event{Type: lovecall.EventInterrupted}))
	require.ErrorIs(t, c.SendAudio(context.Background(), nil), ErrClosed)
	require.ErrorIs(t, c.SendToolResults(context.Background(), []*proto.ToolResult{{ID: "1"}}), ErrClosed)
}

func TestEcho(t *testing.T) {
	defer goleak.VerifyNone(t)

	dialer, m := New()
	c, err := dialer.Dial(context.Background(), lovecall.CallConfig{})
	require.NoError(t, err)
	require.Equal(t, lovecall.EventOpen, next(t, c).Type)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Echo()
	}()

	frame := make([]int16, audio.FrameSamples)
	for i := range frame {
		frame[i] = 1000
	}
	require.NoError(t, c.SendAudio(context.Background(), frame))

	evt := next(t, c)
	require.Equal(t, lovecall.EventAudio, evt.Type)
	pcm, err := audio.DecodeBase64(evt.Audio)
	require.NoError(t, err)
	require.Len(t, pcm, audio.FrameSamples*audio.ModelOutputSampleRate/audio.InputSampleRate)

	require.NoError(t, c.Close())
	<-done
}

func TestSendAfterClose(t *testing.T) {
	ctx := context.Background()
	for range 100 {
		dialer, m := New()
		c, err := dialer.Dial(ctx, lovecall.CallConfig{})
		require.NoError(t, err)
		require.NoError(t, c.Close())

		require.ErrorIs(t, c.SendAudio(ctx, make([]int16, audio.FrameSamples)), ErrClosed)
		require.ErrorIs(t, c.SendImage(ctx, []byte{0xff, 0xd8}), ErrClosed)
		require.ErrorIs(t, c.SendToolResults(ctx, []*proto.ToolResult{{ID: "1"}}), ErrClosed)
		require.Zero(t, m.FramesSent())
	}
}
