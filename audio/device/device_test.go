package device

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

func TestDefaults(t *testing.T) {
	s := System{}
	s.Defaults()
	require.Equal(t, DefaultOutputSampleRate, s.OutputSampleRate)
	require.Equal(t, 1.0, s.InputGain)
	require.Equal(t, 1.0, s.OutputGain)
	require.NotNil(t, s.Logger)
}

func TestOpenInputCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := System{}
	_, err := s.OpenInput(ctx)
	require.True(t, proto.IsDeviceError(err))
}

func TestHardware(t *testing.T) {
	if os.Getenv("LOVECALL_TEST_DEVICES") == "" {
		t.Skip("LOVECALL_TEST_DEVICES not set")
	}

	s := System{}
	in, err := s.OpenInput(context.Background())
	require.NoError(t, err)
	require.Equal(t, audio.InputSampleRate, in.Format().SampleRate)
	require.Len(t, <-in.Frames(), audio.FrameSamples)
	require.NoError(t, in.Close())
	require.NoError(t, in.Close())

	out := s.OpenOutput(context.Background())
	require.NoError(t, out.Close())
}
