// Package device binds audio graphs to the host sound hardware: capture goes
// through miniaudio (malgo), playback through oto.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
)

const DefaultOutputSampleRate = 48_000

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(rate int) (*oto.Context, int, error) {
	otoOnce.Do(func() {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = c
		otoRate = rate
	})
	return otoCtx, otoRate, otoErr
}

// System opens graphs on the default devices.
type System struct {
	OutputSampleRate int
	InputGain        float64
	OutputGain       float64
	Logger           *slog.Logger
}

func (s *System) Defaults() {
	if s.OutputSampleRate == 0 {
		s.OutputSampleRate = DefaultOutputSampleRate
	}
	if s.InputGain == 0 {
		s.InputGain = 1
	}
	if s.OutputGain == 0 {
		s.OutputGain = 1
	}
	if s.Logger == nil {
		s.Logger = slog.Default().With(slog.String("component", "device"))
	}
}

// OpenInput opens the default microphone at 16 kHz mono. Any failure is a
// *proto.DeviceError.
func (s *System) OpenInput(ctx context.Context) (audio.InputGraph, error) {
	s.Defaults()

	if err := ctx.Err(); err != nil {
		return nil, proto.NewDeviceError("microphone", err)
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		s.Logger.Debug("malgo", slog.String("message", message))
	})
	if err != nil {
		return nil, proto.NewDeviceError("microphone", fmt.Errorf("init context: %w", err))
	}

	freeContext := func() {
		_ = mctx.Uninit()
		mctx.Free()
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = audio.InputSampleRate
	cfg.PeriodSizeInMilliseconds = uint32(audio.FrameDuration / time.Millisecond)

	var dev *malgo.Device
	in := audio.NewInput(
		audio.WithGain(s.InputGain),
		audio.WithRelease(func() error {
			err := dev.Stop()
			dev.Uninit()
			freeContext()
			return err
		}),
	)

	dev, err = malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			_, _ = in.Write(input)
		},
	})
	if err != nil {
		freeContext()
		return nil, proto.NewDeviceError("microphone", fmt.Errorf("init device: %w", err))
	}

	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeContext()
		return nil, proto.NewDeviceError("microphone", fmt.Errorf("start device: %w", err))
	}

	s.Logger.Info("microphone opened", slog.Int("sample_rate", audio.InputSampleRate))
	return in, nil
}

// OpenOutput opens the default speaker. When no playback device is available
// it falls back to a silent output graph and never fails.
func (s *System) OpenOutput(_ context.Context) audio.OutputGraph {
	s.Defaults()

	c, rate, err := otoContext(s.OutputSampleRate)
	if err != nil {
		s.Logger.Warn("no playback device, using silent output", slog.Any("err", err))
		return audio.NewNullOutput(audio.Format{SampleRate: s.OutputSampleRate, Channels: 1}, audio.WithGain(s.OutputGain))
	}

	var player *oto.Player
	out := audio.NewOutput(
		audio.Format{SampleRate: rate, Channels: 1},
		audio.WithGain(s.OutputGain),
		audio.WithRelease(func() error {
			if player == nil {
				return nil
			}
			return player.Close()
		}),
	)

	player = c.NewPlayer(out)
	player.Play()

	s.Logger.Info("speaker opened", slog.Int("sample_rate", rate))
	return out
}
