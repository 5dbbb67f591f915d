package audio

import (
	"encoding/base64"
	"errors"
	"time"
)

const (
	// InputSampleRate is the capture rate expected by the speech model.
	InputSampleRate = 16_000
	// ModelOutputSampleRate is the rate of audio chunks produced by the speech model.
	ModelOutputSampleRate = 24_000
	// FrameDuration is the size of one capture frame.
	FrameDuration = 20 * time.Millisecond
	// FrameSamples is the number of mono samples in one capture frame.
	FrameSamples = InputSampleRate / 1000 * int(FrameDuration/time.Millisecond)
)

var ErrOddLength = errors.New("audio: pcm16 data must have an even length")

// Format describes a mono or multi channel PCM16 stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the play time of n samples per channel.
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Samples returns the number of samples per channel that play in d.
func (f Format) Samples(d time.Duration) int {
	return int(d * time.Duration(f.SampleRate) / time.Second)
}

// EncodePCM16 packs samples little-endian.
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// DecodePCM16 unpacks little-endian samples.
func DecodePCM16(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return out, nil
}

// EncodeBase64 converts samples into the wire representation used by the
// speech model.
func EncodeBase64(samples []int16) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

// DecodeBase64 converts a wire chunk back into samples.
func DecodeBase64(chunk string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, err
	}
	return DecodePCM16(raw)
}

// applyGain scales samples in place, clipping at the int16 range.
func applyGain(samples []int16, gain float64) {
	if gain == 1 {
		return
	}
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		samples[i] = int16(v)
	}
}
