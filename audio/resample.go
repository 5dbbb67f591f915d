package audio

import (
	"math"
)

// Resample converts PCM16 samples between rates using naive linear
// interpolation.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(dstRate) / float64(srcRate)
	sampleCount := len(samples)
	newSampleCount := int(float64(sampleCount) * ratio)

	resampled := make([]int16, newSampleCount)

	for i := 0; i < newSampleCount; i++ {
		srcIndex := float64(i) / ratio
		i0 := int(math.Floor(srcIndex))
		i1 := int(math.Min(float64(sampleCount-1), float64(i0+1)))
		frac := srcIndex - float64(i0)

		s0 := samples[i0]
		s1 := samples[i1]
		resampled[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}

	return resampled
}
