package audio

import (
	"fmt"
	"math"
)

// Resample converts buf to sampleRate by linear interpolation
func Resample(buf Buffer, sampleRate int) (Buffer, error) {
	if err := buf.Validate(); err != nil {
		return Buffer{}, err
	}
	return ResampleFrom(buf, float64(buf.SampleRate), sampleRate)
}

// ResampleFrom treats buf's samples as if recorded at sourceRate and
// linearly resamples them to sampleRate. Output frame i reads input
// position i × sourceRate / sampleRate; positions that land exactly on an
// input frame copy it unchanged.
func ResampleFrom(buf Buffer, sourceRate float64, sampleRate int) (Buffer, error) {
	if buf.Channels <= 0 {
		return Buffer{}, fmt.Errorf("%w: %d channels", ErrInvalidBuffer, buf.Channels)
	}
	if sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("%w: target sample rate %d", ErrInvalidBuffer, sampleRate)
	}
	if !(sourceRate > 0) || math.IsInf(sourceRate, 0) {
		return Buffer{}, fmt.Errorf("%w: source sample rate %v", ErrInvalidBuffer, sourceRate)
	}

	step := sourceRate / float64(sampleRate)
	frames := buf.Frames()
	outFrames := int(math.Round(float64(frames) / step))

	return Buffer{
		SampleRate: sampleRate,
		Channels:   buf.Channels,
		Samples:    interpolate(buf.Samples, buf.Channels, step, outFrames),
	}, nil
}

// interpolate reads outFrames frames from interleaved samples advancing
// step input frames per output frame. Reads past the last frame hold it.
func interpolate(samples []float64, channels int, step float64, outFrames int) []float64 {
	frames := len(samples) / channels
	out := make([]float64, outFrames*channels)
	if frames == 0 {
		return out
	}

	last := frames - 1
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)

		if idx >= last {
			copy(out[i*channels:(i+1)*channels], samples[last*channels:])
			continue
		}

		a := samples[idx*channels : (idx+1)*channels]
		if frac == 0 {
			copy(out[i*channels:(i+1)*channels], a)
			continue
		}

		b := samples[(idx+1)*channels : (idx+2)*channels]
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = a[ch] + (b[ch]-a[ch])*frac
		}
	}
	return out
}

// MonoResample resamples a single-channel signal, used by analysis code that
// works on bare mono slices.
func MonoResample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	step := float64(fromRate) / float64(toRate)
	outFrames := int(math.Round(float64(len(samples)) / step))
	return interpolate(samples, 1, step, outFrames)
}
