package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidBuffer is returned when a buffer's format fields are unusable
var ErrInvalidBuffer = errors.New("invalid audio buffer")

// Buffer holds decoded audio as interleaved frames normalized to [-1.0, 1.0].
// A frame is one sample per channel. Buffers are treated as values: every
// transformation returns a new Buffer and leaves its input untouched.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Validate reports whether the buffer's format is consistent
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrInvalidBuffer, b.Channels)
	}
	if len(b.Samples)%b.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidBuffer, len(b.Samples), b.Channels)
	}
	return nil
}

// Frames returns the number of frames (time samples) in the buffer
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback duration at the buffer's sample rate
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return FramesToDuration(b.Frames(), b.SampleRate)
}

// Mono down-mixes the buffer by averaging channels
func (b Buffer) Mono() []float64 {
	frames := b.Frames()
	mono := make([]float64, frames)
	if b.Channels == 1 {
		copy(mono, b.Samples)
		return mono
	}

	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < b.Channels; ch++ {
			sum += b.Samples[i*b.Channels+ch]
		}
		mono[i] = sum / float64(b.Channels)
	}
	return mono
}

// Clone returns a deep copy of the buffer
func (b Buffer) Clone() Buffer {
	samples := make([]float64, len(b.Samples))
	copy(samples, b.Samples)
	return Buffer{
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		Samples:    samples,
	}
}

// DurationToFrames converts a duration to a frame count at the given rate,
// rounded to the nearest frame.
func DurationToFrames(d time.Duration, sampleRate int) int {
	return int(math.Round(float64(d) * float64(sampleRate) / float64(time.Second)))
}

// FramesToDuration converts a frame count to a duration at the given rate
func FramesToDuration(frames, sampleRate int) time.Duration {
	return time.Duration(int64(frames) * int64(time.Second) / int64(sampleRate))
}
