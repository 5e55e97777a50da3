// Package mixer joins tracks into one continuous buffer with linear crossfades.
package mixer

import (
	"errors"
	"fmt"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
)

var (
	// ErrNoTracks is returned when there is nothing to sequence
	ErrNoTracks = errors.New("no tracks to sequence")

	// ErrChannelLayout is returned when channel counts cannot be reconciled
	ErrChannelLayout = errors.New("incompatible channel layouts")
)

// InvalidCrossfadeError reports a crossfade that cannot be applied.
// Index is the position of the incoming track of the offending pair, or -1
// when the crossfade itself is invalid.
type InvalidCrossfadeError struct {
	Crossfade time.Duration
	Index     int
	Frames    int // Crossfade length in frames
	Shortest  int // Frames in the shorter buffer of the pair
}

func (e *InvalidCrossfadeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid crossfade %v: must not be negative", e.Crossfade)
	}
	return fmt.Sprintf("crossfade %v (%d frames) between tracks %d and %d must be shorter than both, shortest has %d frames",
		e.Crossfade, e.Frames, e.Index, e.Index+1, e.Shortest)
}

// Sequence concatenates tracks in order, overlapping each adjacent pair by
// crossfade. The outgoing tail fades out linearly while the incoming head
// fades in, and the two are summed. The result has
// Σframes − (n−1)·crossfadeFrames frames. Inputs are never modified.
func Sequence(tracks []audio.Buffer, crossfade time.Duration) (audio.Buffer, error) {
	if len(tracks) == 0 {
		return audio.Buffer{}, ErrNoTracks
	}
	if crossfade < 0 {
		return audio.Buffer{}, &InvalidCrossfadeError{Crossfade: crossfade, Index: -1}
	}

	synced, err := SyncFormats(tracks)
	if err != nil {
		return audio.Buffer{}, err
	}
	if len(synced) == 1 {
		return synced[0].Clone(), nil
	}

	rate := synced[0].SampleRate
	channels := synced[0].Channels
	cf := audio.DurationToFrames(crossfade, rate)

	total := 0
	for i, buf := range synced {
		total += buf.Frames()
		if i == 0 {
			continue
		}
		prev := synced[i-1].Frames()
		shortest := min(prev, buf.Frames())
		// Compared in exact time: a fade just under the shortest track may
		// still round to its full length in frames.
		if int64(crossfade)*int64(rate) >= int64(shortest)*int64(time.Second) {
			return audio.Buffer{}, &InvalidCrossfadeError{
				Crossfade: crossfade,
				Index:     i,
				Frames:    cf,
				Shortest:  shortest,
			}
		}
	}
	total -= (len(synced) - 1) * cf

	out := make([]float64, 0, total*channels)
	out = append(out, synced[0].Samples...)

	for _, next := range synced[1:] {
		// Overlap region starts cf frames before the end of the accumulator
		base := len(out) - cf*channels
		for i := 0; i < cf; i++ {
			fadeIn := float64(i) / float64(cf)
			fadeOut := 1 - fadeIn
			for ch := 0; ch < channels; ch++ {
				j := i*channels + ch
				out[base+j] = out[base+j]*fadeOut + next.Samples[j]*fadeIn
			}
		}
		out = append(out, next.Samples[cf*channels:]...)
	}

	return audio.Buffer{SampleRate: rate, Channels: channels, Samples: out}, nil
}

// SyncFormats brings every buffer to the highest sample rate and channel
// count among them. Mono buffers are duplicated across channels; any other
// channel mismatch fails with ErrChannelLayout. Buffers already in the
// target format are returned as is.
func SyncFormats(tracks []audio.Buffer) ([]audio.Buffer, error) {
	rate, channels := 0, 0
	for i, buf := range tracks {
		if err := buf.Validate(); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		rate = max(rate, buf.SampleRate)
		channels = max(channels, buf.Channels)
	}

	synced := make([]audio.Buffer, len(tracks))
	for i, buf := range tracks {
		if buf.Channels != channels {
			if buf.Channels != 1 {
				return nil, fmt.Errorf("%w: track %d has %d channels, mix has %d",
					ErrChannelLayout, i, buf.Channels, channels)
			}
			buf = upmix(buf, channels)
		}
		if buf.SampleRate != rate {
			var err error
			buf, err = audio.Resample(buf, rate)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", i, err)
			}
		}
		synced[i] = buf
	}
	return synced, nil
}

// upmix copies a mono buffer into every channel
func upmix(buf audio.Buffer, channels int) audio.Buffer {
	frames := buf.Frames()
	samples := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = buf.Samples[i]
		}
	}
	return audio.Buffer{SampleRate: buf.SampleRate, Channels: channels, Samples: samples}
}
