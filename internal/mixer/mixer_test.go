package mixer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// constBuffer returns a buffer where every sample equals v
func constBuffer(rate, channels, frames int, v float64) audio.Buffer {
	samples := make([]float64, frames*channels)
	for i := range samples {
		samples[i] = v
	}
	return audio.Buffer{SampleRate: rate, Channels: channels, Samples: samples}
}

func TestSequenceDuration(t *testing.T) {
	const rate = 1000
	tracks := []audio.Buffer{
		constBuffer(rate, 2, 10000, 0.1),
		constBuffer(rate, 2, 8000, 0.2),
		constBuffer(rate, 2, 12000, 0.3),
	}

	mix, err := Sequence(tracks, 2*time.Second)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}

	want := 10000 + 8000 + 12000 - 2*2000
	if mix.Frames() != want {
		t.Errorf("Expected %d frames, got %d", want, mix.Frames())
	}
	if mix.SampleRate != rate || mix.Channels != 2 {
		t.Errorf("Unexpected format: %d Hz %d ch", mix.SampleRate, mix.Channels)
	}
}

func TestSequenceSingleTrackIsCopy(t *testing.T) {
	buf := constBuffer(44100, 2, 1000, 0.5)

	mix, err := Sequence([]audio.Buffer{buf}, 6*time.Second)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if mix.Frames() != buf.Frames() {
		t.Fatalf("Expected %d frames, got %d", buf.Frames(), mix.Frames())
	}
	mix.Samples[0] = -1
	if buf.Samples[0] != 0.5 {
		t.Error("Single-track mix shares storage with its input")
	}
}

func TestSequenceEmpty(t *testing.T) {
	_, err := Sequence(nil, time.Second)
	if !errors.Is(err, ErrNoTracks) {
		t.Errorf("Expected ErrNoTracks, got %v", err)
	}
}

func TestSequenceZeroCrossfadeConcatenates(t *testing.T) {
	a := audio.Buffer{SampleRate: 10, Channels: 1, Samples: []float64{1, 2, 3}}
	b := audio.Buffer{SampleRate: 10, Channels: 1, Samples: []float64{4, 5}}

	mix, err := Sequence([]audio.Buffer{a, b}, 0)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}

	want := []float64{1, 2, 3, 4, 5}
	for i := range want {
		if mix.Samples[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], mix.Samples[i])
		}
	}
}

func TestSequenceCrossfadeGains(t *testing.T) {
	const rate = 100
	a := constBuffer(rate, 1, 300, 1)
	b := constBuffer(rate, 1, 300, 0)

	// 1 second = 100 frames of overlap
	mix, err := Sequence([]audio.Buffer{a, b}, time.Second)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if mix.Frames() != 500 {
		t.Fatalf("Expected 500 frames, got %d", mix.Frames())
	}

	// Before the overlap the first track plays untouched
	if mix.Samples[199] != 1 {
		t.Errorf("Expected 1 before the crossfade, got %v", mix.Samples[199])
	}
	// Inside the overlap only A's fade-out remains: 1 - i/cf
	for _, i := range []int{0, 25, 50, 99} {
		want := 1 - float64(i)/100
		if got := mix.Samples[200+i]; math.Abs(got-want) > 1e-12 {
			t.Errorf("Overlap frame %d: expected %v, got %v", i, want, got)
		}
	}
	// After the overlap only B plays
	if mix.Samples[300] != 0 {
		t.Errorf("Expected 0 after the crossfade, got %v", mix.Samples[300])
	}
}

func TestSequenceOrderMatters(t *testing.T) {
	a := constBuffer(100, 1, 300, 0.2)
	b := constBuffer(100, 1, 500, 0.7)

	ab, err := Sequence([]audio.Buffer{a, b}, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Sequence(a, b) failed: %v", err)
	}
	ba, err := Sequence([]audio.Buffer{b, a}, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Sequence(b, a) failed: %v", err)
	}

	if ab.Frames() != ba.Frames() {
		t.Fatalf("Expected equal lengths, got %d and %d", ab.Frames(), ba.Frames())
	}
	if ab.Samples[0] != 0.2 || ba.Samples[0] != 0.7 {
		t.Errorf("Mix does not start with its first track: %v, %v", ab.Samples[0], ba.Samples[0])
	}
	last := ab.Frames() - 1
	if ab.Samples[last] != 0.7 || ba.Samples[last] != 0.2 {
		t.Errorf("Mix does not end with its last track: %v, %v", ab.Samples[last], ba.Samples[last])
	}
}

func TestSequenceDoesNotMutateInputs(t *testing.T) {
	a := constBuffer(100, 2, 300, 0.4)
	b := constBuffer(100, 2, 300, 0.6)

	if _, err := Sequence([]audio.Buffer{a, b}, time.Second); err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	for i := range a.Samples {
		if a.Samples[i] != 0.4 || b.Samples[i] != 0.6 {
			t.Fatalf("Input modified at sample %d", i)
		}
	}
}

func TestSequenceInvalidCrossfade(t *testing.T) {
	tests := []struct {
		name      string
		tracks    []audio.Buffer
		crossfade time.Duration
		wantIndex int
	}{
		{
			name:      "negative",
			tracks:    []audio.Buffer{constBuffer(100, 1, 300, 0), constBuffer(100, 1, 300, 0)},
			crossfade: -time.Second,
			wantIndex: -1,
		},
		{
			name:      "longer than second track",
			tracks:    []audio.Buffer{constBuffer(100, 1, 1000, 0), constBuffer(100, 1, 300, 0)},
			crossfade: 5 * time.Second,
			wantIndex: 1,
		},
		{
			name:      "equal to first track",
			tracks:    []audio.Buffer{constBuffer(100, 1, 300, 0), constBuffer(100, 1, 1000, 0)},
			crossfade: 3 * time.Second,
			wantIndex: 1,
		},
		{
			name: "later pair",
			tracks: []audio.Buffer{
				constBuffer(100, 1, 1000, 0),
				constBuffer(100, 1, 1000, 0),
				constBuffer(100, 1, 100, 0),
			},
			crossfade: 2 * time.Second,
			wantIndex: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sequence(tt.tracks, tt.crossfade)
			var cfErr *InvalidCrossfadeError
			if !errors.As(err, &cfErr) {
				t.Fatalf("Expected *InvalidCrossfadeError, got %v", err)
			}
			if cfErr.Index != tt.wantIndex {
				t.Errorf("Expected index %d, got %d", tt.wantIndex, cfErr.Index)
			}
		})
	}
}

// A crossfade just under the track length is accepted even though it rounds
// to the full frame count
func TestSequenceCrossfadeRoundsToTrackLength(t *testing.T) {
	tracks := []audio.Buffer{constBuffer(1000, 1, 100, 0.5), constBuffer(1000, 1, 100, 0.5)}

	mix, err := Sequence(tracks, 99600*time.Microsecond)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if mix.Frames() != 100 {
		t.Errorf("Expected 100 frames, got %d", mix.Frames())
	}

	_, err = Sequence(tracks, 100*time.Millisecond)
	var cfErr *InvalidCrossfadeError
	if !errors.As(err, &cfErr) {
		t.Errorf("Expected *InvalidCrossfadeError for a crossfade equal to the track, got %v", err)
	}
}

func TestSyncFormats(t *testing.T) {
	mono := constBuffer(22050, 1, 22050, 0.5)
	stereo := constBuffer(44100, 2, 44100, 0.25)

	synced, err := SyncFormats([]audio.Buffer{mono, stereo})
	if err != nil {
		t.Fatalf("SyncFormats failed: %v", err)
	}

	for i, buf := range synced {
		if buf.SampleRate != 44100 || buf.Channels != 2 {
			t.Errorf("Track %d: expected 44100 Hz stereo, got %d Hz %d ch", i, buf.SampleRate, buf.Channels)
		}
	}
	if synced[0].Frames() != 44100 {
		t.Errorf("Expected upsampled mono track to have 44100 frames, got %d", synced[0].Frames())
	}
	if synced[0].Samples[0] != 0.5 || synced[0].Samples[1] != 0.5 {
		t.Errorf("Mono not duplicated across channels: %v", synced[0].Samples[:2])
	}
}

func TestSyncFormatsChannelLayout(t *testing.T) {
	stereo := constBuffer(44100, 2, 100, 0)
	surround := constBuffer(44100, 6, 100, 0)

	_, err := SyncFormats([]audio.Buffer{stereo, surround})
	if !errors.Is(err, ErrChannelLayout) {
		t.Errorf("Expected ErrChannelLayout, got %v", err)
	}
}
