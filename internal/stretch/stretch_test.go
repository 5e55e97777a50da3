package stretch

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
)

func sineBuffer(rate, channels int, seconds float64) audio.Buffer {
	frames := int(float64(rate) * seconds)
	samples := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		v := 0.8 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	return audio.Buffer{SampleRate: rate, Channels: channels, Samples: samples}
}

func TestRetimeUnityRatioIsIdentity(t *testing.T) {
	buf := sineBuffer(44100, 2, 1.5)

	out, err := Retime(buf, 1.0)
	if err != nil {
		t.Fatalf("Retime failed: %v", err)
	}

	if out.SampleRate != buf.SampleRate || out.Channels != buf.Channels {
		t.Fatalf("Format changed: %d Hz %d ch", out.SampleRate, out.Channels)
	}
	if out.Duration() != buf.Duration() {
		t.Errorf("Expected duration %v, got %v", buf.Duration(), out.Duration())
	}
	if len(out.Samples) != len(buf.Samples) {
		t.Fatalf("Expected %d samples, got %d", len(buf.Samples), len(out.Samples))
	}
	for i := range buf.Samples {
		if out.Samples[i] != buf.Samples[i] {
			t.Fatalf("Sample %d differs: %v vs %v", i, buf.Samples[i], out.Samples[i])
		}
	}
}

func TestRetimeScalesDuration(t *testing.T) {
	buf := sineBuffer(44100, 2, 10)

	tests := []struct {
		ratio float64
		want  time.Duration
	}{
		{1.2, 8333 * time.Millisecond},
		{0.5, 20 * time.Second},
		{2.0, 5 * time.Second},
		{120.0 / 128.0, 10666 * time.Millisecond},
	}

	for _, tt := range tests {
		out, err := Retime(buf, tt.ratio)
		if err != nil {
			t.Fatalf("Retime(%v) failed: %v", tt.ratio, err)
		}

		wantFrames := int(math.Round(float64(buf.Frames()) / tt.ratio))
		if out.Frames() != wantFrames {
			t.Errorf("Retime(%v): expected %d frames, got %d", tt.ratio, wantFrames, out.Frames())
		}

		diff := out.Duration() - tt.want
		if diff < -time.Millisecond || diff > time.Millisecond {
			t.Errorf("Retime(%v): expected duration ~%v, got %v", tt.ratio, tt.want, out.Duration())
		}
		if out.SampleRate != buf.SampleRate {
			t.Errorf("Retime(%v) changed sample rate to %d", tt.ratio, out.SampleRate)
		}
	}
}

func TestRetimeDoesNotMutateInput(t *testing.T) {
	buf := sineBuffer(22050, 1, 0.5)
	before := buf.Clone()

	if _, err := Retime(buf, 1.3); err != nil {
		t.Fatalf("Retime failed: %v", err)
	}
	for i := range before.Samples {
		if buf.Samples[i] != before.Samples[i] {
			t.Fatalf("Input sample %d modified", i)
		}
	}
}

func TestRetimeInvalidRatio(t *testing.T) {
	buf := sineBuffer(44100, 1, 0.1)

	for _, ratio := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Retime(buf, ratio)
		var ratioErr *InvalidRatioError
		if !errors.As(err, &ratioErr) {
			t.Errorf("Retime(%v): expected *InvalidRatioError, got %v", ratio, err)
		}
	}
}

func TestRetimeInvalidBuffer(t *testing.T) {
	_, err := Retime(audio.Buffer{SampleRate: 0, Channels: 2}, 1.0)
	if !errors.Is(err, audio.ErrInvalidBuffer) {
		t.Errorf("Expected audio.ErrInvalidBuffer, got %v", err)
	}
}

func TestRatio(t *testing.T) {
	r, err := Ratio(120, 100)
	if err != nil {
		t.Fatalf("Ratio failed: %v", err)
	}
	if r != 1.2 {
		t.Errorf("Expected 1.2, got %v", r)
	}

	if _, err := Ratio(120, 0); err == nil {
		t.Error("Expected error for zero track tempo")
	}
}
