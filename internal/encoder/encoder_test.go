package encoder

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/linuxmatters/jivemix/internal/audio"
)

func testMix(rate, channels, frames int) audio.Buffer {
	samples := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	return audio.Buffer{SampleRate: rate, Channels: channels, Samples: samples}
}

func TestExportWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "set.wav")
	mix := testMix(44100, 2, 100000)

	if err := New("", nil).Export(context.Background(), mix, Options{Path: out}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	got, err := audio.Load(context.Background(), out, audio.LoadOptions{})
	if err != nil {
		t.Fatalf("Load of exported file failed: %v", err)
	}
	if got.SampleRate != mix.SampleRate || got.Channels != mix.Channels {
		t.Fatalf("Format mismatch: got %d Hz %d ch", got.SampleRate, got.Channels)
	}
	if got.Frames() != mix.Frames() {
		t.Fatalf("Expected %d frames, got %d", mix.Frames(), got.Frames())
	}
	for i := 0; i < len(mix.Samples); i += 997 {
		if math.Abs(got.Samples[i]-mix.Samples[i]) > 1.0/16384 {
			t.Fatalf("Sample %d: expected %.5f, got %.5f", i, mix.Samples[i], got.Samples[i])
		}
	}

	// Only the output remains: no temp file, no lock file
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "set.wav" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only set.wav in output dir, found %v", names)
	}
}

func TestExportWAVClamps(t *testing.T) {
	out := filepath.Join(t.TempDir(), "loud.wav")
	mix := audio.Buffer{SampleRate: 8000, Channels: 1, Samples: []float64{1.7, -3, 0.25, 1, -1}}

	if err := New("", nil).Export(context.Background(), mix, Options{Path: out, Format: "wav"}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	got, err := audio.Load(context.Background(), out, audio.LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []float64{1, -1, 0.25, 1, -1}
	for i := range want {
		if math.Abs(got.Samples[i]-want[i]) > 1.0/16384 {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got.Samples[i])
		}
	}
}

func TestExportLockedOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "set.wav")

	other := flock.New(out + ".lock")
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("Failed to take lock: %v", err)
	}
	defer other.Unlock()

	err = New("", nil).Export(context.Background(), testMix(8000, 1, 100), Options{Path: out})
	if !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("Expected ErrOutputLocked, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("Output should not exist after a failed export")
	}
}

func TestExportCancelledLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "set.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("", nil).Export(ctx, testMix(44100, 2, 200000), Options{Path: out})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		t.Errorf("Unexpected file left behind: %s", e.Name())
	}
}

func TestExportRejectsEmptyMix(t *testing.T) {
	out := filepath.Join(t.TempDir(), "set.wav")
	err := New("", nil).Export(context.Background(), audio.Buffer{SampleRate: 44100, Channels: 2}, Options{Path: out})
	if !errors.Is(err, audio.ErrNoAudio) {
		t.Errorf("Expected audio.ErrNoAudio, got %v", err)
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name, path string
		want       Format
		wantErr    bool
	}{
		{"", "DJ_SET_FINAL.mp3", FormatMP3, false},
		{"", "set.WAV", FormatWAV, false},
		{"", "set.flac", FormatFLAC, false},
		{"", "set.m4a", FormatM4A, false},
		{"", "set", FormatMP3, false},
		{"wav", "set.mp3", FormatWAV, false},
		{".ogg", "set.mp3", FormatOGG, false},
		{"", "set.xyz", "", true},
		{"midi", "set.mp3", "", true},
	}

	for _, tt := range tests {
		got, err := ResolveFormat(tt.name, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolveFormat(%q, %q) error = %v, wantErr %v", tt.name, tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveFormat(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}
}

func TestParseEncoderList(t *testing.T) {
	output := strings.Join([]string{
		"Encoders:",
		" V..... = Video",
		" A..... = Audio",
		" ------",
		" V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)",
		" A....D aac                  AAC (Advanced Audio Coding)",
		" A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3) (codec mp3)",
		" A....D flac                 FLAC (Free Lossless Audio Codec)",
	}, "\n")

	got := ParseEncoderList(output)
	for _, name := range []string{"aac", "libmp3lame", "flac"} {
		if !got[name] {
			t.Errorf("Expected %s to be listed", name)
		}
	}
	if got["libx264"] {
		t.Error("Video encoder listed as audio")
	}
	if got["="] || got["Audio"] {
		t.Error("Legend lines parsed as encoders")
	}
}

func TestQuantize(t *testing.T) {
	got := quantize([]float64{0, 1, -1, 2, -2, 0.5, math.NaN()}, nil)
	want := []int{0, 32767, -32767, 32767, -32767, 16384, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("quantize[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	pcm := putS16LE([]int{-2, 258}, nil)
	if pcm[0] != 0xfe || pcm[1] != 0xff || pcm[2] != 0x02 || pcm[3] != 0x01 {
		t.Errorf("Unexpected little-endian encoding: % x", pcm)
	}
}
