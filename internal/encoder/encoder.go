// Package encoder writes a finished mix to disk. WAV is encoded natively;
// every other format is encoded by the ffmpeg binary.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/linuxmatters/jivemix/internal/audio"
)

var (
	// ErrOutputLocked is returned when another run is writing the same output
	ErrOutputLocked = errors.New("output is locked by another run")

	// ErrEncoderUnavailable is returned when ffmpeg has no encoder for the format
	ErrEncoderUnavailable = errors.New("encoder unavailable")
)

// writeChunkFrames is how many frames are handed to a sink per write
const writeChunkFrames = 65536

// Options describes one export
type Options struct {
	Path    string // Destination file
	Format  string // Output format; empty infers it from Path
	Bitrate string // Encoder bitrate for lossy formats (e.g., "320k")
}

// Exporter encodes mixes to files
type Exporter struct {
	FFmpeg string       // ffmpeg binary for non-WAV formats
	Logger *slog.Logger // Optional
}

// New creates an exporter that uses the given ffmpeg binary
func New(ffmpeg string, logger *slog.Logger) *Exporter {
	return &Exporter{FFmpeg: ffmpeg, Logger: logger}
}

// Export encodes mix to opts.Path. The file is first written to a hidden
// temporary file in the destination directory and renamed into place on
// success; on failure nothing is left at opts.Path.
func (e *Exporter) Export(ctx context.Context, mix audio.Buffer, opts Options) (err error) {
	if err := mix.Validate(); err != nil {
		return err
	}
	if mix.Frames() == 0 {
		return fmt.Errorf("export: %w", audio.ErrNoAudio)
	}
	if opts.Path == "" {
		return errors.New("export: output path cannot be empty")
	}

	format, err := ResolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}

	lock := flock.New(opts.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrOutputLocked, opts.Path)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	tmpPath := filepath.Join(filepath.Dir(opts.Path), ".jivemix-"+uuid.NewString()+format.Extension())
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	s, err := e.openSink(ctx, tmpPath, format, opts.Bitrate, mix)
	if err != nil {
		return err
	}

	if err := writeAll(ctx, s, mix); err != nil {
		_ = s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, opts.Path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}

	if e.Logger != nil {
		e.Logger.Info("mix exported",
			slog.String("path", opts.Path),
			slog.String("format", string(format)),
			slog.Duration("duration", mix.Duration()),
		)
	}
	return nil
}

func (e *Exporter) openSink(ctx context.Context, path string, format Format, bitrate string, mix audio.Buffer) (sink, error) {
	if format == FormatWAV {
		s, err := newWAVSink(path, mix.SampleRate, mix.Channels)
		if err != nil {
			return nil, fmt.Errorf("create WAV output: %w", err)
		}
		return s, nil
	}

	codec, err := SelectEncoder(ctx, e.FFmpeg, format)
	if err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.Debug("selected encoder",
			slog.String("codec", codec.Name),
			slog.String("description", codec.Description),
		)
	}
	return newFFmpegSink(ctx, e.FFmpeg, path, format, codec.Name, bitrate, mix.SampleRate, mix.Channels)
}

// writeAll streams the mix to s in chunks, stopping early on cancellation
func writeAll(ctx context.Context, s sink, mix audio.Buffer) error {
	step := writeChunkFrames * mix.Channels
	for start := 0; start < len(mix.Samples); start += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+step, len(mix.Samples))
		if err := s.Write(mix.Samples[start:end]); err != nil {
			return err
		}
	}
	return nil
}
