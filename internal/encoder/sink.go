package encoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// sink receives interleaved samples and finalizes an encoded file
type sink interface {
	Write(samples []float64) error
	Close() error
}

// wavSink writes 16-bit PCM WAV with go-audio/wav
type wavSink struct {
	file *os.File
	enc  *wav.Encoder
	buf  *goaudio.IntBuffer
}

func newWAVSink(path string, sampleRate, channels int) (*wavSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &wavSink{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 16, channels, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: 16,
		},
	}, nil
}

func (s *wavSink) Write(samples []float64) error {
	s.buf.Data = quantize(samples, s.buf.Data)
	return s.enc.Write(s.buf)
}

func (s *wavSink) Close() error {
	encErr := s.enc.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalize WAV: %w", encErr)
	}
	return fileErr
}

// ffmpegSink pipes 16-bit PCM into the ffmpeg binary
type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	ints   []int
	pcm    []byte
}

func newFFmpegSink(ctx context.Context, ffmpeg, path string, format Format, codec, bitrate string, sampleRate, channels int) (*ffmpegSink, error) {
	args := []string{
		"-v", "error", "-hide_banner", "-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
		"-c:a", codec,
	}
	// FLAC is lossless; a bitrate makes no sense for it
	if format != FormatFLAC && strings.TrimSpace(bitrate) != "" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args, "-f", muxers[format], path)

	s := &ffmpegSink{cmd: exec.CommandContext(ctx, ffmpegBinary(ffmpeg), args...)}
	s.cmd.Stderr = &s.stderr

	var err error
	s.stdin, err = s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg pipe: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return s, nil
}

func (s *ffmpegSink) Write(samples []float64) error {
	s.ints = quantize(samples, s.ints)
	s.pcm = putS16LE(s.ints, s.pcm)
	if _, err := s.stdin.Write(s.pcm); err != nil {
		return fmt.Errorf("write to ffmpeg: %w: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode: %w: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}
