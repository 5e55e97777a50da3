package audio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder implements AudioDecoder by piping the ffmpeg binary's
// 32-bit float output. This covers any format FFmpeg can decode
// (OGG, AAC, M4A, float WAV, ...).
type FFmpegDecoder struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	reader     *bufio.Reader
	stderr     bytes.Buffer
	sampleRate int
	channels   int
	numFrames  int64
	closed     bool
}

// NewFFmpegDecoder probes filename with ffprobe then starts ffmpeg decoding
// it to interleaved float samples at the source rate and channel count.
func NewFFmpegDecoder(ctx context.Context, ffmpeg, ffprobe, filename string) (*FFmpegDecoder, error) {
	metadata, err := GetAudioMetadata(ctx, ffprobe, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio metadata: %w", err)
	}

	ffmpeg = strings.TrimSpace(ffmpeg)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	d := &FFmpegDecoder{
		sampleRate: metadata.SampleRate,
		channels:   metadata.Channels,
		numFrames:  metadata.NumFrames,
	}

	d.cmd = exec.CommandContext(ctx, ffmpeg,
		"-v", "error", "-nostdin",
		"-i", filename,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(d.sampleRate),
		"-ac", strconv.Itoa(d.channels),
		"pipe:1",
	)
	d.cmd.Stderr = &d.stderr

	d.stdout, err = d.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg pipe: %w", err)
	}
	if err := d.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	d.reader = bufio.NewReaderSize(d.stdout, 64*1024)

	return d, nil
}

// ReadChunk reads the next chunk of interleaved samples.
// Returns io.EOF when ffmpeg has finished and exited cleanly.
func (d *FFmpegDecoder) ReadChunk(numFrames int) ([]float64, error) {
	if d.closed {
		return nil, io.EOF
	}

	bytesPerFrame := 4 * d.channels
	buf := make([]byte, numFrames*bytesPerFrame)
	n, err := io.ReadFull(d.reader, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read ffmpeg output: %w", err)
	}

	n -= n % bytesPerFrame
	if n == 0 {
		if waitErr := d.wait(); waitErr != nil {
			return nil, waitErr
		}
		return nil, io.EOF
	}

	samples := make([]float64, n/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples, nil
}

func (d *FFmpegDecoder) wait() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode: %w: %s", err, strings.TrimSpace(d.stderr.String()))
	}
	return nil
}

// SampleRate returns the sample rate
func (d *FFmpegDecoder) SampleRate() int {
	return d.sampleRate
}

// NumFrames returns the frame count estimated from the probed duration
func (d *FFmpegDecoder) NumFrames() int64 {
	return d.numFrames
}

// NumChannels returns the number of audio channels
func (d *FFmpegDecoder) NumChannels() int {
	return d.channels
}

// Close stops ffmpeg if it is still running and releases the pipe
func (d *FFmpegDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.stdout.Close()
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}
