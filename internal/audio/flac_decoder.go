package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACDecoder implements AudioDecoder for FLAC files
type FLACDecoder struct {
	stream      *flac.Stream
	file        *os.File
	sampleRate  int
	numFrames   int64
	numChannels int
	position    int64

	// Interleaved samples decoded past the last request
	pending []float64
}

// NewFLACDecoder creates a new FLAC decoder
func NewFLACDecoder(filename string) (*FLACDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	// Parse FLAC stream - reads signature and StreamInfo block
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	if stream.Info.SampleRate == 0 || stream.Info.NChannels == 0 {
		stream.Close()
		f.Close()
		return nil, fmt.Errorf("invalid FLAC stream info: %d Hz, %d channels",
			stream.Info.SampleRate, stream.Info.NChannels)
	}

	return &FLACDecoder{
		stream:      stream,
		file:        f,
		sampleRate:  int(stream.Info.SampleRate),
		numFrames:   int64(stream.Info.NSamples),
		numChannels: int(stream.Info.NChannels),
	}, nil
}

// ReadChunk reads the next chunk of interleaved samples
func (d *FLACDecoder) ReadChunk(numFrames int) ([]float64, error) {
	want := numFrames * d.numChannels

	// Read FLAC frames until we have enough samples
	for len(d.pending) < want {
		frame, err := d.stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		// FLAC frames contain one subframe per channel
		if len(frame.Subframes) != d.numChannels {
			return nil, fmt.Errorf("FLAC frame has %d channels, stream declares %d",
				len(frame.Subframes), d.numChannels)
		}

		// Normalize to [-1.0, 1.0] based on bits per sample
		// FLAC supports 4-32 bits per sample
		maxVal := float64(int64(1) << (frame.BitsPerSample - 1))
		blockSize := len(frame.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			for _, subframe := range frame.Subframes {
				d.pending = append(d.pending, float64(subframe.Samples[i])/maxVal)
			}
		}
	}

	if len(d.pending) == 0 {
		return nil, io.EOF
	}

	n := min(want, len(d.pending))
	samples := make([]float64, n)
	copy(samples, d.pending[:n])
	d.pending = d.pending[n:]

	d.position += int64(n / d.numChannels)
	return samples, nil
}

// SampleRate returns the sample rate
func (d *FLACDecoder) SampleRate() int {
	return d.sampleRate
}

// NumFrames returns the total number of frames, 0 when the stream omits it
func (d *FLACDecoder) NumFrames() int64 {
	return d.numFrames
}

// NumChannels returns the number of audio channels
func (d *FLACDecoder) NumChannels() int {
	return d.numChannels
}

// Close closes the decoder and releases resources
func (d *FLACDecoder) Close() error {
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}
