package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag; float and compressed WAVs go through FFmpeg
const wavFormatPCM = 1

// WAVDecoder implements AudioDecoder for WAV files
type WAVDecoder struct {
	decoder    *wav.Decoder
	file       *os.File
	sampleRate int
	bitDepth   int
	numChans   int
	numFrames  int64
	position   int64
}

// NewWAVDecoder creates a new WAV decoder
func NewWAVDecoder(filename string) (*WAVDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file")
	}

	// Get format info without reading all samples
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	if decoder.WavAudioFormat != wavFormatPCM {
		f.Close()
		return nil, fmt.Errorf("%w: WAV format tag %d", errUnsupported, decoder.WavAudioFormat)
	}

	bytesPerSample := int64(decoder.BitDepth / 8)
	numChans := int64(decoder.NumChans)
	if bytesPerSample == 0 || numChans == 0 {
		f.Close()
		return nil, fmt.Errorf("invalid WAV format: %d-bit, %d channels", decoder.BitDepth, decoder.NumChans)
	}

	return &WAVDecoder{
		decoder:    decoder,
		file:       f,
		sampleRate: int(decoder.SampleRate),
		bitDepth:   int(decoder.BitDepth),
		numChans:   int(decoder.NumChans),
		numFrames:  decoder.PCMLen() / (bytesPerSample * numChans),
	}, nil
}

// ReadChunk reads the next chunk of interleaved samples
func (d *WAVDecoder) ReadChunk(numFrames int) ([]float64, error) {
	if d.position >= d.numFrames {
		return nil, io.EOF
	}

	// Adjust if requesting more frames than available
	if d.position+int64(numFrames) > d.numFrames {
		numFrames = int(d.numFrames - d.position)
	}

	// Interleaved data needs numFrames × numChannels slots
	intBuf := &audio.IntBuffer{
		Data: make([]int, numFrames*d.numChans),
		Format: &audio.Format{
			NumChannels: d.numChans,
			SampleRate:  d.sampleRate,
		},
	}

	n, err := d.decoder.PCMBuffer(intBuf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}

	// Drop a trailing partial frame
	n -= n % d.numChans
	if n == 0 {
		return nil, io.EOF
	}

	samples := make([]float64, n)
	if d.bitDepth == 8 {
		// 8-bit PCM is unsigned with silence at 128
		for i := 0; i < n; i++ {
			samples[i] = float64(intBuf.Data[i]-128) / 128
		}
	} else {
		maxVal := float64(audio.IntMaxSignedValue(d.bitDepth))
		for i := 0; i < n; i++ {
			samples[i] = float64(intBuf.Data[i]) / maxVal
		}
	}

	d.position += int64(n / d.numChans)
	return samples, nil
}

// SampleRate returns the sample rate
func (d *WAVDecoder) SampleRate() int {
	return d.sampleRate
}

// NumFrames returns the total number of frames
func (d *WAVDecoder) NumFrames() int64 {
	return d.numFrames
}

// NumChannels returns the number of audio channels
func (d *WAVDecoder) NumChannels() int {
	return d.numChans
}

// Close closes the decoder and releases resources
func (d *WAVDecoder) Close() error {
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}
