package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder implements AudioDecoder for MP3 files
type MP3Decoder struct {
	decoder     *mp3.Decoder
	file        *os.File
	sampleRate  int
	numChannels int
	pending     []byte // Bytes of a frame split across reads
}

// NewMP3Decoder creates a new MP3 decoder
func NewMP3Decoder(filename string) (*MP3Decoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder:     decoder,
		file:        f,
		sampleRate:  decoder.SampleRate(),
		numChannels: 2, // go-mp3 always outputs stereo
	}, nil
}

// ReadChunk reads the next chunk of interleaved stereo samples
func (d *MP3Decoder) ReadChunk(numFrames int) ([]float64, error) {
	// go-mp3 always outputs interleaved stereo: L0 R0 L1 R1 L2 R2 ...
	// Each channel sample is 16-bit (2 bytes), so 4 bytes per frame
	const bytesPerFrame = 4

	buf := make([]byte, numFrames*bytesPerFrame)
	copied := copy(buf, d.pending)
	d.pending = d.pending[:0]

	n, err := io.ReadFull(d.decoder, buf[copied:])
	n += copied
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read MP3 data: %w", err)
	}

	whole := n - n%bytesPerFrame
	d.pending = append(d.pending, buf[whole:n]...)
	if whole == 0 {
		return nil, io.EOF
	}

	samples := make([]float64, whole/2)
	for i := range samples {
		// 16-bit signed little-endian
		v := int16(buf[i*2]) | (int16(buf[i*2+1]) << 8)
		samples[i] = float64(v) / 32768.0
	}

	return samples, nil
}

// SampleRate returns the sample rate
func (d *MP3Decoder) SampleRate() int {
	return d.sampleRate
}

// NumFrames returns the total number of frames, as reported by go-mp3
func (d *MP3Decoder) NumFrames() int64 {
	length := d.decoder.Length()
	if length < 0 {
		return 0
	}
	return length / 4
}

// NumChannels returns the number of audio channels
func (d *MP3Decoder) NumChannels() int {
	return d.numChannels
}

// Close closes the decoder and releases resources
func (d *MP3Decoder) Close() error {
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}
