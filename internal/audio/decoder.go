package audio

import "io"

// AudioDecoder defines the interface for all audio format decoders
type AudioDecoder interface {
	// ReadChunk reads up to numFrames frames as interleaved float64 samples
	// Returns io.EOF when no frames remain
	ReadChunk(numFrames int) ([]float64, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumFrames returns the total number of frames in the source
	// Returns 0 if the length is unknown (e.g., piped through FFmpeg)
	NumFrames() int64

	// NumChannels returns the number of audio channels (1=mono, 2=stereo)
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// readChunkFrames is the read size used when draining a decoder
const readChunkFrames = 8192

// ReadAll drains a decoder into a Buffer
func ReadAll(d AudioDecoder) (Buffer, error) {
	channels := d.NumChannels()
	capHint := int(d.NumFrames()) * channels
	if capHint <= 0 {
		capHint = readChunkFrames * channels
	}

	samples := make([]float64, 0, capHint)
	for {
		chunk, err := d.ReadChunk(readChunkFrames)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Buffer{}, err
		}
		samples = append(samples, chunk...)
	}

	if len(samples) == 0 {
		return Buffer{}, ErrNoAudio
	}

	buf := Buffer{
		SampleRate: d.SampleRate(),
		Channels:   channels,
		Samples:    samples,
	}
	if err := buf.Validate(); err != nil {
		return Buffer{}, err
	}
	return buf, nil
}
