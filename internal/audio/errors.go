package audio

import (
	"errors"
	"fmt"
)

// ErrNoAudio is returned when a source decodes to zero frames
var ErrNoAudio = errors.New("no audio data in file")

// errUnsupported marks sources a native decoder cannot handle; the loader
// retries those through FFmpeg.
var errUnsupported = errors.New("unsupported by native decoder")

// DecodeError reports that a source could not be turned into a waveform.
// It is fatal for a run: a track that cannot be decoded invalidates the mix.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode audio: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps err as a DecodeError for path
func NewDecodeError(path string, err error) error {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return err
	}
	return &DecodeError{Path: path, Err: err}
}
