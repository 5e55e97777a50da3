package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions selects the external tools used for formats without a native decoder
type LoadOptions struct {
	FFmpeg  string
	FFprobe string
}

// OpenDecoder picks a decoder for path. WAV, MP3 and FLAC are decoded
// natively; anything else, or a file the native decoder rejects as
// unsupported, is decoded through FFmpeg.
func OpenDecoder(ctx context.Context, path string, opts LoadOptions) (AudioDecoder, error) {
	var (
		dec AudioDecoder
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		dec, err = NewWAVDecoder(path)
	case ".mp3":
		dec, err = NewMP3Decoder(path)
	case ".flac":
		dec, err = NewFLACDecoder(path)
	default:
		err = errUnsupported
	}

	if errors.Is(err, errUnsupported) {
		dec, err = NewFFmpegDecoder(ctx, opts.FFmpeg, opts.FFprobe, path)
	}
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// Load decodes the whole file at path into a Buffer. Every failure is
// reported as a *DecodeError.
func Load(ctx context.Context, path string, opts LoadOptions) (Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Buffer{}, NewDecodeError(path, err)
	}
	if info.IsDir() {
		return Buffer{}, NewDecodeError(path, fmt.Errorf("is a directory"))
	}

	dec, err := OpenDecoder(ctx, path, opts)
	if err != nil {
		return Buffer{}, NewDecodeError(path, err)
	}
	defer dec.Close()

	buf, err := ReadAll(dec)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Buffer{}, ctxErr
	}
	if err != nil {
		return Buffer{}, NewDecodeError(path, err)
	}
	return buf, nil
}

// FileLoader loads tracks from disk with fixed options
type FileLoader struct {
	Options LoadOptions
}

// Load decodes path
func (l FileLoader) Load(ctx context.Context, path string) (Buffer, error) {
	return Load(ctx, path, l.Options)
}
