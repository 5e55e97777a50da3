package encoder

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Format identifies an output container/codec family
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
	FormatOpus Format = "opus"
	FormatM4A  Format = "m4a"
	FormatAAC  Format = "aac"
)

// Codec describes an FFmpeg audio encoder for a format
type Codec struct {
	Name        string // Encoder name (e.g., "libmp3lame")
	Format      Format
	Available   bool   // Whether the ffmpeg binary lists it
	Description string // Human-readable description
}

// codecSpec defines an encoder configuration for priority lists
type codecSpec struct {
	name string
	desc string
}

// codecPriority defines the encoder preference order per format.
// WAV is written natively and never goes through FFmpeg.
var codecPriority = map[Format][]codecSpec{
	FormatMP3:  {{"libmp3lame", "LAME MP3"}, {"libshine", "Shine fixed-point MP3"}},
	FormatFLAC: {{"flac", "FFmpeg FLAC"}},
	FormatOGG:  {{"libvorbis", "Vorbis (libvorbis)"}, {"vorbis", "Vorbis (native)"}},
	FormatOpus: {{"libopus", "Opus (libopus)"}, {"opus", "Opus (native)"}},
	FormatM4A:  {{"libfdk_aac", "Fraunhofer FDK AAC"}, {"aac", "FFmpeg AAC"}},
	FormatAAC:  {{"libfdk_aac", "Fraunhofer FDK AAC"}, {"aac", "FFmpeg AAC"}},
}

// muxers maps formats to the FFmpeg muxer that writes them
var muxers = map[Format]string{
	FormatMP3:  "mp3",
	FormatFLAC: "flac",
	FormatOGG:  "ogg",
	FormatOpus: "opus",
	FormatM4A:  "ipod",
	FormatAAC:  "adts",
}

// ResolveFormat picks the output format: an explicit name wins, otherwise
// the extension of path decides. Unknown formats are an error.
func ResolveFormat(name, path string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if name == "" {
		name = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	switch name {
	case "wave":
		return FormatWAV, nil
	case "oga":
		return FormatOGG, nil
	case "mp4":
		return FormatM4A, nil
	case "":
		return FormatMP3, nil
	}

	f := Format(name)
	if f == FormatWAV {
		return f, nil
	}
	if _, ok := codecPriority[f]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q", name)
}

// Extension returns the file extension for a format, including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseEncoderList extracts audio encoder names from `ffmpeg -encoders` output
func ParseEncoderList(output string) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	inList := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inList {
			// The encoder table starts after a " ------" separator
			inList = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		if fields[0][0] == 'A' {
			encoders[fields[1]] = true
		}
	}
	return encoders
}

// DetectEncoders asks the ffmpeg binary which audio encoders it ships and
// returns the candidates for format in priority order
func DetectEncoders(ctx context.Context, ffmpeg string, format Format) ([]Codec, error) {
	priority, ok := codecPriority[format]
	if !ok {
		return nil, fmt.Errorf("no FFmpeg encoders for format %q", format)
	}

	output, err := exec.CommandContext(ctx, ffmpegBinary(ffmpeg), "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("list ffmpeg encoders: %w", err)
	}
	available := ParseEncoderList(string(output))

	codecs := make([]Codec, 0, len(priority))
	for _, spec := range priority {
		codecs = append(codecs, Codec{
			Name:        spec.name,
			Format:      format,
			Available:   available[spec.name],
			Description: spec.desc,
		})
	}
	return codecs, nil
}

// SelectEncoder returns the first available encoder for format
func SelectEncoder(ctx context.Context, ffmpeg string, format Format) (*Codec, error) {
	codecs, err := DetectEncoders(ctx, ffmpeg, format)
	if err != nil {
		return nil, err
	}
	for i := range codecs {
		if codecs[i].Available {
			return &codecs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no %s encoder available in %s", ErrEncoderUnavailable, format, ffmpegBinary(ffmpeg))
}

// EncoderStatus returns a human-readable status of every FFmpeg output format
func EncoderStatus(ctx context.Context, ffmpeg string) string {
	var sb strings.Builder
	sb.WriteString("Audio Encoder Status:\n")
	sb.WriteString("  WAV (go-audio/wav): available\n")

	for _, format := range []Format{FormatMP3, FormatFLAC, FormatOGG, FormatOpus, FormatM4A} {
		codecs, err := DetectEncoders(ctx, ffmpeg, format)
		if err != nil {
			fmt.Fprintf(&sb, "  %s: %v\n", strings.ToUpper(string(format)), err)
			continue
		}
		for _, c := range codecs {
			status := "not available"
			if c.Available {
				status = "available"
			}
			fmt.Fprintf(&sb, "  %s %s (%s): %s\n", strings.ToUpper(string(format)), c.Description, c.Name, status)
		}
	}

	return sb.String()
}

func ffmpegBinary(ffmpeg string) string {
	if ffmpeg = strings.TrimSpace(ffmpeg); ffmpeg == "" {
		return "ffmpeg"
	}
	return ffmpeg
}
