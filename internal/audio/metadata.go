package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// AudioMetadata holds information about an audio file
type AudioMetadata struct {
	SampleRate int
	Channels   int
	NumFrames  int64
	Duration   float64 // in seconds
	Codec      string
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

// GetAudioMetadata runs ffprobe against filename and reports its first audio stream
func GetAudioMetadata(ctx context.Context, ffprobe, filename string) (*AudioMetadata, error) {
	ffprobe = strings.TrimSpace(ffprobe)
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-hide_banner",
		"-show_format", "-show_streams", "-of", "json", "--", filename)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	return parseProbe(output)
}

func parseProbe(output []byte) (*AudioMetadata, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("ffprobe parse: %w", err)
	}

	for _, stream := range result.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}

		sampleRate, _ := strconv.Atoi(strings.TrimSpace(stream.SampleRate))
		if sampleRate <= 0 || stream.Channels <= 0 {
			return nil, fmt.Errorf("audio stream reports %q Hz, %d channels", stream.SampleRate, stream.Channels)
		}

		duration := parseSeconds(stream.Duration)
		if duration == 0 {
			duration = parseSeconds(result.Format.Duration)
		}

		return &AudioMetadata{
			SampleRate: sampleRate,
			Channels:   stream.Channels,
			NumFrames:  int64(duration * float64(sampleRate)),
			Duration:   duration,
			Codec:      stream.CodecName,
		}, nil
	}

	return nil, fmt.Errorf("no audio stream found in file")
}

func parseSeconds(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
