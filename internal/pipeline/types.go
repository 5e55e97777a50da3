package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/encoder"
)

// ErrEmptyInput is returned when the run has no tracks
var ErrEmptyInput = errors.New("no input files")

// Loader decodes a track from disk
type Loader interface {
	Load(ctx context.Context, path string) (audio.Buffer, error)
}

// Estimator detects the tempo of a buffer in BPM
type Estimator interface {
	Estimate(buf audio.Buffer) (float64, error)
}

// Exporter writes the finished mix
type Exporter interface {
	Export(ctx context.Context, mix audio.Buffer, opts encoder.Options) error
}

// Stage names a step of the run
type Stage string

const (
	StageLoad     Stage = "load"
	StageEstimate Stage = "estimate"
	StageRetime   Stage = "retime"
	StageSequence Stage = "sequence"
	StageExport   Stage = "export"
)

// StageError reports which file and step aborted the run
type StageError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Event is a progress notification. Index is -1 for whole-mix stages.
type Event struct {
	Stage       Stage
	Done        bool // false when the stage starts, true when it finishes
	Index       int
	Total       int
	Path        string
	DetectedBPM float64
	BPM         float64
	Ratio       float64
	Duration    time.Duration
}

// Track is one entry of the finished set
type Track struct {
	Path           string
	Name           string
	DetectedBPM    float64 // Raw estimate
	BPM            float64 // After octave correction
	Ratio          float64 // Reference / BPM
	SourceDuration time.Duration
	Duration       time.Duration // After retiming
	Buffer         audio.Buffer
}

// Report describes a completed run
type Report struct {
	ReferenceBPM        float64
	ReferenceOverridden bool // Reference came from configuration, not the first track
	Tracks              []Track
	Crossfade           time.Duration
	Mix                 audio.Buffer
	MixDuration         time.Duration
	Output              string
	Elapsed             time.Duration
}

// Transitions returns the mix positions where each track after the first starts fading in
func (r *Report) Transitions() []time.Duration {
	if r == nil || len(r.Tracks) < 2 {
		return nil
	}
	out := make([]time.Duration, 0, len(r.Tracks)-1)
	var pos time.Duration
	for _, t := range r.Tracks[:len(r.Tracks)-1] {
		pos += t.Duration - r.Crossfade
		out = append(out, pos)
	}
	return out
}
