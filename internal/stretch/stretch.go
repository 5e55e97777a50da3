// Package stretch changes the tempo of a track by naive resampling: the
// track is played back faster or slower, so pitch moves together with tempo.
package stretch

import (
	"fmt"
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// InvalidRatioError is returned for ratios that are not finite and positive
type InvalidRatioError struct {
	Ratio float64
}

func (e *InvalidRatioError) Error() string {
	return fmt.Sprintf("invalid tempo ratio %v: must be finite and greater than zero", e.Ratio)
}

// Ratio returns the factor that brings trackBPM to referenceBPM
func Ratio(referenceBPM, trackBPM float64) (float64, error) {
	r := referenceBPM / trackBPM
	if err := checkRatio(r); err != nil {
		return 0, err
	}
	return r, nil
}

// Retime speeds buf up by ratio (or slows it down when ratio < 1). The
// samples are reinterpreted at SampleRate × ratio and resampled back to
// SampleRate, giving round(frames / ratio) frames at the original rate.
// The input is never modified.
func Retime(buf audio.Buffer, ratio float64) (audio.Buffer, error) {
	if err := checkRatio(ratio); err != nil {
		return audio.Buffer{}, err
	}
	if err := buf.Validate(); err != nil {
		return audio.Buffer{}, err
	}

	return audio.ResampleFrom(buf, float64(buf.SampleRate)*ratio, buf.SampleRate)
}

func checkRatio(ratio float64) error {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return &InvalidRatioError{Ratio: ratio}
	}
	return nil
}
