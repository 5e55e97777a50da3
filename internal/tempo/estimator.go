// Package tempo estimates the tempo of a track in beats per minute and
// corrects the octave errors common to automatic estimators.
package tempo

import (
	"errors"
	"fmt"
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/config"
)

var (
	// ErrTooShort is returned when a signal is too short to cover the slowest tempo
	ErrTooShort = errors.New("signal too short for tempo estimation")

	// ErrNoOnsets is returned for signals with no detectable onsets, such as silence
	ErrNoOnsets = errors.New("no onsets detected")
)

// harmonics is how many multiples of the beat period are used to refine it
const harmonics = 4

// Estimator detects the dominant tempo of a buffer
type Estimator struct {
	SampleRate   int     // Analysis rate the signal is resampled to
	FFTSize      int     // STFT frame length
	HopSize      int     // STFT hop
	MinBPM       float64 // Slowest tempo considered
	MaxBPM       float64 // Fastest tempo considered
	PriorBPM     float64 // Centre of the tempo prior
	PriorOctaves float64 // Standard deviation of the prior, in octaves
}

// NewEstimator returns an Estimator with the default analysis settings
func NewEstimator() *Estimator {
	return &Estimator{
		SampleRate:   config.AnalysisSampleRate,
		FFTSize:      config.FFTSize,
		HopSize:      config.HopSize,
		MinBPM:       config.MinSearchBPM,
		MaxBPM:       config.MaxSearchBPM,
		PriorBPM:     config.PriorBPM,
		PriorOctaves: config.PriorOctaves,
	}
}

// Estimate returns the tempo of buf rounded to the nearest integer BPM.
// Buffers that cannot yield a positive tempo fail with *audio.DecodeError.
func (e *Estimator) Estimate(buf audio.Buffer) (float64, error) {
	if err := buf.Validate(); err != nil {
		return 0, audio.NewDecodeError("", err)
	}
	if buf.Frames() == 0 {
		return 0, audio.NewDecodeError("", audio.ErrNoAudio)
	}

	mono := audio.MonoResample(buf.Mono(), buf.SampleRate, e.SampleRate)

	envelope, err := OnsetEnvelope(mono, e.FFTSize, e.HopSize)
	if err != nil {
		return 0, audio.NewDecodeError("", fmt.Errorf("onset analysis: %w", err))
	}

	bpm, err := e.tempoFromEnvelope(envelope)
	if err != nil {
		return 0, audio.NewDecodeError("", err)
	}
	return math.Round(bpm), nil
}

// framesPerSecond is the onset envelope rate
func (e *Estimator) framesPerSecond() float64 {
	return float64(e.SampleRate) / float64(e.HopSize)
}

func (e *Estimator) lagToBPM(lag float64) float64 {
	return 60 * e.framesPerSecond() / lag
}

func (e *Estimator) tempoFromEnvelope(envelope []float64) (float64, error) {
	minLag := int(math.Floor(60 * e.framesPerSecond() / e.MaxBPM))
	maxLag := int(math.Ceil(60 * e.framesPerSecond() / e.MinBPM))
	if minLag < 1 {
		minLag = 1
	}
	if len(envelope) <= maxLag+1 {
		return 0, fmt.Errorf("%w: %d onset frames, need more than %d", ErrTooShort, len(envelope), maxLag+1)
	}

	ac, err := Autocorrelate(envelope)
	if err != nil {
		return 0, fmt.Errorf("autocorrelation: %w", err)
	}
	if !(ac[0] > 1e-12) {
		return 0, ErrNoOnsets
	}

	// Score each lag by its normalized autocorrelation plus the log-normal prior
	score := make([]float64, maxLag+2)
	for lag := range score {
		score[lag] = math.Inf(-1)
	}
	best := -1
	for lag := minLag; lag <= maxLag; lag++ {
		r := ac[lag] / ac[0]
		if r < 0 {
			r = 0
		}
		octaves := math.Log2(e.lagToBPM(float64(lag))/e.PriorBPM) / e.PriorOctaves
		score[lag] = math.Log1p(1e6*r) - 0.5*octaves*octaves
		if best < 0 || score[lag] > score[best] {
			best = lag
		}
	}
	if ac[best] <= 0 {
		return 0, ErrNoOnsets
	}

	lag := refineLag(ac, best, minLag, len(ac)-1)
	return e.lagToBPM(lag), nil
}

// refineLag locates the beat period with sub-frame precision: the peak at
// the chosen lag and at its multiples are each fitted with a parabola and
// their periods averaged.
func refineLag(ac []float64, lag, lo, hi int) float64 {
	period := parabolicPeak(ac, lag, lo, hi)
	sum, count := period, 1.0

	for k := 2; k <= harmonics; k++ {
		centre := int(math.Round(period * float64(k)))
		if centre+1 > hi {
			break
		}
		// Snap to the local maximum next to the predicted multiple
		peak := centre
		for _, cand := range []int{centre - 1, centre + 1} {
			if cand >= lo && ac[cand] > ac[peak] {
				peak = cand
			}
		}
		if ac[peak] <= 0 {
			break
		}
		sum += parabolicPeak(ac, peak, lo, hi) / float64(k)
		count++
	}
	return sum / count
}

// parabolicPeak fits a parabola through y[i-1], y[i], y[i+1] and returns the
// abscissa of its vertex.
func parabolicPeak(y []float64, i, lo, hi int) float64 {
	if i-1 < lo || i+1 > hi {
		return float64(i)
	}
	a, b, c := y[i-1], y[i], y[i+1]
	denom := a - 2*b + c
	if denom >= 0 {
		return float64(i)
	}
	delta := 0.5 * (a - c) / denom
	if delta < -0.5 || delta > 0.5 {
		return float64(i)
	}
	return float64(i) + delta
}
