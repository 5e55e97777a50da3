package tempo

import "github.com/linuxmatters/jivemix/internal/config"

// Sanitize folds an estimate that is likely off by an octave back towards
// the usable range: below MinSaneBPM it is doubled, above MaxSaneBPM it is
// halved. Only one correction is applied, so extreme values can remain out
// of range.
func Sanitize(bpm float64) float64 {
	switch {
	case bpm < config.MinSaneBPM:
		return bpm * 2
	case bpm > config.MaxSaneBPM:
		return bpm / 2
	default:
		return bpm
	}
}
