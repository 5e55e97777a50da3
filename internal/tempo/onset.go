package tempo

import (
	"math"

	"github.com/argusdusty/gofft"
	"github.com/mjibson/go-dsp/window"
)

// logCompression scales magnitudes before log1p so quiet transients still register
const logCompression = 1000.0

// OnsetEnvelope computes the onset strength of a mono signal: the positive
// spectral flux of log-compressed STFT magnitudes, averaged over frequency
// bins, with its mean removed. One value is produced per hop; the first
// frame has no predecessor and contributes zero flux.
func OnsetEnvelope(samples []float64, fftSize, hopSize int) ([]float64, error) {
	if fftSize <= 0 || hopSize <= 0 || len(samples) < fftSize {
		return nil, nil
	}

	numFrames := 1 + (len(samples)-fftSize)/hopSize
	numBins := fftSize/2 + 1
	hann := window.Hann(fftSize)

	envelope := make([]float64, numFrames)
	prev := make([]float64, numBins)
	curr := make([]float64, numBins)
	windowed := make([]float64, fftSize)

	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		for i := 0; i < fftSize; i++ {
			windowed[i] = samples[start+i] * hann[i]
		}

		spectrum := gofft.Float64ToComplex128Array(windowed)
		if err := gofft.FFT(spectrum); err != nil {
			return nil, err
		}

		for k := 0; k < numBins; k++ {
			re, im := real(spectrum[k]), imag(spectrum[k])
			curr[k] = math.Log1p(logCompression * math.Sqrt(re*re+im*im))
		}

		if f > 0 {
			var flux float64
			for k := 0; k < numBins; k++ {
				if d := curr[k] - prev[k]; d > 0 {
					flux += d
				}
			}
			envelope[f] = flux / float64(numBins)
		}
		prev, curr = curr, prev
	}

	var mean float64
	for _, v := range envelope {
		mean += v
	}
	mean /= float64(numFrames)
	for i := range envelope {
		envelope[i] -= mean
	}

	return envelope, nil
}

// Autocorrelate returns the autocorrelation of x for lags 0..len(x)-1,
// computed through the FFT of the zero-padded signal.
func Autocorrelate(x []float64) ([]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, nil
	}

	size := nextPow2(2 * n)
	padded := make([]complex128, size)
	for i, v := range x {
		padded[i] = complex(v, 0)
	}

	if err := gofft.FFT(padded); err != nil {
		return nil, err
	}
	for i, c := range padded {
		re, im := real(c), imag(c)
		padded[i] = complex(re*re+im*im, 0)
	}
	if err := gofft.IFFT(padded); err != nil {
		return nil, err
	}

	ac := make([]float64, n)
	for i := range ac {
		ac[i] = real(padded[i])
	}
	return ac, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
