package encoder

import "math"

// quantize converts normalized float samples to signed 16-bit integers,
// clamping anything outside [-1, 1]
func quantize(samples []float64, dst []int) []int {
	if cap(dst) < len(samples) {
		dst = make([]int, len(samples))
	}
	dst = dst[:len(samples)]
	for i, s := range samples {
		dst[i] = quantizeSample(s)
	}
	return dst
}

func quantizeSample(s float64) int {
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int(math.Round(s * math.MaxInt16))
}

// putS16LE writes quantized samples as little-endian 16-bit PCM
func putS16LE(samples []int, dst []byte) []byte {
	n := len(samples) * 2
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, v := range samples {
		u := uint16(int16(v))
		dst[i*2] = byte(u)
		dst[i*2+1] = byte(u >> 8)
	}
	return dst
}
