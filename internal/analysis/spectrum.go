package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Spectrum returns the one-sided magnitude spectrum of series sampled every
// dt seconds, with its mean removed. freqs[i] is the frequency of mags[i].
func Spectrum(series []float64, dt float64) (freqs, mags []float64) {
	n := len(series)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	centred := make([]float64, n)
	for i, v := range series {
		centred[i] = v - mean
	}

	out := fft.FFTReal(centred)
	half := n/2 + 1
	freqs = make([]float64, half)
	mags = make([]float64, half)
	for i := 0; i < half; i++ {
		freqs[i] = float64(i) / (float64(n) * dt)
		mags[i] = cmplx.Abs(out[i]) / float64(n)
	}
	return freqs, mags
}

// DominantFrequency is the non-zero frequency with the largest magnitude,
// or 0 when the series is constant.
func DominantFrequency(series []float64, dt float64) float64 {
	freqs, mags := Spectrum(series, dt)
	best, bestMag := 0.0, 0.0
	for i := 1; i < len(mags); i++ {
		if mags[i] > bestMag {
			best, bestMag = freqs[i], mags[i]
		}
	}
	if bestMag < 1e-12 {
		return 0
	}
	return best
}

// SettleTime returns the first time after which every later value stays
// within tol of the final value, and false if the series never settles
// before its last sample.
func SettleTime(times, values []float64, tol float64) (float64, bool) {
	n := min(len(times), len(values))
	if n == 0 {
		return 0, false
	}
	final := values[n-1]
	i := n - 1
	for i > 0 && math.Abs(values[i-1]-final) <= tol {
		i--
	}
	if i == n-1 && n > 1 {
		return times[i], false
	}
	return times[i], true
}
