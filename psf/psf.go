// Package psf turns rendered pupil wavefronts into point-spread images.
//
// The pipeline is FFT2 -> F*conj(F) -> sqrt -> log10(1+x) -> square ->
// optional recentering. Multiplying by the conjugate before the log keeps
// the result real and non-negative.
package psf

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/psanker/pupilsim/fourier"
)

// Image is a raw (unnormalized) log-compressed PSF and the spatial-frequency
// extent [kxmin, kxmax, kymin, kymax] of its pixels.
type Image struct {
	Data    [][]float64
	Extent  [4]float64
	Shifted bool // zero frequency at (rows/2, cols/2)
}

// Source is anything that can produce a PSF for a wavenumber.
type Source interface {
	PSF(k float64, filtering, noshift bool) (*Image, error)
}

// Compute runs the pipeline over a wavefront. With noshift the output keeps
// transform order (zero frequency at [0][0]).
func Compute(wavefront [][]complex128, t fourier.Transformer, noshift bool) [][]float64 {
	if t == nil {
		t = fourier.Default
	}
	spec := t.FFT2(wavefront)

	out := make([][]float64, len(spec))
	for i := range spec {
		out[i] = make([]float64, len(spec[i]))
		for j, f := range spec[i] {
			power := real(f * cmplx.Conj(f))
			l := math.Log10(1 + math.Sqrt(power))
			out[i][j] = l * l
		}
	}
	if noshift {
		return out
	}
	return fourier.Shift(out)
}

// Intensity returns the shifted, uncompressed |FFT2(wavefront)|².
func Intensity(wavefront [][]complex128, t fourier.Transformer) [][]float64 {
	if t == nil {
		t = fourier.Default
	}
	spec := t.FFT2(wavefront)
	out := make([][]float64, len(spec))
	for i := range spec {
		out[i] = make([]float64, len(spec[i]))
		for j, f := range spec[i] {
			out[i][j] = real(f)*real(f) + imag(f)*imag(f)
		}
	}
	return fourier.Shift(out)
}

// Strehl returns the ratio of the peak intensity of an aberrated wavefront
// to that of the ideal one. It is 0 when the ideal peak is 0.
func Strehl(aberrated, ideal [][]complex128, t fourier.Transformer) float64 {
	_, _, pa := Peak(Intensity(aberrated, t))
	_, _, pi := Peak(Intensity(ideal, t))
	if pi == 0 {
		return 0
	}
	return pa / pi
}

// Peak returns the position and value of the maximum. NaNs are ignored;
// an empty or all-NaN array yields (-1, -1, NaN).
func Peak(data [][]float64) (row, col int, value float64) {
	row, col, value = -1, -1, math.NaN()
	for i := range data {
		if len(data[i]) == 0 {
			continue
		}
		j := floats.MaxIdx(data[i])
		v := data[i][j]
		if math.IsNaN(v) {
			continue
		}
		if row < 0 || v > value {
			row, col, value = i, j, v
		}
	}
	return row, col, value
}

// Normalize scales data to [0, 1] by its global maximum and zeroes values
// below floor afterwards. This is the caller-side step of the pipeline;
// Compute never normalizes.
func Normalize(data [][]float64, floor float64) [][]float64 {
	_, _, max := Peak(data)
	out := make([][]float64, len(data))
	for i := range data {
		out[i] = make([]float64, len(data[i]))
		if max <= 0 || math.IsNaN(max) {
			continue
		}
		for j, v := range data[i] {
			v /= max
			if v < floor {
				v = 0
			}
			out[i][j] = v
		}
	}
	return out
}
