// Package filter implements the separable Gaussian smoothing applied to
// rendered pupils before they are Fourier transformed.
package filter

import "math"

// DefaultTruncate is the kernel half-width in standard deviations.
const DefaultTruncate = 4.0

// GaussianKernel returns a normalized 1D Gaussian kernel of size
// 2*ceil(sigma*truncate)+1. For sigma <= 0 it returns the identity [1].
func GaussianKernel(sigma, truncate float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	if truncate <= 0 {
		truncate = DefaultTruncate
	}
	half := int(math.Ceil(sigma * truncate))
	kernel := make([]float64, 2*half+1)

	twoSigmaSq := 2 * sigma * sigma
	var sum float64
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// Smooth convolves data with a Gaussian of standard deviation sigma (in grid
// units) along both axes. Edges are extended by reflection, so a constant
// array is left unchanged.
func Smooth(data [][]float64, sigma float64) [][]float64 {
	rows := len(data)
	if rows == 0 {
		return nil
	}
	cols := len(data[0])
	kernel := GaussianKernel(sigma, DefaultTruncate)
	half := len(kernel) / 2

	// Pass 1: rows (data -> temp)
	temp := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		temp[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			var acc float64
			for k, w := range kernel {
				acc += w * data[i][reflectIndex(j+k-half, cols)]
			}
			temp[i][j] = acc
		}
	}

	// Pass 2: columns (temp -> out)
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			var acc float64
			for k, w := range kernel {
				acc += w * temp[reflectIndex(i+k-half, rows)][j]
			}
			out[i][j] = acc
		}
	}
	return out
}

// SmoothComplex smooths the real and imaginary channels independently.
func SmoothComplex(data [][]complex128, sigma float64) [][]complex128 {
	rows := len(data)
	if rows == 0 {
		return nil
	}
	re := make([][]float64, rows)
	im := make([][]float64, rows)
	for i := range data {
		re[i] = make([]float64, len(data[i]))
		im[i] = make([]float64, len(data[i]))
		for j, v := range data[i] {
			re[i][j] = real(v)
			im[i][j] = imag(v)
		}
	}
	re = Smooth(re, sigma)
	im = Smooth(im, sigma)

	out := make([][]complex128, rows)
	for i := range out {
		out[i] = make([]complex128, len(re[i]))
		for j := range out[i] {
			out[i][j] = complex(re[i][j], im[i][j])
		}
	}
	return out
}

// reflectIndex maps an out-of-range index back into [0, n) by mirroring
// about the array edge, repeating the edge sample: ... 1 0 | 0 1 2 ... n-1 | n-1 n-2 ...
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
