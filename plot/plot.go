// Package plot renders 2D arrays to images and writes them as PNG files.
// Row 0 of an array is drawn at the bottom so that meshes built with xy
// indexing appear with +y pointing up.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

var (
	// NaNColor marks samples that are not a number.
	NaNColor = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	// EmptyColor fills images rendered from empty arrays.
	EmptyColor = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
)

// Heatmap colors data by min/max normalization and scales the result to
// w x h pixels. A constant array maps to cmap(0).
func Heatmap(data [][]float64, w, h int, cmap Colormap) *image.RGBA {
	if cmap == nil {
		cmap = Viridis
	}
	rows, cols := dims(data)
	if rows == 0 || cols == 0 {
		return placeholder(w, h)
	}
	lo, hi := Range(data)
	span := hi - lo

	src := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := data[i][j]
			var c color.Color
			switch {
			case math.IsNaN(v):
				c = NaNColor
			case span > 0:
				c = cmap((v - lo) / span)
			default:
				c = cmap(0)
			}
			src.Set(j, rows-1-i, c)
		}
	}
	return scale(src, w, h)
}

// Phase colors a complex array by argument (hue) and magnitude
// (brightness, relative to the largest magnitude).
func Phase(data [][]complex128, w, h int) *image.RGBA {
	rows, cols := 0, 0
	if len(data) > 0 {
		rows, cols = len(data), len(data[0])
	}
	if rows == 0 || cols == 0 {
		return placeholder(w, h)
	}
	var peak float64
	for i := range data {
		for _, v := range data[i] {
			if a := cmplx.Abs(v); a > peak && !math.IsInf(a, 0) {
				peak = a
			}
		}
	}

	src := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := data[i][j]
			if cmplx.IsNaN(v) {
				src.Set(j, rows-1-i, NaNColor)
				continue
			}
			bright := 0.0
			if peak > 0 {
				bright = cmplx.Abs(v) / peak
			}
			r, g, b := hsv((cmplx.Phase(v)+math.Pi)/(2*math.Pi), bright)
			src.Set(j, rows-1-i, color.NRGBA{R: channel(r * 255), G: channel(g * 255), B: channel(b * 255), A: 255})
		}
	}
	return scale(src, w, h)
}

// Range returns the smallest and largest non-NaN values, or (0, 0) when
// there are none.
func Range(data [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range data {
		for _, v := range data[i] {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Transpose swaps rows and columns.
func Transpose(data [][]float64) [][]float64 {
	rows, cols := dims(data)
	if rows == 0 {
		return data
	}
	out := make([][]float64, cols)
	for i := range out {
		out[i] = make([]float64, rows)
		for j := 0; j < rows; j++ {
			out[i][j] = data[j][i]
		}
	}
	return out
}

func dims(data [][]float64) (rows, cols int) {
	if len(data) == 0 {
		return 0, 0
	}
	return len(data), len(data[0])
}

func scale(src *image.RGBA, w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		w, h = src.Bounds().Dx(), src.Bounds().Dy()
	}
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func placeholder(w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: EmptyColor}, image.Point{}, draw.Src)
	return img
}
