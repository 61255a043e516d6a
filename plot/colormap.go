package plot

import (
	"image/color"
	"math"
)

// Colormap maps a value in [0, 1] to a color.
type Colormap func(v float64) color.Color

// Viridis is a piecewise linear approximation of the viridis colormap.
func Viridis(v float64) color.Color {
	v = clamp01(v)
	var r, g, b float64
	switch {
	case v < 0.25: // blue/purple
		f := v * 4
		r, g, b = 68+1*f, 1+55*f, 84+51*f
	case v < 0.5: // cyan/green
		f := (v - 0.25) * 4
		r, g, b = 69-48*f, 56+93*f, 135-7*f
	case v < 0.75: // green/yellow
		f := (v - 0.5) * 4
		r, g, b = 21+108*f, 149+51*f, 128-93*f
	default: // yellow
		f := (v - 0.75) * 4
		r, g, b = 129+126*f, 200+23*f, 35-31*f
	}
	return color.NRGBA{R: channel(r), G: channel(g), B: channel(b), A: 255}
}

// HSV maps a hue in [0, 1) (wrapping) to a fully saturated color.
func HSV(h float64) color.Color {
	r, g, b := hsv(h, 1)
	return color.NRGBA{R: channel(r * 255), G: channel(g * 255), B: channel(b * 255), A: 255}
}

// Gray maps 0 to black and 1 to white.
func Gray(v float64) color.Color {
	return color.Gray{Y: channel(clamp01(v) * 255)}
}

func hsv(h, v float64) (r, g, b float64) {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p, q, t := 0.0, v*(1-f), v*f
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return r, g, b
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func channel(v float64) uint8 { return uint8(math.Max(0, math.Min(255, math.Round(v)))) }
