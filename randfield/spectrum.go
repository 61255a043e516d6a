package randfield

import "math"

// VonKarman is the von Kármán turbulence spectrum
//
//	S(k) = A * |k² + k_min²|^(-11/6) / r0^(5/3) * exp(-k²/k_max²)
//
// with k_min = 2π/OuterScale and k_max = 5.92/InnerScale. Lengths are in
// meters.
type VonKarman struct {
	InnerScale float64
	OuterScale float64
	R0         float64 // Fried parameter
	A          float64
}

// DefaultVonKarman returns the reference parameters: 1 mm inner scale,
// 100 m outer scale, r0 = 20 cm.
func DefaultVonKarman() VonKarman {
	return VonKarman{InnerScale: 1e-3, OuterScale: 1e2, R0: 20e-2, A: 0.023}
}

// KMin returns 2π/OuterScale.
func (v VonKarman) KMin() float64 { return 2 * math.Pi / v.OuterScale }

// KMax returns 5.92/InnerScale.
func (v VonKarman) KMax() float64 { return 5.92 / v.InnerScale }

// Spectrum returns S as a Spectrum. Squared frequencies outside
// [k_min², k_max²] collapse to 0 before evaluation.
func (v VonKarman) Spectrum() Spectrum {
	kMin, kMax := v.KMin(), v.KMax()
	kMin2, kMax2 := kMin*kMin, kMax*kMax
	den := math.Pow(v.R0, 5.0/3.0)

	return func(kx, ky float64) float64 {
		k2 := kx*kx + ky*ky
		if k2 < kMin2 || k2 > kMax2 {
			k2 = 0
		}
		num := math.Pow(math.Abs(k2+kMin2), -11.0/6.0)
		return v.A * (num / den) * math.Exp(-k2/kMax2)
	}
}

// Kolmogorov returns a * r0^(-5/3) * k^(-11/3), the inertial-range limit of
// VonKarman. It diverges at k = 0, which Amplitude never evaluates.
func Kolmogorov(a, r0 float64) Spectrum {
	pre := a * math.Pow(r0, -5.0/3.0)
	return func(kx, ky float64) float64 {
		k := math.Hypot(kx, ky)
		return pre * math.Pow(k, -11.0/3.0)
	}
}

// InverseSquare returns 1/k² for k above Epsilon and 0 otherwise.
func InverseSquare() Spectrum {
	return func(kx, ky float64) float64 {
		k := math.Hypot(kx, ky)
		if k <= Epsilon {
			return 0
		}
		return 1 / (k * k)
	}
}

// Flat returns S = 1 everywhere.
func Flat() Spectrum {
	return func(float64, float64) float64 { return 1 }
}
