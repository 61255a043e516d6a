package randfield

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/psanker/pupilsim/fourier"
)

func TestNewRejectsNonPositiveSamples(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := New(n, 1); !errors.Is(err, ErrInvalidSamples) {
			t.Errorf("New(%d) error = %v, want ErrInvalidSamples", n, err)
		}
	}
}

func TestMeshBins(t *testing.T) {
	tests := []struct {
		n      int
		lo, hi float64
	}{
		{16, -8, 7},
		{9, -4, 4},
	}
	for _, tt := range tests {
		f, err := New(tt.n, 1)
		if err != nil {
			t.Fatal(err)
		}
		KX, KY := f.Mesh()
		if KX[0][0] != tt.lo || KX[0][tt.n-1] != tt.hi {
			t.Errorf("n=%d: kx range [%v, %v], want [%v, %v]", tt.n, KX[0][0], KX[0][tt.n-1], tt.lo, tt.hi)
		}
		if KY[0][0] != tt.lo || KY[tt.n-1][0] != tt.hi {
			t.Errorf("n=%d: ky range [%v, %v], want [%v, %v]", tt.n, KY[0][0], KY[tt.n-1][0], tt.lo, tt.hi)
		}
		if KX[tt.n/2][tt.n/2] != 0 || KY[tt.n/2][tt.n/2] != 0 {
			t.Errorf("n=%d: zero bin not at center", tt.n)
		}
	}
}

func TestAmplitudeMasksZeroFrequency(t *testing.T) {
	f, _ := New(8, 1)
	calledAtZero := false
	amp, err := f.Amplitude(func(kx, ky float64) float64 {
		if kx == 0 && ky == 0 {
			calledAtZero = true
		}
		return -2 // negative values contribute their magnitude
	})
	if err != nil {
		t.Fatal(err)
	}
	if calledAtZero {
		t.Error("spectrum evaluated at the zero bin")
	}
	if amp[4][4] != 0 {
		t.Errorf("DC amplitude = %v, want 0", amp[4][4])
	}
	if amp[0][0] != 2 || amp[4][5] != 2 {
		t.Errorf("amplitude = %v, %v, want 2", amp[0][0], amp[4][5])
	}
}

func TestAmplitudeFloorsTinyValues(t *testing.T) {
	f, _ := New(4, 1)
	amp, err := f.Amplitude(func(float64, float64) float64 { return 1e-20 })
	if err != nil {
		t.Fatal(err)
	}
	for i := range amp {
		for j := range amp[i] {
			if amp[i][j] != 0 {
				t.Fatalf("amp[%d][%d] = %v, want 0", i, j, amp[i][j])
			}
		}
	}
}

func TestAmplitudeRejectsNonFinite(t *testing.T) {
	f, _ := New(4, 1)
	spectra := map[string]Spectrum{
		"nan": func(float64, float64) float64 { return math.NaN() },
		"inf": func(float64, float64) float64 { return math.Inf(1) },
		"nil": nil,
	}
	for name, s := range spectra {
		if _, err := f.Amplitude(s); !errors.Is(err, ErrInvalidSpectrum) {
			t.Errorf("%s: error = %v, want ErrInvalidSpectrum", name, err)
		}
		if _, err := f.Generate(s); !errors.Is(err, ErrInvalidSpectrum) {
			t.Errorf("%s: Generate error = %v, want ErrInvalidSpectrum", name, err)
		}
	}
}

func TestSeededFieldsReproducible(t *testing.T) {
	a, _ := New(16, 42)
	b, _ := New(16, 42)
	c, _ := New(16, 43)
	fa, _ := a.Generate(InverseSquare())
	fb, _ := b.Generate(InverseSquare())
	fc, _ := c.Generate(InverseSquare())

	same, differ := true, false
	for i := range fa {
		for j := range fa[i] {
			if fa[i][j] != fb[i][j] {
				same = false
			}
			if fa[i][j] != fc[i][j] {
				differ = true
			}
		}
	}
	if !same {
		t.Error("fields with equal seeds differ")
	}
	if !differ {
		t.Error("fields with different seeds are identical")
	}
}

func TestRealizationIsCached(t *testing.T) {
	f, _ := New(16, 7)
	s := DefaultVonKarman().Spectrum()
	r1, err := f.Realization(s)
	if err != nil {
		t.Fatal(err)
	}
	r2, _ := f.Realization(s)
	if &r1[0][0] != &r2[0][0] {
		t.Error("Realization returned a fresh draw instead of the cached one")
	}

	f.Reset()
	r3, _ := f.Realization(s)
	if &r3[0][0] == &r1[0][0] {
		t.Fatal("Reset did not drop the cached realization")
	}
	differs := false
	for i := range r1 {
		for j := range r1[i] {
			if r1[i][j] != r3[i][j] {
				differs = true
			}
		}
	}
	if !differs {
		t.Error("regenerated realization equals the previous one")
	}
}

func TestRadialSpectrumGivesRealField(t *testing.T) {
	f, _ := New(32, 3)
	field, err := f.Generate(DefaultVonKarman().Spectrum())
	if err != nil {
		t.Fatal(err)
	}
	var maxRe, maxIm float64
	for i := range field {
		for j := range field[i] {
			maxRe = math.Max(maxRe, math.Abs(real(field[i][j])))
			maxIm = math.Max(maxIm, math.Abs(imag(field[i][j])))
		}
	}
	if maxRe == 0 {
		t.Fatal("field is identically zero")
	}
	if maxIm > 1e-9*maxRe {
		t.Errorf("imaginary part %g too large relative to real part %g", maxIm, maxRe)
	}
}

// For S = 1 the ensemble-averaged power spectrum of the field should be flat
// at N² (unit-variance noise) except for the masked DC bin.
func TestFlatSpectrumStatistics(t *testing.T) {
	const n = 32
	const draws = 64
	f, _ := New(n, 2024)

	mean := make([][]float64, n)
	for i := range mean {
		mean[i] = make([]float64, n)
	}
	for d := 0; d < draws; d++ {
		field, err := f.Generate(Flat())
		if err != nil {
			t.Fatal(err)
		}
		ps := PowerSpectrum(field, fourier.DSP{})
		for i := range ps {
			for j := range ps[i] {
				mean[i][j] += ps[i][j] / draws
			}
		}
	}

	if mean[0][0] > 1e-6 {
		t.Errorf("DC power = %g, want ~0", mean[0][0])
	}

	// Split bins (transform order) into low and high |k| halves.
	var low, high []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == 0 && j == 0 {
				continue
			}
			ki, kj := i, j
			if ki > n/2 {
				ki -= n
			}
			if kj > n/2 {
				kj -= n
			}
			if ki*ki+kj*kj < n*n/8 {
				low = append(low, mean[i][j])
			} else {
				high = append(high, mean[i][j])
			}
		}
	}
	want := float64(n * n)
	ml, mh := stat.Mean(low, nil), stat.Mean(high, nil)
	for name, m := range map[string]float64{"low": ml, "high": mh} {
		if math.Abs(m-want)/want > 0.1 {
			t.Errorf("%s-frequency mean power %g, want %g within 10%%", name, m, want)
		}
	}
	if r := ml / mh; r < 0.9 || r > 1.1 {
		t.Errorf("low/high power ratio %g, want ~1", r)
	}
}

func TestPowerSpectrumOfDelta(t *testing.T) {
	field := make([][]complex128, 4)
	for i := range field {
		field[i] = make([]complex128, 4)
	}
	field[0][0] = 2
	ps := PowerSpectrum(field, nil)
	for i := range ps {
		for j := range ps[i] {
			if math.Abs(ps[i][j]-4) > 1e-12 {
				t.Fatalf("ps[%d][%d] = %v, want 4", i, j, ps[i][j])
			}
		}
	}
}
