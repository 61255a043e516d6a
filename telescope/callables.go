package telescope

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/psanker/pupilsim/config"
	"github.com/psanker/pupilsim/plot"
	"github.com/psanker/pupilsim/psf"
	"github.com/psanker/pupilsim/pupil"
	"github.com/psanker/pupilsim/report"
)

// PlotPupil writes the real part of each rendered pupil.
func (t *Telescope) PlotPupil(ctx context.Context) (any, error) {
	var paths []string
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		w, err := p.Render(t.cfg.Wavenumber(), t.cfg.Filtering)
		if err != nil {
			return err
		}
		out := t.path(spec.Name + "_pupil.png")
		img := plot.Heatmap(realPart(w), t.cfg.ImageSize, t.cfg.ImageSize, plot.Viridis)
		if err := plot.SavePNG(out, img); err != nil {
			return err
		}
		paths = append(paths, out)
		return nil
	})
	return paths, err
}

// PlotMask writes the transmission P of each pupil in grayscale, open
// aperture white.
func (t *Telescope) PlotMask(ctx context.Context) (any, error) {
	var paths []string
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		X, Y := p.ConfigurationMesh()
		P, err := p.PFunc(X, Y)
		if err != nil {
			return err
		}
		out := t.path(spec.Name + "_mask.png")
		if err := plot.SavePNG(out, plot.Heatmap(P, t.cfg.ImageSize, t.cfg.ImageSize, plot.Gray)); err != nil {
			return err
		}
		paths = append(paths, out)
		return nil
	})
	return paths, err
}

// PlotPSF writes the normalized, centered PSF of each pupil.
func (t *Telescope) PlotPSF(ctx context.Context) (any, error) {
	var paths []string
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		img, err := p.PSF(t.cfg.Wavenumber(), t.cfg.Filtering, false)
		if err != nil {
			return err
		}
		out := t.path(spec.Name + "_psf.png")
		if err := t.savePSF(out, img); err != nil {
			return err
		}
		paths = append(paths, out)
		return nil
	})
	return paths, err
}

// PlotPhase writes the complex pupil colored by phase and magnitude.
func (t *Telescope) PlotPhase(ctx context.Context) (any, error) {
	var paths []string
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		w, err := p.Render(t.cfg.Wavenumber(), false)
		if err != nil {
			return err
		}
		out := t.path(spec.Name + "_phase.png")
		if err := plot.SavePNG(out, plot.Phase(w, t.cfg.ImageSize, t.cfg.ImageSize)); err != nil {
			return err
		}
		paths = append(paths, out)
		return nil
	})
	return paths, err
}

// PlotVariants renders every pupil variant with the geometry of the first
// configured pupil, for side-by-side comparison.
func (t *Telescope) PlotVariants(ctx context.Context) (any, error) {
	base := t.cfg.Pupils[0].PupilConfig(t.cfg.Seed)
	if base.ObstructionRadius == nil {
		base.ObstructionRadius = pupil.Float(math.Abs(base.Diameter) / 10)
	}
	var paths []string
	for _, name := range pupil.Variants {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		p, err := pupil.NewVariant(name, base, pupil.WithTransformer(t.fft))
		if err != nil {
			return paths, err
		}
		w, err := p.Render(t.cfg.Wavenumber(), false)
		p.Close()
		if err != nil {
			return paths, err
		}
		out := t.path("variants", name+".png")
		if err := plot.SavePNG(out, plot.Heatmap(realPart(w), t.cfg.ImageSize, t.cfg.ImageSize, plot.Viridis)); err != nil {
			return paths, err
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// GetNyquist returns the Nyquist frequency of each pupil by name.
func (t *Telescope) GetNyquist(ctx context.Context) (any, error) {
	out := make(map[string]float64)
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		out[spec.Name] = p.NyquistFrequency()
		return nil
	})
	return out, err
}

// GetRadius returns the aperture radius of each pupil by name.
func (t *Telescope) GetRadius(ctx context.Context) (any, error) {
	out := make(map[string]float64)
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		out[spec.Name] = p.Radius()
		return nil
	})
	return out, err
}

// GetExtent returns the Fourier-plane extent [kxmin, kxmax, kymin, kymax]
// of each pupil by name.
func (t *Telescope) GetExtent(ctx context.Context) (any, error) {
	out := make(map[string][4]float64)
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		out[spec.Name] = p.Grid().FourierExtent()
		return nil
	})
	return out, err
}

// GetStrehl returns, for each pupil, the peak intensity relative to the
// same aperture without phase error.
func (t *Telescope) GetStrehl(ctx context.Context) (any, error) {
	out := make(map[string]float64)
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		s, err := t.strehl(p)
		if err != nil {
			return err
		}
		out[spec.Name] = s
		return nil
	})
	return out, err
}

func (t *Telescope) strehl(p *pupil.Pupil) (float64, error) {
	w, err := p.Render(t.cfg.Wavenumber(), false)
	if err != nil {
		return 0, err
	}
	X, Y := p.ConfigurationMesh()
	P, err := p.PFunc(X, Y)
	if err != nil {
		return 0, err
	}
	ideal := make(pupil.Wavefront, len(P))
	for i := range P {
		ideal[i] = make([]complex128, len(P[i]))
		for j, v := range P[i] {
			ideal[i][j] = complex(v, 0)
		}
	}
	return psf.Strehl(w, ideal, t.fft), nil
}

// RunReport writes, per pupil, an XLSX workbook (summary, normalized PSF and
// its central profile) and a TSV of the profile.
func (t *Telescope) RunReport(ctx context.Context) (any, error) {
	var paths []string
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		img, err := p.PSF(t.cfg.Wavenumber(), t.cfg.Filtering, false)
		if err != nil {
			return err
		}
		strehl, err := t.strehl(p)
		if err != nil {
			return err
		}
		norm := psf.Normalize(img.Data, t.cfg.PSFFloor)
		stats := report.Summary(img.Data)
		row, col, _ := psf.Peak(img.Data)
		profile := t.profile(p, norm)
		cfg := p.Config()

		meta := []report.KV{
			{Key: "name", Value: spec.Name},
			{Key: "variant", Value: spec.Variant},
			{Key: "pupil_id", Value: p.ID()},
			{Key: "diameter", Value: cfg.Diameter},
			{Key: "samples", Value: cfg.Samples},
			{Key: "padscale", Value: cfg.Padscale},
			{Key: "wavelength", Value: t.cfg.Wavelength},
			{Key: "filtering", Value: t.cfg.Filtering},
			{Key: "nyquist", Value: p.NyquistFrequency()},
			{Key: "frequency_step", Value: p.Grid().FrequencyStep()},
			{Key: "strehl", Value: strehl},
			{Key: "peak_row", Value: row},
			{Key: "peak_col", Value: col},
			{Key: "psf_min", Value: stats.Min},
			{Key: "psf_max", Value: stats.Max},
			{Key: "psf_mean", Value: stats.Mean},
			{Key: "psf_stddev", Value: stats.StdDev},
			{Key: "psf_sum", Value: stats.Sum},
		}
		profileRows := make([][]any, len(profile))
		for i, r := range profile {
			profileRows[i] = []any{r[0], r[1], r[2], r[3]}
		}
		sheets := []report.Sheet{
			{Name: "PSF", Rows: report.Matrix(norm)},
			{Name: "Profile", Header: profileHeader, Rows: profileRows},
		}

		xlsx := t.path(spec.Name + "_report.xlsx")
		if err := report.WriteXLSX(xlsx, meta, sheets); err != nil {
			return err
		}
		tsv := t.path(spec.Name + "_profile.tsv")
		if err := report.WriteTSV(tsv, profileHeader, profile); err != nil {
			return err
		}
		t.log.Info("wrote report", zap.String("name", spec.Name), zap.String("xlsx", xlsx), zap.String("tsv", tsv))
		paths = append(paths, xlsx, tsv)
		return nil
	})
	return paths, err
}

// RunPolychromatic averages each pupil's PSF over the visible band and
// writes the result.
func (t *Telescope) RunPolychromatic(ctx context.Context) (any, error) {
	ks := psf.VisibleSpectrum(t.cfg.Bands)
	var paths []string
	err := t.each(ctx, func(spec config.PupilSpec, p *pupil.Pupil) error {
		img, err := psf.Polychromatic(ctx, p, ks, t.cfg.Filtering)
		if err != nil {
			return err
		}
		out := t.path(spec.Name + "_polychromatic.png")
		if err := t.savePSF(out, img); err != nil {
			return err
		}
		paths = append(paths, out)
		return nil
	})
	return paths, err
}

// RunRegenerate draws new random phase screens for the turbulent pupils.
func (t *Telescope) RunRegenerate(ctx context.Context) (any, error) {
	var n int
	err := t.each(ctx, func(_ config.PupilSpec, p *pupil.Pupil) error {
		p.Regenerate()
		n++
		return nil
	})
	return n, err
}

var profileHeader = []string{"kx", "psf_x", "ky", "psf_y"}

// profile returns the cuts through zero frequency along both axes as
// (kx, psf(kx, 0), ky, psf(0, ky)) rows.
func (t *Telescope) profile(p *pupil.Pupil, data [][]float64) [][]float64 {
	KX, KY := p.FourierMesh()
	mid := len(data) / 2
	column := plot.Transpose(data)[mid]
	out := make([][]float64, len(data[mid]))
	for j, v := range data[mid] {
		out[j] = []float64{KX[mid][j], v, KY[j][mid], column[j]}
	}
	return out
}

func (t *Telescope) savePSF(path string, img *psf.Image) error {
	norm := psf.Normalize(img.Data, t.cfg.PSFFloor)
	return plot.SavePNG(path, plot.Heatmap(norm, t.cfg.ImageSize, t.cfg.ImageSize, plot.Viridis))
}

func realPart(w [][]complex128) [][]float64 {
	out := make([][]float64, len(w))
	for i := range w {
		out[i] = make([]float64, len(w[i]))
		for j, v := range w[i] {
			out[i][j] = real(v)
		}
	}
	return out
}
