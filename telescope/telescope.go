// Package telescope is the built-in project: it builds the pupils listed in
// the configuration and exposes their plots, values and reports.
package telescope

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/psanker/pupilsim/config"
	"github.com/psanker/pupilsim/fourier"
	"github.com/psanker/pupilsim/project"
	"github.com/psanker/pupilsim/pupil"
)

// Name is the registry name of the project.
const Name = "telescope"

// Telescope owns the pupils of one loaded project. Pupils are built on first
// use and closed by Terminate.
type Telescope struct {
	cfg config.Config
	fft fourier.Transformer
	log *zap.Logger

	mu     sync.Mutex
	pupils map[string]*pupil.Pupil
}

// New validates cfg and returns an empty Telescope.
func New(cfg config.Config, log *zap.Logger) (*Telescope, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, err := cfg.Transformer()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telescope{
		cfg:    cfg,
		fft:    t,
		log:    log.With(zap.String("project", Name)),
		pupils: make(map[string]*pupil.Pupil),
	}, nil
}

// Loader returns a project.Loader building a Telescope from cfg.
func Loader(cfg config.Config, log *zap.Logger) project.Loader {
	return func() (*project.Project, error) {
		t, err := New(cfg, log)
		if err != nil {
			return nil, err
		}
		return t.Project(), nil
	}
}

// Project exposes the Telescope's callables.
func (t *Telescope) Project() *project.Project {
	return &project.Project{
		Name:        Name,
		Description: "pupils and point-spread functions of the configured apertures",
		Plots: map[string]project.Func{
			"pupil":    t.PlotPupil,
			"mask":     t.PlotMask,
			"psf":      t.PlotPSF,
			"phase":    t.PlotPhase,
			"variants": t.PlotVariants,
		},
		Gets: map[string]project.Func{
			"nyquist": t.GetNyquist,
			"radius":  t.GetRadius,
			"extent":  t.GetExtent,
			"strehl":  t.GetStrehl,
		},
		Runs: map[string]project.Func{
			"report":        t.RunReport,
			"polychromatic": t.RunPolychromatic,
			"regenerate":    t.RunRegenerate,
		},
		Terminate: t.Terminate,
	}
}

// Config returns the configuration the Telescope was built from.
func (t *Telescope) Config() config.Config { return t.cfg }

// Pupil returns the named pupil, building it on first use.
func (t *Telescope) Pupil(name string) (*pupil.Pupil, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pupils[name]; ok {
		return p, nil
	}
	spec, ok := t.cfg.Pupil(name)
	if !ok {
		return nil, fmt.Errorf("no pupil named %q", name)
	}
	p, err := pupil.NewVariant(spec.Variant, spec.PupilConfig(t.cfg.Seed),
		pupil.WithLogger(t.log.With(zap.String("name", name))),
		pupil.WithTransformer(t.fft))
	if err != nil {
		return nil, fmt.Errorf("pupil %s: %w", name, err)
	}
	t.log.Info("built pupil",
		zap.String("name", name),
		zap.String("variant", spec.Variant),
		zap.String("id", p.ID()))
	t.pupils[name] = p
	return p, nil
}

// Terminate closes every pupil built so far.
func (t *Telescope) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, p := range t.pupils {
		p.Close()
		delete(t.pupils, name)
	}
	t.log.Debug("released pupils")
}

// each calls fn for every configured pupil in configuration order.
func (t *Telescope) each(ctx context.Context, fn func(spec config.PupilSpec, p *pupil.Pupil) error) error {
	for _, spec := range t.cfg.Pupils {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := t.Pupil(spec.Name)
		if err != nil {
			return err
		}
		if err := fn(spec, p); err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
	}
	return nil
}

func (t *Telescope) path(parts ...string) string {
	return filepath.Join(append([]string{t.cfg.OutputDir}, parts...)...)
}
