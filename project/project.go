// Package project hosts named analysis projects. A project exposes three
// families of callables (plots, gets and runs) and an optional Terminate
// hook that releases whatever the project built.
package project

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrUnknownProject  = errors.New("project: unknown project")
	ErrNoSelection     = errors.New("project: no selected project")
	ErrUnknownCallable = errors.New("project: unknown callable")
	ErrDuplicate       = errors.New("project: already registered")
)

// All selects every callable of a kind.
const All = "all"

// Kind names a callable family.
type Kind string

const (
	Plot Kind = "plot"
	Get  Kind = "get"
	Run  Kind = "run"
)

// Func is a project callable. Plots and runs usually return the files they
// wrote; gets return a value.
type Func func(ctx context.Context) (any, error)

// Project is a loaded project.
type Project struct {
	Name        string
	Description string
	Plots       map[string]Func
	Gets        map[string]Func
	Runs        map[string]Func
	Terminate   func()
}

// Loader builds a fresh Project.
type Loader func() (*Project, error)

// Result is the outcome of one callable.
type Result struct {
	Kind  Kind
	Name  string
	Value any
	Err   error
}

func (p *Project) funcs(k Kind) map[string]Func {
	switch k {
	case Plot:
		return p.Plots
	case Get:
		return p.Gets
	case Run:
		return p.Runs
	}
	return nil
}

// Callables returns the sorted callable names of a kind.
func (p *Project) Callables(k Kind) []string {
	m := p.funcs(k)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry keeps the known projects, the loaded ones and the selection.
type Registry struct {
	log *zap.Logger

	mu       sync.Mutex
	loaders  map[string]Loader
	loaded   map[string]*Project
	selected string
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:     log,
		loaders: make(map[string]Loader),
		loaded:  make(map[string]*Project),
	}
}

// Register adds a project under name.
func (r *Registry) Register(name string, l Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loaders[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.loaders[name] = l
	return nil
}

// Names returns the registered project names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select makes name the selected project, loading it if needed. With
// reload, a loaded project is terminated and built again. A failed reload
// leaves the project unloaded.
func (r *Registry) Select(name string, reload bool) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	load, ok := r.loaders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, name)
	}
	if p, ok := r.loaded[name]; ok {
		if !reload {
			r.log.Info("project loaded from memory", zap.String("project", name))
			r.selected = name
			return p, nil
		}
		r.unload(name)
	}

	p, err := load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	r.loaded[name] = p
	r.selected = name
	r.log.Info("selected project", zap.String("project", name), zap.Bool("reload", reload))
	return p, nil
}

// Reload rebuilds the selected project.
func (r *Registry) Reload() (*Project, error) {
	p, ok := r.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	return r.Select(p.Name, true)
}

// Selected returns the selected project.
func (r *Registry) Selected() (*Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == "" {
		return nil, false
	}
	p, ok := r.loaded[r.selected]
	return p, ok
}

// Plot calls plot callable name, or every plot for All.
func (r *Registry) Plot(ctx context.Context, name string) ([]Result, error) {
	return r.call(ctx, Plot, name)
}

// Get calls get callable name, or every get for All.
func (r *Registry) Get(ctx context.Context, name string) ([]Result, error) {
	return r.call(ctx, Get, name)
}

// Run calls run callable name, or every run for All.
func (r *Registry) Run(ctx context.Context, name string) ([]Result, error) {
	return r.call(ctx, Run, name)
}

// call runs the callables outside the registry lock. With All, a failing
// callable does not stop the others; the errors are joined.
func (r *Registry) call(ctx context.Context, k Kind, name string) ([]Result, error) {
	p, ok := r.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	name = strings.TrimPrefix(name, string(k)+"_")

	names := []string{name}
	if name == All {
		names = p.Callables(k)
	} else if _, ok := p.funcs(k)[name]; !ok {
		return nil, fmt.Errorf("%w: %s_%s in %s", ErrUnknownCallable, k, name, p.Name)
	}

	var (
		results []Result
		errs    []error
	)
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r.log.Debug("calling", zap.String("project", p.Name), zap.String("callable", string(k)+"_"+n))
		v, err := p.funcs(k)[n](ctx)
		if err != nil {
			err = fmt.Errorf("%s_%s: %w", k, n, err)
			errs = append(errs, err)
		}
		results = append(results, Result{Kind: k, Name: n, Value: v, Err: err})
	}
	return results, errors.Join(errs...)
}

// Unload terminates a loaded project and forgets it. Unloading the selected
// project clears the selection.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loaded[name]; !ok {
		return fmt.Errorf("%w: %q is not loaded", ErrUnknownProject, name)
	}
	r.unload(name)
	return nil
}

func (r *Registry) unload(name string) {
	p := r.loaded[name]
	if p.Terminate != nil {
		p.Terminate()
	}
	delete(r.loaded, name)
	if r.selected == name {
		r.selected = ""
	}
	r.log.Info("unloaded project", zap.String("project", name))
}

// Close unloads every project.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.loaded {
		r.unload(name)
	}
}
