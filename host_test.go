package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/psanker/pupilsim/project"
)

func testHost(t *testing.T) (*Host, *bytes.Buffer, *int) {
	t.Helper()
	terminated := new(int)
	reg := project.NewRegistry(nil)
	err := reg.Register("demo", func() (*project.Project, error) {
		return &project.Project{
			Gets: map[string]project.Func{
				"radius": func(context.Context) (any, error) { return map[string]float64{"clear": 1.5}, nil },
				"broken": func(context.Context) (any, error) { return nil, errors.New("no pupil") },
			},
			Plots: map[string]project.Func{
				"psf": func(context.Context) (any, error) { return []string{"out/clear_psf.png"}, nil },
			},
			Runs: map[string]project.Func{
				"report": func(context.Context) (any, error) { return nil, nil },
			},
			Terminate: func() { *terminated++ },
		}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return NewHost(reg, nil, &out), &out, terminated
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"version", []string{"-v"}, []string{"pupilsim version " + version}},
		{"help", []string{"--help"}, []string{"Usage: pupilsim", "-x, -run"}},
		{"list without selection", []string{"-l"}, []string{"Available projects:", "* demo"}},
		{"select and list", []string{"-s", "demo", "-l"}, []string{"Selected project: demo", "> * demo", "Gets:", "  * radius", "Plots:", "  * psf", "Runnables:"}},
		{"get", []string{"-s", "demo", "-g", "radius"}, []string{"radius clear: 1.5"}},
		{"plot", []string{"--select=demo", "--plot", "psf"}, []string{"plot_psf: wrote out/clear_psf.png"}},
		{"run", []string{"-s", "demo", "-x", "report"}, []string{"run_report: done"}},
		{"get failure", []string{"-s", "demo", "-g", "broken"}, []string{"get_broken: no pupil"}},
		{"unknown callable", []string{"-s", "demo", "-g", "nope"}, []string{"unknown callable"}},
		{"unknown project", []string{"-s", "nope"}, []string{"unknown project"}},
		{"no selection", []string{"-p", "psf"}, []string{"No selected project"}},
		{"reload without selection", []string{"-r"}, []string{"No selected project"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, out, _ := testHost(t)
			if _, err := h.Handle(context.Background(), tt.args); err != nil {
				t.Fatalf("Handle(%v) = %v", tt.args, err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output %q does not contain %q", out.String(), w)
				}
			}
		})
	}
}

func TestHandleUsageErrors(t *testing.T) {
	h, _, _ := testHost(t)
	if _, err := h.Handle(context.Background(), []string{"-q"}); err == nil {
		t.Error("unknown flag accepted")
	}
	if _, err := h.Handle(context.Background(), []string{"stray"}); err == nil {
		t.Error("stray argument accepted")
	}
}

func TestHandleReloadTerminates(t *testing.T) {
	h, _, terminated := testHost(t)
	ctx := context.Background()
	if _, err := h.Handle(ctx, []string{"-s", "demo"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Handle(ctx, []string{"-r"}); err != nil {
		t.Fatal(err)
	}
	if *terminated != 1 {
		t.Errorf("terminated = %d, want 1", *terminated)
	}
	exit, _ := h.Handle(ctx, []string{"-e"})
	if !exit {
		t.Error("-e did not request exit")
	}
}

func TestShell(t *testing.T) {
	h, out, _ := testHost(t)
	in := strings.NewReader("-s demo\n\n-g all\nexit\n-v\n")
	h.Shell(context.Background(), in)

	s := out.String()
	for _, w := range []string{"Selected project: demo", "radius clear: 1.5", "get_broken: no pupil", "Exiting..."} {
		if !strings.Contains(s, w) {
			t.Errorf("shell output missing %q:\n%s", w, s)
		}
	}
	if strings.Contains(s, "pupilsim version") {
		t.Error("shell kept reading after exit")
	}
}

func TestShellCanceled(t *testing.T) {
	h, out, _ := testHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := io.Pipe()
	defer w.Close()
	h.Shell(ctx, r)
	if !strings.Contains(out.String(), "Exiting...") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSplitConfig(t *testing.T) {
	tests := []struct {
		args     []string
		wantPath string
		wantRest []string
	}{
		{nil, "", nil},
		{[]string{"-config", "run.yaml", "-l"}, "run.yaml", []string{"-l"}},
		{[]string{"-s", "telescope", "--config=run.toml"}, "run.toml", []string{"-s", "telescope"}},
		{[]string{"-g", "config"}, "", []string{"-g", "config"}},
	}
	for _, tt := range tests {
		path, rest := splitConfig(tt.args)
		if path != tt.wantPath || strings.Join(rest, " ") != strings.Join(tt.wantRest, " ") {
			t.Errorf("splitConfig(%v) = %q, %v; want %q, %v", tt.args, path, rest, tt.wantPath, tt.wantRest)
		}
	}
}
