package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/psanker/pupilsim/project"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	selectedColor = color.New(color.FgGreen, color.Bold)
	dimColor      = color.New(color.FgHiBlack)
	errColor      = color.New(color.FgRed)
)

// Host drives a project registry from command-line style arguments, either
// once from os.Args or line by line in the interactive shell.
type Host struct {
	reg *project.Registry
	log *zap.Logger
	out io.Writer
}

// NewHost returns a Host printing to out.
func NewHost(reg *project.Registry, log *zap.Logger, out io.Writer) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{reg: reg, log: log, out: out}
}

type command struct {
	help, list, version, reload, exit bool
	sel, plot, get, run               string
}

func (h *Host) flags(c *command) *flag.FlagSet {
	fs := flag.NewFlagSet("pupilsim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, name := range []string{"h", "help"} {
		fs.BoolVar(&c.help, name, false, "print usage")
	}
	for _, name := range []string{"l", "list"} {
		fs.BoolVar(&c.list, name, false, "list projects and the callables of the selected one")
	}
	for _, name := range []string{"v", "version"} {
		fs.BoolVar(&c.version, name, false, "print the version")
	}
	for _, name := range []string{"r", "reload"} {
		fs.BoolVar(&c.reload, name, false, "reload the selected project")
	}
	for _, name := range []string{"e", "exit"} {
		fs.BoolVar(&c.exit, name, false, "leave the shell")
	}
	for _, name := range []string{"s", "select"} {
		fs.StringVar(&c.sel, name, "", "select a project")
	}
	for _, name := range []string{"p", "plot"} {
		fs.StringVar(&c.plot, name, "", "call plot_<name>, or every plot for all")
	}
	for _, name := range []string{"g", "get"} {
		fs.StringVar(&c.get, name, "", "call get_<name>, or every get for all")
	}
	for _, name := range []string{"x", "run"} {
		fs.StringVar(&c.run, name, "", "call run_<name>, or every run for all")
	}
	return fs
}

// Handle executes one command line. It reports whether the caller should
// exit. Callable failures are printed; only usage errors are returned.
func (h *Host) Handle(ctx context.Context, args []string) (exit bool, err error) {
	var c command
	fs := h.flags(&c)
	if err := fs.Parse(args); err != nil {
		h.usage()
		return false, err
	}
	if fs.NArg() > 0 {
		h.usage()
		return false, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	switch {
	case c.help:
		h.usage()
		return false, nil
	case c.version:
		h.version()
		return false, nil
	}

	if c.sel != "" {
		if _, err := h.reg.Select(c.sel, false); err != nil {
			h.fail(err)
		} else {
			fmt.Fprintf(h.out, "Selected project: %s\n", c.sel)
		}
	}
	if c.reload {
		if _, err := h.reg.Reload(); err != nil {
			h.fail(err)
		} else {
			fmt.Fprintln(h.out, "Reloaded project")
		}
	}
	if c.list {
		h.list()
	}
	if c.plot != "" {
		h.show(h.reg.Plot(ctx, c.plot))
	}
	if c.get != "" {
		h.show(h.reg.Get(ctx, c.get))
	}
	if c.run != "" {
		h.show(h.reg.Run(ctx, c.run))
	}
	return c.exit, nil
}

// Shell reads commands from in until exit, end of input, or ctx is done.
func (h *Host) Shell(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(h.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(h.out, "\nExiting...")
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(h.out)
				return
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			if args[0] == "exit" || args[0] == "quit" {
				fmt.Fprintln(h.out, "Exiting...")
				return
			}
			exit, err := h.Handle(ctx, args)
			if err != nil {
				h.fail(err)
			}
			if exit {
				fmt.Fprintln(h.out, "Exiting...")
				return
			}
		}
	}
}

func (h *Host) list() {
	headerColor.Fprintln(h.out, "Available projects:")
	sel, ok := h.reg.Selected()
	for _, name := range h.reg.Names() {
		if ok && sel.Name == name {
			selectedColor.Fprintf(h.out, "> * %s\n", name)
		} else {
			fmt.Fprintf(h.out, "  * %s\n", name)
		}
	}
	if !ok {
		return
	}
	fmt.Fprintln(h.out, strings.Repeat("-", 34))
	headerColor.Fprintf(h.out, "Functions for '%s'\n", sel.Name)
	for _, group := range []struct {
		title string
		kind  project.Kind
	}{
		{"Gets:", project.Get},
		{"Plots:", project.Plot},
		{"Runnables:", project.Run},
	} {
		names := sel.Callables(group.kind)
		if len(names) == 0 {
			continue
		}
		fmt.Fprintln(h.out, group.title)
		for _, n := range names {
			fmt.Fprintf(h.out, "  * %s\n", n)
		}
	}
}

func (h *Host) show(results []project.Result, err error) {
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		switch v := r.Value.(type) {
		case nil:
			dimColor.Fprintf(h.out, "%s_%s: done\n", r.Kind, r.Name)
		case []string:
			for _, p := range v {
				fmt.Fprintf(h.out, "%s_%s: wrote %s\n", r.Kind, r.Name, p)
			}
		case map[string]float64:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(h.out, "%s %s: %g\n", r.Name, k, v[k])
			}
		default:
			fmt.Fprintf(h.out, "%s: %v\n", r.Name, v)
		}
	}
	if err != nil {
		h.fail(err)
	}
}

func (h *Host) fail(err error) {
	h.log.Debug("command failed", zap.Error(err))
	if errors.Is(err, project.ErrNoSelection) {
		errColor.Fprintln(h.out, "No selected project")
		return
	}
	errColor.Fprintln(h.out, err)
}

func (h *Host) version() {
	fmt.Fprintf(h.out, "pupilsim version %s\n", version)
}

func (h *Host) usage() {
	h.version()
	fmt.Fprint(h.out, `Usage: pupilsim [-config file] -s <name> [-g, -p, -x] <callable>

Commands:
  -h, -help: print this help
  -l, -list: list the projects and, if one is selected, its callables
  -s, -select <name>: select a project
  -r, -reload: reload the selected project
  -p, -plot <name>: call plot_<name> (all: every plot)
  -g, -get <name>: print get_<name> (all: every get)
  -x, -run <name>: call run_<name> (all: every run)
  -e, -exit: leave the shell
  -v, -version: print the version
`)
}
