// Command pupilsim simulates telescope pupils and their point-spread
// functions. Without action flags it starts an interactive shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/psanker/pupilsim/config"
	"github.com/psanker/pupilsim/logging"
	"github.com/psanker/pupilsim/project"
	"github.com/psanker/pupilsim/telescope"
)

var version = "1.2.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	path, rest := splitConfig(args)
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log := logging.New(logging.Options{
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		Level:       cfg.Log.Level,
	})
	defer func() { _ = log.Sync() }()
	log.Debug("configuration loaded",
		zap.String("path", path),
		zap.Int("pupils", len(cfg.Pupils)),
		zap.String("output_dir", cfg.OutputDir))

	reg := project.NewRegistry(log)
	defer reg.Close()
	if err := reg.Register(telescope.Name, telescope.Loader(cfg, log)); err != nil {
		log.Error("register project", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := NewHost(reg, log, os.Stdout)
	if len(rest) == 0 {
		host.Shell(ctx, os.Stdin)
		return 0
	}
	if _, err := host.Handle(ctx, rest); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}

// splitConfig removes -config/--config (with a separate or = value) from
// args and returns its value.
func splitConfig(args []string) (path string, rest []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			rest = append(rest, a)
			continue
		}
		if hasValue {
			path = value
		} else if i+1 < len(args) {
			path = args[i+1]
			i++
		}
	}
	return path, rest
}
