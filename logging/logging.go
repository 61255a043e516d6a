// Package logging builds the zap loggers used by the command line tool:
// a console core, optionally teed with a rotating JSON log file.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Options controls logger construction.
type Options struct {
	Development bool   // console encoder and debug level
	File        string // rotating JSON log file; empty disables it
	Level       string // overrides the level implied by Development
}

// New builds a logger writing to stdout and, when opts.File is set, to a
// lumberjack-rotated file.
func New(opts Options) *zap.Logger {
	return zap.New(NewCore(opts, zapcore.AddSync(os.Stdout)), zap.AddCaller())
}

// NewCore builds the tee core behind New with an explicit console writer.
func NewCore(opts Options, console zapcore.WriteSyncer) zapcore.Core {
	level := zapcore.InfoLevel
	if opts.Development {
		level = zapcore.DebugLevel
	}
	level = ParseLevel(opts.Level, level)

	var enc zapcore.Encoder
	if opts.Development {
		enc = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, console, level)}

	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(NewEncoderConfig()),
			NewFileWriter(opts.File),
			level,
		))
	}
	return zapcore.NewTee(cores...)
}

// NewFileWriter returns a WriteSyncer that rotates path by size and age.
func NewFileWriter(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	})
}

// ParseLevel parses debug, info, warn(ing), error or fatal, case-insensitive.
// Anything else yields def.
func ParseLevel(s string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	}
	return def
}
