// Copyright (c) 2022 Netskope, Inc. All rights reserved.

package log

import (
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how verbosely a run logs.
type Options struct {
	Dir    string // defaults to /tmp
	Name   string // file is <Dir>/<Name>.log; defaults to the binary name
	Debug  bool
	Stdout bool
}

// NewLogger returns a JSON zap logger and a func that flushes and closes its
// sink. If opts.Stdout is false, a file-based logger is used.
func NewLogger(opts Options) (*zap.Logger, func() error, error) {
	cfg := encoderConfig(opts.Debug)

	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var (
		sink      zapcore.WriteSyncer
		closeSink = func() error { return nil }
	)
	if opts.Stdout {
		sink = zapcore.Lock(os.Stdout)
	} else {
		file, err := os.OpenFile(LogPath(opts.Dir, opts.Name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		sink = zapcore.Lock(file)
		closeSink = file.Close
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), sink, level)

	var logger *zap.Logger
	if opts.Debug {
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger = zap.New(core)
	}

	cleanup := func() error {
		err := logger.Sync()
		if opts.Stdout {
			// stdout cannot be fsynced on most terminals
			err = nil
		}
		return multierr.Append(err, closeSink())
	}
	return logger, cleanup, nil
}

// LogPath is the file a non-stdout logger writes to.
func LogPath(dir, name string) string {
	if dir == "" {
		dir = "/tmp"
	}
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	return filepath.Join(dir, name+".log")
}

func encoderConfig(debug bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.EpochTimeEncoder
	cfg.LevelKey = "lv"
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(l.CapitalString()[:2])
	}
	if debug {
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		cfg.CallerKey = "call"
	}
	return cfg
}
