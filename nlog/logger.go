// Package nlog builds the zap logger used by the notes service.
package nlog

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muir/napi/nconfig"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a zap.Logger from the provided configuration.  The
// caller should defer logger.Sync().
func New(c nconfig.LogConfig) (*zap.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	json := strings.ToLower(c.Format) == "json"
	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	var cores []zapcore.Core
	for _, out := range outputs {
		ws, tty, err := sink(out, c)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(newEncoder(json, c.Development, tty), ws, level))
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	}
	if c.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// Fallback logs info and above to w in the console format.  It is
// for when New fails, so the failure and what follows still get
// written somewhere.
func Fallback(w io.Writer) *zap.Logger {
	return zap.New(zapcore.NewCore(newEncoder(false, false, false), zapcore.AddSync(w), zap.InfoLevel))
}

// ParseLevel accepts debug, info, warn (or warning), and error.
func ParseLevel(s string) (zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "info", "":
		level.SetLevel(zap.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		return level, errors.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// sink also reports whether the output is a terminal.
func sink(out string, c nconfig.LogConfig) (zapcore.WriteSyncer, bool, error) {
	switch strings.ToLower(out) {
	case "stdout":
		return zapcore.Lock(os.Stdout), isTerminal(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), isTerminal(os.Stderr), nil
	}
	// Treat as file path; use rotation only when enabled
	if c.Rotation.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   chooseFilename(out, c),
			MaxSize:    atLeast(c.Rotation.MaxSizeMB, 10),
			MaxBackups: atLeast(c.Rotation.MaxBackups, 1),
			MaxAge:     atLeast(c.Rotation.MaxAgeDays, 7),
			Compress:   c.Rotation.Compress,
		}), false, nil
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, errors.Wrapf(err, "log directory for %s", out)
		}
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, errors.Wrapf(err, "open log %s", out)
	}
	return zapcore.AddSync(f), false, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newEncoder colors levels only for development console output to a
// terminal.  Files and JSON never get escape codes.
func newEncoder(json, dev, tty bool) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	if dev {
		cfg = zap.NewDevelopmentEncoderConfig()
	}
	if json {
		return zapcore.NewJSONEncoder(cfg)
	}
	if dev && tty {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func atLeast(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// chooseFilename returns the output filename. If rotation is enabled and a
// filename is provided in rotation config, prefer it; otherwise use the `out`.
func chooseFilename(out string, c nconfig.LogConfig) string {
	if c.Rotation.Enable && strings.TrimSpace(c.Rotation.Filename) != "" {
		return c.Rotation.Filename
	}
	return out
}
