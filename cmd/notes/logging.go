package main

import (
	"io"
	"log"

	"github.com/muir/napi/nconfig"
	"github.com/muir/napi/nlog"
	"github.com/muir/napi/nvelope"

	"go.uber.org/zap"
)

// openLogger builds the configured logger.  When that fails, for
// example because a log file cannot be created, the failure is
// reported on stderr and logging continues there.
func openLogger(c nconfig.LogConfig, stderr io.Writer) *zap.Logger {
	zlog, err := nlog.New(c)
	if err == nil {
		return zlog
	}
	nvelope.LoggerFromStd(log.New(stderr, "notes: ", log.LstdFlags)).
		Warn("cannot open configured logs, using stderr", map[string]interface{}{"error": err.Error()})
	return nlog.Fallback(stderr)
}
