package nvelope

import (
	"fmt"

	"go.uber.org/zap"
)

// BasicLogger is the logging interface used by nvelope, npoint,
// and nserve.  Fields are attached as key/value maps.
type BasicLogger interface {
	Debug(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
}

// LoggerFromZap adapts a zap logger.  Flush syncs it, which makes
// it a LogFlusher as well.
func LoggerFromZap(log *zap.Logger) BasicLogger {
	return zapLogger{log: log.WithOptions(zap.AddCallerSkip(1))}
}

type zapLogger struct {
	log *zap.Logger
}

func zapFields(fields []map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields)*4)
	for _, m := range fields {
		for k, v := range m {
			zf = append(zf, zap.Any(k, v))
		}
	}
	return zf
}

func (z zapLogger) Debug(msg string, fields ...map[string]interface{}) {
	z.log.Debug(msg, zapFields(fields)...)
}

func (z zapLogger) Error(msg string, fields ...map[string]interface{}) {
	z.log.Error(msg, zapFields(fields)...)
}

func (z zapLogger) Warn(msg string, fields ...map[string]interface{}) {
	z.log.Warn(msg, zapFields(fields)...)
}

func (z zapLogger) Flush() {
	_ = z.log.Sync()
}

// StdLogger is implmented by the base library log.Logger
type StdLogger interface {
	Print(v ...interface{})
}

type wrappedStdLogger struct {
	log StdLogger
}

// LoggerFromStd wraps a log.Logger
func LoggerFromStd(log StdLogger) BasicLogger {
	return wrappedStdLogger{log: log}
}

func (std wrappedStdLogger) Error(msg string, fields ...map[string]interface{}) {
	if len(fields) == 0 {
		std.log.Print(msg)
		return
	}
	vals := make([]interface{}, 1, len(fields)*4+1)
	vals[0] = msg
	for _, m := range fields {
		for k, v := range m {
			vals = append(vals, " "+k+"="+fmt.Sprint(v))
		}
	}
	std.log.Print(vals...)
}

func (std wrappedStdLogger) Warn(msg string, fields ...map[string]interface{}) {
	std.Error(msg, fields...)
}
func (std wrappedStdLogger) Debug(msg string, fields ...map[string]interface{}) {
	std.Error(msg, fields...)
}

// NoLogger returns a BasicLogger that discards all inputs
func NoLogger() BasicLogger {
	return nilLogger{}
}

type nilLogger struct{}

var _ BasicLogger = nilLogger{}

func (_ nilLogger) Error(msg string, fields ...map[string]interface{}) {}
func (_ nilLogger) Warn(msg string, fields ...map[string]interface{})  {}
func (_ nilLogger) Debug(msg string, fields ...map[string]interface{}) {}
