package nvelope

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// LogFlusher is implemented by loggers that buffer.  A recovered
// panic flushes the logger because the process may be about to die.
type LogFlusher interface {
	Flush()
}

// PanicError is the error that stands in for a recovered panic.
type PanicError struct {
	// Value is what recover() returned
	Value interface{}
	// Stack is the goroutine stack at the time of the panic
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// AsPanic finds a PanicError in the chain of err.
func AsPanic(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// SetErrorOnPanic must be deferred.  If the function panics, *ep is
// replaced by a PanicError and the panic is logged.
func SetErrorOnPanic(ep *error, log BasicLogger) {
	r := recover()
	if r == nil {
		return
	}
	pe := &PanicError{Value: r, Stack: debug.Stack()}
	*ep = errors.WithStack(pe)
	log.Error("recovered panic", map[string]interface{}{
		"panic": fmt.Sprint(r),
		"stack": string(pe.Stack),
	})
	if flusher, ok := log.(LogFlusher); ok {
		flusher.Flush()
	}
}

// CatchPanic runs inner, converting a panic into a PanicError.
func CatchPanic(log BasicLogger, inner func() error) (err error) {
	defer SetErrorOnPanic(&err, log)
	return inner()
}
