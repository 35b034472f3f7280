package nvelope

import (
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// DeferredWriter is a http.ResponseWriter that buffers the status,
// headers, and body until Flush is called.  Until then the response
// can be abandoned with Reset.
type DeferredWriter struct {
	base        http.ResponseWriter
	header      http.Header
	resetHeader http.Header
	buffer      []byte
	status      int
	done        bool
}

var _ http.ResponseWriter = &DeferredWriter{}

// NewDeferredWriter wraps w.  Headers already set on w are the
// starting point for the deferred headers.
func NewDeferredWriter(w http.ResponseWriter) *DeferredWriter {
	return &DeferredWriter{
		base:        w,
		header:      w.Header().Clone(),
		resetHeader: w.Header().Clone(),
		buffer:      make([]byte, 0, 4*1024),
	}
}

// Header returns the deferred headers, or the underlying headers
// once flushed.
func (w *DeferredWriter) Header() http.Header {
	if w.done {
		return w.base.Header()
	}
	return w.header
}

func (w *DeferredWriter) Write(b []byte) (int, error) {
	if w.done {
		return w.base.Write(b)
	}
	w.buffer = append(w.buffer, b...)
	return len(b), nil
}

func (w *DeferredWriter) WriteHeader(statusCode int) {
	if w.done {
		w.base.WriteHeader(statusCode)
		return
	}
	w.status = statusCode
}

// Status is the status that will be (or was) sent.
func (w *DeferredWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Reset discards everything written since the last PreserveHeader.
// It has no effect after Flush.
func (w *DeferredWriter) Reset() {
	if w.done {
		return
	}
	w.buffer = w.buffer[:0]
	w.status = 0
	w.header = w.resetHeader.Clone()
}

// PreserveHeader makes the current headers survive Reset.
func (w *DeferredWriter) PreserveHeader() {
	w.resetHeader = w.header.Clone()
}

// Done reports whether Flush has been called.
func (w *DeferredWriter) Done() bool {
	return w.done
}

// Flush sends the buffered response.  After Flush, writes go
// straight through.
func (w *DeferredWriter) Flush() error {
	if w.done {
		return nil
	}
	w.done = true
	dst := w.base.Header()
	for k := range dst {
		if _, ok := w.header[k]; !ok {
			delete(dst, k)
		}
	}
	for k, v := range w.header {
		dst[k] = v
	}
	if w.status != 0 {
		w.base.WriteHeader(w.status)
	}
	remaining := w.buffer
	for len(remaining) > 0 {
		n, err := w.base.Write(remaining)
		remaining = remaining[n:]
		if err == nil {
			continue
		}
		if n > 0 && errors.Is(err, io.ErrShortWrite) {
			continue
		}
		return errors.Wrap(err, "flush response")
	}
	w.buffer = nil
	return nil
}
