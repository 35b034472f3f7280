package nvelope

import (
	"net/http"

	"github.com/muir/napi/nwire"
)

type encoderOptions struct {
	errorEncoder func(BasicLogger, error) []byte
	formats      *nwire.Registry
}

// ResponseEncoderFuncArg configures a ResponseEncoder.
type ResponseEncoderFuncArg func(*encoderOptions)

// WithErrorEncoder specifies how to encode the body sent when the
// model itself cannot be marshaled.  The default encoding is to
// simply send err.Error() as plain text.  Error encoding is not
// allowed to return error itself nor is it allowed to panic.
func WithErrorEncoder(errorEncoder func(BasicLogger, error) []byte) ResponseEncoderFuncArg {
	return func(o *encoderOptions) {
		o.errorEncoder = errorEncoder
	}
}

// WithFormats sets the formats available for content negotiation.
// The default is nwire.NewRegistry().
func WithFormats(formats *nwire.Registry) ResponseEncoderFuncArg {
	return func(o *encoderOptions) {
		o.formats = formats
	}
}

// ResponseEncoder marshals response models in the format the
// client asked for with its Accept header.
type ResponseEncoder struct {
	encoderOptions
}

// MakeResponseEncoder builds a ResponseEncoder.
func MakeResponseEncoder(encoderFuncArgs ...ResponseEncoderFuncArg) *ResponseEncoder {
	o := encoderOptions{
		errorEncoder: func(_ BasicLogger, err error) []byte { return []byte(err.Error()) },
	}
	for _, fa := range encoderFuncArgs {
		fa(&o)
	}
	if o.formats == nil {
		o.formats = nwire.NewRegistry()
	}
	return &ResponseEncoder{encoderOptions: o}
}

// Formats returns the registry used for negotiation.
func (e *ResponseEncoder) Formats() *nwire.Registry {
	return e.formats
}

// Encode writes model with the given status and flushes w.  If the
// response has already been flushed, Encode does nothing.
func (e *ResponseEncoder) Encode(w *DeferredWriter, r *http.Request, log BasicLogger, status int, model interface{}) {
	if w.Done() {
		return
	}
	format := e.formats.Negotiate(r.Header.Get("Accept"))
	enc, err := format.Marshal(model)
	if err != nil {
		w.Reset()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(500)
		_, _ = w.Write(e.errorEncoder(log, err))
		log.Error("Cannot marshal response",
			map[string]interface{}{
				"error":  err.Error(),
				"method": r.Method,
				"uri":    r.URL.String(),
			})
	} else {
		w.Header().Set("Content-Type", format.ContentType())
		w.WriteHeader(status)
		_, _ = w.Write(enc)
	}
	err = w.Flush()
	if err != nil {
		log.Warn("Cannot write response",
			map[string]interface{}{
				"error":  err.Error(),
				"method": r.Method,
				"uri":    r.URL.String(),
			})
	}
}
