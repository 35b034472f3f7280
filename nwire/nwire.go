// Package nwire serializes wire values produced by nshape.Encode and
// parses request and response bodies back into wire values.
package nwire

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Format is one serialization of wire values.
type Format interface {
	ContentType() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte) (interface{}, error)
}

// ErrUnsupported is returned (wrapped) for content types that have
// no registered Format.
var ErrUnsupported = errors.New("unsupported content type")

type jsonFormat struct{}

// JSON is RFC 8259 JSON.  Numbers are preserved as json.Number.
func JSON() Format { return jsonFormat{} }

func (jsonFormat) ContentType() string { return "application/json" }

func (jsonFormat) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonFormat) Unmarshal(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode json")
	}
	if dec.More() {
		return nil, errors.New("decode json: trailing data")
	}
	return v, nil
}

type yamlFormat struct{}

// YAML is YAML 1.1 as implemented by gopkg.in/yaml.v2.
func YAML() Format { return yamlFormat{} }

func (yamlFormat) ContentType() string { return "application/yaml" }

func (yamlFormat) Marshal(v interface{}) ([]byte, error) { return yaml.Marshal(v) }

func (yamlFormat) Unmarshal(data []byte) (interface{}, error) {
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	return v, nil
}

type cborFormat struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR is deterministic RFC 8949 CBOR.
func CBOR() (Format, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, errors.Wrap(err, "cbor encoder")
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, errors.Wrap(err, "cbor decoder")
	}
	return cborFormat{enc: em, dec: dm}, nil
}

func (cborFormat) ContentType() string { return "application/cbor" }

func (c cborFormat) Marshal(v interface{}) ([]byte, error) { return c.enc.Marshal(v) }

func (c cborFormat) Unmarshal(data []byte) (interface{}, error) {
	var v interface{}
	if err := c.dec.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode cbor")
	}
	return v, nil
}

// Registry maps content types to formats.  The first format
// registered is the default.  A Registry is read-only once built.
type Registry struct {
	byType map[string]Format
	order  []Format
}

// NewRegistry builds a registry from formats.  With no arguments it
// holds JSON, YAML, and CBOR with JSON as the default.
func NewRegistry(formats ...Format) *Registry {
	if len(formats) == 0 {
		formats = []Format{JSON(), YAML()}
		if c, err := CBOR(); err == nil {
			formats = append(formats, c)
		}
	}
	r := &Registry{byType: make(map[string]Format, len(formats))}
	for _, f := range formats {
		if _, dup := r.byType[f.ContentType()]; dup {
			continue
		}
		r.byType[f.ContentType()] = f
		r.order = append(r.order, f)
	}
	return r
}

// Default returns the first registered format.
func (r *Registry) Default() Format { return r.order[0] }

// Lookup finds the format for a Content-Type header value.  An
// empty header selects the default.
func (r *Registry) Lookup(contentType string) (Format, error) {
	if strings.TrimSpace(contentType) == "" {
		return r.Default(), nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupported, "%s", contentType)
	}
	if f, ok := r.byType[alias(mt)]; ok {
		return f, nil
	}
	return nil, errors.Wrapf(ErrUnsupported, "%s", mt)
}

// Negotiate picks a format for an Accept header.  Preference order
// follows the header; quality values are not weighed.  Anything that
// cannot be satisfied falls back to the default.
func (r *Registry) Negotiate(accept string) Format {
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if f, ok := r.byType[alias(mt)]; ok {
			return f
		}
	}
	return r.Default()
}

func alias(mt string) string {
	switch mt {
	case "text/yaml", "application/x-yaml", "text/x-yaml":
		return "application/yaml"
	case "text/json":
		return "application/json"
	}
	return mt
}
