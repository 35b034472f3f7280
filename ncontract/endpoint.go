package ncontract

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/muir/napi/nshape"
	"github.com/pkg/errors"
)

// ErrorResponse is a failure an endpoint declares: a status code, a
// tag naming the failure, and the Shape of its payload.
type ErrorResponse struct {
	Status int
	Tag    string
	Shape  nshape.Shape
}

// Endpoint is one named operation of a Contract.
type Endpoint struct {
	Name        string
	Method      string
	Template    Template
	Description string

	// PathShape is always a Struct whose fields are the template
	// parameters.  When none is declared, every parameter is a String.
	PathShape nshape.Shape
	// BodyShape is nil when the endpoint takes no request body.
	BodyShape nshape.Shape

	Status        int
	ResponseShape nshape.Shape
	Errors        []ErrorResponse

	// SpanAttributes renames path parameters when they are attached to
	// trace spans.  Parameters not listed use "path.<name>".
	SpanAttributes map[string]string
}

// ErrorFor finds the declared error with the given status.
func (ep Endpoint) ErrorFor(status int) (ErrorResponse, bool) {
	for _, e := range ep.Errors {
		if e.Status == status {
			return e, true
		}
	}
	return ErrorResponse{}, false
}

// SpanAttribute returns the attribute key used for a path parameter.
func (ep Endpoint) SpanAttribute(param string) string {
	if key, ok := ep.SpanAttributes[param]; ok {
		return key
	}
	return "path." + param
}

func (ep Endpoint) String() string {
	return fmt.Sprintf("%s (%s %s)", ep.Name, ep.Method, ep.Template)
}

// EndpointBuilder accumulates an Endpoint declaration.  The first
// error encountered is kept and reported when the endpoint is added
// to a Contract.
type EndpointBuilder struct {
	ep  Endpoint
	err error
}

// Get starts a GET endpoint.
func Get(name, path string) *EndpointBuilder { return newBuilder(http.MethodGet, name, path) }

// Post starts a POST endpoint.
func Post(name, path string) *EndpointBuilder { return newBuilder(http.MethodPost, name, path) }

// Put starts a PUT endpoint.
func Put(name, path string) *EndpointBuilder { return newBuilder(http.MethodPut, name, path) }

// Patch starts a PATCH endpoint.
func Patch(name, path string) *EndpointBuilder { return newBuilder(http.MethodPatch, name, path) }

// Delete starts a DELETE endpoint.
func Delete(name, path string) *EndpointBuilder { return newBuilder(http.MethodDelete, name, path) }

func newBuilder(method, name, path string) *EndpointBuilder {
	b := &EndpointBuilder{
		ep: Endpoint{
			Name:          name,
			Method:        method,
			Status:        http.StatusOK,
			ResponseShape: nshape.String(),
		},
	}
	if name == "" {
		b.fail(errors.Errorf("%s %s: endpoint name is required", method, path))
	}
	t, err := ParseTemplate(path)
	if err != nil {
		b.fail(errors.Wrap(err, name))
	}
	b.ep.Template = t
	return b
}

func (b *EndpointBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Path declares the Shape of the path parameters.  It must be a Struct
// whose field names are exactly the template parameters.
func (b *EndpointBuilder) Path(s nshape.Shape) *EndpointBuilder {
	b.ep.PathShape = s
	return b
}

// Body declares the Shape of the request body.
func (b *EndpointBuilder) Body(s nshape.Shape) *EndpointBuilder {
	b.ep.BodyShape = s
	return b
}

// Response declares the success status and payload Shape.  The
// default is 200 with a String payload.
func (b *EndpointBuilder) Response(status int, s nshape.Shape) *EndpointBuilder {
	b.ep.Status = status
	b.ep.ResponseShape = s
	return b
}

// Error declares a failure the handler may report.
func (b *EndpointBuilder) Error(status int, tag string, s nshape.Shape) *EndpointBuilder {
	b.ep.Errors = append(b.ep.Errors, ErrorResponse{Status: status, Tag: tag, Shape: s})
	return b
}

// SpanAttribute sets the trace attribute key for a path parameter.
func (b *EndpointBuilder) SpanAttribute(param, key string) *EndpointBuilder {
	if b.ep.SpanAttributes == nil {
		b.ep.SpanAttributes = make(map[string]string)
	}
	b.ep.SpanAttributes[param] = key
	return b
}

// Describe attaches documentation that shows up in the OpenAPI export.
func (b *EndpointBuilder) Describe(text string) *EndpointBuilder {
	b.ep.Description = text
	return b
}

// Build checks the declaration and returns the Endpoint.
func (b *EndpointBuilder) Build() (Endpoint, error) {
	if b.err != nil {
		return Endpoint{}, b.err
	}
	ep := b.ep
	ep.Errors = append([]ErrorResponse(nil), b.ep.Errors...)
	if b.ep.SpanAttributes != nil {
		ep.SpanAttributes = make(map[string]string, len(b.ep.SpanAttributes))
		for k, v := range b.ep.SpanAttributes {
			ep.SpanAttributes[k] = v
		}
	}
	if ep.ResponseShape == nil {
		return Endpoint{}, errors.Errorf("%s: response shape is required", ep.Name)
	}
	if ep.Status < 100 || ep.Status > 599 {
		return Endpoint{}, errors.Errorf("%s: invalid status %d", ep.Name, ep.Status)
	}

	params := ep.Template.Params()
	if ep.PathShape == nil {
		fields := make([]nshape.Field, len(params))
		for i, p := range params {
			fields[i] = nshape.Required(p, nshape.String())
		}
		ep.PathShape = nshape.Struct(fields...)
	} else {
		fields := nshape.Fields(ep.PathShape)
		if fields == nil {
			return Endpoint{}, errors.Errorf("%s: path shape must be a struct", ep.Name)
		}
		declared := make([]string, 0, len(fields))
		for _, f := range fields {
			if f.Optional {
				return Endpoint{}, errors.Errorf("%s: path parameter '%s' cannot be optional", ep.Name, f.Name)
			}
			declared = append(declared, f.Name)
		}
		if !sameNames(declared, params) {
			return Endpoint{}, errors.Errorf("%s: path shape fields %v do not match template parameters %v",
				ep.Name, declared, params)
		}
	}
	for param := range ep.SpanAttributes {
		if !contains(params, param) {
			return Endpoint{}, errors.Errorf("%s: span attribute for unknown parameter '%s'", ep.Name, param)
		}
	}

	seen := make(map[int]bool, len(ep.Errors))
	for _, e := range ep.Errors {
		switch {
		case e.Shape == nil:
			return Endpoint{}, errors.Errorf("%s: error %d has no shape", ep.Name, e.Status)
		case e.Status < 400 || e.Status > 599:
			return Endpoint{}, errors.Errorf("%s: error status %d is not 4xx or 5xx", ep.Name, e.Status)
		case seen[e.Status]:
			return Endpoint{}, errors.Errorf("%s: error status %d declared twice", ep.Name, e.Status)
		}
		seen[e.Status] = true
	}
	return ep, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
