package npoint

import (
	"fmt"
	"net/http"

	"github.com/muir/napi/ncontract"
	"github.com/muir/napi/nshape"
	"github.com/muir/napi/nvelope"

	"github.com/pkg/errors"
)

// ErrorPayload is the body of the failures the dispatcher produces
// on its own: invalid requests, unknown routes, and unexpected
// errors.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

// ErrorShape describes ErrorPayload.
var ErrorShape = nshape.MustFor[ErrorPayload]()

// Failure is a declared error returned by a handler.  Its Status
// must be one the endpoint declares, and its Payload must fit the
// Shape declared for that status.
type Failure struct {
	Status  int
	Payload interface{}
	cause   error
}

// Fail reports a declared failure.  payload may be a domain value or
// a Go value.  cause is optional and is only logged.
func Fail(status int, payload interface{}, cause error) error {
	return &Failure{Status: status, Payload: payload, cause: cause}
}

func (f *Failure) Error() string {
	if f.cause == nil {
		return fmt.Sprintf("failure %d", f.Status)
	}
	return fmt.Sprintf("failure %d: %s", f.Status, f.cause)
}

func (f *Failure) Unwrap() error { return f.cause }

// RouteNotFound is the error for requests no endpoint matches.
type RouteNotFound struct {
	Method string
	Path   string
}

func (e *RouteNotFound) Error() string {
	return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
}

type outcomeKind int

const (
	succeeded outcomeKind = iota
	requestInvalid
	routeNotFound
	declaredFailure
	unexpectedFailure
)

func (k outcomeKind) String() string {
	switch k {
	case succeeded:
		return "success"
	case requestInvalid:
		return "request invalid"
	case routeNotFound:
		return "route not found"
	case declaredFailure:
		return "declared failure"
	default:
		return "unexpected failure"
	}
}

// outcome is the classified result of one request.  body is already
// in wire form.
type outcome struct {
	kind   outcomeKind
	status int
	body   interface{}
	err    error
}

func errorBody(message, details string) interface{} {
	return map[string]interface{}{
		"message": message,
		"details": details,
	}
}

// invalidRequest wraps errors annotated by nvelope with a 4xx code.
func invalidRequest(err error) outcome {
	status := nvelope.GetReturnCode(err)
	return outcome{
		kind:   requestInvalid,
		status: status,
		body:   errorBody(http.StatusText(status), err.Error()),
		err:    err,
	}
}

func notFound(method, path string) outcome {
	err := nvelope.NotFound(&RouteNotFound{Method: method, Path: path})
	return outcome{
		kind:   routeNotFound,
		status: nvelope.GetReturnCode(err),
		body:   errorBody("Route not found", err.Error()),
		err:    err,
	}
}

// unexpected hides err from the client.  The request id lets
// someone find the logged detail.
func unexpected(ep ncontract.Endpoint, requestID string, err error) outcome {
	return outcome{
		kind:   unexpectedFailure,
		status: http.StatusInternalServerError,
		body: errorBody("Internal server error",
			fmt.Sprintf("%s failed; request id %s", ep.Name, requestID)),
		err: err,
	}
}

// classify turns a handler error into an outcome.
func classify(ep ncontract.Endpoint, requestID string, err error) outcome {
	var f *Failure
	if !errors.As(err, &f) {
		return unexpected(ep, requestID, err)
	}
	decl, ok := ep.ErrorFor(f.Status)
	if !ok {
		return unexpected(ep, requestID, errors.Wrapf(err, "status %d is not declared", f.Status))
	}
	domain, cerr := nshape.FromGo(f.Payload)
	if cerr != nil {
		return unexpected(ep, requestID, errors.Wrapf(cerr, "%s payload", decl.Tag))
	}
	body, cerr := nshape.Encode(decl.Shape, domain)
	if cerr != nil {
		return unexpected(ep, requestID, errors.Wrapf(cerr, "%s payload", decl.Tag))
	}
	return outcome{
		kind:   declaredFailure,
		status: f.Status,
		body:   body,
		err:    err,
	}
}
