package npoint

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/muir/napi/ncontract"

	"github.com/pkg/errors"
)

// HandlerFunc implements one operation of a contract.  The Request
// carries domain values that have already been decoded and
// validated.  The result may be a domain value or any Go value
// that nshape.FromGo can convert; it is validated against the
// endpoint's success Shape before it is sent.
//
// To report a declared failure, return the error from Fail.  Any
// other error is unexpected and produces a generic 500.
type HandlerFunc func(ctx context.Context, req Request) (interface{}, error)

// Request is what a HandlerFunc receives.
type Request struct {
	Operation string
	Method    string
	Path      string
	// Params is the decoded path Shape: one entry per template
	// parameter.
	Params map[string]interface{}
	// Body is the decoded body, nil when the endpoint declares none.
	Body      interface{}
	Header    http.Header
	RequestID string
}

// Binding collects handlers for the endpoints of a Contract.  Every
// endpoint must have a handler before Build succeeds.
type Binding struct {
	contract *ncontract.Contract
	handlers map[string]HandlerFunc
	options  options
	lock     sync.Mutex
}

// Bind starts binding handlers to c.
func Bind(c *ncontract.Contract, opts ...Option) *Binding {
	b := &Binding{
		contract: c,
		handlers: make(map[string]HandlerFunc),
		options:  defaultOptions(),
	}
	for _, opt := range opts {
		opt(&b.options)
	}
	return b
}

// Handle binds the handler for one operation.  Binding an operation
// that is not in the contract, or binding one twice, is a
// programming error and panics.
func (b *Binding) Handle(name string, h HandlerFunc) *Binding {
	b.lock.Lock()
	defer b.lock.Unlock()
	if _, ok := b.contract.Lookup(name); !ok {
		panic(fmt.Sprintf("%s has no endpoint named '%s'", b.contract.Title(), name))
	}
	if _, dup := b.handlers[name]; dup {
		panic(fmt.Sprintf("endpoint '%s' already has a handler", name))
	}
	if h == nil {
		panic(fmt.Sprintf("nil handler for '%s'", name))
	}
	b.handlers[name] = h
	return b
}

// Build checks that every endpoint has a handler and compiles the
// routes.  The Dispatcher is independent of the Binding: later calls
// to Handle do not affect it.
func (b *Binding) Build() (*Dispatcher, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	var missing []string
	for _, name := range b.contract.Names() {
		if _, ok := b.handlers[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("%s: no handler for %v", b.contract.Title(), missing)
	}
	handlers := make(map[string]HandlerFunc, len(b.handlers))
	for k, v := range b.handlers {
		handlers[k] = v
	}
	return newDispatcher(b.contract, handlers, b.options), nil
}
