package ncontract

import (
	"fmt"

	"github.com/pkg/errors"
)

// Contract is an ordered, immutable set of endpoints.  It is built
// once at startup and shared by npoint and nclient.
type Contract struct {
	title     string
	version   string
	endpoints []Endpoint
	byName    map[string]int
}

// Option configures a Contract.
type Option func(*Contract)

// WithVersion sets the API version reported by the OpenAPI export.
func WithVersion(version string) Option {
	return func(c *Contract) {
		c.version = version
	}
}

// New creates an empty Contract.
func New(title string, opts ...Option) *Contract {
	c := &Contract{
		title:   title,
		version: "1.0.0",
		byName:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddEndpoint returns a new Contract that extends c with one more
// endpoint.  c itself is unchanged.  A duplicate name, an ambiguous
// path, or an invalid declaration is a programming error and panics.
func (c *Contract) AddEndpoint(b *EndpointBuilder) *Contract {
	nc, err := c.TryAddEndpoint(b)
	if err != nil {
		panic(fmt.Sprintf("Cannot add endpoint to %s: %s", c.title, err))
	}
	return nc
}

// TryAddEndpoint is AddEndpoint that returns an error instead of
// panicking.
func (c *Contract) TryAddEndpoint(b *EndpointBuilder) (*Contract, error) {
	ep, err := b.Build()
	if err != nil {
		return nil, err
	}
	if _, dup := c.byName[ep.Name]; dup {
		return nil, errors.Errorf("endpoint name '%s' already registered", ep.Name)
	}
	for _, existing := range c.endpoints {
		if existing.Method == ep.Method && existing.Template.shadows(ep.Template) {
			return nil, errors.Errorf("%s collides with %s", ep, existing)
		}
	}
	nc := &Contract{
		title:     c.title,
		version:   c.version,
		endpoints: make([]Endpoint, len(c.endpoints), len(c.endpoints)+1),
		byName:    make(map[string]int, len(c.byName)+1),
	}
	copy(nc.endpoints, c.endpoints)
	for k, v := range c.byName {
		nc.byName[k] = v
	}
	nc.endpoints = append(nc.endpoints, ep)
	nc.byName[ep.Name] = len(nc.endpoints) - 1
	return nc, nil
}

// Title is the contract title.
func (c *Contract) Title() string { return c.title }

// Version is the contract version.
func (c *Contract) Version() string { return c.version }

// Endpoints returns the endpoints in registration order.
func (c *Contract) Endpoints() []Endpoint {
	eps := make([]Endpoint, len(c.endpoints))
	copy(eps, c.endpoints)
	return eps
}

// Lookup finds an endpoint by operation name.
func (c *Contract) Lookup(name string) (Endpoint, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Endpoint{}, false
	}
	return c.endpoints[i], true
}

// Names lists operation names in registration order.
func (c *Contract) Names() []string {
	names := make([]string, len(c.endpoints))
	for i, ep := range c.endpoints {
		names[i] = ep.Name
	}
	return names
}
