package nclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/muir/napi/ncontract"
	"github.com/muir/napi/nshape"
	"github.com/muir/napi/nvelope"
	"github.com/muir/napi/nwire"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// RequestIDHeader is sent with every request so that server logs can
// be matched to client calls.
const RequestIDHeader = "X-Request-Id"

// errorBodyShape reads {message, details} from responses the contract
// does not describe.  Both are optional since the body may be
// anything.
var errorBodyShape = nshape.Struct(
	nshape.Optional("message", nshape.String()),
	nshape.Optional("details", nshape.String()),
)

// Client calls the endpoints of a contract.
type Client struct {
	contract *ncontract.Contract
	base     string
	http     *http.Client
	formats  *nwire.Registry
	format   nwire.Format
	router   *mux.Router
	log      nvelope.BasicLogger
	maxBody  int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the *http.Client built from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithFormats sets the wire formats the client understands.
func WithFormats(formats *nwire.Registry) Option {
	return func(c *Client) {
		c.formats = formats
	}
}

// WithLogger logs each call at debug level.
func WithLogger(log nvelope.BasicLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New builds a client for contract c.
func New(c *ncontract.Contract, cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url '%s' must be absolute", cfg.BaseURL)
	}
	client := &Client{
		contract: c,
		base:     strings.TrimSuffix(base.String(), "/"),
		formats:  nwire.NewRegistry(),
		router:   mux.NewRouter(),
		log:      nvelope.NoLogger(),
		maxBody:  cfg.MaxResponseBytes,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.http == nil {
		client.http = NewHTTPClient(cfg)
	}
	if client.maxBody <= 0 {
		client.maxBody = DefaultConfig().MaxResponseBytes
	}
	client.format, err = client.formats.Lookup(cfg.ContentType)
	if err != nil {
		return nil, err
	}
	for _, ep := range c.Endpoints() {
		client.router.Methods(ep.Method).Path(ep.Template.MuxPath()).Name(ep.Name)
	}
	return client, nil
}

// Operation is one callable endpoint.
type Operation struct {
	Endpoint ncontract.Endpoint
	client   *Client
}

// Name is the operation name from the contract.
func (op Operation) Name() string { return op.Endpoint.Name }

// Call invokes the operation.  See Client.Call.
func (op Operation) Call(ctx context.Context, args Args) (interface{}, error) {
	return op.client.call(ctx, op.Endpoint, args)
}

// Operations lists one Operation per endpoint, in contract order.
func (c *Client) Operations() []Operation {
	eps := c.contract.Endpoints()
	ops := make([]Operation, len(eps))
	for i, ep := range eps {
		ops[i] = Operation{Endpoint: ep, client: c}
	}
	return ops
}

// Operation finds an operation by name.
func (c *Client) Operation(name string) (Operation, bool) {
	ep, ok := c.contract.Lookup(name)
	if !ok {
		return Operation{}, false
	}
	return Operation{Endpoint: ep, client: c}, true
}

// Args are the inputs of a call.  Path and Body may be domain values
// or Go values that nshape.FromGo can convert.
type Args struct {
	Path interface{}
	Body interface{}
}

// Call invokes the named operation and returns the decoded success
// payload as a domain value.  Failures the contract declares come
// back as *DeclaredError and anything else as *UnexpectedError.
// Arguments that do not fit the contract are reported before any
// request is sent.
func (c *Client) Call(ctx context.Context, name string, args Args) (interface{}, error) {
	ep, ok := c.contract.Lookup(name)
	if !ok {
		return nil, errors.Errorf("%s has no operation '%s'", c.contract.Title(), name)
	}
	return c.call(ctx, ep, args)
}

// Invoke is Call that stores the result in a Go value.
func Invoke[R any](ctx context.Context, c *Client, name string, args Args) (R, error) {
	var r R
	v, err := c.Call(ctx, name, args)
	if err != nil {
		return r, err
	}
	if err := nshape.ToGo(v, &r); err != nil {
		return r, errors.Wrapf(err, "%s result", name)
	}
	return r, nil
}

func (c *Client) call(ctx context.Context, ep ncontract.Endpoint, args Args) (interface{}, error) {
	req, err := c.buildRequest(ctx, ep, args)
	if err != nil {
		return nil, err
	}
	id := req.Header.Get(RequestIDHeader)
	c.log.Debug("calling", map[string]interface{}{
		"operation":  ep.Name,
		"method":     req.Method,
		"url":        req.URL.String(),
		"request_id": id,
	})
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", ep.Name)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read response", ep.Name)
	}
	return c.decodeResponse(ep, res, data)
}

func (c *Client) buildRequest(ctx context.Context, ep ncontract.Endpoint, args Args) (*http.Request, error) {
	path, err := c.renderPath(ep, args.Path)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if ep.BodyShape != nil {
		domain, err := nshape.FromGo(args.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "%s body", ep.Name)
		}
		wire, err := nshape.Encode(ep.BodyShape, domain)
		if err != nil {
			return nil, errors.Wrapf(err, "%s body", ep.Name)
		}
		enc, err := c.format.Marshal(wire)
		if err != nil {
			return nil, errors.Wrapf(err, "%s body", ep.Name)
		}
		body = bytes.NewReader(enc)
	} else if args.Body != nil {
		return nil, errors.Errorf("%s does not take a body", ep.Name)
	}
	req, err := http.NewRequestWithContext(ctx, ep.Method, c.base+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", ep.Name)
	}
	if body != nil {
		req.Header.Set("Content-Type", c.format.ContentType())
	}
	req.Header.Set("Accept", c.format.ContentType())
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// renderPath encodes the path arguments with the path Shape and
// substitutes them into the template.
func (c *Client) renderPath(ep ncontract.Endpoint, args interface{}) (string, error) {
	domain, err := nshape.FromGo(args)
	if err != nil {
		return "", errors.Wrapf(err, "%s path", ep.Name)
	}
	if domain == nil {
		domain = map[string]interface{}{}
	}
	wire, err := nshape.Encode(ep.PathShape, domain)
	if err != nil {
		return "", errors.Wrapf(err, "%s path", ep.Name)
	}
	values := wire.(map[string]interface{})
	pairs := make([]string, 0, 2*len(values))
	for _, p := range ep.Template.Params() {
		s, ok := values[p].(string)
		if !ok {
			return "", errors.Errorf("%s path: parameter '%s' does not encode to a string", ep.Name, p)
		}
		if s == "" {
			return "", errors.Errorf("%s path: parameter '%s' is empty", ep.Name, p)
		}
		pairs = append(pairs, p, url.PathEscape(s))
	}
	route := c.router.Get(ep.Name)
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", errors.Wrapf(err, "%s path", ep.Name)
	}
	return u.Path, nil
}

func (c *Client) decodeResponse(ep ncontract.Endpoint, res *http.Response, data []byte) (interface{}, error) {
	unexpected := &UnexpectedError{
		Operation: ep.Name,
		Status:    res.StatusCode,
		RequestID: res.Header.Get(RequestIDHeader),
	}
	format, err := c.formats.Lookup(res.Header.Get("Content-Type"))
	if err != nil {
		unexpected.cause = err
		return nil, unexpected
	}
	wire, err := format.Unmarshal(data)
	if err != nil {
		unexpected.cause = err
		return nil, unexpected
	}

	if res.StatusCode == ep.Status {
		v, err := nshape.Decode(ep.ResponseShape, wire)
		if err != nil {
			unexpected.cause = errors.Wrap(err, "success body")
			return nil, unexpected
		}
		return v, nil
	}
	if decl, ok := ep.ErrorFor(res.StatusCode); ok {
		v, err := nshape.Decode(decl.Shape, wire)
		if err == nil {
			return nil, &DeclaredError{
				Operation: ep.Name,
				Status:    res.StatusCode,
				Tag:       decl.Tag,
				Payload:   v,
			}
		}
		unexpected.cause = errors.Wrapf(err, "%s body", decl.Tag)
	}
	if v, err := nshape.Decode(errorBodyShape, wire); err == nil {
		m := v.(map[string]interface{})
		unexpected.Message, _ = m["message"].(string)
		unexpected.Details, _ = m["details"].(string)
	}
	return nil, unexpected
}
