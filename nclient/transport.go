package nclient

import (
	"net"
	"net/http"
	"time"
)

// Config says where the server is and how to reach it.
type Config struct {
	// BaseURL is prefixed to every endpoint path, e.g.
	// http://localhost:1337.
	BaseURL string

	// ContentType selects the wire format for request bodies and
	// the Accept header.  Empty means JSON.
	ContentType string

	// Total timeout for the entire request (includes redirects, reading body, etc).
	// A context deadline can still override this.
	Timeout time.Duration

	// Transport / dial timeouts.
	DialTimeout     time.Duration
	KeepAlive       time.Duration
	TLSHandshake    time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// MaxResponseBytes limits how much of a response body is read.
	MaxResponseBytes int64
}

// DefaultConfig talks JSON to the notes server on its default port.
func DefaultConfig() Config {
	return Config{
		BaseURL:             "http://localhost:1337",
		ContentType:         "application/json",
		Timeout:             30 * time.Second,
		DialTimeout:         5 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshake:        5 * time.Second,
		ResponseHeader:      10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxResponseBytes:    10 << 20,
	}
}

// NewHTTPClient builds the *http.Client that New uses unless
// WithHTTPClient supplies one.
func NewHTTPClient(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		ForceAttemptHTTP2: true,

		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Timeout,
	}
}
