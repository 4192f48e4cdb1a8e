package http

import "net/http"

const (
	// DefaultPort is used when no port is given
	DefaultPort = 80
	// DefaultScheme is used when no scheme is given
	DefaultScheme = "http"
)

// DefaultHeaders returns the headers an Endpoint starts with.
func DefaultHeaders() http.Header {
	return http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json"},
	}
}

// Endpoint describes the target every request of a client is sent to.
//
// Host, port and scheme are fixed at construction. The default headers may be
// replaced with SetHeaders; there is no locking, so replacing them while
// requests are being built on other goroutines is the caller's problem.
type Endpoint struct {
	host    string
	port    int
	scheme  string
	headers http.Header
}

type EndpointOption func(*Endpoint)

func NewEndpoint(host string, opts ...EndpointOption) *Endpoint {
	e := &Endpoint{
		host:   host,
		port:   DefaultPort,
		scheme: DefaultScheme,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.headers == nil {
		e.headers = DefaultHeaders()
	}

	return e
}

func WithPort(port int) EndpointOption {
	return func(e *Endpoint) {
		e.port = port
	}
}

func WithScheme(scheme string) EndpointOption {
	return func(e *Endpoint) {
		e.scheme = scheme
	}
}

// WithDefaultHeaders sets the endpoint headers. A nil map keeps the JSON
// defaults.
func WithDefaultHeaders(headers http.Header) EndpointOption {
	return func(e *Endpoint) {
		e.headers = headers
	}
}

func (e *Endpoint) Host() string {
	return e.host
}

func (e *Endpoint) Port() int {
	return e.port
}

func (e *Endpoint) Scheme() string {
	return e.scheme
}

// Headers returns the current default headers. The map is shared, not copied.
func (e *Endpoint) Headers() http.Header {
	return e.headers
}

// SetHeaders replaces the default headers wholesale for requests built after
// the call returns.
func (e *Endpoint) SetHeaders(headers http.Header) {
	e.headers = headers
}
