package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/qakit/packages/model"
)

// Request is the fully built descriptor of one call. It is created fresh for
// every call and never reused.
type Request struct {
	Method          string
	URL             string
	Body            []byte // nil when the call has no body
	Headers         http.Header
	CorrelationID   string
	FollowRedirects bool
	Timeout         time.Duration // zero means no per-call timeout
}

type requestParams struct {
	query           string
	body            []byte
	headers         http.Header
	correlationID   string
	followRedirects bool
	timeout         time.Duration
	err             error
}

// RequestOption customises a single call.
type RequestOption func(*requestParams)

// WithQuery sets the raw query string. It is appended as given; callers are
// responsible for percent-encoding.
func WithQuery(query string) RequestOption {
	return func(p *requestParams) {
		p.query = query
	}
}

func WithBody(body []byte) RequestOption {
	return func(p *requestParams) {
		p.body = body
	}
}

// WithJSON encodes v with model.Marshal and uses it as the body.
func WithJSON(v any) RequestOption {
	return func(p *requestParams) {
		body, err := model.Marshal(v)
		if err != nil {
			p.err = err
			return
		}
		p.body = body
	}
}

func WithCorrelationID(id string) RequestOption {
	return func(p *requestParams) {
		p.correlationID = id
	}
}

// WithHeaders replaces the endpoint's default headers for this call. The two
// sets are never merged; a non-nil empty header sends no headers at all.
func WithHeaders(headers http.Header) RequestOption {
	return func(p *requestParams) {
		p.headers = headers
	}
}

func WithFollowRedirects(follow bool) RequestOption {
	return func(p *requestParams) {
		p.followRedirects = follow
	}
}

func WithTimeout(d time.Duration) RequestOption {
	return func(p *requestParams) {
		p.timeout = d
	}
}

func withoutBody() RequestOption {
	return func(p *requestParams) {
		p.body = nil
		p.err = nil
	}
}

// BuildURL joins the components into an absolute URL. Nothing is escaped or
// normalised; a path without a leading slash gets one.
func BuildURL(scheme, host string, port int, path, query string) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(net.JoinHostPort(host, strconv.Itoa(port)))
	if path != "" && !strings.HasPrefix(path, "/") {
		b.WriteByte('/')
	}
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// CorrelationTag renders id for diagnostic lines: " [id]", or "" when empty.
func CorrelationTag(id string) string {
	if id == "" {
		return ""
	}
	return " [" + id + "]"
}

// SelectHeaders returns caller when it is non-nil and defaults otherwise.
func SelectHeaders(caller, defaults http.Header) http.Header {
	if caller != nil {
		return caller
	}
	return defaults
}

// NewRequest builds the descriptor for method and path against the endpoint.
// The returned error is only non-nil when a WithJSON body failed to encode.
func (e *Endpoint) NewRequest(method, path string, opts ...RequestOption) (*Request, error) {
	p := &requestParams{followRedirects: true}
	for _, opt := range opts {
		opt(p)
	}
	if p.err != nil {
		return nil, p.err
	}

	return &Request{
		Method:          method,
		URL:             BuildURL(e.scheme, e.host, e.port, path, p.query),
		Body:            p.body,
		Headers:         SelectHeaders(p.headers, e.headers).Clone(),
		CorrelationID:   p.correlationID,
		FollowRedirects: p.followRedirects,
		Timeout:         p.timeout,
	}, nil
}
