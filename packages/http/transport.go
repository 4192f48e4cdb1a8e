package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Transport performs the network exchange for a built request. Errors are
// returned exactly as the underlying library produced them.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

type transportConfig struct {
	proxyURL string
}

type TransportOption func(*transportConfig)

// WithProxy routes requests through the given proxy URL. An unparsable URL is
// ignored.
func WithProxy(proxyURL string) TransportOption {
	return func(c *transportConfig) {
		c.proxyURL = proxyURL
	}
}

func (c *transportConfig) apply(t *http.Transport) {
	if c.proxyURL == "" {
		return
	}
	if u, err := neturl.Parse(c.proxyURL); err == nil {
		t.Proxy = http.ProxyURL(u)
	}
}

// PooledTransport sends every request through one long-lived client so
// connections are pooled across calls. It is the blocking client's default.
type PooledTransport struct {
	client *http.Client
}

func NewPooledTransport(opts ...TransportOption) *PooledTransport {
	cfg := &transportConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}
	cfg.apply(transport)

	return &PooledTransport{client: &http.Client{Transport: transport}}
}

func (t *PooledTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	return send(ctx, t.client, req)
}

// Close releases the pooled idle connections.
func (t *PooledTransport) Close() {
	t.client.CloseIdleConnections()
}

// ScopedTransport builds a new connection pool for every call and tears it
// down when the call ends, so nothing is shared between calls. Certificate
// verification is disabled: this transport targets test environments with
// self-signed certificates.
type ScopedTransport struct {
	cfg transportConfig
}

func NewScopedTransport(opts ...TransportOption) *ScopedTransport {
	t := &ScopedTransport{}
	for _, opt := range opts {
		opt(&t.cfg)
	}
	return t
}

func (t *ScopedTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	t.cfg.apply(transport)
	defer transport.CloseIdleConnections()

	return send(ctx, &http.Client{Transport: transport}, req)
}

func send(ctx context.Context, client *http.Client, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
		// net/http sends req.Host, not Header["Host"].
		if host := req.Headers.Get("Host"); host != "" {
			httpReq.Host = host
		}
	}

	c := *client
	if !req.FollowRedirects {
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	httpResp, err := c.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Header:     httpResp.Header,
		Cookies:    httpResp.Cookies(),
	}, nil
}
