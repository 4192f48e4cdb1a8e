package http

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/qakit/packages/log"
)

// Doer is the contract both clients satisfy: run one call to completion and
// return its envelope.
type Doer interface {
	Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error)
}

// Mode selects the execution model behind a Doer.
type Mode int

const (
	Blocking Mode = iota
	NonBlocking
)

// NewDoer returns a Client for Blocking and an AsyncClient for NonBlocking.
func NewDoer(mode Mode, endpoint *Endpoint, opts ...ClientOption) Doer {
	if mode == NonBlocking {
		return NewAsyncClient(endpoint, opts...)
	}
	return NewClient(endpoint, opts...)
}

// base holds what both execution models share: the endpoint, the transport
// and the diagnostic logger.
type base struct {
	*Endpoint
	transport Transport
	logger    logrus.FieldLogger
}

type ClientOption func(*base)

// WithTransport replaces the client's default transport.
func WithTransport(t Transport) ClientOption {
	return func(b *base) {
		b.transport = t
	}
}

// WithLogger sets the diagnostic logger. Request pairs are logged at debug.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(b *base) {
		b.logger = logger
	}
}

func newBase(endpoint *Endpoint, opts []ClientOption) base {
	b := base{Endpoint: endpoint}
	for _, opt := range opts {
		opt(&b)
	}
	if b.logger == nil {
		b.logger = log.Nop()
	}
	return b
}

func (b *base) logOutbound(req *Request) {
	log.Safe(func() {
		log.WithCorrelationID(b.logger, req.CorrelationID).WithFields(logrus.Fields{
			log.DirectionKey: log.Outbound,
			log.MethodKey:    req.Method,
			log.URLKey:       req.URL,
			log.BodyKey:      string(req.Body),
		}).Debugf("--->%s HTTP %s %s %s", CorrelationTag(req.CorrelationID), req.Method, req.URL, req.Body)
	})
}

func (b *base) logInbound(req *Request, resp *Response) {
	log.Safe(func() {
		log.WithCorrelationID(b.logger, req.CorrelationID).WithFields(logrus.Fields{
			log.DirectionKey: log.Inbound,
			log.MethodKey:    req.Method,
			log.URLKey:       req.URL,
			log.StatusKey:    resp.StatusCode,
			log.BodyKey:      string(resp.Body),
		}).Debugf("<---%s HTTP %s %s code=%d data=%s", CorrelationTag(req.CorrelationID), req.Method, req.URL, resp.StatusCode, resp.Body)
	})
}

// Client runs requests on the calling goroutine.
type Client struct {
	base
}

// NewClient creates a blocking client. Without WithTransport it uses a
// PooledTransport.
func NewClient(endpoint *Endpoint, opts ...ClientOption) *Client {
	c := &Client{base: newBase(endpoint, opts)}
	if c.transport == nil {
		c.transport = NewPooledTransport()
	}
	return c
}

// Request sends method to path and blocks until the response body has been
// read. Transport failures are returned unchanged with a nil response.
func (c *Client) Request(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	req, err := c.NewRequest(method, path, opts...)
	if err != nil {
		return nil, err
	}

	c.logOutbound(req)
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logInbound(req, resp)

	return resp, nil
}

func (c *Client) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, method, path, opts...)
}

// Get never sends a body, even if one was supplied.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, append(opts[:len(opts):len(opts)], withoutBody())...)
}

func (c *Client) Post(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, opts...)
}

func (c *Client) Put(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, opts...)
}
