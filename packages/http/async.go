package http

import (
	"context"
	"net/http"
)

// AsyncClient starts every request on its own goroutine and hands back a
// Call. Responses carry only StatusCode and Body: headers and cookies are
// not returned in this mode.
type AsyncClient struct {
	base
}

// NewAsyncClient creates a non-blocking client. Without WithTransport it uses
// a ScopedTransport, so each call gets its own connection pool.
func NewAsyncClient(endpoint *Endpoint, opts ...ClientOption) *AsyncClient {
	c := &AsyncClient{base: newBase(endpoint, opts)}
	if c.transport == nil {
		c.transport = NewScopedTransport()
	}
	return c
}

// Call is the handle of an in-flight request.
type Call struct {
	Request *Request

	done chan struct{}
	resp *Response
	err  error
}

// Done is closed once the call has finished.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call finishes. A cancelled context surfaces as an
// error wrapping context.Canceled.
func (c *Call) Wait() (*Response, error) {
	<-c.done
	return c.resp, c.err
}

func failedCall(err error) *Call {
	done := make(chan struct{})
	close(done)
	return &Call{done: done, err: err}
}

// Request logs the outbound line, starts the call and returns immediately.
// The inbound line is logged when the response arrives.
func (c *AsyncClient) Request(ctx context.Context, method, path string, opts ...RequestOption) *Call {
	req, err := c.NewRequest(method, path, opts...)
	if err != nil {
		return failedCall(err)
	}

	call := &Call{Request: req, done: make(chan struct{})}
	c.logOutbound(req)

	go func() {
		defer close(call.done)

		resp, err := c.transport.Send(ctx, req)
		if err != nil {
			call.err = err
			return
		}

		call.resp = &Response{StatusCode: resp.StatusCode, Body: resp.Body}
		c.logInbound(req, call.resp)
	}()

	return call
}

func (c *AsyncClient) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, method, path, opts...).Wait()
}

// Get never sends a body, even if one was supplied.
func (c *AsyncClient) Get(ctx context.Context, path string, opts ...RequestOption) *Call {
	return c.Request(ctx, http.MethodGet, path, append(opts[:len(opts):len(opts)], withoutBody())...)
}

func (c *AsyncClient) Post(ctx context.Context, path string, opts ...RequestOption) *Call {
	return c.Request(ctx, http.MethodPost, path, opts...)
}

func (c *AsyncClient) Put(ctx context.Context, path string, opts ...RequestOption) *Call {
	return c.Request(ctx, http.MethodPut, path, opts...)
}

func (c *AsyncClient) Patch(ctx context.Context, path string, opts ...RequestOption) *Call {
	return c.Request(ctx, http.MethodPatch, path, opts...)
}

func (c *AsyncClient) Delete(ctx context.Context, path string, opts ...RequestOption) *Call {
	return c.Request(ctx, http.MethodDelete, path, opts...)
}
