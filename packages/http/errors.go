package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
)

// ClientError is the error callers raise when a returned status is not one
// they expected. The clients themselves never return it.
type ClientError struct {
	Code    int
	Content []byte
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("http client error (code=%d, content=%s)", e.Code, e.Content)
}

// ExpectStatus returns a *ClientError carrying the response status and body
// when the status is not among expected.
func ExpectStatus(resp *Response, expected ...int) error {
	if slices.Contains(expected, resp.StatusCode) {
		return nil
	}
	return &ClientError{Code: resp.StatusCode, Content: resp.Body}
}

// AsClientError reports whether err is or wraps a *ClientError.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsTimeout reports whether a transport error was caused by a timeout,
// either the per-call deadline or a network-level one.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
