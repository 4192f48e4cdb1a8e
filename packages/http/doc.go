// Package http provides the blocking and non-blocking HTTP clients used by
// qakit automation code.
//
// Both clients share an Endpoint (scheme, host, port, default headers) and
// build the same Request descriptor; they differ only in how the call runs:
//   - Client executes on the calling goroutine and returns status, body,
//     headers and cookies
//   - AsyncClient starts the call on its own goroutine, returns a Call
//     handle and yields status and body only
//
// Neither client interprets status codes, retries, or wraps transport errors.
// Callers that want status-based failures use ExpectStatus and ClientError.
package http
