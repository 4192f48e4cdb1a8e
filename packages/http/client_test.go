package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/qakit/packages/log"
)

// endpointFor points an Endpoint at a test server.
func endpointFor(t *testing.T, server *httptest.Server, opts ...EndpointOption) *Endpoint {
	t.Helper()

	u, err := neturl.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return NewEndpoint(u.Hostname(), append([]EndpointOption{WithPort(port), WithScheme(u.Scheme)}, opts...)...)
}

func statusServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.Header().Set("Content-Type", "application/json")
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/items":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("X-Content-Type-Seen", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClient_Get(t *testing.T) {
	server := statusServer()
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	resp, err := client.Get(context.Background(), "/status")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []byte(`{"ok":true}`), resp.Body)
	assert.Equal(t, "application/json", resp.Header.Get("content-type"))
	require.NotNil(t, resp.Cookie("session"))
	assert.Equal(t, "s1", resp.Cookie("session").Value)
	assert.True(t, resp.JSON("ok").Bool())
}

func TestClient_PostUsesDefaultContentType(t *testing.T) {
	server := statusServer()
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	resp, err := client.Post(context.Background(), "/items", WithBody([]byte(`{"name":"x"}`)))

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, []byte(`{"name":"x"}`), resp.Body)
	assert.Equal(t, "application/json", resp.Header.Get("X-Content-Type-Seen"))
}

func TestClient_Verbs(t *testing.T) {
	var gotMethod string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	ctx := context.Background()
	body := WithBody([]byte("payload"))

	calls := map[string]func() (*Response, error){
		"GET":    func() (*Response, error) { return client.Get(ctx, "/", body) },
		"POST":   func() (*Response, error) { return client.Post(ctx, "/", body) },
		"PUT":    func() (*Response, error) { return client.Put(ctx, "/", body) },
		"PATCH":  func() (*Response, error) { return client.Patch(ctx, "/", body) },
		"DELETE": func() (*Response, error) { return client.Delete(ctx, "/", body) },
	}

	for method, call := range calls {
		t.Run(method, func(t *testing.T) {
			resp, err := call()
			require.NoError(t, err)
			assert.Equal(t, 204, resp.StatusCode)
			assert.Equal(t, method, gotMethod)
			if method == "GET" {
				assert.Empty(t, gotBody)
			} else {
				assert.Equal(t, "payload", string(gotBody))
			}
		})
	}
}

func TestClient_CallerHeadersReplaceDefaults(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(endpointFor(t, server))

	_, err := client.Get(context.Background(), "/", WithHeaders(http.Header{"X-Token": {"t"}}))
	require.NoError(t, err)
	assert.Equal(t, "t", got.Get("X-Token"))
	assert.Empty(t, got.Get("Accept"))
	assert.Empty(t, got.Get("Content-Type"))

	_, err = client.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Empty(t, got.Get("X-Token"))
}

func hostEchoServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Host))
	}))
}

func TestClient_HostHeaderSent(t *testing.T) {
	server := hostEchoServer()
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	resp, err := client.Get(context.Background(), "/", WithHeaders(http.Header{"Host": {"api.example.test"}}))

	require.NoError(t, err)
	assert.Equal(t, "api.example.test", resp.BodyString())
}

func TestClient_HostHeaderFromEndpointDefaults(t *testing.T) {
	server := hostEchoServer()
	defer server.Close()

	headers := DefaultHeaders()
	headers.Set("Host", "virtual.example.test")
	client := NewClient(endpointFor(t, server, WithDefaultHeaders(headers)))
	resp, err := client.Get(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, "virtual.example.test", resp.BodyString())
}

func TestClient_HeadersReplacedOnEndpoint(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	client.SetHeaders(http.Header{"Authorization": {"Bearer x"}})

	_, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "Bearer x", got.Get("Authorization"))
	assert.Empty(t, got.Get("Accept"))
}

func TestClient_QueryPassedThrough(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
	}))
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	_, err := client.Get(context.Background(), "/search", WithQuery("q=a%20b&tag=x"))

	require.NoError(t, err)
	assert.Equal(t, "q=a%20b&tag=x", rawQuery)
}

func redirectServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			_, _ = w.Write([]byte("final"))
			return
		}
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
}

func TestClient_FollowRedirects(t *testing.T) {
	server := redirectServer()
	defer server.Close()

	client := NewClient(endpointFor(t, server))

	resp, err := client.Get(context.Background(), "/start")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "final", resp.BodyString())

	resp, err = client.Get(context.Background(), "/start", WithFollowRedirects(false))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/final", resp.Header.Get("Location"))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	resp, err := client.Get(context.Background(), "/", WithTimeout(50*time.Millisecond))

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := endpointFor(t, server)
	server.Close()

	client := NewClient(endpoint)
	resp, err := client.Get(context.Background(), "/")

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.False(t, IsTimeout(err))

	var urlErr *neturl.Error
	assert.ErrorAs(t, err, &urlErr)
}

func TestClient_RejectsSelfSignedCertificate(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	_, err := client.Get(context.Background(), "/")
	assert.Error(t, err)
}

func TestClient_StatusNotInterpreted(t *testing.T) {
	server := statusServer()
	defer server.Close()

	client := NewClient(endpointFor(t, server))
	resp, err := client.Get(context.Background(), "/missing")

	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.True(t, resp.IsClientError())
}

func TestClient_DiagnosticLines(t *testing.T) {
	server := statusServer()
	defer server.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client := NewClient(endpointFor(t, server), WithLogger(logger))
	_, err := client.Post(context.Background(), "/items",
		WithBody([]byte(`{"name":"x"}`)),
		WithCorrelationID("req-42"),
	)
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)

	out, in := entries[0], entries[1]
	assert.Equal(t, logrus.DebugLevel, out.Level)
	assert.Regexp(t, `^---> \[req-42\] HTTP POST http://127\.0\.0\.1:\d+/items \{"name":"x"\}$`, out.Message)
	assert.Equal(t, log.Outbound, out.Data[log.DirectionKey])
	assert.Equal(t, "req-42", out.Data[log.CorrelationIDKey])

	assert.Regexp(t, `^<--- \[req-42\] HTTP POST http://127\.0\.0\.1:\d+/items code=201 data=\{"name":"x"\}$`, in.Message)
	assert.Equal(t, log.Inbound, in.Data[log.DirectionKey])
	assert.Equal(t, 201, in.Data[log.StatusKey])
}

func TestClient_DiagnosticLinesWithoutCorrelationID(t *testing.T) {
	server := statusServer()
	defer server.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client := NewClient(endpointFor(t, server), WithLogger(logger))
	_, err := client.Get(context.Background(), "/status")
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 2)
	assert.Regexp(t, `^---> HTTP GET \S+/status $`, hook.AllEntries()[0].Message)
	_, tagged := hook.AllEntries()[0].Data[log.CorrelationIDKey]
	assert.False(t, tagged)
}

type panickingHook struct{}

func (panickingHook) Levels() []logrus.Level { return logrus.AllLevels }

func (panickingHook) Fire(*logrus.Entry) error { panic("sink failure") }

func TestClient_LoggingFailureDoesNotAffectRequest(t *testing.T) {
	server := statusServer()
	defer server.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(panickingHook{})

	client := NewClient(endpointFor(t, server), WithLogger(logger))
	resp, err := client.Get(context.Background(), "/status")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

type stubTransport struct {
	resp *Response
	err  error
	got  *Request
}

func (s *stubTransport) Send(_ context.Context, req *Request) (*Response, error) {
	s.got = req
	return s.resp, s.err
}

func TestClient_WithTransport(t *testing.T) {
	stub := &stubTransport{resp: &Response{StatusCode: 418, Body: []byte("teapot")}}
	client := NewClient(NewEndpoint("example.com"), WithTransport(stub))

	resp, err := client.Delete(context.Background(), "/pot", WithCorrelationID("c"))
	require.NoError(t, err)
	assert.Equal(t, 418, resp.StatusCode)
	assert.Equal(t, "DELETE", stub.got.Method)
	assert.Equal(t, "http://example.com:80/pot", stub.got.URL)
	assert.Equal(t, "c", stub.got.CorrelationID)
}

func TestClient_TransportErrorUnchanged(t *testing.T) {
	sentinel := &neturl.Error{Op: "Get", URL: "http://x", Err: io.ErrUnexpectedEOF}
	client := NewClient(NewEndpoint("example.com"), WithTransport(&stubTransport{err: sentinel}))

	resp, err := client.Get(context.Background(), "/")
	assert.Nil(t, resp)
	assert.Same(t, sentinel, err)
}

func TestClient_ExposesEndpoint(t *testing.T) {
	client := NewClient(NewEndpoint("svc.internal", WithPort(9000)))
	assert.Equal(t, "svc.internal", client.Host())
	assert.Equal(t, 9000, client.Port())
	assert.Equal(t, "application/json", client.Headers().Get("Accept"))
}
