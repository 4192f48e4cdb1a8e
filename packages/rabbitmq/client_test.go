package rabbitmq

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	closed     bool
	closeCalls int
	queues     map[string][]amqp.Delivery
	published  []amqp.Publishing
	keys       []string
	publishErr error
	gotAutoAck bool
}

func (f *fakeChannel) IsClosed() bool { return f.closed }

func (f *fakeChannel) Get(queue string, autoAck bool) (amqp.Delivery, bool, error) {
	f.gotAutoAck = autoAck
	pending := f.queues[queue]
	if len(pending) == 0 {
		return amqp.Delivery{}, false, nil
	}
	f.queues[queue] = pending[1:]
	return pending[0], true, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closeCalls++
	f.closed = true
	return nil
}

type fakeConnection struct {
	next     func() *fakeChannel
	opened   []*fakeChannel
	closed   bool
	closeErr error
}

func (f *fakeConnection) Channel() (Channel, error) {
	ch := &fakeChannel{queues: map[string][]amqp.Delivery{}}
	if f.next != nil {
		ch = f.next()
	}
	f.opened = append(f.opened, ch)
	return ch, nil
}

func (f *fakeConnection) IsClosed() bool { return f.closed }

func (f *fakeConnection) Close() error {
	f.closed = true
	return f.closeErr
}

func newTestClient(t *testing.T, conn *fakeConnection, opts ...Option) (*Client, *string, *amqp.Config) {
	t.Helper()
	var url string
	var cfg amqp.Config
	dialer := func(u string, c amqp.Config) (Connection, error) {
		url = u
		cfg = c
		return conn, nil
	}
	client, err := New(Config{Host: "rabbit.local"}, append([]Option{WithDialer(dialer)}, opts...)...)
	require.NoError(t, err)
	return client, &url, &cfg
}

func TestNew_Defaults(t *testing.T) {
	client, url, cfg := newTestClient(t, &fakeConnection{})

	got := client.Config()
	assert.Equal(t, DefaultPort, got.Port)
	assert.Equal(t, "/", got.VirtualHost)
	assert.Equal(t, "amqp", got.Scheme)
	assert.Equal(t, "guest", got.Username)
	assert.Equal(t, "guest", got.Password)
	assert.Equal(t, DefaultConnectTimeout, got.ConnectTimeout)

	uri, err := amqp.ParseURI(*url)
	require.NoError(t, err)
	assert.Equal(t, "rabbit.local", uri.Host)
	assert.Equal(t, 5672, uri.Port)
	assert.Equal(t, "/", uri.Vhost)
	assert.Equal(t, "/", cfg.Vhost)
	assert.NotNil(t, cfg.Dial)
}

func TestConfig_URL(t *testing.T) {
	cfg := Config{
		Host:        "broker",
		Port:        5673,
		VirtualHost: "staging",
		Username:    "qa",
		Password:    "secret",
	}.withDefaults()

	uri, err := amqp.ParseURI(cfg.URL())
	require.NoError(t, err)
	assert.Equal(t, "broker", uri.Host)
	assert.Equal(t, 5673, uri.Port)
	assert.Equal(t, "staging", uri.Vhost)
	assert.Equal(t, "qa", uri.Username)
	assert.Equal(t, "secret", uri.Password)
}

func TestNew_DialFailure(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := New(Config{Host: "nowhere"}, WithDialer(func(string, amqp.Config) (Connection, error) {
		return nil, boom
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestGet_ReturnsDelivery(t *testing.T) {
	client, _, _ := newTestClient(t, &fakeConnection{})
	ch := &fakeChannel{queues: map[string][]amqp.Delivery{
		"orders": {{
			DeliveryTag:   7,
			RoutingKey:    "orders",
			MessageCount:  2,
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: "abc",
			Body:          []byte(`{"id":1}`),
		}},
	}}

	d, err := client.Get(ch, "orders")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []byte(`{"id":1}`), d.Body)
	assert.Equal(t, uint64(7), d.Metadata.DeliveryTag)
	assert.Equal(t, uint32(2), d.Metadata.MessageCount)
	assert.Equal(t, "orders", d.Metadata.RoutingKey)
	assert.Equal(t, "application/json", d.Properties.ContentType)
	assert.Equal(t, Persistent, d.Properties.DeliveryMode)
	assert.Equal(t, "abc", d.Properties.CorrelationID)
	assert.False(t, ch.gotAutoAck)
}

func TestGet_EmptyQueue(t *testing.T) {
	client, _, _ := newTestClient(t, &fakeConnection{})
	ch := &fakeChannel{queues: map[string][]amqp.Delivery{}}

	d, err := client.Get(ch, "empty")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestGet_AutoAck(t *testing.T) {
	client, _, _ := newTestClient(t, &fakeConnection{}, WithAutoAck(true))
	ch := &fakeChannel{queues: map[string][]amqp.Delivery{}}

	_, err := client.Get(ch, "q")
	require.NoError(t, err)
	assert.True(t, ch.gotAutoAck)
}

func TestGet_ClosedChannel(t *testing.T) {
	client, _, _ := newTestClient(t, &fakeConnection{})

	_, err := client.Get(&fakeChannel{closed: true}, "q")
	assert.ErrorIs(t, err, ErrChannelClosed)

	_, err = client.Get(nil, "q")
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestPublish_Defaults(t *testing.T) {
	conn := &fakeConnection{}
	client, _, _ := newTestClient(t, conn)

	err := client.Publish(context.Background(), "orders", []byte("hello"))
	require.NoError(t, err)

	require.Len(t, conn.opened, 1)
	ch := conn.opened[0]
	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"/orders"}, ch.keys)
	assert.Equal(t, "application/octet-stream", ch.published[0].ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.published[0].DeliveryMode)
	assert.Equal(t, []byte("hello"), ch.published[0].Body)
	assert.Equal(t, 1, ch.closeCalls)
}

func TestPublish_Options(t *testing.T) {
	conn := &fakeConnection{}
	client, _, _ := newTestClient(t, conn)

	err := client.Publish(context.Background(), "events", []byte(`{}`),
		WithContentType("application/json"),
		WithDeliveryMode(Transient),
	)
	require.NoError(t, err)

	msg := conn.opened[0].published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, uint8(amqp.Transient), msg.DeliveryMode)
}

func TestPublish_FreshChannelPerCall(t *testing.T) {
	conn := &fakeConnection{}
	client, _, _ := newTestClient(t, conn)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.Publish(context.Background(), "q", []byte("x")))
	}

	require.Len(t, conn.opened, 3)
	for _, ch := range conn.opened {
		assert.Len(t, ch.published, 1)
		assert.Equal(t, 1, ch.closeCalls)
	}
}

func TestPublish_ClosedChannel(t *testing.T) {
	conn := &fakeConnection{next: func() *fakeChannel {
		return &fakeChannel{closed: true}
	}}
	client, _, _ := newTestClient(t, conn)

	err := client.Publish(context.Background(), "q", []byte("x"))
	assert.ErrorIs(t, err, ErrChannelClosed)

	ch := conn.opened[0]
	assert.Empty(t, ch.published)
	assert.Equal(t, 1, ch.closeCalls)
}

func TestPublish_ErrorStillClosesChannel(t *testing.T) {
	boom := errors.New("broker gone")
	conn := &fakeConnection{next: func() *fakeChannel {
		return &fakeChannel{publishErr: boom}
	}}
	client, _, _ := newTestClient(t, conn)

	err := client.Publish(context.Background(), "q", []byte("x"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, conn.opened[0].closeCalls)
}

func TestClose(t *testing.T) {
	conn := &fakeConnection{}
	client, _, _ := newTestClient(t, conn)

	require.NoError(t, client.Close())
	assert.True(t, conn.closed)
	require.NoError(t, client.Close())

	_, err := client.Channel()
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.Publish(context.Background(), "q", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClose_AlreadyClosedByBroker(t *testing.T) {
	conn := &fakeConnection{closeErr: amqp.ErrClosed}
	client, _, _ := newTestClient(t, conn)

	assert.NoError(t, client.Close())
}

func TestConnect_Logs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client, _, _ := newTestClient(t, &fakeConnection{}, WithLogger(logger))
	require.NoError(t, client.Connect(time.Second))

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Creating connection to 'rabbit.local' ...")
	assert.Contains(t, messages, "Connected")
}

func TestDeliveryMode_String(t *testing.T) {
	assert.Equal(t, "transient", Transient.String())
	assert.Equal(t, "persistent", Persistent.String())
	assert.Equal(t, "transient", DeliveryMode(0).String())
	assert.Equal(t, uint8(amqp.Persistent), uint8(Persistent))
}

func TestConnect_ZeroTimeoutUsesDefault(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("A"))
		time.Sleep(100 * time.Millisecond)
	}()

	client, _, cfg := newTestClient(t, &fakeConnection{})
	require.NoError(t, client.Connect(0))

	conn, err := cfg.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.NoError(t, err, "a zero timeout must not expire the handshake deadline at once")
	assert.Equal(t, "A", string(buf))
}
