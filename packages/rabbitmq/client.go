package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/qakit/packages/log"
)

const (
	DefaultPort           = 5672
	DefaultVirtualHost    = "/"
	DefaultScheme         = "amqp"
	DefaultUsername       = "guest"
	DefaultPassword       = "guest"
	DefaultConnectTimeout = 30 * time.Second
	DefaultContentType    = "application/octet-stream"
)

var (
	// ErrChannelClosed is returned when Get or Publish find the channel closed.
	ErrChannelClosed = errors.New("rabbitmq: channel is closed")
	// ErrNotConnected is returned when a channel is requested after Close.
	ErrNotConnected = errors.New("rabbitmq: not connected")
)

// DeliveryMode mirrors the AMQP delivery-mode property.
type DeliveryMode uint8

const (
	Transient  = DeliveryMode(amqp.Transient)
	Persistent = DeliveryMode(amqp.Persistent)
)

// String reports "persistent" for Persistent only. Zero, the mode of
// messages published without the property, is transient.
func (m DeliveryMode) String() string {
	if m == Persistent {
		return "persistent"
	}
	return "transient"
}

// Channel is the subset of *amqp.Channel the client uses.
type Channel interface {
	IsClosed() bool
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection is the subset of *amqp.Connection the client uses.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(url string, cfg amqp.Config) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DialAMQP is the default Dialer.
func DialAMQP(url string, cfg amqp.Config) (Connection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// Config describes the broker to connect to.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	VirtualHost    string        `yaml:"vhost"`
	Scheme         string        `yaml:"scheme"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// DefaultConfig returns the guest@host:5672/ configuration.
func DefaultConfig(host string) Config {
	return Config{
		Host:           host,
		Port:           DefaultPort,
		VirtualHost:    DefaultVirtualHost,
		Scheme:         DefaultScheme,
		Username:       DefaultUsername,
		Password:       DefaultPassword,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Host)
	if c.Port != 0 {
		d.Port = c.Port
	}
	if c.VirtualHost != "" {
		d.VirtualHost = c.VirtualHost
	}
	if c.Scheme != "" {
		d.Scheme = c.Scheme
	}
	if c.Username != "" {
		d.Username = c.Username
	}
	if c.Password != "" {
		d.Password = c.Password
	}
	if c.ConnectTimeout > 0 {
		d.ConnectTimeout = c.ConnectTimeout
	}
	return d
}

// URL renders the configuration as an AMQP URI.
func (c Config) URL() string {
	return amqp.URI{
		Scheme:   c.Scheme,
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Vhost:    c.VirtualHost,
	}.String()
}

// Client holds one broker connection.
type Client struct {
	cfg     Config
	dial    Dialer
	logger  logrus.FieldLogger
	autoAck bool
	conn    Connection
}

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dial = d
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithAutoAck makes Get acknowledge messages as they are fetched. By default
// fetched messages stay unacknowledged.
func WithAutoAck(autoAck bool) Option {
	return func(c *Client) {
		c.autoAck = autoAck
	}
}

// New creates a client and connects it. Zero fields of cfg take their
// defaults.
func New(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:  cfg.withDefaults(),
		dial: DialAMQP,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Nop()
	}

	if err := c.Connect(c.cfg.ConnectTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Config() Config {
	return c.cfg
}

// Connect opens a new connection, replacing any previous one. A timeout of
// zero or less means DefaultConnectTimeout.
func (c *Client) Connect(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	c.logger.Debugf("Creating connection to '%s' ...", c.cfg.Host)

	conn, err := c.dial(c.cfg.URL(), amqp.Config{
		Vhost: c.cfg.VirtualHost,
		Dial:  amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.Host, err)
	}
	c.conn = conn

	c.logger.Debug("Connected")
	return nil
}

// Channel opens a new channel on the current connection.
func (c *Client) Channel() (Channel, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	c.logger.Debug("Creating channel")
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c.logger.Debug("Created")

	return ch, nil
}

// Close closes the connection. Calling it twice is harmless.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	c.logger.Debug("Closing rabbitmq connection ...")
	err := c.conn.Close()
	c.conn = nil
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close connection: %w", err)
	}
	c.logger.Debug("Closed")

	return nil
}
