package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is one message to publish to the default exchange.
type Message struct {
	Queue        string
	Body         []byte
	ContentType  string
	DeliveryMode DeliveryMode
}

type MessageOption func(*Message)

func WithContentType(contentType string) MessageOption {
	return func(m *Message) {
		m.ContentType = contentType
	}
}

func WithDeliveryMode(mode DeliveryMode) MessageOption {
	return func(m *Message) {
		m.DeliveryMode = mode
	}
}

// NewMessage builds a persistent application/octet-stream message.
func NewMessage(queue string, body []byte, opts ...MessageOption) Message {
	m := Message{
		Queue:        queue,
		Body:         body,
		ContentType:  DefaultContentType,
		DeliveryMode: Persistent,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Metadata is the basic.get-ok part of a fetched message.
type Metadata struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

// Properties are the basic properties of a fetched message.
type Properties struct {
	ContentType     string
	ContentEncoding string
	DeliveryMode    DeliveryMode
	CorrelationID   string
	ReplyTo         string
	MessageID       string
	Type            string
	Timestamp       time.Time
	Headers         amqp.Table
}

// Delivery is a message fetched with Get.
type Delivery struct {
	Metadata   Metadata
	Properties Properties
	Body       []byte
}

func newDelivery(d amqp.Delivery) *Delivery {
	return &Delivery{
		Metadata: Metadata{
			DeliveryTag:  d.DeliveryTag,
			Redelivered:  d.Redelivered,
			Exchange:     d.Exchange,
			RoutingKey:   d.RoutingKey,
			MessageCount: d.MessageCount,
		},
		Properties: Properties{
			ContentType:     d.ContentType,
			ContentEncoding: d.ContentEncoding,
			DeliveryMode:    DeliveryMode(d.DeliveryMode),
			CorrelationID:   d.CorrelationId,
			ReplyTo:         d.ReplyTo,
			MessageID:       d.MessageId,
			Type:            d.Type,
			Timestamp:       d.Timestamp,
			Headers:         d.Headers,
		},
		Body: d.Body,
	}
}

// Get fetches one message from queue without waiting. An empty queue yields
// a nil Delivery and a nil error.
func (c *Client) Get(ch Channel, queue string) (*Delivery, error) {
	if ch == nil || ch.IsClosed() {
		return nil, ErrChannelClosed
	}

	d, ok, err := ch.Get(queue, c.autoAck)
	if err != nil {
		return nil, fmt.Errorf("get from %s: %w", queue, err)
	}
	if !ok {
		return nil, nil
	}
	return newDelivery(d), nil
}

// Publish sends body to queue through the default exchange on a channel
// opened for this call only.
func (c *Client) Publish(ctx context.Context, queue string, body []byte, opts ...MessageOption) error {
	return c.PublishMessage(ctx, NewMessage(queue, body, opts...))
}

func (c *Client) PublishMessage(ctx context.Context, msg Message) (err error) {
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil && err == nil && !errors.Is(cerr, amqp.ErrClosed) {
			err = fmt.Errorf("close channel: %w", cerr)
		}
	}()

	if ch.IsClosed() {
		return ErrChannelClosed
	}

	err = ch.PublishWithContext(ctx, "", msg.Queue, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: uint8(msg.DeliveryMode),
		Body:         msg.Body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Queue, err)
	}

	c.logger.Debugf("Published %d bytes to '%s'", len(msg.Body), msg.Queue)
	return nil
}
