package rabbit

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

type consumeChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type Consumer struct {
	conn  *amqp.Connection
	ch    consumeChannel
	queue string
}

// NewConsumer declares a durable queue bound to topic on exchange.
func NewConsumer(url, exchange, queue, topic string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "rabbit dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbit channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbit declare exchange")
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbit declare queue")
	}
	if err := ch.QueueBind(q.Name, topic, exchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbit bind queue")
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name}, nil
}

func newConsumerWithChannel(ch consumeChannel, queue string) *Consumer {
	return &Consumer{ch: ch, queue: queue}
}

// Consume acks a delivery after handler succeeded. A handler error requeues the
// delivery and stops consumption, like the kafka consumer.
func (c *Consumer) Consume(ctx context.Context, handler func(messages.Envelope) error) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "rabbit consume")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbit deliveries channel closed")
			}
			if err := handler(toEnvelope(d)); err != nil {
				_ = d.Nack(false, true)
				return err
			}
			if err := d.Ack(false); err != nil {
				return errors.Wrap(err, "rabbit ack")
			}
		}
	}
}

func toEnvelope(d amqp.Delivery) messages.Envelope {
	env := messages.Envelope{ID: d.MessageId, Value: d.Body}
	if k, ok := d.Headers[KeyHeader].(string); ok {
		env.Key = []byte(k)
	}
	return env
}

func (c *Consumer) Close() error {
	err := c.ch.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
