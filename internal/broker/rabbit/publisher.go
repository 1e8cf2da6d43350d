package rabbit

import (
	"context"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// KeyHeader carries Envelope.Key; routing uses the topic instead.
const KeyHeader = "event_key"

// Publisher sends messages to a topic exchange; the topic becomes the routing key.
type Publisher struct {
	conn     *amqp.Connection
	ch       publishChannel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
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
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newPublisherWithChannel(ch publishChannel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish sends env with its ID as the AMQP message id.
func (p *Publisher) Publish(ctx context.Context, topic string, env messages.Envelope) error {
	err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Headers:      amqp.Table{KeyHeader: string(env.Key)},
		Timestamp:    time.Now().UTC(),
		Body:         env.Value,
	})
	if err != nil {
		return errors.Wrap(err, "rabbit publish")
	}
	return nil
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
