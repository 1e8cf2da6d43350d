package kafka

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// EventIDHeader carries Envelope.ID, kafka has no message id of its own.
const EventIDHeader = "event_id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

// Publish writes one event. Events with the same key land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic string, env messages.Envelope) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   env.Key,
		Value: env.Value,
	}
	if env.ID != "" {
		msg.Headers = []kafka.Header{{Key: EventIDHeader, Value: []byte(env.ID)}}
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

func (p *Producer) Close() error {
	if c, ok := p.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
