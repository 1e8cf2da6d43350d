package kafka

import (
	"context"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads shipment events from one topic within a consumer group.
type Consumer struct {
	r messageReader
}

// NewConsumer joins groupID on topic. Without a group it reads the topic
// directly from the first partition.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{r: kafka.NewReader(cfg)}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume hands every event to handler and commits its offset once handler
// returned nil. A handler error stops consumption with the offset uncommitted.
func (c *Consumer) Consume(ctx context.Context, handler func(messages.Envelope) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}
		if err := handler(toEnvelope(msg)); err != nil {
			return errors.WithMessagef(err, "handle %s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}

func toEnvelope(msg kafka.Message) messages.Envelope {
	env := messages.Envelope{Key: msg.Key, Value: msg.Value}
	for _, h := range msg.Headers {
		if h.Key == EventIDHeader {
			env.ID = string(h.Value)
		}
	}
	return env
}
