// Package events turns shipment lifecycle changes into broker messages.
package events

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultTopic = "shipment.changed"

// Transport is satisfied by both the kafka and the rabbit publisher.
type Transport interface {
	Publish(ctx context.Context, topic string, env messages.Envelope) error
}

type Publisher struct {
	t     Transport
	topic string
}

func NewPublisher(t Transport, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{t: t, topic: topic}
}

// ShipmentChanged publishes m keyed by owner so one owner's events stay ordered.
func (p *Publisher) ShipmentChanged(ctx context.Context, m messages.ShipmentChanged) error {
	if m.EventID == "" {
		m.EventID = uuid.NewString()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal shipment event")
	}
	return p.t.Publish(ctx, p.topic, messages.Envelope{ID: m.EventID, Key: []byte(m.OwnerID), Value: b})
}

// Decode parses a message produced by ShipmentChanged.
func Decode(value []byte) (messages.ShipmentChanged, error) {
	var m messages.ShipmentChanged
	if err := json.Unmarshal(value, &m); err != nil {
		return messages.ShipmentChanged{}, errors.Wrap(err, "decode shipment event")
	}
	if m.ShipmentID == "" || m.Action == "" {
		return messages.ShipmentChanged{}, errors.New("shipment event without shipment_id or action")
	}
	return m, nil
}
