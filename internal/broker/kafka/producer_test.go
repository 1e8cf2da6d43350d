package kafka

import (
	"context"
	"testing"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func TestProducer_Publish_WithoutIDHasNoHeader(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "shipment.changed", messages.Envelope{Key: []byte("owner-1"), Value: []byte(`{}`)}))
	require.Len(t, fw.last, 1)
	require.Equal(t, []byte("owner-1"), fw.last[0].Key)
	require.Empty(t, fw.last[0].Headers)
}

func TestProducer_CloseWithoutCloser(t *testing.T) {
	p := newProducerWithWriter(&fakeWriter{})
	require.NoError(t, p.Close())
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
	require.NoError(t, p.Close())
}
