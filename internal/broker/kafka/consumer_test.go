package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	err       error
	i         int
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.i < len(r.msgs) {
		m := r.msgs[r.i]
		r.i++
		return m, nil
	}
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	return kafka.Message{}, errors.New("eof")
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_Consume_HandsEnvelopeAndCommits(t *testing.T) {
	fr := &fakeReader{
		msgs: []kafka.Message{
			{Key: []byte("u1"), Value: []byte(`{"action":"added"}`), Headers: []kafka.Header{{Key: EventIDHeader, Value: []byte("ev-1")}}},
			{Key: []byte("u2"), Value: []byte(`{"action":"trashed"}`)},
		},
		err: errors.New("stop"),
	}
	c := newConsumerWithReader(fr)

	var got []messages.Envelope
	err := c.Consume(context.Background(), func(env messages.Envelope) error {
		got = append(got, env)
		return nil
	})
	require.ErrorContains(t, err, "stop")
	require.Equal(t, []messages.Envelope{
		{ID: "ev-1", Key: []byte("u1"), Value: []byte(`{"action":"added"}`)},
		{Key: []byte("u2"), Value: []byte(`{"action":"trashed"}`)},
	}, got)
	require.Len(t, fr.committed, 2)
}

func TestConsumer_Consume_HandlerErrorStopsWithoutCommit(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{{Topic: "shipment.changed", Partition: 2, Offset: 7, Value: []byte("v")}}}
	c := newConsumerWithReader(fr)

	want := errors.New("handler failed")
	err := c.Consume(context.Background(), func(messages.Envelope) error { return want })
	require.ErrorIs(t, err, want)
	require.ErrorContains(t, err, "shipment.changed/2@7")
	require.Empty(t, fr.committed)
}

func TestNewConsumer_Close(t *testing.T) {
	c := NewConsumer([]string{"localhost:0"}, "shipment.changed", "shiptrack-worker")
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}
