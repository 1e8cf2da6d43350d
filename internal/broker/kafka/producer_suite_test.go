package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/events"
	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

// ShipmentEventsSuite drives the producer through events.Publisher the way the
// shipment manager does.
type ShipmentEventsSuite struct {
	suite.Suite
	wm  *writerMock
	pub *events.Publisher
}

func (s *ShipmentEventsSuite) SetupTest() {
	s.wm = &writerMock{}
	s.pub = events.NewPublisher(newProducerWithWriter(s.wm), "")
}

func (s *ShipmentEventsSuite) event(owner, shipment string) messages.ShipmentChanged {
	return messages.ShipmentChanged{
		Action:         messages.ActionTrashed,
		OwnerID:        owner,
		ShipmentID:     shipment,
		TrackingNumber: "YT100",
		CarrierCode:    "yto",
		Status:         "in_transit",
		OccurredAt:     time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *ShipmentEventsSuite) TestKeyedByOwnerWithEventIDHeader() {
	var written kafka.Message
	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1
		})).
		Run(func(args mock.Arguments) { written = args.Get(1).([]kafka.Message)[0] }).
		Return(nil).
		Once()

	s.Require().NoError(s.pub.ShipmentChanged(context.Background(), s.event("owner-7", "sh-1")))
	s.wm.AssertExpectations(s.T())

	s.Equal(events.DefaultTopic, written.Topic)
	s.Equal("owner-7", string(written.Key))
	s.Require().Len(written.Headers, 1)
	s.Equal(EventIDHeader, written.Headers[0].Key)

	got, err := events.Decode(written.Value)
	s.Require().NoError(err)
	s.Equal(string(written.Headers[0].Value), got.EventID)
	s.Equal("sh-1", got.ShipmentID)
	s.Equal(messages.ActionTrashed, got.Action)
}

func (s *ShipmentEventsSuite) TestEventIDsDifferWithinOneOwner() {
	var ids []string
	s.wm.
		On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			msg := args.Get(1).([]kafka.Message)[0]
			ids = append(ids, string(msg.Headers[0].Value))
		}).
		Return(nil).
		Twice()

	s.Require().NoError(s.pub.ShipmentChanged(context.Background(), s.event("owner-7", "sh-1")))
	s.Require().NoError(s.pub.ShipmentChanged(context.Background(), s.event("owner-7", "sh-2")))
	s.Require().Len(ids, 2)
	s.NotEqual(ids[0], ids[1])
}

func (s *ShipmentEventsSuite) TestWriteErrorWrapped() {
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()

	err := s.pub.ShipmentChanged(context.Background(), s.event("owner-7", "sh-1"))
	s.Require().ErrorContains(err, "kafka publish")
	s.Require().ErrorContains(err, "leader not available")
}

func TestShipmentEventsSuite(t *testing.T) {
	suite.Run(t, new(ShipmentEventsSuite))
}
