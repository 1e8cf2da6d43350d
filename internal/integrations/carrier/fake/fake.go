package fake

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/models"
)

// FakeClient answers without network access. The status is derived from a hash of
// (carrier, tracking number), so the same input always yields the same answer.
// Numbers starting with "ERR" fail with a lookup error.
type FakeClient struct {
	now func() time.Time
}

func New() *FakeClient { return &FakeClient{now: time.Now} }

var fakeStatuses = []models.ShipmentStatus{
	models.StatusInTransit,
	models.StatusInTransit,
	models.StatusOutForDelivery,
	models.StatusInfoReceived,
	models.StatusDelivered,
}

func (f *FakeClient) FetchStatus(ctx context.Context, trackingNumber, carrierCode string) (models.StatusUpdate, error) {
	if err := ctx.Err(); err != nil {
		return models.StatusUpdate{}, carrier.NewLookupError("lookup cancelled", err)
	}
	if strings.HasPrefix(trackingNumber, "ERR") {
		return models.StatusUpdate{}, carrier.NewLookupError("Tracking number not found in system.", nil)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(carrierCode))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(trackingNumber))
	status := fakeStatuses[h.Sum32()%uint32(len(fakeStatuses))]

	now := f.now().UTC()
	ts := now.Format(time.RFC3339)
	return models.StatusUpdate{
		Status:      status,
		LastUpdate:  ts,
		Description: "fake carrier update",
		Events: []models.TrackingEvent{
			{Date: ts, Status: string(status), Detail: "fake carrier update", Location: "Shenzhen"},
		},
	}, nil
}
