package trackingmore

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
)

const (
	codeOK            = 200
	codeAlreadyExists = 4016
)

type meta struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type checkpoint struct {
	CheckpointDate           string `json:"checkpoint_date"`
	CheckpointDeliveryStatus string `json:"checkpoint_delivery_status"`
	TrackingDetail           string `json:"tracking_detail"`
	Location                 string `json:"location"`
}

type trackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	CarrierCode    string `json:"carrier_code"`
}

// realtimeResponse is the body of POST /trackings/realtime.
type realtimeResponse struct {
	Meta meta          `json:"meta"`
	Data *realtimeData `json:"data"`
}

type realtimeData struct {
	DeliveryStatus string       `json:"delivery_status"`
	UpdatedAt      string       `json:"updated_at"`
	LatestEvent    string       `json:"latest_event"`
	Items          []checkpoint `json:"items"`
}

// envelope is used for create and error bodies where only meta matters.
type envelope struct {
	Meta meta `json:"meta"`
}

// getResponse is the body of GET /trackings/get. Data is an array on success but
// the provider sends an object or null on some errors, so it is decoded lazily.
type getResponse struct {
	Meta meta            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

type trackInfo struct {
	Trackinfo []checkpoint `json:"trackinfo"`
}

type trackingRecord struct {
	TrackingNumber  string     `json:"tracking_number"`
	CarrierCode     string     `json:"carrier_code"`
	DeliveryStatus  string     `json:"delivery_status"`
	UpdatedAt       string     `json:"updated_at"`
	LatestEvent     string     `json:"latest_event"`
	OriginInfo      *trackInfo `json:"origin_info"`
	DestinationInfo *trackInfo `json:"destination_info"`
}

func (r getResponse) records() []trackingRecord {
	if len(r.Data) == 0 {
		return nil
	}
	var out []trackingRecord
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return nil
	}
	return out
}

// checkpointSource says which nested list of a tracking record carries the events.
type checkpointSource int

const (
	sourceNone checkpointSource = iota
	sourceOrigin
	sourceDestination
)

func (s checkpointSource) String() string {
	switch s {
	case sourceOrigin:
		return "origin_info"
	case sourceDestination:
		return "destination_info"
	default:
		return "none"
	}
}

func (r trackingRecord) checkpoints() (checkpointSource, []checkpoint) {
	if r.OriginInfo != nil && len(r.OriginInfo.Trackinfo) > 0 {
		return sourceOrigin, r.OriginInfo.Trackinfo
	}
	if r.DestinationInfo != nil && len(r.DestinationInfo.Trackinfo) > 0 {
		return sourceDestination, r.DestinationInfo.Trackinfo
	}
	return sourceNone, nil
}

func pickRecord(recs []trackingRecord, carrierCode string) (trackingRecord, bool) {
	if len(recs) == 0 {
		return trackingRecord{}, false
	}
	for _, r := range recs {
		if r.CarrierCode == carrierCode {
			return r, true
		}
	}
	return recs[0], true
}

// MapStatus translates the provider delivery_status vocabulary.
func MapStatus(raw string) models.ShipmentStatus {
	switch raw {
	case "transit":
		return models.StatusInTransit
	case "pickup":
		return models.StatusOutForDelivery
	case "delivered":
		return models.StatusDelivered
	case "undelivered":
		return models.StatusDeliveryFailure
	case "exception":
		return models.StatusException
	case "expired":
		return models.StatusExpired
	case "info_received":
		return models.StatusInfoReceived
	case "notfound":
		return models.StatusPending
	default:
		return models.StatusPending
	}
}

var checkpointLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseCheckpointDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, l := range checkpointLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// toEvents converts checkpoints, newest first. Unparseable dates sink to the end.
func toEvents(cps []checkpoint) []models.TrackingEvent {
	out := make([]models.TrackingEvent, 0, len(cps))
	for _, c := range cps {
		out = append(out, models.TrackingEvent{
			Date:     c.CheckpointDate,
			Status:   c.CheckpointDeliveryStatus,
			Detail:   c.TrackingDetail,
			Location: c.Location,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return parseCheckpointDate(out[i].Date).After(parseCheckpointDate(out[j].Date))
	})
	return out
}

func toUpdate(deliveryStatus, updatedAt, latestEvent string, cps []checkpoint, now time.Time) models.StatusUpdate {
	upd := models.StatusUpdate{
		Status:      MapStatus(deliveryStatus),
		LastUpdate:  updatedAt,
		Description: latestEvent,
		Events:      toEvents(cps),
	}
	if upd.LastUpdate == "" {
		upd.LastUpdate = now.UTC().Format(time.RFC3339)
	}
	if upd.Description == "" {
		upd.Description = "Status: " + deliveryStatus
	}
	return upd
}
