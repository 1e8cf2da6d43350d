package models

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentStatus is the normalized delivery status of a shipment.
type ShipmentStatus string

const (
	StatusPending         ShipmentStatus = "pending"
	StatusInfoReceived    ShipmentStatus = "info_received"
	StatusInTransit       ShipmentStatus = "in_transit"
	StatusOutForDelivery  ShipmentStatus = "out_for_delivery"
	StatusDelivered       ShipmentStatus = "delivered"
	StatusDeliveryFailure ShipmentStatus = "delivery_failure"
	StatusException       ShipmentStatus = "exception"
	StatusExpired         ShipmentStatus = "expired"
)

var AllStatuses = []ShipmentStatus{
	StatusPending,
	StatusInfoReceived,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusDeliveryFailure,
	StatusException,
	StatusExpired,
}

func (s ShipmentStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Final reports whether the carrier will not report further progress.
func (s ShipmentStatus) Final() bool {
	return s == StatusDelivered || s == StatusExpired
}

// DisplayPriority orders statuses for list views: problems first, finished last.
func (s ShipmentStatus) DisplayPriority() int {
	switch s {
	case StatusException:
		return 0
	case StatusInTransit:
		return 1
	case StatusPending:
		return 2
	case StatusDelivered:
		return 3
	default:
		return 4
	}
}

type TrackingEvent struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Detail   string `json:"detail"`
	Location string `json:"location"`
}

// Shipment is a tracked parcel. A nil DeletedAt means the record is active,
// otherwise it sits in the trash.
type Shipment struct {
	ID             string          `json:"id"`
	TrackingNumber string          `json:"trackingNumber"`
	CarrierCode    string          `json:"carrierCode"`
	Status         ShipmentStatus  `json:"status"`
	LastUpdate     string          `json:"lastUpdate"`
	Description    string          `json:"description"`
	Events         []TrackingEvent `json:"events"`
	AddedAt        time.Time       `json:"addedAt"`
	LastCheckedAt  *time.Time      `json:"lastCheckedAt,omitempty"`
	DeletedAt      *time.Time      `json:"deletedAt,omitempty"`

	// CheckFailCount counts lookups that failed since the last successful one.
	CheckFailCount int32      `json:"checkFailCount,omitempty"`
	LastFailedAt   *time.Time `json:"lastFailedAt,omitempty"`
}

func (s *Shipment) Active() bool  { return s.DeletedAt == nil }
func (s *Shipment) Trashed() bool { return s.DeletedAt != nil }

// StatusUpdate is what a status lookup yields for one shipment.
type StatusUpdate struct {
	Status      ShipmentStatus
	LastUpdate  string
	Description string
	Events      []TrackingEvent
}

func NewShipment(trackingNumber, carrierCode string, upd StatusUpdate, now time.Time) *Shipment {
	checked := now
	s := &Shipment{
		ID:             uuid.NewString(),
		TrackingNumber: trackingNumber,
		CarrierCode:    carrierCode,
		Status:         upd.Status,
		LastUpdate:     upd.LastUpdate,
		Description:    upd.Description,
		Events:         upd.Events,
		AddedAt:        now,
		LastCheckedAt:  &checked,
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	if s.LastUpdate == "" {
		s.LastUpdate = now.Format(time.RFC3339)
	}
	if s.Description == "" {
		s.Description = "Tracking initialized"
	}
	if s.Events == nil {
		s.Events = []TrackingEvent{}
	}
	return s
}

// Apply merges a fresh lookup result into the record.
func (s *Shipment) Apply(upd StatusUpdate, checkedAt time.Time) {
	s.Status = upd.Status
	s.LastUpdate = upd.LastUpdate
	s.Description = upd.Description
	s.Events = upd.Events
	if s.Events == nil {
		s.Events = []TrackingEvent{}
	}
	s.LastCheckedAt = &checkedAt
	s.CheckFailCount = 0
	s.LastFailedAt = nil
}

// RecordFailure notes a failed lookup. The last known status stays as it is.
func (s *Shipment) RecordFailure(at time.Time) {
	s.CheckFailCount++
	s.LastFailedAt = &at
}
