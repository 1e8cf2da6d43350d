package messages

import "time"

type ShipmentAction string

const (
	ActionAdded     ShipmentAction = "added"
	ActionRefreshed ShipmentAction = "refreshed"
	ActionTrashed   ShipmentAction = "trashed"
	ActionRestored  ShipmentAction = "restored"
	ActionPurged    ShipmentAction = "purged"
)

// ShipmentChanged is emitted after a lifecycle change of one shipment has been stored.
type ShipmentChanged struct {
	EventID        string         `json:"event_id"`
	Action         ShipmentAction `json:"action"`
	OwnerID        string         `json:"owner_id"`
	ShipmentID     string         `json:"shipment_id"`
	TrackingNumber string         `json:"tracking_number"`
	CarrierCode    string         `json:"carrier_code"`
	Status         string         `json:"status,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
