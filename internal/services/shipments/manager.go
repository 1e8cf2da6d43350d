package shipments

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/metrics"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

type Store interface {
	Shipments(ctx context.Context, ownerID string) ([]*models.Shipment, error)
	SaveShipments(ctx context.Context, ownerID string, items []*models.Shipment) error
}

type Publisher interface {
	ShipmentChanged(ctx context.Context, m messages.ShipmentChanged) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Manager owns the shipment lists of all users. Every mutation is a
// read-modify-write of one owner's whole list, serialized by mu within the process.
type Manager struct {
	store  Store
	client carrier.Client
	events Publisher
	rl     RateLimiter

	concurrency        int
	callTimeout        time.Duration
	rateLimitPerMinute int64

	now func() time.Time

	mu       sync.Mutex
	selected map[string]map[string]struct{}
}

func New(store Store, client carrier.Client) *Manager {
	return &Manager{
		store:       store,
		client:      client,
		concurrency: 5,
		callTimeout: 15 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
		selected:    make(map[string]map[string]struct{}),
	}
}

func (m *Manager) WithEvents(p Publisher) *Manager {
	m.events = p
	return m
}

// WithRateLimiter caps status lookups per carrier and minute during refresh.
func (m *Manager) WithRateLimiter(rl RateLimiter, perMinute int) *Manager {
	m.rl = rl
	if perMinute > 0 {
		m.rateLimitPerMinute = int64(perMinute)
	}
	return m
}

func (m *Manager) WithRefreshSettings(concurrency int, callTimeout time.Duration) *Manager {
	if concurrency > 0 {
		m.concurrency = concurrency
	}
	if callTimeout > 0 {
		m.callTimeout = callTimeout
	}
	return m
}

// Add looks the number up once and, on success, prepends a new active record.
func (m *Manager) Add(ctx context.Context, ownerID, trackingNumber, carrierCode string) (*models.Shipment, error) {
	if ownerID == "" {
		return nil, invalid("owner is required")
	}
	number := strings.TrimSpace(trackingNumber)
	carrierCode = strings.TrimSpace(carrierCode)
	if number == "" {
		return nil, invalid("tracking number is required")
	}
	if _, ok := models.LookupCarrier(carrierCode); !ok {
		return nil, errors.Wrapf(ErrUnknownCarrier, "carrier %q", carrierCode)
	}

	m.mu.Lock()
	items, err := m.store.Shipments(ctx, ownerID)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := checkDuplicate(items, number); err != nil {
		return nil, err
	}

	upd, err := m.lookup(ctx, number, carrierCode)
	if err != nil {
		slog.Warn("add shipment lookup failed", "owner", ownerID, "tracking_number", number, "carrier", carrierCode, "error", err.Error())
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// the list may have changed during the lookup
	items, err = m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := checkDuplicate(items, number); err != nil {
		return nil, err
	}

	sh := models.NewShipment(number, carrierCode, upd, m.now())
	items = append([]*models.Shipment{sh}, items...)
	if err := m.store.SaveShipments(ctx, ownerID, items); err != nil {
		return nil, err
	}

	metrics.ShipmentsAddedTotal.Inc()
	slog.Info("shipment added", "owner", ownerID, "id", sh.ID, "tracking_number", number, "status", string(sh.Status))
	m.publish(ctx, messages.ActionAdded, ownerID, sh)
	return sh, nil
}

func (m *Manager) lookup(ctx context.Context, number, carrierCode string) (models.StatusUpdate, error) {
	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}
	return m.client.FetchStatus(ctx, number, carrierCode)
}

// SoftDelete moves an active record to the trash.
func (m *Manager) SoftDelete(ctx context.Context, ownerID, id string) (*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sh := find(items, id)
	if sh == nil {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if sh.Trashed() {
		return nil, errors.Wrap(ErrInvalidTransition, "shipment is already in the trash")
	}

	at := m.now()
	sh.DeletedAt = &at
	if err := m.store.SaveShipments(ctx, ownerID, items); err != nil {
		return nil, err
	}

	metrics.ShipmentTransitionsTotal.WithLabelValues(string(messages.ActionTrashed)).Inc()
	m.publish(ctx, messages.ActionTrashed, ownerID, sh)
	return sh, nil
}

// Restore brings trashed records back. Either all ids are restored or none.
func (m *Manager) Restore(ctx context.Context, ownerID string, ids ...string) ([]*models.Shipment, error) {
	if len(ids) == 0 {
		return nil, invalid("no shipments to restore")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return m.restoreLocked(ctx, ownerID, items, ids)
}

func (m *Manager) restoreLocked(ctx context.Context, ownerID string, items []*models.Shipment, ids []string) ([]*models.Shipment, error) {
	active := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Active() {
			active[it.TrackingNumber] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(ids))
	restored := make([]*models.Shipment, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		sh := find(items, id)
		if sh == nil {
			return nil, errors.Wrapf(ErrNotFound, "id %s", id)
		}
		if sh.Active() {
			return nil, errors.Wrap(ErrInvalidTransition, "shipment is not in the trash")
		}
		if _, clash := active[sh.TrackingNumber]; clash {
			return nil, errors.Wrapf(ErrDuplicateActive, "tracking number %s", sh.TrackingNumber)
		}
		active[sh.TrackingNumber] = struct{}{}
		restored = append(restored, sh)
	}

	for _, sh := range restored {
		sh.DeletedAt = nil
	}
	if err := m.store.SaveShipments(ctx, ownerID, items); err != nil {
		return nil, err
	}

	m.unselectLocked(ownerID, ids...)
	for _, sh := range restored {
		metrics.ShipmentTransitionsTotal.WithLabelValues(string(messages.ActionRestored)).Inc()
		m.publish(ctx, messages.ActionRestored, ownerID, sh)
	}
	return restored, nil
}

// PermanentDelete removes a trashed record for good.
func (m *Manager) PermanentDelete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	sh := items[idx]
	if sh.Active() {
		return errors.Wrap(ErrInvalidTransition, "only trashed shipments can be deleted permanently")
	}

	kept := make([]*models.Shipment, 0, len(items)-1)
	kept = append(kept, items[:idx]...)
	kept = append(kept, items[idx+1:]...)
	if err := m.store.SaveShipments(ctx, ownerID, kept); err != nil {
		return err
	}

	m.unselectLocked(ownerID, id)
	metrics.ShipmentTransitionsTotal.WithLabelValues(string(messages.ActionPurged)).Inc()
	m.publish(ctx, messages.ActionPurged, ownerID, sh)
	return nil
}

// Forget drops the in-process state kept for an owner whose account is gone.
func (m *Manager) Forget(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.selected, ownerID)
}

func (m *Manager) publish(ctx context.Context, action messages.ShipmentAction, ownerID string, sh *models.Shipment) {
	if m.events == nil {
		return
	}
	err := m.events.ShipmentChanged(ctx, messages.ShipmentChanged{
		Action:         action,
		OwnerID:        ownerID,
		ShipmentID:     sh.ID,
		TrackingNumber: sh.TrackingNumber,
		CarrierCode:    sh.CarrierCode,
		Status:         string(sh.Status),
		OccurredAt:     m.now(),
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		slog.Warn("publish shipment event", "action", string(action), "id", sh.ID, "error", err.Error())
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
}

func checkDuplicate(items []*models.Shipment, number string) error {
	trashed := false
	for _, it := range items {
		if it.TrackingNumber != number {
			continue
		}
		if it.Active() {
			return errors.Wrapf(ErrDuplicateActive, "tracking number %s", number)
		}
		trashed = true
	}
	if trashed {
		return errors.Wrapf(ErrDuplicateTrashed, "tracking number %s", number)
	}
	return nil
}

func find(items []*models.Shipment, id string) *models.Shipment {
	if i := indexOf(items, id); i >= 0 {
		return items[i]
	}
	return nil
}

func indexOf(items []*models.Shipment, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
