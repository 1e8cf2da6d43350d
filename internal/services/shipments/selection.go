package shipments

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

// Selection marks trashed records for a bulk restore. It lives in process memory
// and only ever contains ids of records that are still in the trash.

func (m *Manager) Select(ctx context.Context, ownerID string, ids ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		sh := find(items, id)
		if sh == nil {
			return nil, errors.Wrapf(ErrNotFound, "id %s", id)
		}
		if sh.Active() {
			return nil, errors.Wrap(ErrInvalidTransition, "only trashed shipments can be selected")
		}
	}

	set := m.selectionLocked(ownerID)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return m.selectedLocked(ownerID, items), nil
}

func (m *Manager) Deselect(ctx context.Context, ownerID string, ids ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	m.unselectLocked(ownerID, ids...)
	return m.selectedLocked(ownerID, items), nil
}

func (m *Manager) SelectAllTrashed(ctx context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, it := range items {
		if it.Trashed() {
			set[it.ID] = struct{}{}
		}
	}
	m.selected[ownerID] = set
	return m.selectedLocked(ownerID, items), nil
}

func (m *Manager) ClearSelection(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.selected, ownerID)
}

// Selected returns the selected ids in list order.
func (m *Manager) Selected(ctx context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return m.selectedLocked(ownerID, items), nil
}

// RestoreSelected restores every selected record and empties the selection.
func (m *Manager) RestoreSelected(ctx context.Context, ownerID string) ([]*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := m.selectedLocked(ownerID, items)
	if len(ids) == 0 {
		return []*models.Shipment{}, nil
	}
	return m.restoreLocked(ctx, ownerID, items, ids)
}

func (m *Manager) selectionLocked(ownerID string) map[string]struct{} {
	set, ok := m.selected[ownerID]
	if !ok {
		set = make(map[string]struct{})
		m.selected[ownerID] = set
	}
	return set
}

// selectedLocked drops ids that left the trash, possibly through another process.
func (m *Manager) selectedLocked(ownerID string, items []*models.Shipment) []string {
	set := m.selected[ownerID]
	out := make([]string, 0, len(set))
	if len(set) == 0 {
		return out
	}
	trashed := make(map[string]struct{}, len(set))
	for _, it := range items {
		if _, ok := set[it.ID]; ok && it.Trashed() {
			trashed[it.ID] = struct{}{}
			out = append(out, it.ID)
		}
	}
	for id := range set {
		if _, ok := trashed[id]; !ok {
			delete(set, id)
		}
	}
	return out
}

func (m *Manager) unselectLocked(ownerID string, ids ...string) {
	set := m.selected[ownerID]
	for _, id := range ids {
		delete(set, id)
	}
}
