package shipments

import (
	"context"
	"sort"

	"github.com/BearBump/ShipTrack/internal/models"
)

type View string

const (
	ViewActive View = "active"
	ViewTrash  View = "trash"
)

type Filter struct {
	View View
	// Status narrows the view to one status; empty means all.
	Status models.ShipmentStatus
}

// List returns the owner's shipments in one view, problems first and then newest first.
func (m *Manager) List(ctx context.Context, ownerID string, f Filter) ([]*models.Shipment, error) {
	if f.View == "" {
		f.View = ViewActive
	}
	if f.View != ViewActive && f.View != ViewTrash {
		return nil, invalid("unknown view " + string(f.View))
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status " + string(f.Status))
	}

	m.mu.Lock()
	items, err := m.store.Shipments(ctx, ownerID)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Shipment, 0, len(items))
	for _, it := range items {
		if (f.View == ViewActive) != it.Active() {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		out = append(out, it)
	}
	sortForDisplay(out)
	return out, nil
}

func sortForDisplay(items []*models.Shipment) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Status.DisplayPriority(), items[j].Status.DisplayPriority()
		if pi != pj {
			return pi < pj
		}
		return items[i].AddedAt.After(items[j].AddedAt)
	})
}
