package shipments

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/metrics"
	"github.com/BearBump/ShipTrack/internal/models"
	"golang.org/x/sync/errgroup"
)

type RefreshFailure struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"trackingNumber"`
	Error          string `json:"error"`
}

type RefreshReport struct {
	Refreshed []string         `json:"refreshed"`
	Failed    []RefreshFailure `json:"failed"`
	// Skipped lists records left for a later cycle because the carrier's rate limit was reached.
	Skipped []string `json:"skipped"`
}

type refreshResult struct {
	sh        *models.Shipment
	upd       models.StatusUpdate
	checkedAt time.Time
	err       error
	skipped   bool
}

// RefreshAll re-queries every active shipment of the owner.
func (m *Manager) RefreshAll(ctx context.Context, ownerID string) (RefreshReport, error) {
	return m.RefreshDue(ctx, ownerID, nil)
}

// RefreshDue re-queries the active shipments accepted by due (all when due is nil).
// A failed lookup keeps the record's status and events and only counts the failure. Results are merged by id into the
// list as stored after the lookups, so records trashed or removed meanwhile are
// left alone.
func (m *Manager) RefreshDue(ctx context.Context, ownerID string, due func(*models.Shipment) bool) (RefreshReport, error) {
	report := RefreshReport{Refreshed: []string{}, Failed: []RefreshFailure{}, Skipped: []string{}}

	m.mu.Lock()
	items, err := m.store.Shipments(ctx, ownerID)
	m.mu.Unlock()
	if err != nil {
		return report, err
	}

	targets := make([]*models.Shipment, 0, len(items))
	for _, it := range items {
		if it.Active() && (due == nil || due(it)) {
			targets = append(targets, it)
		}
	}
	if len(targets) == 0 {
		return report, nil
	}

	results := make([]refreshResult, len(targets))
	// a plain group: one failed lookup must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, sh := range targets {
		g.Go(func() error {
			results[i] = m.refreshOne(ctx, sh)
			return nil
		})
	}
	_ = g.Wait()

	updates := make(map[string]refreshResult, len(results))
	failures := make(map[string]refreshResult)
	for _, r := range results {
		switch {
		case r.skipped:
			report.Skipped = append(report.Skipped, r.sh.ID)
		case r.err != nil:
			metrics.RefreshResultsTotal.WithLabelValues("failed").Inc()
			slog.Warn("refresh shipment failed, keeping previous state",
				"owner", ownerID, "id", r.sh.ID, "tracking_number", r.sh.TrackingNumber, "error", r.err.Error())
			report.Failed = append(report.Failed, RefreshFailure{ID: r.sh.ID, TrackingNumber: r.sh.TrackingNumber, Error: r.err.Error()})
			failures[r.sh.ID] = r
		default:
			updates[r.sh.ID] = r
		}
	}
	if len(updates) == 0 && len(failures) == 0 {
		return report, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.Shipments(ctx, ownerID)
	if err != nil {
		return report, err
	}

	type change struct {
		sh      *models.Shipment
		changed bool
	}
	applied := make([]change, 0, len(updates))
	recorded := 0
	for _, it := range current {
		if !it.Active() {
			continue
		}
		if r, ok := updates[it.ID]; ok {
			prev := it.Status
			it.Apply(r.upd, r.checkedAt)
			applied = append(applied, change{sh: it, changed: prev != it.Status})
			continue
		}
		// a failed lookup only touches the failure bookkeeping
		if r, ok := failures[it.ID]; ok {
			it.RecordFailure(r.checkedAt)
			recorded++
		}
	}
	if len(applied) == 0 && recorded == 0 {
		return report, nil
	}
	if err := m.store.SaveShipments(ctx, ownerID, current); err != nil {
		return report, err
	}

	for _, c := range applied {
		metrics.RefreshResultsTotal.WithLabelValues("ok").Inc()
		report.Refreshed = append(report.Refreshed, c.sh.ID)
		if c.changed {
			m.publish(ctx, messages.ActionRefreshed, ownerID, c.sh)
		}
	}
	slog.Info("shipments refreshed", "owner", ownerID,
		"refreshed", len(report.Refreshed), "failed", len(report.Failed), "skipped", len(report.Skipped))
	return report, nil
}

func (m *Manager) refreshOne(ctx context.Context, sh *models.Shipment) refreshResult {
	if !m.allow(ctx, sh.CarrierCode) {
		return refreshResult{sh: sh, skipped: true}
	}
	upd, err := m.lookup(ctx, sh.TrackingNumber, sh.CarrierCode)
	return refreshResult{sh: sh, upd: upd, err: err, checkedAt: m.now()}
}

func (m *Manager) allow(ctx context.Context, carrierCode string) bool {
	if m.rl == nil || m.rateLimitPerMinute <= 0 {
		return true
	}
	allowed, n, err := m.rl.Allow(ctx, "carrier:"+carrierCode, m.rateLimitPerMinute, time.Minute)
	if err != nil {
		// the limiter is advisory; an unreachable redis must not stop refreshes
		slog.Warn("rate limiter unavailable", "carrier", carrierCode, "error", err.Error())
		return true
	}
	if !allowed {
		slog.Warn("rate limit exceeded", "carrier", carrierCode, "count", n)
	}
	return allowed
}
