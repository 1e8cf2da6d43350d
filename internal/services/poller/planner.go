package poller

import (
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
)

type PlannerConfig struct {
	ActiveDelay time.Duration // in_transit, out_for_delivery; default: 15 minutes
	IdleDelay   time.Duration // pending, info_received, failures; default: 1 hour
	FinalDelay  time.Duration // delivered, expired; default: 24 hours

	// Backoff after consecutive failed lookups.
	Backoff1 time.Duration // default: 5 minutes
	Backoff2 time.Duration // default: 15 minutes
	Backoff3 time.Duration // default: 30 minutes
	Backoff4 time.Duration // default: 60 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		ActiveDelay: 15 * time.Minute,
		IdleDelay:   1 * time.Hour,
		FinalDelay:  24 * time.Hour,

		Backoff1: 5 * time.Minute,
		Backoff2: 15 * time.Minute,
		Backoff3: 30 * time.Minute,
		Backoff4: 60 * time.Minute,
	}
}

// Planner decides how long a shipment may go without a fresh lookup.
type Planner struct {
	cfg PlannerConfig
}

func NewPlanner(cfg PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	if cfg.ActiveDelay <= 0 {
		cfg.ActiveDelay = def.ActiveDelay
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = def.IdleDelay
	}
	if cfg.FinalDelay <= 0 {
		cfg.FinalDelay = def.FinalDelay
	}
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	return &Planner{cfg: cfg}
}

func (p *Planner) NextCheckDelay(status models.ShipmentStatus) time.Duration {
	switch status {
	case models.StatusInTransit, models.StatusOutForDelivery:
		return p.cfg.ActiveDelay
	case models.StatusDelivered, models.StatusExpired:
		return p.cfg.FinalDelay
	default:
		return p.cfg.IdleDelay
	}
}

func (p *Planner) BackoffDelay(failCount int32) time.Duration {
	switch {
	case failCount <= 1:
		return p.cfg.Backoff1
	case failCount == 2:
		return p.cfg.Backoff2
	case failCount == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}

// Due reports whether sh should be looked up again at now. Never checked means due.
// After failed lookups the backoff counts from the last failure instead.
func (p *Planner) Due(sh *models.Shipment, now time.Time) bool {
	if sh.CheckFailCount > 0 && sh.LastFailedAt != nil {
		return !now.Before(sh.LastFailedAt.Add(p.BackoffDelay(sh.CheckFailCount)))
	}
	if sh.LastCheckedAt == nil {
		return true
	}
	return !now.Before(sh.LastCheckedAt.Add(p.NextCheckDelay(sh.Status)))
}
