package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipTrack/internal/metrics"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/shipments"
)

type Owners interface {
	Users(ctx context.Context) ([]*models.User, error)
}

type Refresher interface {
	RefreshDue(ctx context.Context, ownerID string, due func(*models.Shipment) bool) (shipments.RefreshReport, error)
}

// Poller periodically refreshes the due shipments of every account.
type Poller struct {
	owners    Owners
	refresher Refresher

	planner *Planner

	pollInterval time.Duration
	concurrency  int

	now func() time.Time

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalCycles         atomic.Int64
	totalOwners         atomic.Int64
	totalRefreshed      atomic.Int64
	totalFailed         atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(owners Owners, refresher Refresher) *Poller {
	return &Poller{
		owners:            owners,
		refresher:         refresher,
		planner:           NewPlanner(DefaultPlannerConfig()),
		pollInterval:      time.Minute,
		concurrency:       4,
		now:               func() time.Time { return time.Now().UTC() },
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (p *Poller) WithSettings(pollInterval time.Duration, concurrency int) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if concurrency > 0 {
		p.concurrency = concurrency
	}
	return p
}

func (p *Poller) WithPlanner(cfg PlannerConfig) *Poller {
	p.planner = NewPlanner(cfg)
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalCycles    int64      `json:"totalCycles"`
	TotalOwners    int64      `json:"totalOwners"`
	TotalRefreshed int64      `json:"totalRefreshed"`
	TotalFailed    int64      `json:"totalFailed"`
	TotalSkipped   int64      `json:"totalSkipped"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalCycles:    p.totalCycles.Load(),
		TotalOwners:    p.totalOwners.Load(),
		TotalRefreshed: p.totalRefreshed.Load(),
		TotalFailed:    p.totalFailed.Load(),
		TotalSkipped:   p.totalSkipped.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	now := p.now()
	p.lastCycleUnixNano.Store(now.UnixNano())
	defer func() {
		p.totalCycles.Add(1)
		metrics.WorkerCyclesTotal.Inc()
	}()

	owners, err := p.owners.Users(ctx)
	if err != nil {
		slog.Error("list owners", "error", err.Error())
		p.setLastError(err.Error())
		return
	}
	p.totalOwners.Add(int64(len(owners)))

	due := func(sh *models.Shipment) bool { return p.planner.Due(sh, now) }

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, u := range owners {
		sem <- struct{}{}
		wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			p.processOwner(ctx, u.ID, due)
		}()
	}
	wg.Wait()
}

func (p *Poller) processOwner(ctx context.Context, ownerID string, due func(*models.Shipment) bool) {
	rep, err := p.refresher.RefreshDue(ctx, ownerID, due)
	p.totalRefreshed.Add(int64(len(rep.Refreshed)))
	p.totalFailed.Add(int64(len(rep.Failed)))
	p.totalSkipped.Add(int64(len(rep.Skipped)))
	if err != nil {
		p.totalErrors.Add(1)
		p.setLastError(err.Error())
		slog.Error("refresh owner", "owner", ownerID, "error", err.Error())
		return
	}
	if n := len(rep.Failed); n > 0 {
		p.setLastError(rep.Failed[n-1].Error)
	}
}

func (p *Poller) setLastError(msg string) {
	p.lastErrorMu.Lock()
	p.lastError = msg
	p.lastErrorMu.Unlock()
}
