package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_lookups_total",
		Help: "Tracking provider calls by phase (realtime, create, get) and result.",
	},
		[]string{"phase", "result"},
	)

	StatusCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_status_cache_total",
		Help: "Status cache lookups by result (hit, miss, error).",
	},
		[]string{"result"},
	)

	ShipmentsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiptrack_shipments_added_total",
		Help: "Total number of shipments successfully added.",
	})

	ShipmentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_shipment_transitions_total",
		Help: "Lifecycle transitions applied to shipments.",
	},
		[]string{"action"},
	)

	RefreshResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_refresh_results_total",
		Help: "Per-shipment refresh outcomes (ok, failed).",
	},
		[]string{"result"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_events_published_total",
		Help: "Lifecycle events handed to the broker by result.",
	},
		[]string{"result"},
	)

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiptrack_events_consumed_total",
		Help: "Lifecycle events read by the worker audit log, by action.",
	},
		[]string{"action"},
	)

	WorkerCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiptrack_worker_cycles_total",
		Help: "Completed background refresh cycles.",
	})
)
