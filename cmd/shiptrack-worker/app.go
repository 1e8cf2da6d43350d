package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/bootstrap"
	"github.com/BearBump/ShipTrack/internal/broker/events"
	"github.com/BearBump/ShipTrack/internal/broker/kafka"
	"github.com/BearBump/ShipTrack/internal/broker/messages"
	"github.com/BearBump/ShipTrack/internal/broker/rabbit"
	"github.com/BearBump/ShipTrack/internal/metrics"
	"github.com/BearBump/ShipTrack/internal/services/poller"
	"golang.org/x/sync/errgroup"
)

type eventConsumer interface {
	Consume(ctx context.Context, handler func(messages.Envelope) error) error
	Close() error
}

type workerFactories struct {
	openDeps    func(ctx context.Context, cfg *config.Config) (*bootstrap.Deps, error)
	newConsumer func(cfg *config.Config) (eventConsumer, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		openDeps: bootstrap.Open,
		newConsumer: func(cfg *config.Config) (eventConsumer, error) {
			switch cfg.Events.Broker {
			case bootstrap.BrokerKafka:
				group := cfg.ShipTrack.KafkaConsumerGroup
				if group == "" {
					group = "shiptrack-worker"
				}
				return kafka.NewConsumer(cfg.KafkaBrokers(), bootstrap.EventsTopic(cfg), group), nil
			case bootstrap.BrokerRabbit:
				queue := cfg.Rabbit.Queue
				if queue == "" {
					queue = "shiptrack.audit"
				}
				return rabbit.NewConsumer(cfg.Rabbit.URL, bootstrap.RabbitExchange(cfg), queue, bootstrap.EventsTopic(cfg))
			default:
				return nil, nil
			}
		},
	}
}

func newPoller(cfg *config.Config, deps *bootstrap.Deps) *poller.Poller {
	pollInterval := time.Duration(cfg.ShipTrack.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return poller.New(deps.Records, deps.Shipments).
		WithSettings(pollInterval, cfg.ShipTrack.RefreshConcurrency).
		WithPlanner(poller.PlannerConfig{
			ActiveDelay: time.Duration(cfg.ShipTrack.WorkerNextCheckActiveSeconds) * time.Second,
			IdleDelay:   time.Duration(cfg.ShipTrack.WorkerNextCheckIdleSeconds) * time.Second,
			FinalDelay:  time.Duration(cfg.ShipTrack.WorkerNextCheckFinalSeconds) * time.Second,
		})
}

// RunShipTrackWorker runs the refresh loop, the audit consumer and the ops HTTP
// server until ctx is done or one of them fails.
func RunShipTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	deps, err := f.openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	consumer, err := f.newConsumer(cfg)
	if err != nil {
		return err
	}
	if consumer != nil {
		defer func() { _ = consumer.Close() }()
	}

	p := newPoller(cfg, deps)
	httpOpts.poller = p
	httpOpts.cfg = cfg

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		return runWorkerHTTPServer(gctx, httpOpts)
	})
	if consumer != nil {
		g.Go(func() error {
			slog.Info("audit consumer started", "broker", cfg.Events.Broker, "topic", bootstrap.EventsTopic(cfg))
			return consumer.Consume(gctx, auditEvent)
		})
	}
	return g.Wait()
}

// auditEvent logs one lifecycle event. Undecodable messages are logged and skipped
// so they do not block the stream.
func auditEvent(env messages.Envelope) error {
	m, err := events.Decode(env.Value)
	if err != nil {
		slog.Warn("skipping malformed shipment event", "message_id", env.ID, "error", err.Error())
		return nil
	}
	if env.ID != "" && env.ID != m.EventID {
		slog.Warn("shipment event id differs from broker message id", "message_id", env.ID, "event_id", m.EventID)
	}
	metrics.EventsConsumedTotal.WithLabelValues(string(m.Action)).Inc()
	slog.Info("shipment event",
		"event_id", m.EventID,
		"action", string(m.Action),
		"owner_id", m.OwnerID,
		"shipment_id", m.ShipmentID,
		"tracking_number", m.TrackingNumber,
		"carrier", m.CarrierCode,
		"status", m.Status,
		"occurred_at", m.OccurredAt,
	)
	return nil
}
