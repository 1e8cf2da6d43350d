// Package bootstrap wires the services shared by the ShipTrack commands from a
// loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/auth/credentials"
	"github.com/BearBump/ShipTrack/internal/broker/events"
	"github.com/BearBump/ShipTrack/internal/broker/kafka"
	"github.com/BearBump/ShipTrack/internal/broker/rabbit"
	"github.com/BearBump/ShipTrack/internal/cache/rediscache"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/cached"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/fake"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/trackingmore"
	"github.com/BearBump/ShipTrack/internal/services/shipments"
	"github.com/BearBump/ShipTrack/internal/services/users"
	"github.com/BearBump/ShipTrack/internal/storage/backend"
	"github.com/BearBump/ShipTrack/internal/storage/records"
	"github.com/redis/go-redis/v9"
)

const (
	BrokerNone   = "none"
	BrokerKafka  = "kafka"
	BrokerRabbit = "rabbit"

	defaultRabbitExchange = "shiptrack"
	statusCachePrefix     = "shiptrack:status:"
)

type Deps struct {
	Config    *config.Config
	Records   *records.Store
	Carrier   carrier.Client
	Redis     *redis.Client
	Events    *events.Publisher
	Users     *users.Service
	Shipments *shipments.Manager

	closers []func() error
}

// Open builds the store, the carrier client and both services. Redis and the
// event broker are optional and only used when configured.
func Open(ctx context.Context, cfg *config.Config) (*Deps, error) {
	d := &Deps{Config: cfg}

	kvs, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.Records = records.New(kvs)
	d.closers = append(d.closers, d.Records.Close)

	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			d.Close()
			return nil, fmt.Errorf("redis is not reachable: %w", err)
		}
		d.Redis = rc
		d.closers = append(d.closers, rc.Close)
	}

	d.Carrier, err = newCarrierClient(cfg, d.Redis)
	if err != nil {
		d.Close()
		return nil, err
	}

	if err := d.openEvents(cfg); err != nil {
		d.Close()
		return nil, err
	}

	hasher, err := credentials.New(cfg.ShipTrack.PasswordHasher)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Shipments = shipments.New(d.Records, d.Carrier).
		WithRefreshSettings(cfg.ShipTrack.RefreshConcurrency, time.Duration(cfg.ShipTrack.RefreshTimeoutSeconds)*time.Second)
	if d.Events != nil {
		d.Shipments.WithEvents(d.Events)
	}
	if d.Redis != nil && cfg.ShipTrack.WorkerRateLimitPerMinute > 0 {
		d.Shipments.WithRateLimiter(rediscache.NewRateLimiter(d.Redis), cfg.ShipTrack.WorkerRateLimitPerMinute)
	}

	d.Users = users.New(d.Records, hasher).OnUserDeleted(d.Shipments.Forget)

	if cfg.ShipTrack.SeedAdminEmail != "" {
		if _, _, err := d.Users.EnsureSeedAdmin(ctx, cfg.ShipTrack.SeedAdminEmail, cfg.ShipTrack.SeedAdminPassword); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

func newCarrierClient(cfg *config.Config, rc *redis.Client) (carrier.Client, error) {
	var client carrier.Client
	if cfg.TrackingMore.Fake {
		slog.Warn("using the offline fake carrier client")
		client = fake.New()
	} else {
		if cfg.TrackingMore.APIKey == "" {
			return nil, fmt.Errorf("trackingmore api key is required (TRACKINGMORE_API_KEY or trackingmore.api_key)")
		}
		timeout := time.Duration(cfg.TrackingMore.TimeoutSeconds) * time.Second
		client = trackingmore.New(cfg.TrackingMore.BaseURL, cfg.TrackingMore.APIKey, timeout)
	}

	ttl := time.Duration(cfg.TrackingMore.StatusCacheTTLSeconds) * time.Second
	if rc != nil && ttl > 0 {
		client = cached.New(client, rediscache.New(rc, statusCachePrefix), ttl)
	}
	return client, nil
}

func (d *Deps) openEvents(cfg *config.Config) error {
	topic := EventsTopic(cfg)
	switch cfg.Events.Broker {
	case "", BrokerNone:
		return nil
	case BrokerKafka:
		p := kafka.NewProducer(cfg.KafkaBrokers())
		d.closers = append(d.closers, p.Close)
		d.Events = events.NewPublisher(p, topic)
	case BrokerRabbit:
		p, err := rabbit.NewPublisher(cfg.Rabbit.URL, RabbitExchange(cfg))
		if err != nil {
			return err
		}
		d.closers = append(d.closers, p.Close)
		d.Events = events.NewPublisher(p, topic)
	default:
		return fmt.Errorf("unknown events broker %q", cfg.Events.Broker)
	}
	slog.Info("publishing shipment events", "broker", cfg.Events.Broker, "topic", topic)
	return nil
}

func EventsTopic(cfg *config.Config) string {
	if cfg.Kafka.ShipmentChangedTopicName != "" {
		return cfg.Kafka.ShipmentChangedTopicName
	}
	return events.DefaultTopic
}

func RabbitExchange(cfg *config.Config) string {
	if cfg.Rabbit.Exchange != "" {
		return cfg.Rabbit.Exchange
	}
	return defaultRabbitExchange
}

// Close releases everything Open acquired, last opened first.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("close failed", "error", err.Error())
		}
	}
	d.closers = nil
}
