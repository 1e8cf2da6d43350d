package cached

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/internal/cache"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/metrics"
	"github.com/BearBump/ShipTrack/internal/models"
)

// Client memoizes successful lookups of the wrapped client for ttl. Failures are never cached.
type Client struct {
	next  carrier.Client
	cache cache.BytesCache
	ttl   time.Duration
}

func New(next carrier.Client, c cache.BytesCache, ttl time.Duration) *Client {
	return &Client{next: next, cache: c, ttl: ttl}
}

func (c *Client) enabled() bool {
	return c.cache != nil && c.ttl > 0
}

func (c *Client) FetchStatus(ctx context.Context, trackingNumber, carrierCode string) (models.StatusUpdate, error) {
	if !c.enabled() {
		return c.next.FetchStatus(ctx, trackingNumber, carrierCode)
	}

	key := statusKey(carrierCode, trackingNumber)
	b, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.StatusCacheTotal.WithLabelValues("error").Inc()
		slog.Warn("status cache get", "key", key, "error", err.Error())
	case ok:
		var upd models.StatusUpdate
		if json.Unmarshal(b, &upd) == nil {
			metrics.StatusCacheTotal.WithLabelValues("hit").Inc()
			return upd, nil
		}
		metrics.StatusCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.StatusCacheTotal.WithLabelValues("miss").Inc()
	}

	upd, err := c.next.FetchStatus(ctx, trackingNumber, carrierCode)
	if err != nil {
		return models.StatusUpdate{}, err
	}
	if b, err := json.Marshal(upd); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			slog.Warn("status cache set", "key", key, "error", err.Error())
		}
	}
	return upd, nil
}

func statusKey(carrierCode, trackingNumber string) string {
	return fmt.Sprintf("%s:%s", carrierCode, trackingNumber)
}
