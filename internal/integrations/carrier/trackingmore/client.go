package trackingmore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/metrics"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://api.trackingmore.com/v4"

const headerAPIKey = "Tracking-Api-Key"

const (
	msgNotFound           = "Tracking number not found in system."
	msgServiceUnavailable = "Tracking service unavailable (Endpoint Error)."
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	now     func() time.Time
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// FetchStatus tries the realtime endpoint first. When that yields nothing usable it
// registers the number (ignoring failures) and reads it back with the get endpoint.
func (c *Client) FetchStatus(ctx context.Context, trackingNumber, carrierCode string) (models.StatusUpdate, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	carrierCode = strings.TrimSpace(carrierCode)

	upd, err := c.realtime(ctx, trackingNumber, carrierCode)
	if err == nil {
		metrics.LookupsTotal.WithLabelValues("realtime", "ok").Inc()
		return upd, nil
	}
	metrics.LookupsTotal.WithLabelValues("realtime", "fallback").Inc()
	slog.Warn("realtime lookup failed, switching to create+get",
		"tracking_number", trackingNumber, "carrier", carrierCode, "error", err.Error())

	if err := c.create(ctx, trackingNumber, carrierCode); err != nil {
		metrics.LookupsTotal.WithLabelValues("create", "error").Inc()
		slog.Warn("create tracking step failed", "tracking_number", trackingNumber, "error", err.Error())
	} else {
		metrics.LookupsTotal.WithLabelValues("create", "ok").Inc()
	}

	upd, err = c.get(ctx, trackingNumber, carrierCode)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("get", "error").Inc()
		return models.StatusUpdate{}, err
	}
	metrics.LookupsTotal.WithLabelValues("get", "ok").Inc()
	return upd, nil
}

func (c *Client) realtime(ctx context.Context, trackingNumber, carrierCode string) (models.StatusUpdate, error) {
	resp, err := c.post(ctx, "/trackings/realtime", trackingRequest{TrackingNumber: trackingNumber, CarrierCode: carrierCode})
	if err != nil {
		return models.StatusUpdate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.StatusUpdate{}, fmt.Errorf("realtime http %d", resp.StatusCode)
	}

	var r realtimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.StatusUpdate{}, errors.Wrap(err, "decode realtime")
	}
	if r.Meta.Code != codeOK || r.Data == nil {
		return models.StatusUpdate{}, fmt.Errorf("realtime meta code=%d message=%q", r.Meta.Code, r.Meta.Message)
	}

	d := r.Data
	return toUpdate(d.DeliveryStatus, d.UpdatedAt, d.LatestEvent, d.Items, c.now()), nil
}

// create registers the number with the provider. "Already exists" counts as success.
func (c *Client) create(ctx context.Context, trackingNumber, carrierCode string) error {
	resp, err := c.post(ctx, "/trackings/create", trackingRequest{TrackingNumber: trackingNumber, CarrierCode: carrierCode})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		return nil
	}

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	if env.Meta.Code == codeAlreadyExists {
		return nil
	}
	if env.Meta.Message != "" {
		return errors.New(env.Meta.Message)
	}
	return fmt.Errorf("create http %d", resp.StatusCode)
}

func (c *Client) get(ctx context.Context, trackingNumber, carrierCode string) (models.StatusUpdate, error) {
	u, err := url.Parse(c.baseURL + "/trackings/get")
	if err != nil {
		return models.StatusUpdate{}, carrier.NewLookupError(msgServiceUnavailable, errors.Wrap(err, "parse base url"))
	}
	q := u.Query()
	q.Set("tracking_numbers", trackingNumber)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.StatusUpdate{}, carrier.NewLookupError(msgServiceUnavailable, errors.Wrap(err, "new request"))
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.StatusUpdate{}, carrier.NewLookupError("Tracking service request failed.", errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg := fmt.Sprintf("API Error %d", resp.StatusCode)
		var env envelope
		if json.NewDecoder(resp.Body).Decode(&env) == nil && env.Meta.Message != "" {
			msg = env.Meta.Message
		}
		if strings.Contains(msg, "Page does not exist") {
			msg = msgServiceUnavailable
		}
		return models.StatusUpdate{}, carrier.NewLookupError(msg, nil)
	}

	var r getResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.StatusUpdate{}, carrier.NewLookupError(msgNotFound, errors.Wrap(err, "decode get"))
	}

	rec, ok := pickRecord(r.records(), carrierCode)
	if !ok {
		return models.StatusUpdate{}, carrier.NewLookupError(msgNotFound, nil)
	}
	src, cps := rec.checkpoints()
	slog.Debug("tracking record selected", "tracking_number", trackingNumber, "carrier", rec.CarrierCode, "events_from", src.String())

	return toUpdate(rec.DeliveryStatus, rec.UpdatedAt, rec.LatestEvent, cps, c.now()), nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")
}
