package activation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
)

var ErrActivationFailed = errors.New("device activation failed")

type Config struct {
	BaseURL     string
	APIKey      string
	MaxAttempts int
	Timeout     time.Duration
}

// MetricsProvider supplies the metrics block for the activation payload.
type MetricsProvider func(ctx context.Context) any

// Client announces the device to the activation server. Transient failures
// are retried with exponential backoff before the whole attempt is reported
// as failed.
type Client struct {
	cfg      Config
	identity Identity
	metrics  MetricsProvider
	httpc    *http.Client
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config, identity Identity, metrics MetricsProvider) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:      cfg,
		identity: identity,
		metrics:  metrics,
		httpc:    &http.Client{Timeout: cfg.Timeout},
		sleep:    sleepContext,
	}
}

type activationRequest struct {
	DeviceID   string `json:"device_id"`
	MACAddress string `json:"mac_address"`
	Hostname   string `json:"hostname"`
	DeviceType string `json:"device_type"`
	Metrics    any    `json:"metrics,omitempty"`
}

func (c *Client) Activate(ctx context.Context) error {
	payload := activationRequest{
		DeviceID:   c.identity.DeviceID,
		MACAddress: c.identity.MACAddress,
		Hostname:   c.identity.Hostname,
		DeviceType: c.identity.DeviceType,
	}
	if c.metrics != nil {
		payload.Metrics = c.metrics(ctx)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode activation payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if err := c.sleep(ctx, backoff); err != nil {
				return err
			}
		}
		if err := c.post(ctx, body); err != nil {
			lastErr = err
			slog.Warn("Activation attempt failed",
				"attempt", attempt+1,
				"max_attempts", c.cfg.MaxAttempts,
				"error", err)
			continue
		}
		slog.Info("Device activated", "device_id", c.identity.DeviceID)
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrActivationFailed, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/activate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build activation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "screen-setup/"+c.identity.DeviceID)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach activation server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("activation server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
