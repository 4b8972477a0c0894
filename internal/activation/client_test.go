package activation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() Identity {
	return Identity{
		DeviceID:   "7a0f9db4-4f27-4dbb-9a2a-0f3cf2f0a001",
		MACAddress: "b8:27:eb:12:34:56",
		Hostname:   "screen-01",
		DeviceType: "smart_screen",
	}
}

func instantSleep(c *Client) *[]time.Duration {
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		slept = append(slept, d)
		return nil
	}
	return &slept
}

func TestActivate(t *testing.T) {
	var gotBody []byte
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret-key"}, testIdentity(), func(ctx context.Context) any {
		return map[string]any{"cpu_percent": 12.5}
	})
	instantSleep(c)

	require.NoError(t, c.Activate(context.Background()))

	assert.Equal(t, "/activate", gotPath)
	assert.Equal(t, "Bearer secret-key", gotAuth)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "7a0f9db4-4f27-4dbb-9a2a-0f3cf2f0a001", payload["device_id"])
	assert.Equal(t, "b8:27:eb:12:34:56", payload["mac_address"])
	assert.Equal(t, "screen-01", payload["hostname"])
	assert.Equal(t, "smart_screen", payload["device_type"])
	assert.Contains(t, payload, "metrics")
}

func TestActivateNoAPIKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testIdentity(), nil)
	require.NoError(t, c.Activate(context.Background()))
	assert.Empty(t, gotAuth)
}

func TestActivateRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testIdentity(), nil)
	slept := instantSleep(c)

	require.NoError(t, c.Activate(context.Background()))
	assert.Equal(t, int32(3), hits.Load())
	// Exponential backoff between attempts.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestActivateExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testIdentity(), nil)
	instantSleep(c)

	err := c.Activate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActivationFailed)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(3), hits.Load())
}

func TestActivateCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testIdentity(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := c.Activate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://example.invalid"}, testIdentity(), nil)
	assert.Equal(t, DefaultMaxAttempts, c.cfg.MaxAttempts)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, DefaultTimeout, c.httpc.Timeout)
}

func TestEnsureDeviceIDCreatesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", ".device_id")

	first, err := ensureDeviceID(path)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := ensureDeviceID(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureDeviceIDReplacesGarbled(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".device_id")
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid"), 0o600))

	id, err := ensureDeviceID(path)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestReadMAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "address")
	require.NoError(t, os.WriteFile(path, []byte("b8:27:eb:aa:bb:cc\n"), 0o644))

	assert.Equal(t, "b8:27:eb:aa:bb:cc", readMAC(path))
	assert.Empty(t, readMAC(filepath.Join(t.TempDir(), "absent")))
}
