package intake

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vistalink/screen-setup/internal/wifi"
)

const DefaultPollInterval = 1 * time.Second

var ErrTimeout = errors.New("timed out waiting for credentials")

// Waiter blocks until the portal deposits a submission into the store. It
// watches the slot directory with fsnotify and keeps a polling ticker as a
// fallback, so a missed event never strands the flow.
type Waiter struct {
	store *Store
	poll  time.Duration
}

func NewWaiter(store *Store, poll time.Duration) *Waiter {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Waiter{store: store, poll: poll}
}

// Await returns the next submission, consuming it from the slot. A
// submission already sitting in the slot is returned immediately. Returns
// ErrTimeout when timeout elapses (timeout <= 0 waits indefinitely) and the
// context error on cancellation.
func (w *Waiter) Await(ctx context.Context, timeout time.Duration) (wifi.Credentials, error) {
	if c, ok := w.take(); ok {
		return c, nil
	}

	var events chan fsnotify.Event
	var watchErrs chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("Filesystem watch unavailable, relying on polling", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(w.store.path)); err != nil {
			slog.Warn("Failed to watch hand-off directory, relying on polling", "error", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return wifi.Credentials{}, ctx.Err()
		case <-deadline:
			return wifi.Credentials{}, ErrTimeout
		case ev := <-events:
			if filepath.Clean(ev.Name) != filepath.Clean(w.store.path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if c, ok := w.take(); ok {
				return c, nil
			}
		case <-ticker.C:
			if c, ok := w.take(); ok {
				return c, nil
			}
		case err := <-watchErrs:
			slog.Warn("Hand-off watch error", "error", err)
		}
	}
}

func (w *Waiter) take() (wifi.Credentials, bool) {
	c, ok, err := w.store.Take()
	if err != nil {
		// A garbled slot was already cleared; keep waiting for a clean one.
		slog.Warn("Discarded unreadable hand-off payload", "error", err)
		return wifi.Credentials{}, false
	}
	return c, ok
}
