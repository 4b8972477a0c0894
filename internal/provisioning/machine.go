package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vistalink/screen-setup/internal/dnsconf"
	"github.com/vistalink/screen-setup/internal/wifi"
)

const (
	DefaultVerifyBudget   = 60 * time.Second
	DefaultCredentialWait = 5 * time.Minute

	teardownTimeout = 10 * time.Second
)

var errNotOnline = errors.New("network did not come online")

// RadioController drives the wireless interface.
type RadioController interface {
	StartAP(ctx context.Context) error
	StopAP(ctx context.Context) error
	ApplyStation(ctx context.Context, creds wifi.Credentials) error
}

// Prober answers whether the device currently has connectivity.
type Prober interface {
	Online(ctx context.Context) bool
}

// DNSResetter rewrites and checks the system resolver config.
type DNSResetter interface {
	Reset() error
	Verify() error
}

// CredentialSource blocks until a credential submission arrives. A non-nil
// error with the context still live means the wait timed out.
type CredentialSource interface {
	Await(ctx context.Context, timeout time.Duration) (wifi.Credentials, error)
}

// Activator announces the provisioned device to the backend.
type Activator interface {
	Activate(ctx context.Context) error
}

// ConfigUI is the captive setup portal, held open for the AP window.
type ConfigUI interface {
	Start() error
	Stop() error
}

// APPresenter shows the join code for the setup network. Best effort.
type APPresenter interface {
	ShowJoinCode(c wifi.Credentials)
}

// Machine runs the provisioning flow: probe connectivity, raise the setup
// AP, take credentials from the portal, swing the radio to station mode,
// straighten DNS, verify, and activate. It owns the session and is the only
// writer to it.
type Machine struct {
	radio     RadioController
	prober    Prober
	dns       DNSResetter
	source    CredentialSource
	activator Activator

	configUI  ConfigUI
	presenter APPresenter
	sink      Sink

	apNet          wifi.Credentials
	policy         dnsconf.Policy
	verifyBudget   time.Duration
	credentialWait time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	running  atomic.Bool
	apUp     bool
	portalUp bool

	mu      sync.Mutex
	session *Session
}

func NewMachine(radio RadioController, prober Prober, dns DNSResetter, source CredentialSource, activator Activator) *Machine {
	return &Machine{
		radio:          radio,
		prober:         prober,
		dns:            dns,
		source:         source,
		activator:      activator,
		apNet:          wifi.Credentials{SSID: "VistaSetup", Passphrase: "vista-setup"},
		policy:         dnsconf.DefaultPolicy(),
		verifyBudget:   DefaultVerifyBudget,
		credentialWait: DefaultCredentialWait,
		sleep:          sleepContext,
		now:            time.Now,
	}
}

// SetConfigUI attaches the setup portal. Set after construction because the
// portal needs the machine for its status endpoint.
func (m *Machine) SetConfigUI(ui ConfigUI) {
	m.configUI = ui
}

func (m *Machine) SetPresenter(p APPresenter) {
	m.presenter = p
}

func (m *Machine) SetSink(s Sink) {
	m.sink = s
}

// SetAPNetwork sets the identity of the setup network the device hosts.
func (m *Machine) SetAPNetwork(c wifi.Credentials) {
	m.apNet = c
}

func (m *Machine) SetDNSPolicy(p dnsconf.Policy) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = dnsconf.DefaultPolicy().MaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = dnsconf.DefaultPolicy().Delay
	}
	m.policy = p
}

func (m *Machine) SetVerifyBudget(d time.Duration) {
	if d > 0 {
		m.verifyBudget = d
	}
}

func (m *Machine) SetCredentialWait(d time.Duration) {
	if d > 0 {
		m.credentialWait = d
	}
}

// APNetwork returns the identity of the setup network.
func (m *Machine) APNetwork() wifi.Credentials {
	return m.apNet
}

// Active reports whether a session is currently running.
func (m *Machine) Active() bool {
	return m.running.Load()
}

// Snapshot returns a copy of the current session, if one has been started.
func (m *Machine) Snapshot() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return m.session.Snapshot(), true
}

// Run executes one provisioning session to a terminal state. Only one
// session runs at a time; a concurrent call returns ErrSessionActive. On
// cancellation the AP and portal are torn down best effort and the session
// is returned at its last state together with the context error.
func (m *Machine) Run(ctx context.Context) (Session, error) {
	if !m.running.CompareAndSwap(false, true) {
		return Session{}, ErrSessionActive
	}
	defer m.running.Store(false)

	now := m.now()
	m.mu.Lock()
	m.session = &Session{State: StateCheckingConnectivity, StartedAt: now, UpdatedAt: now}
	m.mu.Unlock()
	m.apUp = false
	m.portalUp = false

	slog.Info("Provisioning session started")
	m.emit(StateCheckingConnectivity, "")

	if m.prober.Online(ctx) {
		slog.Info("Device already online, skipping setup network")
		return m.activate(ctx)
	}
	if ctx.Err() != nil {
		return m.halt(ctx.Err())
	}

	slog.Info("Device offline, raising setup network")
	if ferr := m.enterAP(ctx); ferr != nil {
		if ctx.Err() != nil {
			return m.halt(ctx.Err())
		}
		return m.failFlow(ferr), nil
	}

	for {
		m.transition(StateAwaitingCredentials, "")
		creds, err := m.source.Await(ctx, m.credentialWait)
		if err != nil {
			if ctx.Err() != nil {
				return m.halt(ctx.Err())
			}
			slog.Debug("No credentials submitted yet, continuing to wait")
			continue
		}

		m.mu.Lock()
		c := creds
		m.session.Credentials = &c
		m.mu.Unlock()

		m.transition(StateApplyingCredentials, creds.SSID)
		if err := m.leaveIntake(ctx); err != nil {
			if ctx.Err() != nil {
				return m.halt(ctx.Err())
			}
			if done, lerr := m.loopback(ctx, KindApply, err); done != nil {
				return *done, lerr
			}
			continue
		}
		if err := m.radio.ApplyStation(ctx, creds); err != nil {
			if ctx.Err() != nil {
				return m.halt(ctx.Err())
			}
			slog.Warn("Failed to apply credentials", "ssid", creds.SSID, "error", err)
			if done, lerr := m.loopback(ctx, KindApply, err); done != nil {
				return *done, lerr
			}
			continue
		}

		m.transition(StateResettingDNS, "")
		m.resetDNS(ctx)
		if ctx.Err() != nil {
			return m.halt(ctx.Err())
		}

		m.transition(StateVerifying, "")
		if m.waitOnline(ctx) {
			return m.activate(ctx)
		}
		if ctx.Err() != nil {
			return m.halt(ctx.Err())
		}

		slog.Warn("Network did not come online, returning to setup network", "ssid", creds.SSID)
		if done, lerr := m.loopback(ctx, KindVerify, errNotOnline); done != nil {
			return *done, lerr
		}
	}
}

// enterAP transitions to AP_ACTIVE and brings up the setup network plus the
// portal. Returns the flow error on failure; the caller decides how fatal it
// is.
func (m *Machine) enterAP(ctx context.Context) *FlowError {
	m.transition(StateAPActive, "")
	if err := m.radio.StartAP(ctx); err != nil {
		return &FlowError{Kind: KindAPStart, Message: err.Error()}
	}
	m.apUp = true

	if m.configUI != nil {
		if err := m.configUI.Start(); err != nil {
			if stopErr := m.radio.StopAP(ctx); stopErr != nil {
				slog.Warn("Failed to stop access point", "error", stopErr)
			}
			m.apUp = false
			return &FlowError{Kind: KindConfigUI, Message: err.Error()}
		}
		m.portalUp = true
	}

	if m.presenter != nil {
		m.presenter.ShowJoinCode(m.apNet)
	}
	return nil
}

// leaveIntake closes the AP window: portal down, then the AP itself, before
// the radio swings to station mode.
func (m *Machine) leaveIntake(ctx context.Context) error {
	if m.portalUp {
		if err := m.configUI.Stop(); err != nil {
			slog.Warn("Failed to stop config portal", "error", err)
		}
		m.portalUp = false
	}
	if m.apUp {
		if err := m.radio.StopAP(ctx); err != nil {
			// apUp stays set so a later halt or re-entry can try again.
			return fmt.Errorf("failed to stop access point: %w", err)
		}
		m.apUp = false
	}
	return nil
}

// loopback records a recoverable failure and re-enters AP_ACTIVE for another
// attempt. A non-nil session ends the run: either re-raising the AP failed
// (terminal, nil error) or the context was cancelled on the way.
func (m *Machine) loopback(ctx context.Context, kind ErrorKind, cause error) (*Session, error) {
	m.mu.Lock()
	m.session.LastError = &FlowError{Kind: kind, Message: cause.Error()}
	m.session.AttemptCount++
	attempt := m.session.AttemptCount
	m.mu.Unlock()

	slog.Info("Returning to setup network for another attempt", "attempt", attempt, "cause", cause)
	if ferr := m.enterAP(ctx); ferr != nil {
		if ctx.Err() != nil {
			s, err := m.halt(ctx.Err())
			return &s, err
		}
		s := m.failFlow(ferr)
		return &s, nil
	}
	return nil, nil
}

// resetDNS runs the bounded reset loop: up to MaxAttempts rewrites with
// Delay between attempts, then a single verification. DNS trouble never
// stops the flow, it only leaves a warning on the session.
func (m *Machine) resetDNS(ctx context.Context) {
	var lastErr error
	ok := false
	for attempt := 1; attempt <= m.policy.MaxAttempts; attempt++ {
		if err := m.dns.Reset(); err != nil {
			lastErr = err
			slog.Warn("DNS reset attempt failed", "attempt", attempt, "max_attempts", m.policy.MaxAttempts, "error", err)
			if attempt < m.policy.MaxAttempts {
				if m.sleep(ctx, m.policy.Delay) != nil {
					return
				}
			}
			continue
		}
		ok = true
		break
	}
	if !ok {
		m.addWarning(fmt.Sprintf("dns reset failed after %d attempts: %v", m.policy.MaxAttempts, lastErr))
		return
	}
	if err := m.dns.Verify(); err != nil {
		m.addWarning(fmt.Sprintf("dns verification failed: %v", err))
	}
}

// waitOnline polls the prober until it reports connectivity or the verify
// budget runs out, growing the interval between probes.
func (m *Machine) waitOnline(ctx context.Context) bool {
	deadline := m.now().Add(m.verifyBudget)
	interval := time.Second
	for {
		if m.prober.Online(ctx) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		remaining := deadline.Sub(m.now())
		if remaining <= 0 {
			return false
		}
		if interval > remaining {
			interval = remaining
		}
		if m.sleep(ctx, interval) != nil {
			return false
		}
		if interval < 8*time.Second {
			interval *= 2
		}
	}
}

func (m *Machine) activate(ctx context.Context) (Session, error) {
	m.transition(StateActivating, "")
	if err := m.activator.Activate(ctx); err != nil {
		if ctx.Err() != nil {
			return m.halt(ctx.Err())
		}
		return m.failFlow(&FlowError{Kind: KindActivation, Message: err.Error()}), nil
	}
	m.transition(StateSucceeded, "")
	slog.Info("Provisioning succeeded")
	return m.snapshot(), nil
}

func (m *Machine) failFlow(ferr *FlowError) Session {
	m.mu.Lock()
	m.session.LastError = ferr
	m.mu.Unlock()
	m.transition(StateFailed, ferr.Message)
	slog.Error("Provisioning failed", "kind", ferr.Kind, "error", ferr.Message)
	return m.snapshot()
}

// halt tears down the AP window best effort and returns the session at its
// current state. Cancellation is not failure.
func (m *Machine) halt(cause error) (Session, error) {
	slog.Info("Provisioning session stopped", "state", m.currentState(), "cause", cause)
	tctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if m.portalUp {
		if err := m.configUI.Stop(); err != nil {
			slog.Warn("Failed to stop config portal", "error", err)
		}
		m.portalUp = false
	}
	if m.apUp {
		if err := m.radio.StopAP(tctx); err != nil {
			slog.Warn("Failed to stop access point", "error", err)
		}
		m.apUp = false
	}
	return m.snapshot(), cause
}

func (m *Machine) transition(s State, detail string) {
	m.mu.Lock()
	m.session.State = s
	m.session.UpdatedAt = m.now()
	if s == StateApplyingCredentials {
		m.session.LastError = nil
	}
	attempt := m.session.AttemptCount
	m.mu.Unlock()

	slog.Info("Provisioning state changed", "state", s, "attempt", attempt)
	m.emit(s, detail)
}

func (m *Machine) emit(s State, detail string) {
	if m.sink == nil {
		return
	}
	m.mu.Lock()
	attempt := m.session.AttemptCount
	m.mu.Unlock()
	m.sink.Publish(StatusEvent{State: s, Attempt: attempt, Detail: detail, At: m.now()})
}

func (m *Machine) addWarning(w string) {
	m.mu.Lock()
	m.session.Warnings = append(m.session.Warnings, w)
	m.mu.Unlock()
	slog.Warn("Provisioning warning recorded", "warning", w)
}

func (m *Machine) snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Snapshot()
}

func (m *Machine) currentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.State
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
