package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalink/screen-setup/internal/wifi"
)

type fakeRadio struct {
	mu        sync.Mutex
	calls     []string
	startErrs []error
	stopErrs  []error
	applyErrs []error
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	e := (*errs)[0]
	*errs = (*errs)[1:]
	return e
}

func (f *fakeRadio) StartAP(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	return popErr(&f.startErrs)
}

func (f *fakeRadio) StopAP(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	return popErr(&f.stopErrs)
}

func (f *fakeRadio) ApplyStation(ctx context.Context, creds wifi.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "apply:"+creds.SSID)
	return popErr(&f.applyErrs)
}

func (f *fakeRadio) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeProber struct {
	mu       sync.Mutex
	results  []bool
	fallback bool
	probes   int
}

func (f *fakeProber) Online(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if len(f.results) > 0 {
		r := f.results[0]
		f.results = f.results[1:]
		return r
	}
	return f.fallback
}

type fakeDNS struct {
	mu        sync.Mutex
	resetErrs []error
	verifyErr error
	resets    int
	verifies  int
}

func (f *fakeDNS) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return popErr(&f.resetErrs)
}

func (f *fakeDNS) Verify() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies++
	return f.verifyErr
}

type sourceReply struct {
	creds wifi.Credentials
	err   error
}

// fakeSource pops scripted replies and blocks on the context once drained.
type fakeSource struct {
	mu      sync.Mutex
	replies []sourceReply
	awaits  int
}

func (f *fakeSource) Await(ctx context.Context, timeout time.Duration) (wifi.Credentials, error) {
	f.mu.Lock()
	f.awaits++
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		f.mu.Unlock()
		return r.creds, r.err
	}
	f.mu.Unlock()
	<-ctx.Done()
	return wifi.Credentials{}, ctx.Err()
}

type fakeActivator struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *fakeActivator) Activate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return popErr(&f.errs)
}

type fakeUI struct {
	mu        sync.Mutex
	startErrs []error
	starts    int
	stops     int
}

func (f *fakeUI) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return popErr(&f.startErrs)
}

func (f *fakeUI) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

type fakePresenter struct {
	mu    sync.Mutex
	shown []wifi.Credentials
}

func (f *fakePresenter) ShowJoinCode(c wifi.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, c)
}

type recordSink struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (r *recordSink) Publish(e StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordSink) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.events))
	for i, e := range r.events {
		out[i] = e.State
	}
	return out
}

// sleepRecorder replaces the machine clock so retry and poll tests run
// instantly and deterministically.
type sleepRecorder struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func newSleepRecorder() *sleepRecorder {
	return &sleepRecorder{t: time.Unix(1700000000, 0)}
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.t = s.t.Add(d)
	s.mu.Unlock()
	return nil
}

func (s *sleepRecorder) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

type machineFixture struct {
	m     *Machine
	radio *fakeRadio
	probe *fakeProber
	dns   *fakeDNS
	src   *fakeSource
	act   *fakeActivator
	ui    *fakeUI
	pres  *fakePresenter
	sink  *recordSink
	clock *sleepRecorder
}

func newFixture() *machineFixture {
	f := &machineFixture{
		radio: &fakeRadio{},
		probe: &fakeProber{},
		dns:   &fakeDNS{},
		src:   &fakeSource{},
		act:   &fakeActivator{},
		ui:    &fakeUI{},
		pres:  &fakePresenter{},
		sink:  &recordSink{},
		clock: newSleepRecorder(),
	}
	f.m = NewMachine(f.radio, f.probe, f.dns, f.src, f.act)
	f.m.SetConfigUI(f.ui)
	f.m.SetPresenter(f.pres)
	f.m.SetSink(f.sink)
	f.m.sleep = f.clock.sleep
	f.m.now = f.clock.now
	return f
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}}}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, session.State)
	assert.Equal(t, 0, session.AttemptCount)
	assert.Nil(t, session.LastError)
	assert.Empty(t, session.Warnings)

	assert.Equal(t, []State{
		StateCheckingConnectivity,
		StateAPActive,
		StateAwaitingCredentials,
		StateApplyingCredentials,
		StateResettingDNS,
		StateVerifying,
		StateActivating,
		StateSucceeded,
	}, f.sink.states())

	// AP window closes before the radio swings to station mode.
	assert.Equal(t, []string{"start", "stop", "apply:HomeNet"}, f.radio.callList())
	assert.Equal(t, 1, f.ui.starts)
	assert.Equal(t, 1, f.ui.stops)
	require.Len(t, f.pres.shown, 1)
	assert.Equal(t, "VistaSetup", f.pres.shown[0].SSID)
	assert.Equal(t, 1, f.act.calls)
	assert.Equal(t, 1, f.dns.resets)
	assert.Equal(t, 1, f.dns.verifies)
}

func TestRunAlreadyOnline(t *testing.T) {
	f := newFixture()
	f.probe.fallback = true

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, session.State)
	assert.Equal(t, []State{StateCheckingConnectivity, StateActivating, StateSucceeded}, f.sink.states())
	assert.Empty(t, f.radio.callList())
	assert.Equal(t, 0, f.ui.starts)
	assert.Equal(t, 0, f.src.awaits)
}

func TestRunAPStartFailure(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.radio.startErrs = []error{errors.New("hostapd refused")}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, session.State)
	require.NotNil(t, session.LastError)
	assert.Equal(t, KindAPStart, session.LastError.Kind)
	assert.Equal(t, 0, f.ui.starts)
	assert.Equal(t, 0, f.src.awaits)
}

func TestRunConfigUIStartFailure(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.ui.startErrs = []error{errors.New("port in use")}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, session.State)
	require.NotNil(t, session.LastError)
	assert.Equal(t, KindConfigUI, session.LastError.Kind)
	// AP is brought back down when the portal cannot come up.
	assert.Equal(t, []string{"start", "stop"}, f.radio.callList())
}

func TestRunWrongThenRightCredentials(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	f.radio.applyErrs = []error{errors.New("association rejected"), nil}
	f.src.replies = []sourceReply{
		{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "wrongpass1"}},
		{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "rightpass1"}},
	}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, session.State)
	assert.Equal(t, 1, session.AttemptCount)
	assert.Nil(t, session.LastError)

	assert.Equal(t, []State{
		StateCheckingConnectivity,
		StateAPActive,
		StateAwaitingCredentials,
		StateApplyingCredentials,
		StateAPActive,
		StateAwaitingCredentials,
		StateApplyingCredentials,
		StateResettingDNS,
		StateVerifying,
		StateActivating,
		StateSucceeded,
	}, f.sink.states())

	assert.Equal(t, []string{
		"start", "stop", "apply:HomeNet",
		"start", "stop", "apply:HomeNet",
	}, f.radio.callList())
	assert.Equal(t, 2, f.ui.starts)
	assert.Equal(t, 2, f.ui.stops)
}

func TestRunApplyFailureVisibleWhileWaiting(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.radio.applyErrs = []error{errors.New("association rejected")}
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "wrongpass1"}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var session Session
	var runErr error
	go func() {
		session, runErr = f.m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		s, ok := f.m.Snapshot()
		return ok && s.State == StateAwaitingCredentials && s.AttemptCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	s, ok := f.m.Snapshot()
	require.True(t, ok)
	require.NotNil(t, s.LastError)
	assert.Equal(t, KindApply, s.LastError.Kind)
	assert.Contains(t, s.LastError.Message, "association rejected")

	cancel()
	<-done
	assert.ErrorIs(t, runErr, context.Canceled)
	assert.Equal(t, StateAwaitingCredentials, session.State)
}

func TestRunDNSResetRetries(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	f.dns.resetErrs = []error{errors.New("read-only fs"), errors.New("read-only fs"), nil}
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}}}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, session.State)
	assert.Empty(t, session.Warnings)
	assert.Equal(t, 3, f.dns.resets)
	assert.Equal(t, 1, f.dns.verifies)
	// One delay between each attempt, none after the last.
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.clock.durations())
}

func TestRunDNSResetExhausted(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	f.dns.resetErrs = []error{errors.New("read-only fs"), errors.New("read-only fs"), errors.New("read-only fs")}
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}}}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	// DNS trouble is advisory: the flow still completes.
	assert.Equal(t, StateSucceeded, session.State)
	require.Len(t, session.Warnings, 1)
	assert.Contains(t, session.Warnings[0], "dns reset failed after 3 attempts")
	assert.Equal(t, 3, f.dns.resets)
	assert.Equal(t, 0, f.dns.verifies)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.clock.durations())
}

func TestRunDNSVerifyWarning(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	f.dns.verifyErr = errors.New("nameserver missing")
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}}}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, session.State)
	require.Len(t, session.Warnings, 1)
	assert.Contains(t, session.Warnings[0], "dns verification failed")
}

func TestRunVerifyTimeoutLoopsBack(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}}}
	f.m.SetVerifyBudget(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var session Session
	var runErr error
	go func() {
		session, runErr = f.m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		s, ok := f.m.Snapshot()
		return ok && s.State == StateAwaitingCredentials && s.AttemptCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	s, ok := f.m.Snapshot()
	require.True(t, ok)
	require.NotNil(t, s.LastError)
	assert.Equal(t, KindVerify, s.LastError.Kind)

	// Growing poll intervals clamped to the 10s budget.
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		3 * time.Second,
	}, f.clock.durations())

	cancel()
	<-done
	assert.ErrorIs(t, runErr, context.Canceled)
	assert.Equal(t, StateAwaitingCredentials, session.State)
	assert.Equal(t, []string{"start", "stop", "apply:HomeNet", "start", "stop"}, f.radio.callList())
}

func TestRunAwaitTimeoutReenters(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	timeout := errors.New("timed out waiting for credentials")
	f.src.replies = []sourceReply{
		{err: timeout},
		{err: timeout},
		{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}},
	}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, session.State)
	assert.Equal(t, 0, session.AttemptCount)
	assert.Equal(t, 3, f.src.awaits)

	// The AP stays up across wait timeouts.
	count := 0
	for _, s := range f.sink.states() {
		if s == StateAwaitingCredentials {
			count++
		}
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, f.ui.starts)
}

func TestRunActivationFailure(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}
	f.probe.fallback = true
	f.src.replies = []sourceReply{{creds: wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"}}}
	f.act.errs = []error{errors.New("server returned 500")}

	session, err := f.m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, session.State)
	require.NotNil(t, session.LastError)
	assert.Equal(t, KindActivation, session.LastError.Kind)
	assert.Equal(t, 1, f.act.calls)
}

func TestRunCancelDuringIntake(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var session Session
	var runErr error
	go func() {
		session, runErr = f.m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		s, ok := f.m.Snapshot()
		return ok && s.State == StateAwaitingCredentials
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.ErrorIs(t, runErr, context.Canceled)
	assert.False(t, session.State.Terminal())
	// Best-effort teardown of the AP window.
	assert.Equal(t, []string{"start", "stop"}, f.radio.callList())
	assert.Equal(t, 1, f.ui.stops)
	assert.False(t, f.m.Active())
}

func TestRunSingleFlight(t *testing.T) {
	f := newFixture()
	f.probe.results = []bool{false}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, _ = f.m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, f.m.Active, 2*time.Second, 10*time.Millisecond)

	_, err := f.m.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionActive)

	cancel()
	<-done
}

func TestRunAgainAfterTerminal(t *testing.T) {
	f := newFixture()
	f.probe.fallback = true

	first, err := f.m.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, first.State)

	second, err := f.m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, second.State)
	assert.Equal(t, 2, f.act.calls)
}
