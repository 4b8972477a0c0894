package provisioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalink/screen-setup/internal/wifi"
)

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateCheckingConnectivity.Terminal())
	assert.False(t, StateAPActive.Terminal())
	assert.False(t, StateAwaitingCredentials.Terminal())
	assert.False(t, StateApplyingCredentials.Terminal())
	assert.False(t, StateResettingDNS.Terminal())
	assert.False(t, StateVerifying.Terminal())
	assert.False(t, StateActivating.Terminal())
}

func TestSessionSnapshotIsIndependent(t *testing.T) {
	now := time.Now()
	s := &Session{
		State:        StateAPActive,
		AttemptCount: 1,
		Credentials:  &wifi.Credentials{SSID: "HomeNet", Passphrase: "password1"},
		LastError:    &FlowError{Kind: KindApply, Message: "association rejected"},
		Warnings:     []string{"dns verification failed"},
		StartedAt:    now,
		UpdatedAt:    now,
	}

	snap := s.Snapshot()

	s.State = StateFailed
	s.Credentials.SSID = "Other"
	s.LastError.Message = "changed"
	s.Warnings[0] = "changed"
	s.Warnings = append(s.Warnings, "more")

	assert.Equal(t, StateAPActive, snap.State)
	require.NotNil(t, snap.Credentials)
	assert.Equal(t, "HomeNet", snap.Credentials.SSID)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "association rejected", snap.LastError.Message)
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, "dns verification failed", snap.Warnings[0])
}

func TestFlowErrorMessage(t *testing.T) {
	e := &FlowError{Kind: KindActivation, Message: "server returned 500"}
	assert.Equal(t, "activation: server returned 500", e.Error())
}
