package provisioning

// State is the current phase of a provisioning session.
type State string

const (
	StateCheckingConnectivity State = "checking_connectivity"
	StateAPActive             State = "ap_active"
	StateAwaitingCredentials  State = "awaiting_credentials"
	StateApplyingCredentials  State = "applying_credentials"
	StateResettingDNS         State = "resetting_dns"
	StateVerifying            State = "verifying"
	StateActivating           State = "activating"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether the session is finished. A terminal session never
// transitions again; a new attempt requires a new session.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
