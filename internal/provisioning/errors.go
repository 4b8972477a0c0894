package provisioning

import "errors"

// ErrSessionActive is returned by Run when a session is already in flight.
// At most one non-terminal session exists per process.
var ErrSessionActive = errors.New("provisioning session already active")

// ErrorKind classifies where the flow failed.
type ErrorKind string

const (
	KindAPStart    ErrorKind = "ap_start"
	KindConfigUI   ErrorKind = "config_ui"
	KindApply      ErrorKind = "apply"
	KindVerify     ErrorKind = "verify"
	KindActivation ErrorKind = "activation"
)

// FlowError is the recorded cause of a failed step. Loopback failures (apply,
// verify) surface through the session status while the user retries; fatal
// kinds (ap_start, config_ui, activation) end the session.
type FlowError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *FlowError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
