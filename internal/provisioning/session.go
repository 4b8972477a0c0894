package provisioning

import (
	"time"

	"github.com/vistalink/screen-setup/internal/wifi"
)

// Session is the observable record of one provisioning run. The machine owns
// it exclusively; everyone else reads copies via Snapshot. Sessions are never
// persisted, a restart starts fresh.
type Session struct {
	State        State             `json:"state"`
	AttemptCount int               `json:"attempt_count"`
	Credentials  *wifi.Credentials `json:"-"`
	LastError    *FlowError        `json:"last_error,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Snapshot returns an independent copy of the session.
func (s *Session) Snapshot() Session {
	out := *s
	if s.Credentials != nil {
		c := *s.Credentials
		out.Credentials = &c
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	if len(s.Warnings) > 0 {
		out.Warnings = append([]string(nil), s.Warnings...)
	}
	return out
}
